package models

// LifecycleState tags where an entity sits in the soft-delete lifecycle.
// Hard deletion is only permitted from StateSoftDeleted.
type LifecycleState string

const (
	// StateActive is a live entity, visible in filtered "active" reads.
	StateActive LifecycleState = "active"

	// StateSoftDeleted is a logically deleted entity. It remains queryable
	// via "all" reads and can be restored or hard-deleted.
	StateSoftDeleted LifecycleState = "soft_deleted"
)

// stateOf derives the lifecycle state from a deletion timestamp.
// A zero timestamp means the entity is active.
func stateOf(deletedAt int64) LifecycleState {
	if deletedAt != 0 {
		return StateSoftDeleted
	}
	return StateActive
}
