package models

import "encoding/json"

// EntityType identifies which kind of entity an audit entry describes.
type EntityType string

const (
	EntityUser               EntityType = "user"
	EntityGroup              EntityType = "group"
	EntityGroupMember        EntityType = "group_member"
	EntityExpense            EntityType = "expense"
	EntityExpenseParticipant EntityType = "expense_participant"
	EntityPayment            EntityType = "payment"
)

// Valid reports whether the entity type is one of the six tracked kinds.
func (t EntityType) Valid() bool {
	switch t {
	case EntityUser, EntityGroup, EntityGroupMember,
		EntityExpense, EntityExpenseParticipant, EntityPayment:
		return true
	}
	return false
}

// AuditAction is the kind of mutation an audit entry records.
type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
)

// Valid reports whether the action is one of create/update/delete.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// AuditLogEntry is the immutable record of one mutation to a tracked entity.
//
// The acting user's email and display name are denormalized into the entry at
// capture time. ActorID and GroupID are live references that are nulled when
// the referenced row is hard-deleted; the denormalized columns and the state
// snapshots are never touched after the entry is written.
type AuditLogEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// Entity is the kind of entity that was mutated.
	Entity EntityType

	// EntityID is the id of the mutated entity.
	EntityID string

	// Action is the mutation kind: create, update or delete.
	Action AuditAction

	// ActorID references the acting user. Empty once the user row has been
	// hard-deleted; the snapshot fields below survive.
	ActorID string

	// ActorEmail is the acting user's email, captured by value.
	ActorEmail string

	// ActorName is the acting user's display name, captured by value.
	ActorName string

	// GroupID is the group context of the mutation, when applicable.
	// Empty for user-level mutations or after group hard deletion.
	GroupID string

	// Before is the JSON snapshot of the entity before the mutation.
	// Nil for create actions.
	Before json.RawMessage

	// After is the JSON snapshot of the entity after the mutation.
	// Nil for delete actions.
	After json.RawMessage

	// CreatedAt is the Unix timestamp when the entry was captured.
	CreatedAt int64
}
