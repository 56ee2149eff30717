package models

// Role is a member's permission level within a group.
// Authorization is enforced by the caller; the role is recorded here and in
// the audit trail.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleEditor        Role = "editor"
	RoleViewer        Role = "viewer"
)

// Valid reports whether the role is one of the recognized levels.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Group represents a named collection of users sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Currency is the group's primary ISO 4217 currency code.
	Currency string

	// CreatedBy is the user ID of the group's creator.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64

	// DeletedAt is the Unix timestamp of soft deletion, or 0 if active.
	DeletedAt int64
}

// State returns the group's lifecycle state.
func (g *Group) State() LifecycleState { return stateOf(g.DeletedAt) }

// Membership is a (group, user) pair with a role. Unique per group and user.
type Membership struct {
	GroupID string
	UserID  string
	Role    Role

	// DisplayName is the member's display name, joined in on read for
	// balance reporting. Not persisted on the membership row itself.
	DisplayName string

	// JoinedAt is the Unix timestamp when the user joined the group.
	JoinedAt int64

	// UpdatedAt is the Unix timestamp of the last role change.
	UpdatedAt int64
}
