// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/splitbook/splitbook/internal/models"
)

// AuditFilter narrows audit log queries. Zero-value fields are ignored.
type AuditFilter struct {
	Entity   models.EntityType
	EntityID string
	GroupID  string
	ActorID  string
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
//
// Lifecycle contract, per entity kind: SoftDelete marks the row deleted and
// is a no-op on an already soft-deleted row; Restore clears the mark;
// HardDelete permanently removes the row and fails unless the row is
// currently soft-deleted. Get* return rows in any lifecycle state;
// List* return active rows only.
//
// The audit log is APPEND-ONLY: there is no update or delete method, and
// implementations must reject attempts to alter entries at the storage
// level. Hard-deleting a user or group nulls the live references on its
// audit entries but never touches the denormalized snapshot columns.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListActiveUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	SoftDeleteUser(ctx context.Context, id string) error
	RestoreUser(ctx context.Context, id string) error
	HardDeleteUser(ctx context.Context, id string) error

	// Groups
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListActiveGroups(ctx context.Context) ([]*models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error
	SoftDeleteGroup(ctx context.Context, id string) error
	RestoreGroup(ctx context.Context, id string) error
	HardDeleteGroup(ctx context.Context, id string) error

	// Memberships
	AddMember(ctx context.Context, m *models.Membership) error
	GetMember(ctx context.Context, groupID, userID string) (*models.Membership, error)
	// ListMembers returns the group's members whose user account is active,
	// with display names joined in.
	ListMembers(ctx context.Context, groupID string) ([]models.Membership, error)
	UpdateMemberRole(ctx context.Context, groupID, userID string, role models.Role) error
	RemoveMember(ctx context.Context, groupID, userID string) error

	// Expenses. CreateExpense and UpdateExpense persist the expense together
	// with its shares; UpdateExpense replaces the share set.
	CreateExpense(ctx context.Context, expense *models.Expense, shares []models.ExpenseShare) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	ListGroupExpenses(ctx context.Context, groupID string) ([]models.Expense, error)
	ListExpenseShares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error)
	// ListGroupShares returns all shares belonging to the group's active
	// expenses, for balance aggregation.
	ListGroupShares(ctx context.Context, groupID string) ([]models.ExpenseShare, error)
	UpdateExpense(ctx context.Context, expense *models.Expense, shares []models.ExpenseShare) error
	SoftDeleteExpense(ctx context.Context, id string) error
	RestoreExpense(ctx context.Context, id string) error
	HardDeleteExpense(ctx context.Context, id string) error

	// Payments
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListGroupPayments(ctx context.Context, groupID string) ([]models.Payment, error)
	SoftDeletePayment(ctx context.Context, id string) error
	RestorePayment(ctx context.Context, id string) error
	HardDeletePayment(ctx context.Context, id string) error

	// Audit log (append-only)
	AppendAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error
	ListAuditEntries(ctx context.Context, filter AuditFilter) ([]models.AuditLogEntry, error)

	// WithTx executes fn within a single database transaction. The Store
	// passed to fn performs all operations inside that transaction; if fn
	// returns an error the transaction is rolled back, otherwise it is
	// committed. A mutation and its audit entry must share one WithTx scope.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Close releases any resources held by the store.
	Close() error
}
