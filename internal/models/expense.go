package models

import "github.com/shopspring/decimal"

// SplitMethod is the rule used to divide an expense among its participants.
type SplitMethod string

const (
	// SplitEqual divides the amount evenly, distributing leftover cents.
	SplitEqual SplitMethod = "equal"

	// SplitPercentage assigns each participant a percentage of the total.
	SplitPercentage SplitMethod = "percentage"

	// SplitExact assigns each participant an explicit amount.
	SplitExact SplitMethod = "exact"

	// SplitShares divides the amount by integer share weights.
	SplitShares SplitMethod = "shares"
)

// Valid reports whether the split method is one of the recognized rules.
func (m SplitMethod) Valid() bool {
	switch m {
	case SplitEqual, SplitPercentage, SplitExact, SplitShares:
		return true
	}
	return false
}

// Expense represents a cost paid by one group member on behalf of several.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// PayerID is the user who paid the full amount.
	PayerID string

	// Amount is the total expense amount. Always positive.
	Amount decimal.Decimal

	// Currency is the ISO 4217 currency code of the amount.
	Currency string

	// Description is the human-readable label (e.g., "Groceries").
	Description string

	// SplitMethod is the rule used to derive the participant shares.
	SplitMethod SplitMethod

	// ExpenseDate is the Unix timestamp of when the cost was incurred,
	// which may differ from CreatedAt.
	ExpenseDate int64

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64

	// DeletedAt is the Unix timestamp of soft deletion, or 0 if active.
	DeletedAt int64
}

// State returns the expense's lifecycle state.
func (e *Expense) State() LifecycleState { return stateOf(e.DeletedAt) }

// ExpenseShare is one participant's portion of an expense.
// Unique per (expense, user). Shares are destroyed with their expense.
type ExpenseShare struct {
	ExpenseID string
	UserID    string

	// Amount is this participant's portion in the expense currency.
	// Share amounts must reconcile to the expense total within a cent.
	Amount decimal.Decimal

	// Percentage is the participant's percentage (0-100) for
	// percentage-based splits. Unset otherwise.
	Percentage decimal.NullDecimal

	// ShareCount is the participant's weight for share-based splits.
	// Zero when unused.
	ShareCount int64
}
