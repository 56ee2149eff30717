package models

import "github.com/shopspring/decimal"

// Payment represents a direct transfer between two members of a group,
// typically to settle a debt. Payments are not split.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// GroupID is the group this payment belongs to.
	GroupID string

	// PayerID is the user who sent the money.
	PayerID string

	// RecipientID is the user who received the money. Must differ from
	// PayerID; both must be members of the group.
	RecipientID string

	// Amount is the transferred amount. Always positive.
	Amount decimal.Decimal

	// Currency is the ISO 4217 currency code of the amount.
	Currency string

	// PaymentDate is the Unix timestamp of when the transfer happened.
	PaymentDate int64

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64

	// DeletedAt is the Unix timestamp of soft deletion, or 0 if active.
	DeletedAt int64
}

// State returns the payment's lifecycle state.
func (p *Payment) State() LifecycleState { return stateOf(p.DeletedAt) }
