// Package ledger implements the core bookkeeping logic for Splitbook:
// audit capture, balance calculation, split validation and settlement
// planning. It is pure computation over the domain models; persistence and
// transaction scoping live in the storage layer.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/models"
)

// Sentinel errors, for use with errors.Is. Structured error types below wrap
// these with context.
var (
	// ErrNotFound is returned when a referenced group/expense/user/payment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input to a core operation.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity is returned for duplicate unique keys or references to
	// nonexistent rows.
	ErrIntegrity = errors.New("integrity violation")

	// ErrImmutableAuditLog is returned on any attempt to alter or remove an
	// audit log entry.
	ErrImmutableAuditLog = errors.New("audit log entries are immutable")

	// ErrNotSoftDeleted is returned when hard deletion is attempted on an
	// entity that is still active.
	ErrNotSoftDeleted = errors.New("hard delete requires a soft-deleted entity")
)

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Entity models.EntityType
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError describes a business-rule violation in the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SplitMismatchError reports that an expense's shares do not reconcile to
// its total amount.
type SplitMismatchError struct {
	ExpenseID string
	Amount    decimal.Decimal
	ShareSum  decimal.Decimal
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("split totals do not match expense amount: shares sum to %s, expense is %s",
		e.ShareSum, e.Amount)
}

func (e *SplitMismatchError) Unwrap() error { return ErrValidation }

// LifecycleError reports an invalid lifecycle transition, such as hard
// deletion of an active entity.
type LifecycleError struct {
	Entity models.EntityType
	ID     string
	State  models.LifecycleState
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("cannot hard-delete %s %s: state is %s", e.Entity, e.ID, e.State)
}

func (e *LifecycleError) Unwrap() error { return ErrNotSoftDeleted }

// IntegrityError reports a broken reference or duplicate unique key.
type IntegrityError struct {
	Constraint string
	Detail     string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation (%s): %s", e.Constraint, e.Detail)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether err is due to invalid client input rather
// than an internal failure. Used by the API layer for status mapping.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrIntegrity) ||
		errors.Is(err, ErrNotSoftDeleted)
}
