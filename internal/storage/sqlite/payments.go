package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
)

const paymentColumns = "id, group_id, payer_id, recipient_id, amount, currency, payment_date, created_at, updated_at, deleted_at"

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	payment := &models.Payment{}
	var amount string
	var deletedAt sql.NullInt64
	err := row.Scan(
		&payment.ID,
		&payment.GroupID,
		&payment.PayerID,
		&payment.RecipientID,
		&amount,
		&payment.Currency,
		&payment.PaymentDate,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	payment.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	payment.DeletedAt = deletedAt.Int64
	return payment, nil
}

// CreatePayment persists a new payment.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if payment.CreatedAt == 0 {
		payment.CreatedAt = now
	}
	if payment.UpdatedAt == 0 {
		payment.UpdatedAt = now
	}
	if payment.PaymentDate == 0 {
		payment.PaymentDate = now
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.GroupID, payment.PayerID, payment.RecipientID,
		payment.Amount.String(), payment.Currency, payment.PaymentDate,
		payment.CreatedAt, payment.UpdatedAt, deletedAtValue(payment.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", mapErr(err))
	}
	return nil
}

// GetPayment retrieves a payment by ID, regardless of lifecycle state.
func (s *SQLiteStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := scanPayment(s.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ledger.NotFoundError{Entity: models.EntityPayment, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// ListGroupPayments retrieves a group's active payments, newest first.
func (s *SQLiteStore) ListGroupPayments(ctx context.Context, groupID string) ([]models.Payment, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE group_id = ? AND deleted_at IS NULL
		 ORDER BY payment_date DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// SoftDeletePayment marks a payment deleted. No-op if already soft-deleted.
func (s *SQLiteStore) SoftDeletePayment(ctx context.Context, id string) error {
	return s.softDelete(ctx, "payments", models.EntityPayment, id)
}

// RestorePayment clears a payment's deletion mark.
func (s *SQLiteStore) RestorePayment(ctx context.Context, id string) error {
	return s.restore(ctx, "payments", models.EntityPayment, id)
}

// HardDeletePayment permanently removes a soft-deleted payment.
func (s *SQLiteStore) HardDeletePayment(ctx context.Context, id string) error {
	return s.hardDelete(ctx, "payments", models.EntityPayment, id)
}
