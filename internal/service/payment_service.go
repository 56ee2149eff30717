package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/events"
	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/storage"
)

// PaymentService manages direct member-to-member payments.
type PaymentService struct {
	store storage.Store
	pub   events.Publisher
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store storage.Store, pub events.Publisher) *PaymentService {
	return &PaymentService{store: store, pub: pub}
}

// PaymentInput carries everything needed to record a payment.
type PaymentInput struct {
	GroupID     string
	PayerID     string
	RecipientID string
	Amount      decimal.Decimal
	Currency    string
	PaymentDate int64
}

func (in *PaymentInput) validate() error {
	if in.Amount.Sign() <= 0 {
		return &ledger.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !validCurrency(in.Currency) {
		return &ledger.ValidationError{Field: "currency", Reason: "must be a 3-letter uppercase code"}
	}
	if in.PayerID == in.RecipientID {
		return &ledger.ValidationError{Field: "recipient_id", Reason: "payer and recipient must differ"}
	}
	return nil
}

// Create records a payment between two members of a group. The payment and
// its audit entry commit atomically.
func (s *PaymentService) Create(ctx context.Context, actor ledger.Actor, in PaymentInput) (*models.Payment, error) {
	slog.Info("CreatePayment request received",
		"group_id", in.GroupID,
		"payer_id", in.PayerID,
		"recipient_id", in.RecipientID,
		"amount", in.Amount,
	)

	if err := in.validate(); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		GroupID:     in.GroupID,
		PayerID:     in.PayerID,
		RecipientID: in.RecipientID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		PaymentDate: in.PaymentDate,
	}

	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		group, err := tx.GetGroup(ctx, in.GroupID)
		if err != nil {
			return err
		}
		if group.State() != models.StateActive {
			return &ledger.ValidationError{Field: "group_id", Reason: "group is deleted"}
		}
		// Both sides must be members of the group.
		if _, err := tx.GetMember(ctx, in.GroupID, in.PayerID); err != nil {
			return err
		}
		if _, err := tx.GetMember(ctx, in.GroupID, in.RecipientID); err != nil {
			return err
		}

		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		entry, err := ledger.NewAuditEntry(models.EntityPayment, payment.ID, models.ActionCreate,
			actor, in.GroupID, nil, snapshotPayment(payment))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("CreatePayment failed", "group_id", in.GroupID, "error", err)
		return nil, err
	}

	notify(ctx, s.pub, models.EntityPayment, payment.ID, models.ActionCreate, in.GroupID)
	slog.Info("Payment created", "payment_id", payment.ID)
	return payment, nil
}

// Get retrieves a payment by id, regardless of lifecycle state.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

// ListActive returns a group's active payments.
func (s *PaymentService) ListActive(ctx context.Context, groupID string) ([]models.Payment, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListGroupPayments(ctx, groupID)
}

// SoftDelete marks a payment deleted. A no-op on an already deleted one.
func (s *PaymentService) SoftDelete(ctx context.Context, actor ledger.Actor, id string) error {
	var (
		mutated bool
		groupID string
	)
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		groupID = before.GroupID
		if before.State() == models.StateSoftDeleted {
			return nil
		}
		if err := tx.SoftDeletePayment(ctx, id); err != nil {
			return err
		}
		mutated = true

		entry, err := ledger.NewAuditEntry(models.EntityPayment, id, models.ActionDelete,
			actor, before.GroupID, snapshotPayment(before), nil)
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Soft-delete payment failed", "payment_id", id, "error", err)
		return err
	}

	if mutated {
		notify(ctx, s.pub, models.EntityPayment, id, models.ActionDelete, groupID)
	}
	return nil
}

// Restore clears a payment's deletion mark. A no-op on an active payment.
func (s *PaymentService) Restore(ctx context.Context, actor ledger.Actor, id string) error {
	var (
		mutated bool
		groupID string
	)
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		groupID = before.GroupID
		if before.State() == models.StateActive {
			return nil
		}
		if err := tx.RestorePayment(ctx, id); err != nil {
			return err
		}
		after, err := tx.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		mutated = true

		entry, err := ledger.NewAuditEntry(models.EntityPayment, id, models.ActionUpdate,
			actor, before.GroupID, snapshotPayment(before), snapshotPayment(after))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Restore payment failed", "payment_id", id, "error", err)
		return err
	}

	if mutated {
		notify(ctx, s.pub, models.EntityPayment, id, models.ActionUpdate, groupID)
	}
	return nil
}

// HardDelete permanently removes a soft-deleted payment.
func (s *PaymentService) HardDelete(ctx context.Context, actor ledger.Actor, id string) error {
	if err := s.store.HardDeletePayment(ctx, id); err != nil {
		slog.Error("Hard-delete payment failed", "payment_id", id, "error", err)
		return err
	}
	slog.Info("Payment hard-deleted", "payment_id", id, "actor_id", actor.ID)
	return nil
}
