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

// ExpenseService manages expenses and their shares.
type ExpenseService struct {
	store storage.Store
	pub   events.Publisher
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(store storage.Store, pub events.Publisher) *ExpenseService {
	return &ExpenseService{store: store, pub: pub}
}

// ExpenseInput carries everything needed to create or update an expense.
// Exactly one of the split fields is consulted, matching Method:
// Participants for equal, Percentages for percentage, Exact for exact,
// Weights for shares.
type ExpenseInput struct {
	GroupID     string
	PayerID     string
	Amount      decimal.Decimal
	Currency    string
	Description string
	Method      models.SplitMethod
	ExpenseDate int64

	Participants []string
	Percentages  []ledger.PercentageShare
	Exact        []models.ExpenseShare
	Weights      []ledger.WeightedShare
}

func (in *ExpenseInput) validate() error {
	if in.Amount.Sign() <= 0 {
		return &ledger.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !validCurrency(in.Currency) {
		return &ledger.ValidationError{Field: "currency", Reason: "must be a 3-letter uppercase code"}
	}
	if !in.Method.Valid() {
		return &ledger.ValidationError{Field: "split_method", Reason: "must be equal, percentage, exact or shares"}
	}
	return nil
}

// buildShares derives the share rows for the input's split method and checks
// that they reconcile to the amount.
func (in *ExpenseInput) buildShares(expense *models.Expense) ([]models.ExpenseShare, error) {
	var (
		shares []models.ExpenseShare
		err    error
	)
	switch in.Method {
	case models.SplitEqual:
		shares, err = ledger.EqualShares(expense.ID, in.Amount, in.Participants)
	case models.SplitPercentage:
		shares, err = ledger.PercentageShares(expense.ID, in.Amount, in.Percentages)
	case models.SplitExact:
		shares, err = ledger.ExactShares(expense.ID, in.Exact)
	case models.SplitShares:
		shares, err = ledger.WeightedShares(expense.ID, in.Amount, in.Weights)
	}
	if err != nil {
		return nil, err
	}
	if err := ledger.ValidateShares(expense, shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// Create records a new expense with its shares. The expense, its shares and
// all audit entries (one for the expense, one per participant share) commit
// atomically.
func (s *ExpenseService) Create(ctx context.Context, actor ledger.Actor, in ExpenseInput) (*models.Expense, error) {
	slog.Info("CreateExpense request received",
		"group_id", in.GroupID,
		"payer_id", in.PayerID,
		"amount", in.Amount,
		"method", in.Method,
	)

	if err := in.validate(); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     in.GroupID,
		PayerID:     in.PayerID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Description: in.Description,
		SplitMethod: in.Method,
		ExpenseDate: in.ExpenseDate,
	}

	var shares []models.ExpenseShare
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		group, err := tx.GetGroup(ctx, in.GroupID)
		if err != nil {
			return err
		}
		if group.State() != models.StateActive {
			return &ledger.ValidationError{Field: "group_id", Reason: "group is deleted"}
		}
		if _, err := tx.GetMember(ctx, in.GroupID, in.PayerID); err != nil {
			return err
		}

		if shares, err = in.buildShares(expense); err != nil {
			return err
		}
		if err := tx.CreateExpense(ctx, expense, shares); err != nil {
			return err
		}

		entry, err := ledger.NewAuditEntry(models.EntityExpense, expense.ID, models.ActionCreate,
			actor, in.GroupID, nil, snapshotExpense(expense))
		if err != nil {
			return err
		}
		if err := tx.AppendAuditEntry(ctx, entry); err != nil {
			return err
		}

		for i := range shares {
			shareEntry, err := ledger.NewAuditEntry(models.EntityExpenseParticipant,
				shares[i].ExpenseID+"/"+shares[i].UserID, models.ActionCreate,
				actor, in.GroupID, nil, snapshotShare(&shares[i]))
			if err != nil {
				return err
			}
			if err := tx.AppendAuditEntry(ctx, shareEntry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("CreateExpense failed", "group_id", in.GroupID, "error", err)
		return nil, err
	}

	notify(ctx, s.pub, models.EntityExpense, expense.ID, models.ActionCreate, in.GroupID)
	for i := range shares {
		notify(ctx, s.pub, models.EntityExpenseParticipant,
			shares[i].ExpenseID+"/"+shares[i].UserID, models.ActionCreate, in.GroupID)
	}
	slog.Info("Expense created", "expense_id", expense.ID, "shares", len(shares))
	return expense, nil
}

// Update rewrites an expense and replaces its share set.
func (s *ExpenseService) Update(ctx context.Context, actor ledger.Actor, id string, in ExpenseInput) (*models.Expense, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var expense *models.Expense
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}

		updated := *before
		updated.PayerID = in.PayerID
		updated.Amount = in.Amount
		updated.Currency = in.Currency
		updated.Description = in.Description
		updated.SplitMethod = in.Method
		if in.ExpenseDate != 0 {
			updated.ExpenseDate = in.ExpenseDate
		}

		shares, err := in.buildShares(&updated)
		if err != nil {
			return err
		}
		if err := tx.UpdateExpense(ctx, &updated, shares); err != nil {
			return err
		}
		expense = &updated

		entry, err := ledger.NewAuditEntry(models.EntityExpense, id, models.ActionUpdate,
			actor, before.GroupID, snapshotExpense(before), snapshotExpense(&updated))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("UpdateExpense failed", "expense_id", id, "error", err)
		return nil, err
	}

	notify(ctx, s.pub, models.EntityExpense, id, models.ActionUpdate, expense.GroupID)
	return expense, nil
}

// CheckSplit reports whether the expense's shares reconcile to its amount.
// Advisory: a false result does not alter the expense.
func (s *ExpenseService) CheckSplit(ctx context.Context, expenseID string) (bool, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return false, err
	}
	shares, err := s.store.ListExpenseShares(ctx, expenseID)
	if err != nil {
		return false, err
	}
	return ledger.ValidateShares(expense, shares) == nil, nil
}

// Get retrieves an expense by id, regardless of lifecycle state.
func (s *ExpenseService) Get(ctx context.Context, id string) (*models.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

// Shares retrieves the shares of one expense.
func (s *ExpenseService) Shares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error) {
	if _, err := s.store.GetExpense(ctx, expenseID); err != nil {
		return nil, err
	}
	return s.store.ListExpenseShares(ctx, expenseID)
}

// ListActive returns a group's active expenses.
func (s *ExpenseService) ListActive(ctx context.Context, groupID string) ([]models.Expense, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListGroupExpenses(ctx, groupID)
}

// SoftDelete marks an expense deleted. A no-op on an already deleted one.
func (s *ExpenseService) SoftDelete(ctx context.Context, actor ledger.Actor, id string) error {
	var (
		mutated bool
		groupID string
	)
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		groupID = before.GroupID
		if before.State() == models.StateSoftDeleted {
			return nil
		}
		if err := tx.SoftDeleteExpense(ctx, id); err != nil {
			return err
		}
		mutated = true

		entry, err := ledger.NewAuditEntry(models.EntityExpense, id, models.ActionDelete,
			actor, before.GroupID, snapshotExpense(before), nil)
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Soft-delete expense failed", "expense_id", id, "error", err)
		return err
	}

	if mutated {
		notify(ctx, s.pub, models.EntityExpense, id, models.ActionDelete, groupID)
	}
	return nil
}

// Restore clears an expense's deletion mark. A no-op on an active expense.
func (s *ExpenseService) Restore(ctx context.Context, actor ledger.Actor, id string) error {
	var (
		mutated bool
		groupID string
	)
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		groupID = before.GroupID
		if before.State() == models.StateActive {
			return nil
		}
		if err := tx.RestoreExpense(ctx, id); err != nil {
			return err
		}
		after, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		mutated = true

		entry, err := ledger.NewAuditEntry(models.EntityExpense, id, models.ActionUpdate,
			actor, before.GroupID, snapshotExpense(before), snapshotExpense(after))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Restore expense failed", "expense_id", id, "error", err)
		return err
	}

	if mutated {
		notify(ctx, s.pub, models.EntityExpense, id, models.ActionUpdate, groupID)
	}
	return nil
}

// HardDelete permanently removes a soft-deleted expense and its shares.
func (s *ExpenseService) HardDelete(ctx context.Context, actor ledger.Actor, id string) error {
	if err := s.store.HardDeleteExpense(ctx, id); err != nil {
		slog.Error("Hard-delete expense failed", "expense_id", id, "error", err)
		return err
	}
	slog.Info("Expense hard-deleted", "expense_id", id, "actor_id", actor.ID)
	return nil
}
