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

const expenseColumns = "id, group_id, payer_id, amount, currency, description, split_method, expense_date, created_at, updated_at, deleted_at"

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount string
	var deletedAt sql.NullInt64
	err := row.Scan(
		&expense.ID,
		&expense.GroupID,
		&expense.PayerID,
		&amount,
		&expense.Currency,
		&expense.Description,
		&expense.SplitMethod,
		&expense.ExpenseDate,
		&expense.CreatedAt,
		&expense.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	expense.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	expense.DeletedAt = deletedAt.Int64
	return expense, nil
}

// CreateExpense persists an expense together with its shares.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, shares []models.ExpenseShare) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	if expense.UpdatedAt == 0 {
		expense.UpdatedAt = now
	}
	if expense.ExpenseDate == 0 {
		expense.ExpenseDate = now
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.PayerID, expense.Amount.String(),
		expense.Currency, expense.Description, string(expense.SplitMethod),
		expense.ExpenseDate, expense.CreatedAt, expense.UpdatedAt,
		deletedAtValue(expense.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", mapErr(err))
	}

	for i := range shares {
		shares[i].ExpenseID = expense.ID
		if err := s.insertShare(ctx, &shares[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) insertShare(ctx context.Context, share *models.ExpenseShare) error {
	var percentage any
	if share.Percentage.Valid {
		percentage = share.Percentage.Decimal.String()
	}
	var shareCount any
	if share.ShareCount != 0 {
		shareCount = share.ShareCount
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO expense_shares (expense_id, user_id, amount, percentage, share_count) VALUES (?, ?, ?, ?, ?)`,
		share.ExpenseID, share.UserID, share.Amount.String(), percentage, shareCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense share: %w", mapErr(err))
	}
	return nil
}

// GetExpense retrieves an expense by ID, regardless of lifecycle state.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := scanExpense(s.q.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ledger.NotFoundError{Entity: models.EntityExpense, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// ListGroupExpenses retrieves a group's active expenses, newest first.
func (s *SQLiteStore) ListGroupExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE group_id = ? AND deleted_at IS NULL
		 ORDER BY expense_date DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

func scanShare(rows *sql.Rows) (models.ExpenseShare, error) {
	var share models.ExpenseShare
	var amount string
	var percentage sql.NullString
	var shareCount sql.NullInt64
	if err := rows.Scan(&share.ExpenseID, &share.UserID, &amount, &percentage, &shareCount); err != nil {
		return share, err
	}
	var err error
	share.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return share, fmt.Errorf("invalid stored share amount %q: %w", amount, err)
	}
	if percentage.Valid {
		pct, err := decimal.NewFromString(percentage.String)
		if err != nil {
			return share, fmt.Errorf("invalid stored percentage %q: %w", percentage.String, err)
		}
		share.Percentage = decimal.NullDecimal{Decimal: pct, Valid: true}
	}
	share.ShareCount = shareCount.Int64
	return share, nil
}

// ListExpenseShares retrieves the shares of one expense, ordered by user id.
func (s *SQLiteStore) ListExpenseShares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT expense_id, user_id, amount, percentage, share_count
		 FROM expense_shares WHERE expense_id = ? ORDER BY user_id`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expense shares: %w", err)
	}
	defer rows.Close()

	var shares []models.ExpenseShare
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense share: %w", err)
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense shares: %w", err)
	}
	return shares, nil
}

// ListGroupShares retrieves all shares belonging to the group's active
// expenses, for balance aggregation.
func (s *SQLiteStore) ListGroupShares(ctx context.Context, groupID string) ([]models.ExpenseShare, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT es.expense_id, es.user_id, es.amount, es.percentage, es.share_count
		 FROM expense_shares es
		 JOIN expenses e ON e.id = es.expense_id
		 WHERE e.group_id = ? AND e.deleted_at IS NULL
		 ORDER BY es.expense_id, es.user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group shares: %w", err)
	}
	defer rows.Close()

	var shares []models.ExpenseShare
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group share: %w", err)
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group shares: %w", err)
	}
	return shares, nil
}

// UpdateExpense updates an expense and replaces its share set.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense, shares []models.ExpenseShare) error {
	expense.UpdatedAt = time.Now().Unix()
	res, err := s.q.ExecContext(ctx,
		`UPDATE expenses SET payer_id = ?, amount = ?, currency = ?, description = ?, split_method = ?, expense_date = ?, updated_at = ?
		 WHERE id = ?`,
		expense.PayerID, expense.Amount.String(), expense.Currency, expense.Description,
		string(expense.SplitMethod), expense.ExpenseDate, expense.UpdatedAt, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", mapErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Entity: models.EntityExpense, ID: expense.ID}
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = ?`, expense.ID); err != nil {
		return fmt.Errorf("failed to clear expense shares: %w", mapErr(err))
	}
	for i := range shares {
		shares[i].ExpenseID = expense.ID
		if err := s.insertShare(ctx, &shares[i]); err != nil {
			return err
		}
	}
	return nil
}

// SoftDeleteExpense marks an expense deleted. No-op if already soft-deleted.
func (s *SQLiteStore) SoftDeleteExpense(ctx context.Context, id string) error {
	return s.softDelete(ctx, "expenses", models.EntityExpense, id)
}

// RestoreExpense clears an expense's deletion mark.
func (s *SQLiteStore) RestoreExpense(ctx context.Context, id string) error {
	return s.restore(ctx, "expenses", models.EntityExpense, id)
}

// HardDeleteExpense permanently removes a soft-deleted expense. Its shares
// go with it (cascade).
func (s *SQLiteStore) HardDeleteExpense(ctx context.Context, id string) error {
	return s.hardDelete(ctx, "expenses", models.EntityExpense, id)
}
