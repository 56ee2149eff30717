package service

import (
	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/models"
)

// Audit snapshots are trimmed copies of the entities: enough to reconstruct
// what changed, nothing secret (no password hashes) and no storage
// bookkeeping.

type userSnapshot struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Currency    string `json:"currency"`
	Language    string `json:"language"`
	DeletedAt   int64  `json:"deleted_at,omitempty"`
}

func snapshotUser(u *models.User) userSnapshot {
	return userSnapshot{
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Currency:    u.Currency,
		Language:    u.Language,
		DeletedAt:   u.DeletedAt,
	}
}

type groupSnapshot struct {
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	CreatedBy string `json:"created_by,omitempty"`
	DeletedAt int64  `json:"deleted_at,omitempty"`
}

func snapshotGroup(g *models.Group) groupSnapshot {
	return groupSnapshot{
		Name:      g.Name,
		Currency:  g.Currency,
		CreatedBy: g.CreatedBy,
		DeletedAt: g.DeletedAt,
	}
}

type memberSnapshot struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
}

func snapshotMember(m *models.Membership) memberSnapshot {
	return memberSnapshot{GroupID: m.GroupID, UserID: m.UserID, Role: string(m.Role)}
}

type expenseSnapshot struct {
	GroupID     string          `json:"group_id"`
	PayerID     string          `json:"payer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	SplitMethod string          `json:"split_method"`
	ExpenseDate int64           `json:"expense_date"`
	DeletedAt   int64           `json:"deleted_at,omitempty"`
}

func snapshotExpense(e *models.Expense) expenseSnapshot {
	return expenseSnapshot{
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		Amount:      e.Amount,
		Currency:    e.Currency,
		Description: e.Description,
		SplitMethod: string(e.SplitMethod),
		ExpenseDate: e.ExpenseDate,
		DeletedAt:   e.DeletedAt,
	}
}

type shareSnapshot struct {
	ExpenseID  string              `json:"expense_id"`
	UserID     string              `json:"user_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Percentage decimal.NullDecimal `json:"percentage,omitempty"`
	ShareCount int64               `json:"share_count,omitempty"`
}

func snapshotShare(s *models.ExpenseShare) shareSnapshot {
	return shareSnapshot{
		ExpenseID:  s.ExpenseID,
		UserID:     s.UserID,
		Amount:     s.Amount,
		Percentage: s.Percentage,
		ShareCount: s.ShareCount,
	}
}

type paymentSnapshot struct {
	GroupID     string          `json:"group_id"`
	PayerID     string          `json:"payer_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaymentDate int64           `json:"payment_date"`
	DeletedAt   int64           `json:"deleted_at,omitempty"`
}

func snapshotPayment(p *models.Payment) paymentSnapshot {
	return paymentSnapshot{
		GroupID:     p.GroupID,
		PayerID:     p.PayerID,
		RecipientID: p.RecipientID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		PaymentDate: p.PaymentDate,
		DeletedAt:   p.DeletedAt,
	}
}
