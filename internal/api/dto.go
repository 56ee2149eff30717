package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
)

// Request payloads.

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createGroupRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type updateGroupRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

type shareRequest struct {
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	ShareCount int64           `json:"share_count"`
}

type expenseRequest struct {
	PayerID     string          `json:"payer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	SplitMethod string          `json:"split_method"`
	ExpenseDate int64           `json:"expense_date"`
	Shares      []shareRequest  `json:"shares"`
}

type paymentRequest struct {
	PayerID     string          `json:"payer_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaymentDate int64           `json:"payment_date"`
}

// Response payloads.

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Currency    string `json:"currency"`
	Language    string `json:"language"`
	CreatedAt   int64  `json:"created_at"`
	DeletedAt   int64  `json:"deleted_at,omitempty"`
}

func toUserDTO(u *models.User) userDTO {
	return userDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Currency:    u.Currency,
		Language:    u.Language,
		CreatedAt:   u.CreatedAt,
		DeletedAt:   u.DeletedAt,
	}
}

type groupDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt int64  `json:"created_at"`
	DeletedAt int64  `json:"deleted_at,omitempty"`
}

func toGroupDTO(g *models.Group) groupDTO {
	return groupDTO{
		ID:        g.ID,
		Name:      g.Name,
		Currency:  g.Currency,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
		DeletedAt: g.DeletedAt,
	}
}

type memberDTO struct {
	GroupID     string `json:"group_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	JoinedAt    int64  `json:"joined_at"`
}

func toMemberDTO(m *models.Membership) memberDTO {
	return memberDTO{
		GroupID:     m.GroupID,
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		Role:        string(m.Role),
		JoinedAt:    m.JoinedAt,
	}
}

type expenseDTO struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	PayerID     string          `json:"payer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	SplitMethod string          `json:"split_method"`
	ExpenseDate int64           `json:"expense_date"`
	DeletedAt   int64           `json:"deleted_at,omitempty"`
}

func toExpenseDTO(e *models.Expense) expenseDTO {
	return expenseDTO{
		ID:          e.ID,
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

type paymentDTO struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	PayerID     string          `json:"payer_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaymentDate int64           `json:"payment_date"`
	DeletedAt   int64           `json:"deleted_at,omitempty"`
}

func toPaymentDTO(p *models.Payment) paymentDTO {
	return paymentDTO{
		ID:          p.ID,
		GroupID:     p.GroupID,
		PayerID:     p.PayerID,
		RecipientID: p.RecipientID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		PaymentDate: p.PaymentDate,
		DeletedAt:   p.DeletedAt,
	}
}

type balanceDTO struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Balance     decimal.Decimal `json:"balance"`
	Paid        decimal.Decimal `json:"paid"`
	Owed        decimal.Decimal `json:"owed"`
	Received    decimal.Decimal `json:"received"`
	Sent        decimal.Decimal `json:"sent"`
}

func toBalanceDTOs(balances []ledger.MemberBalance) []balanceDTO {
	dtos := make([]balanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = balanceDTO{
			UserID:      b.UserID,
			DisplayName: b.DisplayName,
			Balance:     b.Balance,
			Paid:        b.Paid,
			Owed:        b.Owed,
			Received:    b.Received,
			Sent:        b.Sent,
		}
	}
	return dtos
}

type transferDTO struct {
	PayerID     string          `json:"payer_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
}

func toTransferDTOs(transfers []ledger.Transfer) []transferDTO {
	dtos := make([]transferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = transferDTO{
			PayerID:     t.PayerID,
			RecipientID: t.RecipientID,
			Amount:      t.Amount,
		}
	}
	return dtos
}

type auditEntryDTO struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	EntityID   string          `json:"entity_id"`
	Action     string          `json:"action"`
	ActorID    string          `json:"actor_id,omitempty"`
	ActorEmail string          `json:"actor_email"`
	ActorName  string          `json:"actor_name"`
	GroupID    string          `json:"group_id,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

func toAuditEntryDTOs(entries []models.AuditLogEntry) []auditEntryDTO {
	dtos := make([]auditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = auditEntryDTO{
			ID:         e.ID,
			Entity:     string(e.Entity),
			EntityID:   e.EntityID,
			Action:     string(e.Action),
			ActorID:    e.ActorID,
			ActorEmail: e.ActorEmail,
			ActorName:  e.ActorName,
			GroupID:    e.GroupID,
			Before:     e.Before,
			After:      e.After,
			CreatedAt:  e.CreatedAt,
		}
	}
	return dtos
}

type splitCheckDTO struct {
	ExpenseID string `json:"expense_id"`
	Valid     bool   `json:"valid"`
}

type errorResponse struct {
	Error string `json:"error"`
}
