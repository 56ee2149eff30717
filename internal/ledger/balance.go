package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/models"
)

// MemberBalance is one group member's net position.
// Positive means the member is owed money, negative means they owe.
type MemberBalance struct {
	UserID      string
	DisplayName string

	// Balance = Paid - Owed + Received - Sent.
	Balance decimal.Decimal

	// Paid is the total of expenses this member paid for.
	Paid decimal.Decimal

	// Owed is the total of this member's expense shares.
	Owed decimal.Decimal

	// Received is the total of direct payments to this member.
	Received decimal.Decimal

	// Sent is the total of direct payments from this member.
	Sent decimal.Decimal
}

// CalculateGroupBalances aggregates expenses, shares and payments into one
// net balance per member. Every current member gets a row, zero-activity
// members included. Soft-deleted expenses and payments are skipped, as are
// shares of soft-deleted expenses; the storage layer already filters these
// on read, and the check here keeps the calculation correct regardless of
// how the inputs were assembled.
//
// The returned balances always sum to zero: every paid amount reappears as
// owed shares, and every payment debits the sender exactly what it credits
// the recipient. Rows are ordered by user id for deterministic output.
func CalculateGroupBalances(members []models.Membership, expenses []models.Expense, shares []models.ExpenseShare, payments []models.Payment) []MemberBalance {
	balances := make(map[string]*MemberBalance, len(members))
	for _, m := range members {
		balances[m.UserID] = &MemberBalance{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Balance:     decimal.Zero,
			Paid:        decimal.Zero,
			Owed:        decimal.Zero,
			Received:    decimal.Zero,
			Sent:        decimal.Zero,
		}
	}

	deletedExpenses := make(map[string]bool)
	for _, e := range expenses {
		if e.DeletedAt != 0 {
			deletedExpenses[e.ID] = true
			continue
		}
		if b, ok := balances[e.PayerID]; ok {
			b.Paid = b.Paid.Add(e.Amount)
		}
	}

	for _, s := range shares {
		if deletedExpenses[s.ExpenseID] {
			continue
		}
		if b, ok := balances[s.UserID]; ok {
			b.Owed = b.Owed.Add(s.Amount)
		}
	}

	for _, p := range payments {
		if p.DeletedAt != 0 {
			continue
		}
		if b, ok := balances[p.RecipientID]; ok {
			b.Received = b.Received.Add(p.Amount)
		}
		if b, ok := balances[p.PayerID]; ok {
			b.Sent = b.Sent.Add(p.Amount)
		}
	}

	out := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.Balance = b.Paid.Sub(b.Owed).Add(b.Received).Sub(b.Sent)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
