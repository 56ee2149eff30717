package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/models"
)

// Tolerance is the largest acceptable discrepancy between an expense amount
// and the sum of its shares, and the threshold below which a balance counts
// as settled. One cent.
var Tolerance = decimal.New(1, -2)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// ShareSum returns the total of the given share amounts.
func ShareSum(shares []models.ExpenseShare) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// ValidateShares checks that the shares reconcile to the expense amount.
// Returns a SplitMismatchError when abs(sum(shares) - amount) >= Tolerance.
func ValidateShares(expense *models.Expense, shares []models.ExpenseShare) error {
	sum := ShareSum(shares)
	if sum.Sub(expense.Amount).Abs().Cmp(Tolerance) >= 0 {
		return &SplitMismatchError{
			ExpenseID: expense.ID,
			Amount:    expense.Amount,
			ShareSum:  sum,
		}
	}
	return nil
}

// EqualShares divides amount evenly among the users. The division rounds
// down to cents; leftover cents are handed out one per user from the end of
// the list, so shares always sum exactly to amount. Input order is preserved.
func EqualShares(expenseID string, amount decimal.Decimal, userIDs []string) ([]models.ExpenseShare, error) {
	if len(userIDs) == 0 {
		return nil, &ValidationError{Field: "participants", Reason: "equal split requires at least one participant"}
	}

	n := decimal.NewFromInt(int64(len(userIDs)))
	base := amount.Div(n).RoundDown(2)
	leftover := amount.Sub(base.Mul(n))

	// leftover is a whole number of cents in [0, len-1].
	extra := int(leftover.Div(cent).IntPart())

	shares := make([]models.ExpenseShare, len(userIDs))
	for i, uid := range userIDs {
		amt := base
		if i >= len(userIDs)-extra {
			amt = amt.Add(cent)
		}
		shares[i] = models.ExpenseShare{ExpenseID: expenseID, UserID: uid, Amount: amt}
	}
	return shares, nil
}

// PercentageShare is one participant's percentage of an expense.
type PercentageShare struct {
	UserID     string
	Percentage decimal.Decimal
}

// PercentageShares derives share amounts from percentages. Percentages must
// each lie in (0, 100] and sum to 100 within tolerance. Rounding drift is
// absorbed by the last participant so the amounts reconcile exactly.
func PercentageShares(expenseID string, amount decimal.Decimal, parts []PercentageShare) ([]models.ExpenseShare, error) {
	if len(parts) == 0 {
		return nil, &ValidationError{Field: "participants", Reason: "percentage split requires at least one participant"}
	}

	pctSum := decimal.Zero
	for _, p := range parts {
		if p.Percentage.Sign() <= 0 || p.Percentage.Cmp(hundred) > 0 {
			return nil, &ValidationError{
				Field:  "percentage",
				Reason: fmt.Sprintf("percentage for %s must be in (0, 100], got %s", p.UserID, p.Percentage),
			}
		}
		pctSum = pctSum.Add(p.Percentage)
	}
	if pctSum.Sub(hundred).Abs().Cmp(Tolerance) >= 0 {
		return nil, &ValidationError{
			Field:  "percentage",
			Reason: fmt.Sprintf("percentages must sum to 100, got %s", pctSum),
		}
	}

	shares := make([]models.ExpenseShare, len(parts))
	allocated := decimal.Zero
	for i, p := range parts {
		var amt decimal.Decimal
		if i == len(parts)-1 {
			amt = amount.Sub(allocated)
		} else {
			amt = amount.Mul(p.Percentage).Div(hundred).Round(2)
			allocated = allocated.Add(amt)
		}
		shares[i] = models.ExpenseShare{
			ExpenseID:  expenseID,
			UserID:     p.UserID,
			Amount:     amt,
			Percentage: decimal.NullDecimal{Decimal: p.Percentage, Valid: true},
		}
	}
	return shares, nil
}

// WeightedShare is one participant's share count for a shares-based split.
type WeightedShare struct {
	UserID string
	Count  int64
}

// WeightedShares divides amount proportionally to integer share counts.
// Counts must be positive. Rounding drift is absorbed by the last
// participant.
func WeightedShares(expenseID string, amount decimal.Decimal, parts []WeightedShare) ([]models.ExpenseShare, error) {
	if len(parts) == 0 {
		return nil, &ValidationError{Field: "participants", Reason: "shares split requires at least one participant"}
	}

	var total int64
	for _, p := range parts {
		if p.Count <= 0 {
			return nil, &ValidationError{
				Field:  "share_count",
				Reason: fmt.Sprintf("share count for %s must be positive, got %d", p.UserID, p.Count),
			}
		}
		total += p.Count
	}

	totalDec := decimal.NewFromInt(total)
	shares := make([]models.ExpenseShare, len(parts))
	allocated := decimal.Zero
	for i, p := range parts {
		var amt decimal.Decimal
		if i == len(parts)-1 {
			amt = amount.Sub(allocated)
		} else {
			amt = amount.Mul(decimal.NewFromInt(p.Count)).Div(totalDec).Round(2)
			allocated = allocated.Add(amt)
		}
		shares[i] = models.ExpenseShare{
			ExpenseID:  expenseID,
			UserID:     p.UserID,
			Amount:     amt,
			ShareCount: p.Count,
		}
	}
	return shares, nil
}

// ExactShares validates explicit amounts and tags them with the expense id.
// Each amount must be positive; reconciliation against the expense total is
// the caller's responsibility via ValidateShares.
func ExactShares(expenseID string, parts []models.ExpenseShare) ([]models.ExpenseShare, error) {
	if len(parts) == 0 {
		return nil, &ValidationError{Field: "participants", Reason: "exact split requires at least one participant"}
	}
	shares := make([]models.ExpenseShare, len(parts))
	for i, p := range parts {
		if p.Amount.Sign() <= 0 {
			return nil, &ValidationError{
				Field:  "share_amount",
				Reason: fmt.Sprintf("share amount for %s must be positive, got %s", p.UserID, p.Amount),
			}
		}
		shares[i] = p
		shares[i].ExpenseID = expenseID
	}
	return shares, nil
}
