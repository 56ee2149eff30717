package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Transfer is one payer-to-recipient payment in a settlement plan.
type Transfer struct {
	PayerID     string
	RecipientID string
	Amount      decimal.Decimal
}

// PlanSettlement derives a minimal list of transfers that zeroes every
// member's balance.
//
// Greedy debt netting: members are split into debtors (balance < 0) and
// creditors (balance > 0), each side ordered by magnitude descending with
// ties broken by user id ascending. The largest debtor pays the largest
// creditor min(|debt|, credit), both are reduced, and whichever side is
// exhausted advances. The plan has at most members-1 transfers, every amount
// is strictly positive, and no transfer pays its own payer.
//
// Balances within Tolerance of zero are treated as settled, so an
// already-settled group yields an empty plan.
func PlanSettlement(balances []MemberBalance) []Transfer {
	type position struct {
		userID string
		amount decimal.Decimal // positive magnitude
	}

	var debtors, creditors []position
	for _, b := range balances {
		switch {
		case b.Balance.Neg().Cmp(Tolerance) >= 0:
			debtors = append(debtors, position{userID: b.UserID, amount: b.Balance.Neg()})
		case b.Balance.Cmp(Tolerance) >= 0:
			creditors = append(creditors, position{userID: b.UserID, amount: b.Balance})
		}
	}

	byMagnitude := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if c := ps[i].amount.Cmp(ps[j].amount); c != 0 {
				return c > 0
			}
			return ps[i].userID < ps[j].userID
		}
	}
	sort.Slice(debtors, byMagnitude(debtors))
	sort.Slice(creditors, byMagnitude(creditors))

	var plan []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]

		amount := decimal.Min(debtor.amount, creditor.amount)
		plan = append(plan, Transfer{
			PayerID:     debtor.userID,
			RecipientID: creditor.userID,
			Amount:      amount,
		})

		debtor.amount = debtor.amount.Sub(amount)
		creditor.amount = creditor.amount.Sub(amount)

		if debtor.amount.Cmp(Tolerance) < 0 {
			i++
		}
		if creditor.amount.Cmp(Tolerance) < 0 {
			j++
		}
	}

	return plan
}
