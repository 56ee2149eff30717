package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func amounts(shares []models.ExpenseShare) []string {
	out := make([]string, len(shares))
	for i, s := range shares {
		out[i] = s.Amount.StringFixed(2)
	}
	return out
}

func TestEqualShares(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		users   []string
		want    []string
		wantErr bool
	}{
		{
			name:   "divides evenly",
			amount: "10.00",
			users:  []string{"a", "b", "c", "d"},
			want:   []string{"2.50", "2.50", "2.50", "2.50"},
		},
		{
			name:   "leftover cent goes to the last user",
			amount: "100.00",
			users:  []string{"a", "b", "c"},
			want:   []string{"33.33", "33.33", "33.34"},
		},
		{
			name:   "two leftover cents go to the last two users",
			amount: "1.00",
			users:  []string{"a", "b", "c", "d", "e", "f", "g"},
			want:   []string{"0.14", "0.14", "0.14", "0.14", "0.14", "0.15", "0.15"},
		},
		{
			name:   "tiny amount",
			amount: "0.05",
			users:  []string{"a", "b"},
			want:   []string{"0.02", "0.03"},
		},
		{
			name:   "single participant takes the whole amount",
			amount: "42.37",
			users:  []string{"a"},
			want:   []string{"42.37"},
		},
		{
			name:    "no participants",
			amount:  "10.00",
			users:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := EqualShares("exp-1", dec(tt.amount), tt.users)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, amounts(shares))
			assert.True(t, ShareSum(shares).Equal(dec(tt.amount)), "shares must sum exactly to the amount")
			for i, s := range shares {
				assert.Equal(t, "exp-1", s.ExpenseID)
				assert.Equal(t, tt.users[i], s.UserID)
			}
		})
	}
}

func TestPercentageShares(t *testing.T) {
	t.Run("derives amounts and absorbs drift in the last share", func(t *testing.T) {
		shares, err := PercentageShares("exp-1", dec("99.99"), []PercentageShare{
			{UserID: "a", Percentage: dec("50")},
			{UserID: "b", Percentage: dec("30")},
			{UserID: "c", Percentage: dec("20")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"50.00", "30.00", "19.99"}, amounts(shares))
		assert.True(t, ShareSum(shares).Equal(dec("99.99")))
		assert.True(t, shares[0].Percentage.Valid)
		assert.True(t, shares[0].Percentage.Decimal.Equal(dec("50")))
	})

	t.Run("rejects percentages outside (0, 100]", func(t *testing.T) {
		_, err := PercentageShares("exp-1", dec("10.00"), []PercentageShare{
			{UserID: "a", Percentage: dec("0")},
			{UserID: "b", Percentage: dec("100")},
		})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = PercentageShares("exp-1", dec("10.00"), []PercentageShare{
			{UserID: "a", Percentage: dec("101")},
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects percentages that do not sum to 100", func(t *testing.T) {
		_, err := PercentageShares("exp-1", dec("10.00"), []PercentageShare{
			{UserID: "a", Percentage: dec("50")},
			{UserID: "b", Percentage: dec("40")},
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects an empty participant list", func(t *testing.T) {
		_, err := PercentageShares("exp-1", dec("10.00"), nil)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestWeightedShares(t *testing.T) {
	t.Run("divides proportionally to counts", func(t *testing.T) {
		shares, err := WeightedShares("exp-1", dec("100.00"), []WeightedShare{
			{UserID: "a", Count: 1},
			{UserID: "b", Count: 2},
			{UserID: "c", Count: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"16.67", "33.33", "50.00"}, amounts(shares))
		assert.True(t, ShareSum(shares).Equal(dec("100.00")))
		assert.Equal(t, int64(2), shares[1].ShareCount)
	})

	t.Run("rejects non-positive counts", func(t *testing.T) {
		_, err := WeightedShares("exp-1", dec("10.00"), []WeightedShare{
			{UserID: "a", Count: 0},
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects an empty participant list", func(t *testing.T) {
		_, err := WeightedShares("exp-1", dec("10.00"), nil)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestExactShares(t *testing.T) {
	t.Run("tags valid shares with the expense id", func(t *testing.T) {
		shares, err := ExactShares("exp-1", []models.ExpenseShare{
			{UserID: "a", Amount: dec("7.25")},
			{UserID: "b", Amount: dec("2.75")},
		})
		require.NoError(t, err)
		for _, s := range shares {
			assert.Equal(t, "exp-1", s.ExpenseID)
		}
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := ExactShares("exp-1", []models.ExpenseShare{
			{UserID: "a", Amount: dec("-1.00")},
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestValidateShares(t *testing.T) {
	expense := &models.Expense{ID: "exp-1", Amount: dec("50.00")}

	tests := []struct {
		name    string
		sum     []string
		wantErr bool
	}{
		{name: "exact match", sum: []string{"25.00", "25.00"}},
		{name: "sub-cent discrepancy tolerated", sum: []string{"25.00", "24.995"}},
		{name: "one cent off rejected", sum: []string{"25.00", "24.99"}, wantErr: true},
		{name: "large discrepancy rejected", sum: []string{"20.00", "20.00"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares := make([]models.ExpenseShare, len(tt.sum))
			for i, a := range tt.sum {
				shares[i] = models.ExpenseShare{ExpenseID: "exp-1", Amount: dec(a)}
			}
			err := ValidateShares(expense, shares)
			if tt.wantErr {
				var mismatch *SplitMismatchError
				require.ErrorAs(t, err, &mismatch)
				assert.Equal(t, "exp-1", mismatch.ExpenseID)
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
