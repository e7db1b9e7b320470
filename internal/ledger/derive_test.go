package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meudinheiro/internal/core"
)

func tx(id, date, category string, t core.TransactionType, amt string) core.Transaction {
	return core.Transaction{ID: id, Date: date, Category: category, Type: t, Amount: decimal.RequireFromString(amt)}
}

func TestCurrentTransactions(t *testing.T) {
	txs := []core.Transaction{
		tx("a", "2024-03-05", "Casa", core.Fixed, "1"),
		tx("b", "2024-03-31", "Casa", core.Fixed, "1"),
		tx("c", "2024-04-01", "Casa", core.Fixed, "1"),
	}

	got := CurrentTransactions(txs, "2024-03")

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Empty(t, CurrentTransactions(txs, "2023-03"))
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		name string
		txs  []core.Transaction
		want core.SummaryStats
	}{
		{
			name: "empty",
			want: core.SummaryStats{},
		},
		{
			name: "mixed",
			txs: []core.Transaction{
				tx("1", "2024-01-05", "Casa", core.Fixed, "2500.00"),
				tx("2", "2024-01-10", "Casa", core.Fixed, "800.10"),
				tx("3", "2024-01-08", "Alimentação", core.Variable, "450.35"),
				tx("4", "2024-01-05", "Trabalho", core.Income, "6500.00"),
			},
			want: core.SummaryStats{
				TotalIncome:   decimal.RequireFromString("6500"),
				TotalFixed:    decimal.RequireFromString("3300.10"),
				TotalVariable: decimal.RequireFromString("450.35"),
				Balance:       decimal.RequireFromString("2749.55"),
			},
		},
		{
			name: "negative balance",
			txs: []core.Transaction{
				tx("1", "2024-01-05", "Casa", core.Fixed, "10"),
			},
			want: core.SummaryStats{
				TotalFixed: decimal.RequireFromString("10"),
				Balance:    decimal.RequireFromString("-10"),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize(tc.txs)
			assert.True(t, tc.want.TotalIncome.Equal(got.TotalIncome), "income %s", got.TotalIncome)
			assert.True(t, tc.want.TotalFixed.Equal(got.TotalFixed), "fixed %s", got.TotalFixed)
			assert.True(t, tc.want.TotalVariable.Equal(got.TotalVariable), "variable %s", got.TotalVariable)
			assert.True(t, tc.want.Balance.Equal(got.Balance), "balance %s", got.Balance)
			assert.True(t, got.Balance.Equal(got.TotalIncome.Sub(got.TotalFixed.Add(got.TotalVariable))))
		})
	}
}

func TestSummarizeExactDecimals(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, tx("x", "2024-01-01", "c", core.Variable, "0.1"))
	}

	got := Summarize(txs)

	assert.True(t, got.TotalVariable.Equal(decimal.NewFromInt(1)), "got %s", got.TotalVariable)
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-01-05", "Casa", core.Fixed, "100"),
		tx("2", "2024-01-06", "Lazer", core.Variable, "30"),
		tx("3", "2024-01-07", "Casa", core.Fixed, "50"),
		tx("4", "2024-01-08", "Trabalho", core.Income, "1000"),
	}

	got := CategoryBreakdown(txs)

	require.Len(t, got, 2)
	assert.Equal(t, "Casa", got[0].Name)
	assert.True(t, got[0].Total.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "Lazer", got[1].Name)
	assert.True(t, got[1].Total.Equal(decimal.NewFromInt(30)))
	assert.Empty(t, CategoryBreakdown(nil))
}

func TestComparisonBars(t *testing.T) {
	bars := ComparisonBars(core.SummaryStats{
		TotalIncome:   decimal.NewFromInt(3),
		TotalFixed:    decimal.NewFromInt(1),
		TotalVariable: decimal.NewFromInt(2),
	})

	require.Len(t, bars, 3)
	assert.Equal(t, "Fixos", bars[0].Name)
	assert.True(t, bars[2].Value.Equal(decimal.NewFromInt(3)))
}
