package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"meudinheiro/internal/core"
)

// CurrentTransactions returns the transactions dated inside month (YYYY-MM),
// in their collection order.
func CurrentTransactions(txs []core.Transaction, month string) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range txs {
		if strings.HasPrefix(tx.Date, month) {
			out = append(out, tx)
		}
	}
	return out
}

// Summarize totals amounts by type.
func Summarize(txs []core.Transaction) core.SummaryStats {
	s := core.SummaryStats{
		TotalIncome:   decimal.Zero,
		TotalFixed:    decimal.Zero,
		TotalVariable: decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case core.Fixed:
			s.TotalFixed = s.TotalFixed.Add(tx.Amount)
		case core.Variable:
			s.TotalVariable = s.TotalVariable.Add(tx.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalFixed.Add(s.TotalVariable))
	return s
}

// CategoryBreakdown sums the expenses of txs by category, in order of first
// appearance. Income is ignored and categories without transactions are
// omitted.
func CategoryBreakdown(txs []core.Transaction) []core.CategoryTotal {
	out := make([]core.CategoryTotal, 0)
	index := make(map[string]int)
	for _, tx := range txs {
		if tx.Type == core.Income {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, core.CategoryTotal{Name: tx.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
	}
	return out
}

// ComparisonBars returns the fixed, variable and income columns of the
// month comparison chart.
func ComparisonBars(s core.SummaryStats) []core.Bar {
	return []core.Bar{
		{Name: "Fixos", Value: s.TotalFixed},
		{Name: "Variáveis", Value: s.TotalVariable},
		{Name: "Receita", Value: s.TotalIncome},
	}
}
