package core

import "github.com/shopspring/decimal"

// SummaryStats aggregates the transactions of one month. Derived, never stored.
type SummaryStats struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalFixed    decimal.Decimal `json:"totalFixed"`
	TotalVariable decimal.Decimal `json:"totalVariable"`
	Balance       decimal.Decimal `json:"balance"`
}

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"value"`
}

// Bar is one column of the fixed/variable/income comparison chart.
type Bar struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}
