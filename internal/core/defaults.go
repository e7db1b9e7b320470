package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Placeholder values used when a transaction is created without them.
const (
	DefaultDescription   = "Nova Transação"
	DefaultCategory      = "Outros"
	DefaultPaymentMethod = "Dinheiro"
	// ParsedPaymentMethod fills the payment method of parsed transactions.
	ParsedPaymentMethod = "Outros"
)

var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the display name of a 1-based month index.
func MonthName(index int) (string, error) {
	if index < 1 || index > 12 {
		return "", fmt.Errorf("%w: %d", ErrInvalidMonth, index)
	}
	return monthNames[index-1], nil
}

// MonthID formats the YYYY-MM identifier of a month.
func MonthID(index, year int) string {
	return fmt.Sprintf("%d-%02d", year, index)
}

// NewMonth builds the MonthData for a 1-based month index.
func NewMonth(index, year int) (MonthData, error) {
	name, err := MonthName(index)
	if err != nil {
		return MonthData{}, err
	}
	return MonthData{ID: MonthID(index, year), Name: name, Year: year}, nil
}

// DefaultMonths returns January to March of year.
func DefaultMonths(year int) []MonthData {
	out := make([]MonthData, 0, 3)
	for i := 1; i <= 3; i++ {
		m, _ := NewMonth(i, year)
		out = append(out, m)
	}
	return out
}

// DefaultCategories returns the built-in category lists.
func DefaultCategories() CategoryMap {
	return CategoryMap{
		Fixed:    {"Casa", "Educação", "Assinatura", "Transporte", "Saúde"},
		Variable: {"Alimentação", "Lazer", "Vestuário", "Presentes", "Outros"},
		Income:   {"Trabalho", "Investimentos", "Extra"},
	}
}

// DefaultCategoryIcons returns the icon of each built-in category.
func DefaultCategoryIcons() CategoryIconMap {
	return CategoryIconMap{
		"Casa":          "Home",
		"Educação":      "GraduationCap",
		"Assinatura":    "Smartphone",
		"Transporte":    "Car",
		"Saúde":         "HeartPulse",
		"Alimentação":   "Utensils",
		"Lazer":         "Gamepad",
		"Vestuário":     "Shirt",
		"Presentes":     "Gift",
		"Outros":        "Tag",
		"Trabalho":      "Briefcase",
		"Investimentos": "DollarSign",
		"Extra":         "Zap",
	}
}

// SampleTransactions returns the demo ledger shown before sign-in.
func SampleTransactions(year int) []Transaction {
	day := func(d int) string { return fmt.Sprintf("%d-01-%02d", year, d) }
	amt := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return []Transaction{
		{ID: "1", Description: "Aluguel", Category: "Casa", Amount: amt("2500.00"), Status: Paid, PaymentMethod: "Boleto", Date: day(5), Type: Fixed},
		{ID: "2", Description: "Condomínio", Category: "Casa", Amount: amt("800.00"), Status: Paid, PaymentMethod: "Boleto", Date: day(10), Type: Fixed},
		{ID: "3", Description: "Internet", Category: "Casa", Amount: amt("120.00"), Status: Paid, PaymentMethod: "Débito Auto", Date: day(15), Type: Fixed},
		{ID: "4", Description: "Netflix", Category: "Assinatura", Amount: amt("55.90"), Status: Pending, PaymentMethod: "Cartão Crédito", Date: day(20), Type: Fixed},
		{ID: "6", Description: "Supermercado Semanal", Category: "Alimentação", Amount: amt("450.00"), Status: Paid, PaymentMethod: "Cartão Crédito", Date: day(8), Type: Variable},
		{ID: "10", Description: "Salário", Category: "Trabalho", Amount: amt("6500.00"), Status: Paid, PaymentMethod: "Transferência", Date: day(5), Type: Income},
	}
}
