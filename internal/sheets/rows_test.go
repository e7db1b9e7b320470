package sheets

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"meudinheiro/internal/core"
)

func TestLedgerRows(t *testing.T) {
	s := core.Snapshot{Transactions: []core.Transaction{
		{ID: "b", Date: "2024-01-10", Description: "Condomínio", Category: "Casa", Type: core.Fixed, Status: core.Paid, PaymentMethod: "Boleto", Amount: decimal.RequireFromString("800.005")},
		{ID: "a", Date: "2024-01-05", Description: "Aluguel", Category: "Casa", Type: core.Fixed, Status: core.Paid, PaymentMethod: "Boleto", Amount: decimal.RequireFromString("2500")},
		{ID: "c", Date: "2024-01-10", Description: "Internet", Category: "Casa", Type: core.Fixed, Status: core.Pending, PaymentMethod: "Débito Auto", Amount: decimal.RequireFromString("120")},
	}}

	rows := LedgerRows(s)

	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][7] != "Valor" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	order := []string{rows[1][0].(string), rows[2][0].(string), rows[3][0].(string)}
	if strings.Join(order, ",") != "a,b,c" {
		t.Fatalf("expected date order with stable ties, got %v", order)
	}
	if rows[2][7].(float64) != 800.01 {
		t.Fatalf("expected rounded amount, got %v", rows[2][7])
	}
	if rows[3][5] != "PENDING" || rows[3][4] != "FIXED" {
		t.Fatalf("unexpected status/type cells: %v", rows[3])
	}
}

func TestLedgerRowsEmpty(t *testing.T) {
	if rows := LedgerRows(core.Snapshot{}); len(rows) != 1 {
		t.Fatalf("expected only the header, got %d rows", len(rows))
	}
}

func TestTabName(t *testing.T) {
	cases := []struct {
		prefix, owner, want string
	}{
		{"Ledger", "u1", "Ledger u1"},
		{"", "u1", "u1"},
		{"Ledger", "a/b:c", "Ledger a_b_c"},
	}
	for _, tc := range cases {
		if got := TabName(tc.prefix, tc.owner); got != tc.want {
			t.Fatalf("TabName(%q, %q) = %q, want %q", tc.prefix, tc.owner, got, tc.want)
		}
	}
	if got := TabName("L", strings.Repeat("x", 200)); len([]rune(got)) != 100 {
		t.Fatalf("expected 100 runes, got %d", len([]rune(got)))
	}
}
