package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meudinheiro/internal/core"
)

var fixedNow = time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC)

func newTestLedger() *Ledger {
	n := 0
	return New(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("tx-%d", n)
		}),
	)
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNewSeedsDefaults(t *testing.T) {
	l := newTestLedger()

	assert.Len(t, l.Transactions(), 6)
	assert.Equal(t, core.DefaultCategories(), l.Categories())
	assert.Equal(t, core.DefaultCategoryIcons(), l.CategoryIcons())

	months := l.Months()
	require.Len(t, months, 3)
	assert.Equal(t, "2024-01", months[0].ID)
	assert.Equal(t, "2024-03", months[2].ID)
}

func TestAddTransactionDefaults(t *testing.T) {
	l := newTestLedger()

	tx := l.AddTransaction(core.TransactionInput{})

	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, core.DefaultDescription, tx.Description)
	assert.Equal(t, core.DefaultCategory, tx.Category)
	assert.True(t, tx.Amount.IsZero())
	assert.Equal(t, core.Pending, tx.Status)
	assert.Equal(t, core.DefaultPaymentMethod, tx.PaymentMethod)
	assert.Equal(t, "2024-03-17", tx.Date)
	assert.Equal(t, core.Variable, tx.Type)
}

func TestAddTransactionKeepsProvidedFields(t *testing.T) {
	l := newTestLedger()

	tx := l.AddTransaction(core.TransactionInput{
		Description:   "Salário",
		Category:      "Trabalho",
		Amount:        amount("100.25"),
		Status:        core.Paid,
		PaymentMethod: "Pix",
		Date:          "2024-02-01",
		Type:          core.Income,
	})

	assert.Equal(t, "Salário", tx.Description)
	assert.Equal(t, "Trabalho", tx.Category)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("100.25")))
	assert.Equal(t, core.Paid, tx.Status)
	assert.Equal(t, "Pix", tx.PaymentMethod)
	assert.Equal(t, "2024-02-01", tx.Date)
	assert.Equal(t, core.Income, tx.Type)
}

func TestAddTransactionPrependsWithUniqueIDs(t *testing.T) {
	l := New(WithClock(func() time.Time { return fixedNow }))
	before := len(l.Transactions())

	var added []string
	for i := 0; i < 20; i++ {
		added = append(added, l.AddTransaction(core.TransactionInput{Description: fmt.Sprintf("t%d", i)}).ID)
	}

	txs := l.Transactions()
	require.Len(t, txs, before+20)
	for i := 0; i < 20; i++ {
		assert.Equal(t, added[19-i], txs[i].ID, "most recent first")
	}
	seen := make(map[string]bool)
	for _, tx := range txs {
		assert.False(t, seen[tx.ID], "duplicate id %s", tx.ID)
		seen[tx.ID] = true
	}
}

func TestDeleteTransaction(t *testing.T) {
	l := newTestLedger()
	before := len(l.Transactions())

	assert.True(t, l.DeleteTransaction("1"))
	assert.Len(t, l.Transactions(), before-1)

	assert.False(t, l.DeleteTransaction("missing"))
	assert.Len(t, l.Transactions(), before-1)
}

func TestToggleStatus(t *testing.T) {
	l := newTestLedger()
	paid := l.AddTransaction(core.TransactionInput{Status: core.Paid})
	pending := l.AddTransaction(core.TransactionInput{Status: core.Pending})
	late := l.AddTransaction(core.TransactionInput{Status: core.Late})

	for _, tx := range []core.Transaction{paid, pending} {
		l.ToggleStatus(tx.ID)
		got, ok := l.ToggleStatus(tx.ID)
		require.True(t, ok)
		assert.Equal(t, tx.Status, got.Status, "double toggle restores the status")
	}

	got, ok := l.ToggleStatus(late.ID)
	require.True(t, ok)
	assert.Equal(t, core.Paid, got.Status)

	_, ok = l.ToggleStatus("missing")
	assert.False(t, ok)
}

func TestToggleDoesNotAffectEarlierReads(t *testing.T) {
	l := newTestLedger()
	before := l.Transactions()

	l.ToggleStatus("4")

	for _, tx := range before {
		if tx.ID == "4" {
			assert.Equal(t, core.Pending, tx.Status)
		}
	}
}

func TestReplaceAllRoundTrip(t *testing.T) {
	l := newTestLedger()
	snap := core.Snapshot{
		Transactions: []core.Transaction{
			{ID: "a", Description: "x", Category: "Casa", Amount: decimal.RequireFromString("10"), Status: core.Late, PaymentMethod: "Pix", Date: "2023-11-02", Type: core.Fixed},
		},
		Categories: core.CategoryMap{core.Fixed: {"Casa"}, core.Variable: {}, core.Income: {"Extra"}},
		Months:     []core.MonthData{{ID: "2023-11", Name: "Novembro", Year: 2023}},
	}

	l.ReplaceAll(snap)

	assert.Equal(t, snap.Transactions, l.Transactions())
	assert.Equal(t, snap.Categories, l.Categories())
	assert.Equal(t, snap.Months, l.Months())
}

func TestReplaceAllKeepsAbsentCollections(t *testing.T) {
	l := newTestLedger()
	cats := l.Categories()
	months := l.Months()

	l.ReplaceAll(core.Snapshot{Transactions: []core.Transaction{}, Months: []core.MonthData{}})

	assert.Empty(t, l.Transactions())
	assert.Equal(t, cats, l.Categories())
	assert.Equal(t, months, l.Months())
}

func TestResetToDefaults(t *testing.T) {
	l := newTestLedger()
	l.ReplaceAll(core.Snapshot{
		Transactions: []core.Transaction{},
		Categories:   core.CategoryMap{core.Fixed: {"Only"}},
		Months:       []core.MonthData{{ID: "2020-05", Name: "Maio", Year: 2020}},
	})

	l.ResetToDefaults()

	assert.Len(t, l.Transactions(), 6)
	assert.Equal(t, core.DefaultCategories(), l.Categories())
	assert.Equal(t, "2020-05", l.Months()[0].ID, "months are not reset")
}

func TestSubscribe(t *testing.T) {
	l := newTestLedger()
	calls := 0
	cancel := l.Subscribe(func() { calls++ })

	l.AddTransaction(core.TransactionInput{})
	l.DeleteTransaction("missing")
	l.ToggleStatus("1")
	assert.Equal(t, 2, calls)

	cancel()
	l.AddTransaction(core.TransactionInput{})
	assert.Equal(t, 2, calls)
}

func TestSubscriberMayReadLedger(t *testing.T) {
	l := newTestLedger()
	var seen int
	l.Subscribe(func() { seen = len(l.Transactions()) })

	l.AddTransaction(core.TransactionInput{})

	assert.Equal(t, 7, seen)
}

func TestSnapshotExcludesNothingPersistable(t *testing.T) {
	l := newTestLedger()

	s := l.Snapshot()

	assert.Equal(t, l.Transactions(), s.Transactions)
	assert.Equal(t, l.Categories(), s.Categories)
	assert.Equal(t, l.Months(), s.Months)
	assert.Equal(t, fixedNow, s.LastUpdated)
}
