package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meudinheiro/internal/core"
	"meudinheiro/internal/identity"
	"meudinheiro/internal/parser"
	"meudinheiro/internal/snapshot"
)

var fixedNow = time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)

type fakeParser struct {
	parsed    parser.Parsed
	parseErr  error
	advice    string
	adviceErr error
	month     string
}

func (f *fakeParser) Parse(context.Context, string) (parser.Parsed, error) {
	return f.parsed, f.parseErr
}

func (f *fakeParser) Advise(_ context.Context, monthName string, _ []core.Transaction) (string, error) {
	f.month = monthName
	return f.advice, f.adviceErr
}

func newTestController(t *testing.T, store *snapshot.Memory, opts ...Option) *Controller {
	t.Helper()
	n := 0
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("tx-%d", n) }),
		WithSaveDelay(10 * time.Millisecond),
	}
	c := NewController(store, append(base, opts...)...)
	t.Cleanup(c.Close)
	return c
}

func TestNewControllerSelectsFirstMonth(t *testing.T) {
	c := newTestController(t, snapshot.NewMemory())
	assert.Equal(t, "2024-01", c.SelectedMonth())
	assert.Len(t, c.CurrentTransactions(""), 6)
}

func TestAddMonthSelectsIt(t *testing.T) {
	c := newTestController(t, snapshot.NewMemory())

	m, err := c.AddMonth(5, 2024)
	require.NoError(t, err)
	assert.Equal(t, "2024-05", m.ID)
	assert.Equal(t, "2024-05", c.SelectedMonth())

	_, err = c.AddMonth(1, 2024)
	assert.ErrorIs(t, err, core.ErrMonthExists)
	assert.Equal(t, "2024-05", c.SelectedMonth(), "a failed add must keep the selection")
}

func TestDeleteSelectedMonthRepairsSelection(t *testing.T) {
	c := newTestController(t, snapshot.NewMemory())
	c.SelectMonth("2024-02")

	require.NoError(t, c.DeleteMonth("2024-02"))
	assert.Equal(t, "2024-01", c.SelectedMonth())

	require.NoError(t, c.DeleteMonth("2024-03"))
	assert.Equal(t, "2024-01", c.SelectedMonth(), "deleting another month keeps the selection")

	assert.ErrorIs(t, c.DeleteMonth("2024-01"), core.ErrLastMonth)
	assert.Len(t, c.Ledger().Months(), 1)
}

func TestSelectDanglingMonth(t *testing.T) {
	c := newTestController(t, snapshot.NewMemory())
	c.SelectMonth("2030-12")

	v := c.View()
	assert.Equal(t, "2030-12", v.SelectedMonth)
	assert.Equal(t, "Selecione", v.SelectedMonthName)
	assert.Empty(t, v.Transactions)
	assert.NotNil(t, v.Transactions)
	assert.True(t, v.Stats.Balance.IsZero())
}

func TestAddTransactionValidates(t *testing.T) {
	c := newTestController(t, snapshot.NewMemory())
	before := len(c.Ledger().Transactions())

	_, err := c.AddTransaction(core.TransactionInput{Description: "", Category: "Casa", Date: "2024-01-02"})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Len(t, c.Ledger().Transactions(), before)

	amount := decimal.RequireFromString("42.10")
	tx, err := c.AddTransaction(core.TransactionInput{
		Description: "Farmácia", Category: "Saúde", Amount: &amount, Date: "2024-01-22", Type: core.Variable,
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, core.Pending, tx.Status)
	assert.Equal(t, tx, c.Ledger().Transactions()[0])
}

func TestParseAndAdd(t *testing.T) {
	p := &fakeParser{parsed: parser.Parsed{
		Description: "Uber", Amount: decimal.RequireFromString("25.50"), Category: "Transporte", Type: core.Variable,
	}}
	c := newTestController(t, snapshot.NewMemory(), WithParser(p))

	tx, err := c.ParseAndAdd(context.Background(), "uber 25,50")
	require.NoError(t, err)
	assert.Equal(t, core.Pending, tx.Status)
	assert.Equal(t, "2024-03-17", tx.Date)
	assert.Equal(t, core.ParsedPaymentMethod, tx.PaymentMethod)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, "Uber", c.Ledger().Transactions()[0].Description)
}

func TestParseAndAddFailureAddsNothing(t *testing.T) {
	c := newTestController(t, snapshot.NewMemory(), WithParser(&fakeParser{parseErr: parser.ErrBadResponse}))
	before := len(c.Ledger().Transactions())

	_, err := c.ParseAndAdd(context.Background(), "???")
	assert.ErrorIs(t, err, parser.ErrBadResponse)
	assert.Len(t, c.Ledger().Transactions(), before)
}

func TestParseAndAddWithoutParser(t *testing.T) {
	c := newTestController(t, snapshot.NewMemory())
	_, err := c.ParseAndAdd(context.Background(), "café 5")
	assert.ErrorIs(t, err, parser.ErrNotConfigured)
}

func TestAdvice(t *testing.T) {
	ctx := context.Background()

	c := newTestController(t, snapshot.NewMemory())
	assert.Equal(t, parser.AdviceNotConfigured, c.Advice(ctx))

	p := &fakeParser{advice: "Economize em lazer."}
	c = newTestController(t, snapshot.NewMemory(), WithParser(p))
	assert.Equal(t, "Economize em lazer.", c.Advice(ctx))
	assert.Equal(t, "Janeiro 2024", p.month)

	c = newTestController(t, snapshot.NewMemory(), WithParser(&fakeParser{adviceErr: errors.New("timeout")}))
	assert.Equal(t, parser.AdviceFailed, c.Advice(ctx))
}

func TestView(t *testing.T) {
	c := newTestController(t, snapshot.NewMemory())
	v := c.View()

	assert.Equal(t, "Janeiro 2024", v.SelectedMonthName)
	assert.Equal(t, "2024-01-01", v.FormDate)
	assert.Nil(t, v.User)
	assert.False(t, v.Syncing)
	assert.True(t, v.Stats.TotalIncome.Equal(decimal.NewFromInt(6500)))
	assert.True(t, v.Stats.TotalFixed.Equal(decimal.RequireFromString("3475.90")))
	assert.True(t, v.Stats.TotalVariable.Equal(decimal.NewFromInt(450)))
	assert.True(t, v.Stats.Balance.Equal(decimal.RequireFromString("2574.10")))
	assert.Len(t, v.Bars, 3)
	assert.NotEmpty(t, v.Icons)
}

func TestSignInLoadsAndSignOutResets(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemory()
	require.NoError(t, store.Save(ctx, "u1", core.Snapshot{
		Transactions: []core.Transaction{{ID: "a", Description: "Luz", Category: "Casa", Amount: decimal.NewFromInt(90), Status: core.Paid, Date: "2024-01-09", Type: core.Fixed}},
	}))
	c := newTestController(t, store)

	assert.ErrorIs(t, c.SignIn(ctx, identity.Identity{}), core.ErrValidation)

	require.NoError(t, c.SignIn(ctx, identity.Identity{ID: "u1", DisplayName: "Ana"}))
	v := c.View()
	require.NotNil(t, v.User)
	assert.Equal(t, "u1", v.User.ID)
	require.Len(t, c.Ledger().Transactions(), 1)
	assert.Equal(t, "Luz", c.Ledger().Transactions()[0].Description)

	c.SignOut(ctx)
	assert.True(t, c.Identity().IsZero())
	assert.Len(t, c.Ledger().Transactions(), 6, "sign out restores the sample ledger")
}

func TestEditsWhileSignedInAreSaved(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemory()
	c := newTestController(t, store)
	require.NoError(t, c.SignIn(ctx, identity.Demo()))

	amount := decimal.NewFromInt(12)
	_, err := c.AddTransaction(core.TransactionInput{Description: "Pão", Category: "Alimentação", Amount: &amount, Date: "2024-01-03"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		snap, err := store.Load(ctx, identity.Demo().ID)
		return err == nil && len(snap.Transactions) == 7 && snap.Transactions[0].Description == "Pão"
	}, 2*time.Second, 10*time.Millisecond)
}
