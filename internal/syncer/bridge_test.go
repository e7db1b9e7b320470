package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meudinheiro/internal/core"
	"meudinheiro/internal/identity"
	"meudinheiro/internal/ledger"
)

type fakeStore struct {
	mu      sync.Mutex
	data    map[string]core.Snapshot
	loadErr error
	saveErr error
	saves   []core.Snapshot
	owners  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]core.Snapshot)}
}

func (f *fakeStore) Save(_ context.Context, owner string, s core.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, s)
	f.owners = append(f.owners, owner)
	if f.saveErr != nil {
		return f.saveErr
	}
	f.data[owner] = s
	return nil
}

func (f *fakeStore) Load(_ context.Context, owner string) (core.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return core.Snapshot{}, f.loadErr
	}
	s, ok := f.data[owner]
	if !ok {
		return core.Snapshot{}, core.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) lastSave() core.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

var user = identity.Identity{ID: "u1", DisplayName: "Ana"}

const testDelay = 30 * time.Millisecond

func TestRapidMutationsProduceOneSave(t *testing.T) {
	store := newFakeStore()
	l := ledger.New()
	b := NewBridge(l, store, WithDelay(testDelay))
	defer b.Close()

	b.HandleIdentity(context.Background(), user)
	require.True(t, b.Loaded())

	var last core.Transaction
	for i := 0; i < 5; i++ {
		last = l.AddTransaction(core.TransactionInput{Description: "burst"})
	}

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, store.saveCount())

	saved := store.lastSave()
	assert.Equal(t, l.Transactions(), saved.Transactions)
	assert.Equal(t, last.ID, saved.Transactions[0].ID)
	assert.Equal(t, "u1", store.owners[0])
}

func TestLoadReplacesLedger(t *testing.T) {
	store := newFakeStore()
	stored := core.Snapshot{
		Transactions: []core.Transaction{{ID: "remote", Description: "x", Date: "2024-01-01", Type: core.Fixed, Status: core.Paid}},
		Months:       []core.MonthData{{ID: "2024-01", Name: "Janeiro", Year: 2024}},
	}
	store.data["u1"] = stored
	l := ledger.New()
	cats := l.Categories()
	b := NewBridge(l, store, WithDelay(testDelay))
	defer b.Close()

	b.HandleIdentity(context.Background(), user)

	assert.Equal(t, stored.Transactions, l.Transactions())
	assert.Equal(t, stored.Months, l.Months())
	assert.Equal(t, cats, l.Categories(), "absent categories are kept")
	assert.False(t, b.Syncing())

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, store.saveCount(), "a load is written back exactly once")
	assert.Equal(t, stored.Transactions, store.lastSave().Transactions)
}

func TestFirstSignInSeedsStore(t *testing.T) {
	store := newFakeStore()
	l := ledger.New()
	b := NewBridge(l, store, WithDelay(testDelay))
	defer b.Close()

	b.HandleIdentity(context.Background(), user)

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, store.saveCount())
	assert.Equal(t, l.Transactions(), store.data["u1"].Transactions)
}

func TestLoadAbsentOrFailingKeepsState(t *testing.T) {
	for name, loadErr := range map[string]error{
		"absent":  nil,
		"failure": errors.New("boom"),
	} {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			store.loadErr = loadErr
			l := ledger.New()
			before := l.Transactions()
			b := NewBridge(l, store, WithDelay(testDelay))
			defer b.Close()

			b.HandleIdentity(context.Background(), user)

			assert.Equal(t, before, l.Transactions())
			assert.True(t, b.Loaded())
			assert.False(t, b.Syncing())
		})
	}
}

func TestSignOutResetsAndStopsSaving(t *testing.T) {
	store := newFakeStore()
	l := ledger.New()
	b := NewBridge(l, store, WithDelay(testDelay))
	defer b.Close()

	b.HandleIdentity(context.Background(), user)
	l.AddTransaction(core.TransactionInput{Description: "pending edit"})
	b.HandleIdentity(context.Background(), identity.Identity{})

	assert.Len(t, l.Transactions(), 6)
	assert.True(t, b.Identity().IsZero())

	l.AddTransaction(core.TransactionInput{})
	time.Sleep(3 * testDelay)
	assert.Equal(t, 0, store.saveCount(), "pending save dropped and anonymous edits not saved")
}

func TestNoSaveBeforeSignIn(t *testing.T) {
	store := newFakeStore()
	l := ledger.New()
	b := NewBridge(l, store, WithDelay(testDelay))
	defer b.Close()

	l.AddTransaction(core.TransactionInput{})
	time.Sleep(3 * testDelay)

	assert.Equal(t, 0, store.saveCount())
}

func TestSaveFailureIsNotRetried(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("unavailable")
	l := ledger.New()
	b := NewBridge(l, store, WithDelay(testDelay))
	defer b.Close()

	b.HandleIdentity(context.Background(), user)
	l.AddTransaction(core.TransactionInput{})

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, store.saveCount())
}

func TestSameIdentityDoesNotReload(t *testing.T) {
	store := newFakeStore()
	l := ledger.New()
	b := NewBridge(l, store, WithDelay(testDelay))
	defer b.Close()

	b.HandleIdentity(context.Background(), user)
	tx := l.AddTransaction(core.TransactionInput{})
	store.data["u1"] = core.Snapshot{Transactions: []core.Transaction{}}

	b.HandleIdentity(context.Background(), user)

	assert.Equal(t, tx.ID, l.Transactions()[0].ID)
}
