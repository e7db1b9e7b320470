// Package ledger holds the authoritative in-memory collections of one user:
// transactions, categories, category icons and months.
//
// Every mutation builds new slices and maps instead of editing the current
// ones, so a collection returned to a reader is never changed afterwards.
// Subscribers registered with Subscribe are told about each change after the
// lock is released.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"meudinheiro/internal/core"
)

type Ledger struct {
	mu           sync.RWMutex
	transactions []core.Transaction
	categories   core.CategoryMap
	icons        core.CategoryIconMap
	months       []core.MonthData

	now   func() time.Time
	newID func() string

	subMu  sync.Mutex
	subs   map[int]func()
	nextID int
}

type Option func(*Ledger)

// WithClock overrides the clock used for default dates and seed data.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides how transaction ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// New returns a ledger seeded with the sample transactions, the default
// categories and icons, and January to March of the current year.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		now:   time.Now,
		newID: uuid.NewString,
		subs:  make(map[int]func()),
	}
	for _, opt := range opts {
		opt(l)
	}
	year := l.now().Year()
	l.transactions = core.SampleTransactions(year)
	l.categories = core.DefaultCategories()
	l.icons = core.DefaultCategoryIcons()
	l.months = core.DefaultMonths(year)
	return l
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (l *Ledger) Subscribe(fn func()) (cancel func()) {
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.subMu.Unlock()
	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

func (l *Ledger) notify() {
	l.subMu.Lock()
	fns := make([]func(), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// AddTransaction fills the missing fields of in with defaults, assigns a
// fresh id and puts the transaction in front of the collection. It never
// fails.
func (l *Ledger) AddTransaction(in core.TransactionInput) core.Transaction {
	tx := core.Transaction{
		ID:            l.newID(),
		Description:   in.Description,
		Category:      in.Category,
		Status:        in.Status,
		PaymentMethod: in.PaymentMethod,
		Date:          in.Date,
		Type:          in.Type,
	}
	if tx.Description == "" {
		tx.Description = core.DefaultDescription
	}
	if tx.Category == "" {
		tx.Category = core.DefaultCategory
	}
	if in.Amount != nil {
		tx.Amount = *in.Amount
	} else {
		tx.Amount = decimal.Zero
	}
	if tx.Status == "" {
		tx.Status = core.Pending
	}
	if tx.PaymentMethod == "" {
		tx.PaymentMethod = core.DefaultPaymentMethod
	}
	if tx.Date == "" {
		tx.Date = core.Today(l.now())
	}
	if tx.Type == "" {
		tx.Type = core.Variable
	}

	l.mu.Lock()
	next := make([]core.Transaction, 0, len(l.transactions)+1)
	next = append(next, tx)
	next = append(next, l.transactions...)
	l.transactions = next
	l.mu.Unlock()

	l.notify()
	return tx
}

// DeleteTransaction removes the transaction with the given id. It reports
// whether something was removed; an unknown id is not an error.
func (l *Ledger) DeleteTransaction(id string) bool {
	l.mu.Lock()
	next := make([]core.Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		if tx.ID != id {
			next = append(next, tx)
		}
	}
	removed := len(next) != len(l.transactions)
	if removed {
		l.transactions = next
	}
	l.mu.Unlock()

	if removed {
		l.notify()
	}
	return removed
}

// ToggleStatus moves a PAID transaction to PENDING and anything else to
// PAID. A LATE transaction therefore becomes PAID.
func (l *Ledger) ToggleStatus(id string) (core.Transaction, bool) {
	l.mu.Lock()
	idx := -1
	for i, tx := range l.transactions {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return core.Transaction{}, false
	}
	next := append([]core.Transaction(nil), l.transactions...)
	if next[idx].Status == core.Paid {
		next[idx].Status = core.Pending
	} else {
		next[idx].Status = core.Paid
	}
	tx := next[idx]
	l.transactions = next
	l.mu.Unlock()

	l.notify()
	return tx, true
}

// ReplaceAll installs the collections carried by s. A nil collection in s
// keeps the current one, and so does an empty month list since at least one
// month must always exist.
func (l *Ledger) ReplaceAll(s core.Snapshot) {
	s = s.Clone()
	l.mu.Lock()
	if s.Transactions != nil {
		l.transactions = s.Transactions
	}
	if s.Categories != nil {
		l.categories = s.Categories
	}
	if len(s.Months) > 0 {
		l.months = s.Months
	}
	l.mu.Unlock()
	l.notify()
}

// ResetToDefaults restores the sample transactions and default categories.
// Months and icons are left alone.
func (l *Ledger) ResetToDefaults() {
	year := l.now().Year()
	l.mu.Lock()
	l.transactions = core.SampleTransactions(year)
	l.categories = core.DefaultCategories()
	l.mu.Unlock()
	l.notify()
}

func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Transaction(nil), l.transactions...)
}

func (l *Ledger) Categories() core.CategoryMap {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.categories.Clone()
}

func (l *Ledger) CategoryIcons() core.CategoryIconMap {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.icons.Clone()
}

func (l *Ledger) Months() []core.MonthData {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.MonthData(nil), l.months...)
}

// Snapshot returns the persistable part of the ledger stamped with the
// current time.
func (l *Ledger) Snapshot() core.Snapshot {
	l.mu.RLock()
	s := core.Snapshot{
		Transactions: l.transactions,
		Categories:   l.categories,
		Months:       l.months,
	}.Clone()
	l.mu.RUnlock()
	s.LastUpdated = l.now().UTC()
	return s
}
