// Package app owns everything one user session works with: the ledger, the
// selected month, the persistence bridge and the text parser.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"meudinheiro/internal/core"
	"meudinheiro/internal/icons"
	"meudinheiro/internal/identity"
	"meudinheiro/internal/ledger"
	"meudinheiro/internal/log"
	"meudinheiro/internal/metrics"
	"meudinheiro/internal/parser"
	"meudinheiro/internal/syncer"
)

type Controller struct {
	ledger *ledger.Ledger
	bridge *syncer.Bridge
	parser parser.Service
	now    func() time.Time
	logger *log.Logger

	mu       sync.RWMutex
	selected string
}

type options struct {
	parser    parser.Service
	logger    *log.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
	saveDelay time.Duration
}

type Option func(*options)

// WithParser enables ParseAndAdd and Advice.
func WithParser(p parser.Service) Option {
	return func(o *options) { o.parser = p }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

// WithSaveDelay sets the debounce window of outbound saves.
func WithSaveDelay(d time.Duration) Option {
	return func(o *options) { o.saveDelay = d }
}

// NewController builds a signed-out controller over a freshly seeded
// ledger. The first month is selected.
func NewController(store syncer.Store, opts ...Option) *Controller {
	o := options{
		logger:    log.Discard(),
		now:       time.Now,
		saveDelay: syncer.DefaultDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ledgerOpts := []ledger.Option{ledger.WithClock(o.now)}
	if o.newID != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithIDGenerator(o.newID))
	}
	l := ledger.New(ledgerOpts...)

	c := &Controller{
		ledger: l,
		bridge: syncer.NewBridge(l, store,
			syncer.WithDelay(o.saveDelay),
			syncer.WithLogger(o.logger),
			syncer.WithMetrics(o.metrics)),
		parser: o.parser,
		now:    o.now,
		logger: o.logger.WithComponent(log.ComponentApp),
	}
	if months := l.Months(); len(months) > 0 {
		c.selected = months[0].ID
	} else {
		c.selected = core.MonthID(1, o.now().Year())
	}
	return c
}

// Ledger gives direct access to the collections for operations that do
// not involve the selection.
func (c *Controller) Ledger() *ledger.Ledger {
	return c.ledger
}

// SelectMonth accepts any id. An id that names no month selects an empty
// view until a matching month is added.
func (c *Controller) SelectMonth(id string) {
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
}

func (c *Controller) SelectedMonth() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// AddMonth adds the month and selects it.
func (c *Controller) AddMonth(index, year int) (core.MonthData, error) {
	m, err := c.ledger.AddMonth(index, year)
	if err != nil {
		return core.MonthData{}, err
	}
	c.SelectMonth(m.ID)
	return m, nil
}

// DeleteMonth removes the month. When it was selected, the first remaining
// month takes its place.
func (c *Controller) DeleteMonth(id string) error {
	if err := c.ledger.DeleteMonth(id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == id {
		c.selected = ""
		if months := c.ledger.Months(); len(months) > 0 {
			c.selected = months[0].ID
		}
	}
	return nil
}

// AddTransaction validates form input before adding it to the ledger.
func (c *Controller) AddTransaction(in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return c.ledger.AddTransaction(in), nil
}

// CurrentTransactions returns the transactions of month, or of the
// selected month when month is empty.
func (c *Controller) CurrentTransactions(month string) []core.Transaction {
	if month == "" {
		month = c.SelectedMonth()
	}
	return ledger.CurrentTransactions(c.ledger.Transactions(), month)
}

// FormDate is the date proposed by the transaction form for the selection.
func (c *Controller) FormDate() string {
	return core.DefaultFormDate(c.SelectedMonth(), c.now())
}

func (c *Controller) SignIn(ctx context.Context, id identity.Identity) error {
	if id.IsZero() {
		return fmt.Errorf("%w: identity without id", core.ErrValidation)
	}
	c.logger.InfoContext(ctx, "Signing in", log.FieldOwnerID, id.ID, log.FieldOperation, log.OpSignIn)
	c.bridge.HandleIdentity(ctx, id)
	return nil
}

func (c *Controller) SignOut(ctx context.Context) {
	c.bridge.HandleIdentity(ctx, identity.Identity{})
}

func (c *Controller) Identity() identity.Identity {
	return c.bridge.Identity()
}

func (c *Controller) Syncing() bool {
	return c.bridge.Syncing()
}

// ParseAndAdd turns text into a pending transaction dated today. Nothing is
// added when parsing fails.
func (c *Controller) ParseAndAdd(ctx context.Context, text string) (core.Transaction, error) {
	if c.parser == nil {
		return core.Transaction{}, parser.ErrNotConfigured
	}
	p, err := c.parser.Parse(ctx, text)
	if err != nil {
		if !errors.Is(err, parser.ErrEmptyInput) {
			c.logger.WarnContext(ctx, "Failed to parse transaction text",
				log.FieldOperation, log.OpParse, log.FieldError, err)
		}
		return core.Transaction{}, err
	}

	method := p.PaymentMethod
	if method == "" {
		method = core.ParsedPaymentMethod
	}
	amount := p.Amount
	tx := c.ledger.AddTransaction(core.TransactionInput{
		Description:   p.Description,
		Category:      p.Category,
		Amount:        &amount,
		Status:        core.Pending,
		PaymentMethod: method,
		Date:          core.Today(c.now()),
		Type:          p.Type,
	})
	c.logger.InfoContext(ctx, "Parsed transaction added",
		log.FieldTransactionID, tx.ID, log.FieldOperation, log.OpParse)
	return tx, nil
}

// Advice returns a written analysis of the selected month. It always
// returns displayable text; model failures become a fixed message.
func (c *Controller) Advice(ctx context.Context) string {
	if c.parser == nil {
		return parser.AdviceNotConfigured
	}
	txs := c.CurrentTransactions("")
	text, err := c.parser.Advise(ctx, c.monthLabel(), txs)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to get financial advice",
			log.FieldOperation, log.OpAdvise, log.FieldError, err)
		return parser.AdviceFailed
	}
	return text
}

func (c *Controller) monthLabel() string {
	id := c.SelectedMonth()
	for _, m := range c.ledger.Months() {
		if m.ID == id {
			return fmt.Sprintf("%s %d", m.Name, m.Year)
		}
	}
	return id
}

// View is everything the dashboard shows.
type View struct {
	Months            []core.MonthData     `json:"months"`
	SelectedMonth     string               `json:"selectedMonth"`
	SelectedMonthName string               `json:"selectedMonthName"`
	FormDate          string               `json:"formDate"`
	Transactions      []core.Transaction   `json:"transactions"`
	Stats             core.SummaryStats    `json:"stats"`
	Bars              []core.Bar           `json:"bars"`
	Breakdown         []core.CategoryTotal `json:"breakdown"`
	Categories        core.CategoryMap     `json:"categories"`
	CategoryIcons     core.CategoryIconMap `json:"categoryIcons"`
	Icons             []icons.Glyph        `json:"icons"`
	User              *identity.Identity   `json:"user"`
	Syncing           bool                 `json:"syncing"`
}

func (c *Controller) View() View {
	selected := c.SelectedMonth()
	txs := c.CurrentTransactions(selected)
	stats := ledger.Summarize(txs)

	v := View{
		Months:            c.ledger.Months(),
		SelectedMonth:     selected,
		SelectedMonthName: "Selecione",
		FormDate:          core.DefaultFormDate(selected, c.now()),
		Transactions:      txs,
		Stats:             stats,
		Bars:              ledger.ComparisonBars(stats),
		Breakdown:         ledger.CategoryBreakdown(txs),
		Categories:        c.ledger.Categories(),
		CategoryIcons:     c.ledger.CategoryIcons(),
		Icons:             icons.All(),
		Syncing:           c.bridge.Syncing(),
	}
	for _, m := range v.Months {
		if m.ID == selected {
			v.SelectedMonthName = fmt.Sprintf("%s %d", m.Name, m.Year)
			break
		}
	}
	if id := c.bridge.Identity(); !id.IsZero() {
		v.User = &id
	}
	if v.Transactions == nil {
		v.Transactions = []core.Transaction{}
	}
	return v
}

// Close detaches the bridge. A pending save is dropped.
func (c *Controller) Close() {
	c.bridge.Close()
}
