// Package syncer keeps a ledger and its snapshot store in step: it loads
// the owner's snapshot when someone signs in and pushes debounced snapshots
// while they are signed in.
//
// Edits made during the debounce window are lost if the process stops
// before the timer fires. Nothing is flushed on shutdown.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"meudinheiro/internal/core"
	"meudinheiro/internal/identity"
	"meudinheiro/internal/ledger"
	"meudinheiro/internal/log"
	"meudinheiro/internal/metrics"
)

// DefaultDelay is the quiet period before a save.
const DefaultDelay = time.Second

const defaultSaveTimeout = 10 * time.Second

// Store is the snapshot collaborator. Load returns an error wrapping
// core.ErrNotFound when the owner has no snapshot yet.
type Store interface {
	Save(ctx context.Context, ownerID string, s core.Snapshot) error
	Load(ctx context.Context, ownerID string) (core.Snapshot, error)
}

type Bridge struct {
	ledger      *ledger.Ledger
	store       Store
	logger      *log.Logger
	metrics     *metrics.Metrics
	delay       time.Duration
	saveTimeout time.Duration

	debouncer *Debouncer
	cancelSub func()

	mu      sync.Mutex
	owner   identity.Identity
	loaded  bool
	syncing bool
}

type Option func(*Bridge)

func WithDelay(d time.Duration) Option {
	return func(b *Bridge) { b.delay = d }
}

func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

func WithSaveTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.saveTimeout = d }
}

// NewBridge subscribes to l. Call Close to detach.
func NewBridge(l *ledger.Ledger, store Store, opts ...Option) *Bridge {
	b := &Bridge{
		ledger:      l,
		store:       store,
		logger:      log.Discard(),
		delay:       DefaultDelay,
		saveTimeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithComponent(log.ComponentSync)
	b.debouncer = NewDebouncer(b.delay, b.save)
	b.cancelSub = l.Subscribe(b.onChange)
	return b
}

// HandleIdentity reacts to an identity transition. A new identity loads its
// snapshot into the ledger; a missing snapshot or a failed load keeps the
// current state. Either way one debounced save follows. The zero identity
// resets the ledger to its defaults.
func (b *Bridge) HandleIdentity(ctx context.Context, id identity.Identity) {
	b.mu.Lock()
	if id.ID == b.owner.ID {
		b.owner = id
		b.mu.Unlock()
		return
	}
	b.debouncer.Stop()
	b.owner = id
	b.loaded = false
	if id.IsZero() {
		b.mu.Unlock()
		b.ledger.ResetToDefaults()
		b.logger.InfoContext(ctx, "Identity cleared, ledger reset", log.FieldOperation, log.OpSignOut)
		return
	}
	b.syncing = true
	b.mu.Unlock()

	b.load(ctx, id.ID)

	b.mu.Lock()
	current := b.owner.ID == id.ID
	if current {
		b.loaded = true
		b.syncing = false
	}
	b.mu.Unlock()

	// The state after a load (or the kept state when nothing was stored) is
	// written back once, so a first sign-in seeds the store.
	if current {
		b.metrics.SaveTriggered()
		b.debouncer.Trigger()
	}
}

func (b *Bridge) load(ctx context.Context, ownerID string) {
	snap, err := b.store.Load(ctx, ownerID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		b.metrics.SnapshotLoaded(metrics.ResultNotFound)
		b.logger.InfoContext(ctx, "No stored snapshot, keeping current ledger",
			log.FieldOwnerID, ownerID, log.FieldOperation, log.OpLoad)
	case err != nil:
		b.metrics.SnapshotLoaded(metrics.ResultError)
		b.logger.ErrorContext(ctx, "Failed to load snapshot, keeping current ledger",
			log.FieldOwnerID, ownerID, log.FieldOperation, log.OpLoad, log.FieldError, err)
	default:
		b.metrics.SnapshotLoaded(metrics.ResultOK)
		b.ledger.ReplaceAll(snap)
		b.logger.InfoContext(ctx, "Snapshot loaded",
			log.FieldOwnerID, ownerID, log.FieldOperation, log.OpLoad,
			log.FieldCount, len(snap.Transactions))
	}
}

func (b *Bridge) onChange() {
	b.mu.Lock()
	active := !b.owner.IsZero() && b.loaded
	b.mu.Unlock()
	if !active {
		return
	}
	b.metrics.SaveTriggered()
	b.debouncer.Trigger()
}

// save pushes the ledger as it is when the debounce timer fires.
func (b *Bridge) save() {
	b.mu.Lock()
	ownerID := b.owner.ID
	active := ownerID != "" && b.loaded
	b.mu.Unlock()
	if !active {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.saveTimeout)
	defer cancel()

	snap := b.ledger.Snapshot()
	if err := b.store.Save(ctx, ownerID, snap); err != nil {
		b.metrics.SnapshotSaved(metrics.ResultError)
		b.logger.ErrorContext(ctx, "Failed to save snapshot",
			log.FieldOwnerID, ownerID, log.FieldOperation, log.OpSave, log.FieldError, err)
		return
	}
	b.metrics.SnapshotSaved(metrics.ResultOK)
	b.logger.DebugContext(ctx, "Snapshot saved",
		log.FieldOwnerID, ownerID, log.FieldOperation, log.OpSave,
		log.FieldCount, len(snap.Transactions))
}

// Identity returns the current identity, zero when signed out.
func (b *Bridge) Identity() identity.Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// Syncing reports whether an inbound load is in flight.
func (b *Bridge) Syncing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.syncing
}

// Loaded reports whether the signed-in owner's snapshot has been applied.
func (b *Bridge) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Close detaches from the ledger and drops any pending save.
func (b *Bridge) Close() {
	b.cancelSub()
	b.debouncer.Stop()
}
