// Package worker copies saved snapshots into the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"meudinheiro/internal/amqp"
	"meudinheiro/internal/log"
	"meudinheiro/internal/metrics"
	"meudinheiro/internal/sheets"
	"meudinheiro/internal/snapshot"
)

// MirrorWorker loads an owner's snapshot and rewrites their mirror tab.
// When the store tracks mirrors, successful writes are marked so the
// pending scan skips them.
type MirrorWorker struct {
	store     snapshot.Store
	tracker   snapshot.MirrorTracker
	mirror    sheets.Mirror
	batchSize int
	logger    *log.Logger
	metrics   *metrics.Metrics

	now     func() time.Time
	mu      sync.Mutex
	retries map[string]*retryState
}

// retryState holds back an owner whose mirror keeps failing so it does not
// occupy the head of every pending batch.
type retryState struct {
	policy  *backoff.ExponentialBackOff
	retryAt time.Time
}

const (
	initialRetryDelay = time.Minute
	maxRetryDelay     = time.Hour
)

// NewMirrorWorker builds a worker. tracker may be nil, in which case only
// messages drive the mirror.
func NewMirrorWorker(store snapshot.Store, tracker snapshot.MirrorTracker, mirror sheets.Mirror, batchSize int, logger *log.Logger, m *metrics.Metrics) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		store:     store,
		tracker:   tracker,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
		metrics:   m,
		now:       time.Now,
		retries:   make(map[string]*retryState),
	}
}

// HandleSnapshotSaved processes one AMQP message.
func (w *MirrorWorker) HandleSnapshotSaved(ctx context.Context, msg *amqp.SnapshotSavedMessage) error {
	w.logger.DebugContext(ctx, "Processing snapshot saved message",
		log.FieldOwnerID, msg.OwnerID, "updated_at", msg.UpdatedAt)
	return w.mirrorOwner(ctx, msg.OwnerID)
}

// ProcessPending mirrors up to one batch of snapshots saved since their last
// mirror. It returns how many were written. Failures are logged and left
// pending; a failing owner is skipped by later passes until its
// exponential backoff expires.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending pass to catch up with messages
// lost while the worker was down.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", log.FieldCount, n, log.FieldOperation, log.OpStartup)
	return nil
}

func (w *MirrorWorker) processPending(ctx context.Context, limit int) (int, error) {
	if w.tracker == nil {
		return 0, nil
	}
	// Owners in backoff are skipped, so ask for enough rows to still fill
	// the batch behind them.
	pending, err := w.tracker.PendingMirrors(ctx, limit+w.backedOff())
	if err != nil {
		return 0, fmt.Errorf("get pending mirrors: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending mirrors", log.FieldCount, len(pending))

	done, attempted := 0, 0
	for _, p := range pending {
		if attempted == limit {
			break
		}
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if w.waiting(p.OwnerID) {
			continue
		}
		attempted++
		if err := w.mirrorOwner(ctx, p.OwnerID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror pending snapshot",
				log.FieldOwnerID, p.OwnerID, log.FieldError, err)
			continue
		}
		done++
	}
	return done, nil
}

func (w *MirrorWorker) backedOff() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.retries)
}

// waiting reports whether ownerID is still inside its backoff window.
func (w *MirrorWorker) waiting(ownerID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.retries[ownerID]
	return ok && w.now().Before(st.retryAt)
}

func (w *MirrorWorker) recordFailure(ctx context.Context, ownerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.retries[ownerID]
	if !ok {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = initialRetryDelay
		policy.MaxInterval = maxRetryDelay
		policy.MaxElapsedTime = 0
		st = &retryState{policy: policy}
		w.retries[ownerID] = st
	}
	delay := st.policy.NextBackOff()
	st.retryAt = w.now().Add(delay)
	w.logger.DebugContext(ctx, "Mirror retry postponed", log.FieldOwnerID, ownerID, "retry_in", delay)
}

func (w *MirrorWorker) recordSuccess(ownerID string) {
	w.mu.Lock()
	delete(w.retries, ownerID)
	w.mu.Unlock()
}

func (w *MirrorWorker) mirrorOwner(ctx context.Context, ownerID string) error {
	snap, err := w.store.Load(ctx, ownerID)
	if err != nil {
		w.recordFailure(ctx, ownerID)
		return fmt.Errorf("load snapshot %s: %w", ownerID, err)
	}

	ref, err := w.mirror.WriteLedger(ctx, ownerID, snap)
	if err != nil {
		w.metrics.MirrorWritten(metrics.ResultError)
		w.recordFailure(ctx, ownerID)
		return fmt.Errorf("write mirror %s: %w", ownerID, err)
	}
	w.metrics.MirrorWritten(metrics.ResultOK)
	w.recordSuccess(ownerID)

	if w.tracker != nil {
		updated := snap.LastUpdated
		if updated.IsZero() {
			updated = time.Now().UTC()
		}
		if err := w.tracker.MarkMirrored(ctx, ownerID, updated); err != nil {
			// the mirror write itself worked
			w.logger.ErrorContext(ctx, "Failed to mark snapshot as mirrored",
				log.FieldOwnerID, ownerID, log.FieldError, err)
		}
	}

	w.logger.InfoContext(ctx, "Snapshot mirrored",
		log.FieldOwnerID, ownerID, log.FieldOperation, log.OpMirror, "ref", ref)
	return nil
}
