package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meudinheiro/internal/core"
	"meudinheiro/internal/log"
	"meudinheiro/internal/snapshot"
)

// Publisher announces saved snapshots. *amqp.Client implements it.
type Publisher interface {
	PublishSnapshotSaved(ctx context.Context, ownerID string, updatedAt time.Time) error
}

// SnapshotService saves snapshots to the store and then announces them so
// the worker can refresh the spreadsheet mirror.
type SnapshotService struct {
	store     snapshot.Store
	publisher Publisher
	logger    *log.Logger
	closers   []func() error
}

// NewSnapshotService wires store and publisher. publisher may be nil.
// closers run in order on Close.
func NewSnapshotService(store snapshot.Store, publisher Publisher, logger *log.Logger, closers ...func() error) *SnapshotService {
	if logger == nil {
		logger = log.Discard()
	}
	return &SnapshotService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentStorage),
		closers:   closers,
	}
}

// Save stores the snapshot first. A failed publish is logged and does not
// fail the save: the worker's pending scan picks the owner up later.
func (s *SnapshotService) Save(ctx context.Context, ownerID string, snap core.Snapshot) error {
	if snap.LastUpdated.IsZero() {
		snap.LastUpdated = time.Now().UTC()
	}
	if err := s.store.Save(ctx, ownerID, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishSnapshotSaved(ctx, ownerID, snap.LastUpdated); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish snapshot saved message",
			log.FieldOwnerID, ownerID, log.FieldOperation, log.OpPublish, log.FieldError, err)
	}
	return nil
}

func (s *SnapshotService) Load(ctx context.Context, ownerID string) (core.Snapshot, error) {
	return s.store.Load(ctx, ownerID)
}

// Close runs the registered closers and joins their errors.
func (s *SnapshotService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close snapshot service: %w", errors.Join(errs...))
	}
	return nil
}
