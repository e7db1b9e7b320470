package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"meudinheiro/internal/log"
)

// PendingProcessor mirrors snapshots whose last save is newer than their
// last mirror. *worker.MirrorWorker implements it.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) (int, error)
}

// MirrorSchedulerConfig holds the poll settings of the scheduler.
type MirrorSchedulerConfig struct {
	// PollInterval is how often pending mirrors are processed (default: 30s)
	PollInterval time.Duration
}

func DefaultMirrorSchedulerConfig() MirrorSchedulerConfig {
	return MirrorSchedulerConfig{PollInterval: 30 * time.Second}
}

var ErrSchedulerRunning = errors.New("mirror scheduler is already running")

// MirrorScheduler periodically drives a PendingProcessor. It is the safety
// net for snapshot events lost between the API and the worker.
type MirrorScheduler struct {
	processor PendingProcessor
	config    MirrorSchedulerConfig
	logger    *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorScheduler(processor PendingProcessor, config MirrorSchedulerConfig, logger *log.Logger) *MirrorScheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultMirrorSchedulerConfig().PollInterval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorScheduler{
		processor: processor,
		config:    config,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Start launches the poll loop. The first pass runs immediately.
func (s *MirrorScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stop, done)

	s.logger.InfoContext(ctx, "Mirror scheduler started", "poll_interval", s.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for the current pass to end or ctx to
// expire.
func (s *MirrorScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stop, done := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stop)

	select {
	case <-done:
		s.logger.InfoContext(ctx, "Mirror scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Mirror scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *MirrorScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *MirrorScheduler) runLoop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.processOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processOnce(ctx)
		}
	}
}

func (s *MirrorScheduler) processOnce(ctx context.Context) {
	n, err := s.processor.ProcessPending(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to process pending mirrors", log.FieldError, err)
		return
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "Processed pending mirrors", log.FieldCount, n)
	}
}
