package backend

import (
	"context"
	"errors"
	"fmt"

	"meudinheiro/internal/amqp"
	"meudinheiro/internal/log"
	"meudinheiro/internal/services"
	"meudinheiro/internal/snapshot"
	"meudinheiro/internal/storage"
	"meudinheiro/internal/storage/gcs"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured store and, when publishing is on and
// AMQP is reachable, wraps it in a SnapshotService. An unreachable broker is
// logged and the backend works without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case GCSBackend:
		res, err = f.createGCSBackend(ctx, config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.Publish && config.AMQPURL != "" {
		f.wrapWithPublisher(res, config)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Tracker: repo,
		Cleanup: repo.Close,
		Ping:    repo.Ping,
	}, nil
}

func (f *DefaultFactory) createGCSBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := gcs.New(ctx, config.GCSBucket, config.GCSPrefix, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCS store: %w", err)
	}

	f.logger.Info("Initialized GCS backend", "bucket", config.GCSBucket, "prefix", config.GCSPrefix)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	store := snapshot.NewMemory()

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Store:   store,
		Tracker: store,
	}
}

func (f *DefaultFactory) wrapWithPublisher(res *BackendResult, config Config) {
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without mirror events", log.FieldError, err)
		return
	}

	closers := []func() error{client.Close}
	if res.Cleanup != nil {
		closers = append(closers, res.Cleanup)
	}
	svc := services.NewSnapshotService(res.Store, client, f.logger, closers...)
	res.Store = svc
	res.Cleanup = svc.Close

	f.logger.Info("Initialized AMQP publisher",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
}

// ErrNoTracker is returned by RequireTracker for backends without mirror
// tracking.
var ErrNoTracker = errors.New("backend does not track mirrors")

// RequireTracker returns the result's tracker or ErrNoTracker.
func (r *BackendResult) RequireTracker() (snapshot.MirrorTracker, error) {
	if r.Tracker == nil {
		return nil, ErrNoTracker
	}
	return r.Tracker, nil
}
