// Package backend builds the snapshot store selected by configuration.
package backend

import (
	"context"

	"meudinheiro/internal/snapshot"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult is a ready snapshot store. Tracker is nil when the backend
// cannot tell which snapshots still have to be mirrored.
type BackendResult struct {
	Store   snapshot.Store
	Tracker snapshot.MirrorTracker
	Cleanup CleanupFunc
	// Ping checks the store is reachable; nil for stores that always are.
	Ping func(ctx context.Context) error
}

// Ready runs Ping when set.
func (r *BackendResult) Ready(ctx context.Context) error {
	if r == nil || r.Ping == nil {
		return nil
	}
	return r.Ping(ctx)
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// GCS specific
	GCSBucket string
	GCSPrefix string

	// Publishing; empty AMQPURL disables it
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// Publish wraps the store so every save is announced on AMQP. The API
	// sets it; the worker, which only reads, does not.
	Publish bool
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	GCSBackend    BackendType = "gcs"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, GCSBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
