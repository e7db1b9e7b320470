// Package gcs stores one snapshot object per owner in a Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"meudinheiro/internal/core"
	"meudinheiro/internal/log"
	"meudinheiro/internal/snapshot"
)

const objectTimeout = 30 * time.Second

type Store struct {
	client *storage.Client
	bucket string
	prefix string
	logger *log.Logger
}

// New creates a Storage client with Application Default Credentials.
func New(ctx context.Context, bucket, prefix string, logger *log.Logger) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

// ObjectName is the object holding ownerID's snapshot.
func ObjectName(prefix, ownerID string) string {
	return path.Join(prefix, url.PathEscape(ownerID)+".json")
}

func (s *Store) Save(ctx context.Context, ownerID string, snap core.Snapshot) error {
	if ownerID == "" {
		return fmt.Errorf("%w: empty owner id", core.ErrValidation)
	}
	payload, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, objectTimeout)
	defer cancel()

	name := ObjectName(s.prefix, ownerID)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", name, err)
	}

	s.logger.DebugContext(ctx, "Snapshot uploaded", log.FieldOwnerID, ownerID, "object", name)
	return nil
}

func (s *Store) Load(ctx context.Context, ownerID string) (core.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, objectTimeout)
	defer cancel()

	name := ObjectName(s.prefix, ownerID)
	rc, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return core.Snapshot{}, fmt.Errorf("owner %s: %w", ownerID, snapshot.ErrNotFound)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("open object %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("read object %s: %w", name, err)
	}
	return snapshot.Decode(data)
}

func (s *Store) Close() error {
	return s.client.Close()
}
