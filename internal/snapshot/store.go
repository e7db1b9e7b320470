// Package snapshot defines how ledger snapshots are stored and tracked for
// the spreadsheet mirror, and provides an in-process store.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meudinheiro/internal/core"
)

// ErrNotFound is returned (wrapped) by Load when the owner has no snapshot.
var ErrNotFound = core.ErrNotFound

// Store saves and loads one snapshot per owner.
type Store interface {
	Save(ctx context.Context, ownerID string, s core.Snapshot) error
	Load(ctx context.Context, ownerID string) (core.Snapshot, error)
}

// Pending is a snapshot saved after its last mirror.
type Pending struct {
	OwnerID   string
	UpdatedAt time.Time
}

// MirrorTracker is implemented by stores that remember which snapshots
// still have to be written to the spreadsheet mirror.
type MirrorTracker interface {
	PendingMirrors(ctx context.Context, limit int) ([]Pending, error)
	MarkMirrored(ctx context.Context, ownerID string, updatedAt time.Time) error
}

// Encode serializes a snapshot for stores that keep opaque blobs.
func Encode(s core.Snapshot) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Decode is the inverse of Encode. Collections missing from data stay nil.
func Decode(data []byte) (core.Snapshot, error) {
	var s core.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
