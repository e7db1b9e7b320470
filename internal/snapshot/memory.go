package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"meudinheiro/internal/core"
)

type memoryEntry struct {
	snap       core.Snapshot
	updatedAt  time.Time
	mirroredAt time.Time
}

// Memory is a Store and MirrorTracker kept in process memory.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Save(_ context.Context, ownerID string, s core.Snapshot) error {
	if ownerID == "" {
		return fmt.Errorf("%w: empty owner id", core.ErrValidation)
	}
	updated := s.LastUpdated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[ownerID]
	e.snap = s.Clone()
	e.updatedAt = updated
	m.entries[ownerID] = e
	return nil
}

func (m *Memory) Load(_ context.Context, ownerID string) (core.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[ownerID]
	if !ok {
		return core.Snapshot{}, fmt.Errorf("owner %s: %w", ownerID, ErrNotFound)
	}
	return e.snap.Clone(), nil
}

// PendingMirrors returns owners saved after their last mirror, oldest first.
func (m *Memory) PendingMirrors(_ context.Context, limit int) ([]Pending, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Pending
	for owner, e := range m.entries {
		if e.updatedAt.After(e.mirroredAt) {
			out = append(out, Pending{OwnerID: owner, UpdatedAt: e.updatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].OwnerID < out[j].OwnerID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkMirrored(_ context.Context, ownerID string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ownerID]
	if !ok {
		return fmt.Errorf("owner %s: %w", ownerID, ErrNotFound)
	}
	if updatedAt.After(e.mirroredAt) {
		e.mirroredAt = updatedAt
		m.entries[ownerID] = e
	}
	return nil
}
