// Package memory is an in-process sheets.Mirror used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"meudinheiro/internal/core"
	"meudinheiro/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	prefix string
	tabs   map[string][][]any
	writes int
}

func New(prefix string) *Store {
	return &Store{prefix: prefix, tabs: make(map[string][][]any)}
}

// WriteLedger implements sheets.Mirror.
func (s *Store) WriteLedger(_ context.Context, ownerID string, snap core.Snapshot) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("%w: empty owner id", core.ErrValidation)
	}
	rows := sheets.LedgerRows(snap)
	tab := sheets.TabName(s.prefix, ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = rows
	s.writes++
	return fmt.Sprintf("mem:%s!A1:H%d", tab, len(rows)), nil
}

// Rows returns a copy of the rows last written for ownerID.
func (s *Store) Rows(ownerID string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tabs[sheets.TabName(s.prefix, ownerID)]
	return append([][]any(nil), rows...)
}

// Writes counts WriteLedger calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
