// Package prefs stores display preferences in a small JSON file kept apart
// from the ledger. Preferences belong to a browser, identified by an opaque
// client id, and never to the server as a whole.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Preferences are the persisted display settings of one client.
type Preferences struct {
	DarkMode bool `json:"darkMode"`
}

func Default() Preferences {
	return Preferences{DarkMode: true}
}

type fileData struct {
	Clients map[string]Preferences `json:"clients"`
}

// FileStore reads the file once on open and rewrites it on every change.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	clients map[string]Preferences
}

// Open loads path. A missing or unreadable file yields no stored clients;
// only a failure to create the parent directory is returned.
func Open(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create preferences directory: %w", err)
		}
	}
	s := &FileStore{path: path, clients: make(map[string]Preferences)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return s, nil
	default:
		var fd fileData
		if json.Unmarshal(data, &fd) == nil && fd.Clients != nil {
			s.clients = fd.Clients
		}
	}
	return s, nil
}

// Get returns the preferences of clientID, the defaults when it has none.
func (s *FileStore) Get(clientID string) Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.clients[clientID]; ok {
		return p
	}
	return Default()
}

// SetDarkMode updates the preference of clientID and writes the file. The
// in-memory value changes even when the write fails.
func (s *FileStore) SetDarkMode(clientID string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.lookup(clientID)
	p.DarkMode = on
	s.clients[clientID] = p
	return s.write()
}

// Toggle flips dark mode for clientID and returns the new value.
func (s *FileStore) Toggle(clientID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.lookup(clientID)
	p.DarkMode = !p.DarkMode
	s.clients[clientID] = p
	return p.DarkMode, s.write()
}

func (s *FileStore) lookup(clientID string) Preferences {
	if p, ok := s.clients[clientID]; ok {
		return p
	}
	return Default()
}

func (s *FileStore) write() error {
	data, err := json.MarshalIndent(fileData{Clients: s.clients}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}
