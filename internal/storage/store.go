// Package storage is the device-local durable store: a small set of fixed
// string keys, each holding one JSON-encoded document in its own file.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Fixed slot keys. Every durable piece of client state lives under one of
// these.
const (
	KeyToken        = "token"
	KeyProfile      = "user"
	KeyLastLocation = "last_location"
	KeyVisits       = "visited_locations"
)

var (
	ErrNotFound   = errors.New("storage: key not found")
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Store persists JSON documents under a data directory, one file per key.
// Writes go through a temp file and rename so a crash never leaves a
// half-written slot.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates the data directory if needed and returns a Store over it.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: empty data dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put marshals v and durably replaces the slot's contents.
func (s *Store) Put(key string, v any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: marshal %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: replace %q: %w", key, err)
	}
	return nil
}

// Get unmarshals the slot's contents into v. Returns ErrNotFound when the
// slot was never written or has been deleted.
func (s *Store) Get(key string, v any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	b, err := os.ReadFile(path)
	s.mu.Unlock()

	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("storage: read %q: %w", key, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("storage: unmarshal %q: %w", key, err)
	}
	return nil
}

// Delete removes the slot. Deleting a missing slot is a no-op.
func (s *Store) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

// path validates the key and maps it to its file.
func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}
