// Package store caches decoded volumes by path so interactive sessions
// that flip between studies do not reload and re-decode from disk.
package store

import (
	"sync"

	"volrender/internal/volume"
)

// Store is a concurrency-safe volume cache keyed by file path.
type Store struct {
	mu    sync.RWMutex
	items map[string]*storeEntry
}

type storeEntry struct {
	vol *volume.Volume
	err error
}

// New creates an empty store.
func New() *Store {
	return &Store{items: make(map[string]*storeEntry)}
}

// Load returns the volume at path, decoding it on first use. Decode
// failures are cached too so a broken file is not re-read per frame.
func (s *Store) Load(path string) (*volume.Volume, error) {
	// Fast path: read lock
	s.mu.RLock()
	if entry, exists := s.items[path]; exists {
		s.mu.RUnlock()
		return entry.vol, entry.err
	}
	s.mu.RUnlock()

	// Slow path: load from disk
	vol, err := volume.ReadFile(path)

	// Write lock with double-check
	s.mu.Lock()
	if entry, exists := s.items[path]; exists {
		s.mu.Unlock()
		return entry.vol, entry.err
	}
	s.items[path] = &storeEntry{vol: vol, err: err}
	s.mu.Unlock()

	return vol, err
}

// Evict drops one cached volume.
func (s *Store) Evict(path string) {
	s.mu.Lock()
	delete(s.items, path)
	s.mu.Unlock()
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
