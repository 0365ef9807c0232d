package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in a process-local map. Expired entries are
// replaced in place on the next hit for their identifier, never reaped;
// limits held here are per-instance, not global.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = e
	return nil
}

func (s *MemoryStore) Incr(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[id]
	e.Count++
	s.entries[id] = e
	return e.Count, nil
}
