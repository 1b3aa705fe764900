package storage

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a thread-safe store used when no database is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[string][]byte)}
}

// Put overwrites the value stored at key.
func (s *InMemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return nil
}

// Get returns a copy of the value stored at key.
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Keys lists keys in lexicographic order, like a KV list call.
func (s *InMemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close satisfies the Store interface.
func (s *InMemoryStore) Close() {}
