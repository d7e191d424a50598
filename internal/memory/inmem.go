package memory

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a process-local Store used when no Redis server is
// configured. Expired entries are dropped lazily on read.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]inmemEntry
}

type inmemEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]inmemEntry)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	// Callers may mutate the returned slice.
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := inmemEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
