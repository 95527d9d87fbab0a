package cache

import (
	"context"
	"sync"
	"time"

	"github.com/homecall/push-relay/internal/ratelimit"
)

type memoryEntry struct {
	values    ratelimit.Values
	expiresAt time.Time
}

// MemoryStore is a process-local CounterStore. It backs the relay when
// Redis is disabled and stands in for it in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Counts(ctx context.Context, key string) (ratelimit.Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return ratelimit.Values{}, nil
	}
	return entry.values, nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, field string, expireAt time.Time) (ratelimit.Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		// Fresh record; the expiry is fixed here and not touched again
		// until the window rolls over.
		entry = &memoryEntry{expiresAt: expireAt}
		s.entries[key] = entry
	}

	switch field {
	case string(ratelimit.KindSuccessful):
		entry.values.Successful++
	case string(ratelimit.KindErrors):
		entry.values.Errors++
	}
	return entry.values, nil
}

// HasKey reports whether a live record exists for the key. Test helper.
func (s *MemoryStore) HasKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return ok && s.now().Before(entry.expiresAt)
}
