package dedup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. It serves tests and
// deployments running without Redis; claims are lost on restart.
type MemoryStore struct {
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// MemoryOption customises the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) MemoryOption {
	return func(store *MemoryStore) {
		if clock != nil {
			store.clock = clock
		}
	}
}

// NewMemoryStore constructs an in-memory dedup store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		clock:   time.Now,
		entries: make(map[string]time.Time),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Acquire claims the key until its TTL elapses.
func (s *MemoryStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if s == nil {
		return false, errors.New("dedup: memory store not initialised")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, errors.New("dedup: key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.entries[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	s.pruneLocked(now)
	return true, nil
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	if len(s.entries) < 1024 {
		return
	}
	for key, expiry := range s.entries {
		if now.After(expiry) {
			delete(s.entries, key)
		}
	}
}
