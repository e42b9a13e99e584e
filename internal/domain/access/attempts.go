package access

import (
	"context"
	"sync"
	"time"
)

// AttemptStore counts failed password submissions per (origin, batch) key
// with a sliding expiry. It must be visible across concurrent request
// handlers, so the production implementation lives in Redis; the in-memory
// one backs tests and single-node setups.
type AttemptStore interface {
	// Incr adds one failed attempt and returns the count within the
	// current window. The window starts at the first failure.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
	Clear(ctx context.Context, key string) error
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryAttemptStore is a process-local AttemptStore with per-key expiry.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryAttemptStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.now().After(e.resetAt) {
		e = &memoryEntry{resetAt: s.now().Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (s *MemoryAttemptStore) Count(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.now().After(e.resetAt) {
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryAttemptStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
