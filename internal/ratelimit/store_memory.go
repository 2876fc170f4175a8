package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements CounterStore in process memory. State is local to
// one process, so it cannot enforce a global quota across replicas; it
// exists for tests and single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	size  time.Duration
	count int64
}

// NewMemoryStore creates an in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Incr increments the window counter for key, resetting the window when the
// previous one has elapsed.
func (s *MemoryStore) Incr(_ context.Context, key string, size time.Duration) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= w.size {
		w = &window{start: now, size: size}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.size - now.Sub(w.start), nil
}
