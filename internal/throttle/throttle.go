package throttle

import (
	"context"
	"sync"
	"time"
)

// Store decides whether an alert key may be sent again
type Store interface {
	// Allow records key and returns true when it was not seen inside window
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// MemoryStore keeps last-sent times in process memory
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory throttle
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Allow implements Store
func (s *MemoryStore) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if t, ok := s.last[key]; ok && now.Sub(t) < window {
		return false, nil
	}
	s.last[key] = now

	// drop stale keys so the map does not grow forever
	for k, t := range s.last {
		if now.Sub(t) >= window {
			delete(s.last, k)
		}
	}
	return true, nil
}

// Key builds the throttle key of an alert
func Key(asset, category string) string {
	return asset + "|" + category
}
