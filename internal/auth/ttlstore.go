package auth

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLStore is a keyed store whose entries expire after a fixed duration. A
// background janitor sweeps expired entries; Get never returns one even if
// the sweep has not run yet.
type TTLStore[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]
	done    chan struct{}
	once    sync.Once
}

// NewTTLStore creates a store whose entries live for ttl.
func NewTTLStore[V any](ttl time.Duration) *TTLStore[V] {
	s := &TTLStore[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		done:    make(chan struct{}),
	}

	go s.janitor()

	return s
}

// Put stores value under key, resetting its expiry.
func (s *TTLStore[V]) Put(key string, value V) {
	s.PutFor(key, value, s.ttl)
}

// PutFor stores value under key with an explicit lifetime. Lifetimes longer
// than the store's TTL are clamped to it.
func (s *TTLStore[V]) PutFor(key string, value V, ttl time.Duration) {
	if ttl > s.ttl {
		ttl = s.ttl
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
}

// TTL returns the store's default entry lifetime.
func (s *TTLStore[V]) TTL() time.Duration {
	return s.ttl
}

// Get returns the live value for key, if any.
func (s *TTLStore[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}

	return e.value, true
}

// Delete removes key if present.
func (s *TTLStore[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// Close stops the janitor goroutine.
func (s *TTLStore[V]) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *TTLStore[V]) janitor() {
	interval := s.ttl
	if interval > time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
