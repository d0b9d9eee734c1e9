package dedupe

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultTTL           = 12 * time.Hour
	defaultSweepInterval = 1 * time.Hour
)

// MemoryStore is a process-local, volatile dedup cache. Lookups compare the
// stored timestamp against the TTL; a background sweep evicts expired entries
// so the map stays bounded under long uptime. A restart loses all entries,
// which is acceptable: the content store's uniqueness constraints catch
// genuine duplicates.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the time source. Tests use this to move through the TTL
// window without sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(ttl, sweepInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	s := &MemoryStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop(sweepInterval)
	return s
}

func (s *MemoryStore) RecentlyProcessed(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if id == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	if s.now().Sub(at) >= s.ttl {
		delete(s.entries, id)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	if at.IsZero() {
		at = s.now()
	}
	s.mu.Lock()
	s.entries[id] = at
	s.mu.Unlock()
	return nil
}

// Len reports the current entry count, expired entries included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	for id, at := range s.entries {
		if at.Before(cutoff) {
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
}
