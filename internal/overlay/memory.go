package overlay

import (
	"context"
	"sync"
	"time"
)

// CleanupInterval is how often expired entries are dropped.
const CleanupInterval = time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryKV is an in-process KV for tests and single-instance deployments.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[Key]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

var _ KV = (*MemoryKV)(nil)

// NewMemoryKV creates the store; a zero ttl keeps entries until deleted.
func NewMemoryKV(ttl time.Duration) *MemoryKV {
	s := &MemoryKV{
		entries:     make(map[Key]memoryEntry),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *MemoryKV) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expire()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryKV) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryKV) Get(_ context.Context, key Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *MemoryKV) Set(_ context.Context, key Key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryKV) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryKV) Take(_ context.Context, key Key) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	delete(s.entries, key)
	if !ok || e.expired(s.now()) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Close stops the background cleanup and waits for it to finish.
func (s *MemoryKV) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}
