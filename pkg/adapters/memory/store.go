package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// Store implements ports.EntryStore in memory.
// Safe for concurrent use.
type Store struct {
	data  map[string]entry
	mu    sync.RWMutex
	clock func() time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data:  make(map[string]entry),
		clock: time.Now,
	}
}

// Put stores a copy of data.
func (s *Store) Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	copied := append([]byte(nil), data...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{data: copied, expiresAt: expiresAt}
	return nil
}

// Get returns a copy of the entry so callers cannot mutate the store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || e.expired(s.clock()) {
		return nil, domain.ErrResultNotFound
	}
	return append([]byte(nil), e.data...), nil
}

// Delete removes the entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the keys of unexpired entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock()
	keys := make([]string, 0, len(s.data))
	for k, e := range s.data {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// ClearExpired removes entries expired at now.
func (s *Store) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.data {
		if e.expired(now) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}
