package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/result"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to cached run results, ensuring one effective
// writer per run id. It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	cache ports.ResultCache

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given result cache.
func NewManager(cache ports.ResultCache, opts ...Option) *Manager {
	m := &Manager{
		cache:   cache,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(runID) after unlocking.
func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// Load retrieves a cached result.
func (m *Manager) Load(ctx context.Context, runID string) (*result.AssessmentResult, error) {
	var r *result.AssessmentResult
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		r, err = m.cache.Load(ctx, runID)
		return err
	})
	return r, err
}

// Store persists a result, replacing any earlier one for the run.
func (m *Manager) Store(ctx context.Context, runID string, r *result.AssessmentResult, expireAt time.Time) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.cache.Store(ctx, runID, r, expireAt)
	})
}

// Delete removes the cached result.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.cache.Delete(ctx, runID)
	})
}

// List delegates to the cache.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.cache.List(ctx)
}

// ClearExpired delegates to the cache. Expired runs have no writer left to race with.
func (m *Manager) ClearExpired(ctx context.Context) (int, error) {
	return m.cache.ClearExpired(ctx)
}

// Cache returns the underlying result cache. Use it inside WithLock, where
// the Manager's own methods would deadlock.
func (m *Manager) Cache() ports.ResultCache {
	return m.cache
}

// WithLock executes a function while holding the lock for the run.
// The lock is not reentrant.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"run_id", runID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
