package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/result"
)

// envelopeVersion is bumped when the entry layout changes.
const envelopeVersion = 1

type envelope struct {
	Version   int             `json:"version"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	Result    json.RawMessage `json:"result"`
}

// Cache implements ports.ResultCache over a ports.EntryStore.
type Cache struct {
	store  ports.EntryStore
	logger *slog.Logger
	clock  func() time.Time
}

// Ensure Cache implements ResultCache
var _ ports.ResultCache = (*Cache)(nil)

// Option configures the Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report unreadable entries.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// NewCache creates a result cache backed by store.
func NewCache(store ports.EntryStore, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		logger: logging.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store serializes r and overwrites any entry for runID.
// A zero expireAt keeps the entry until it is deleted.
func (c *Cache) Store(ctx context.Context, runID string, r *result.AssessmentResult, expireAt time.Time) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result %s: %w", runID, err)
	}

	env := envelope{Version: envelopeVersion, Result: payload}
	if !expireAt.IsZero() {
		at := expireAt.UTC()
		env.ExpiresAt = &at
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal entry %s: %w", runID, err)
	}

	if err := c.store.Put(ctx, runID, data, expireAt); err != nil {
		return fmt.Errorf("failed to store result %s: %w", runID, err)
	}
	return nil
}

// Load returns the cached result for runID, or domain.ErrResultNotFound.
func (c *Cache) Load(ctx context.Context, runID string) (*result.AssessmentResult, error) {
	data, err := c.store.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrResultNotFound) {
			return nil, domain.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to load result %s: %w", runID, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("discarding unreadable cache entry", "run_id", runID, "err", err)
		return nil, domain.ErrResultNotFound
	}
	if env.ExpiresAt != nil && !env.ExpiresAt.After(c.clock()) {
		return nil, domain.ErrResultNotFound
	}

	var r result.AssessmentResult
	if err := json.Unmarshal(env.Result, &r); err != nil {
		c.logger.Warn("discarding unreadable cached result", "run_id", runID, "err", err)
		return nil, domain.ErrResultNotFound
	}
	return &r, nil
}

// Delete removes the cached result for runID.
func (c *Cache) Delete(ctx context.Context, runID string) error {
	return c.store.Delete(ctx, runID)
}

// List returns the run ids with an unexpired entry.
func (c *Cache) List(ctx context.Context) ([]string, error) {
	return c.store.List(ctx)
}

// ClearExpired removes entries whose expiry has passed.
func (c *Cache) ClearExpired(ctx context.Context) (int, error) {
	n, err := c.store.ClearExpired(ctx, c.clock())
	if err != nil {
		return n, fmt.Errorf("failed to clear expired results: %w", err)
	}
	if n > 0 {
		c.logger.Debug("cleared expired results", "count", n)
	}
	return n, nil
}
