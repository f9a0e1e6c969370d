package ports

import (
	"context"
	"time"

	"github.com/aretw0/arbor/pkg/result"
)

// EntryStore persists opaque entries keyed by run id.
// A zero expiresAt means the entry never expires.
type EntryStore interface {
	// Put writes data under key, replacing any previous entry atomically.
	Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error

	// Get returns the entry for key.
	// Returns domain.ErrResultNotFound if it is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys of every unexpired entry.
	List(ctx context.Context) ([]string, error)

	// ClearExpired removes entries whose expiry is at or before now and
	// returns how many were removed.
	ClearExpired(ctx context.Context, now time.Time) (int, error)
}

// ResultCache persists partial assessment results so that an interrupted run
// can be resumed.
type ResultCache interface {
	// Store serializes r and overwrites any prior entry for runID.
	Store(ctx context.Context, runID string, r *result.AssessmentResult, expireAt time.Time) error

	// Load returns the cached result for runID.
	// Returns domain.ErrResultNotFound if it is absent, expired or unreadable.
	Load(ctx context.Context, runID string) (*result.AssessmentResult, error)

	// Delete removes the cached result for runID.
	Delete(ctx context.Context, runID string) error

	// List returns the run ids with a cached result.
	List(ctx context.Context) ([]string, error)

	// ClearExpired removes expired results and never touches unexpired ones.
	ClearExpired(ctx context.Context) (int, error)
}
