package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEntryStoreContract runs a suite of tests to verify that an EntryStore implementation
// adheres to the defined interface contract.
func RunEntryStoreContract(t *testing.T, store EntryStore) {
	ctx := context.Background()
	key := "contract-entry-" + time.Now().Format("20060102150405")

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, key, []byte(`{"v":1}`), time.Time{}))

		data, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"v":1}`, string(data))

		// Last write wins
		require.NoError(t, store.Put(ctx, key, []byte(`{"v":2}`), time.Now().Add(time.Hour)))
		data, err = store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"v":2}`, string(data))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrResultNotFound)
	})

	t.Run("Expired entries are invisible", func(t *testing.T) {
		expired := key + "-expired"
		require.NoError(t, store.Put(ctx, expired, []byte("old"), time.Now().Add(-time.Minute)))

		_, err := store.Get(ctx, expired)
		assert.ErrorIs(t, err, domain.ErrResultNotFound)

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, keys, expired)
		_ = store.Delete(ctx, expired)
	})

	t.Run("ClearExpired", func(t *testing.T) {
		stale := key + "-stale"
		fresh := key + "-fresh"
		forever := key + "-forever"
		require.NoError(t, store.Put(ctx, stale, []byte("a"), time.Now().Add(time.Minute)))
		require.NoError(t, store.Put(ctx, fresh, []byte("b"), time.Now().Add(2*time.Hour)))
		require.NoError(t, store.Put(ctx, forever, []byte("c"), time.Time{}))
		defer func() {
			_ = store.Delete(ctx, fresh)
			_ = store.Delete(ctx, forever)
		}()

		// Clearing as of one hour from now removes only the stale entry.
		n, err := store.ClearExpired(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)

		_, err = store.Get(ctx, fresh)
		assert.NoError(t, err, "unexpired entry must survive")
		_, err = store.Get(ctx, forever)
		assert.NoError(t, err, "entry without expiry must survive")

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, keys, stale)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, key, []byte("x"), time.Time{}))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrResultNotFound, "Get after Delete should return ErrResultNotFound")
		assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		_ = store.Put(ctx, id1, []byte("1"), time.Time{})
		_ = store.Put(ctx, id2, []byte("2"), time.Time{})
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}

// RunResultCacheContract runs a suite of tests to verify that a ResultCache implementation
// adheres to the defined interface contract.
func RunResultCacheContract(t *testing.T, cache ResultCache) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	t.Run("Store and Load", func(t *testing.T) {
		stored := SampleResult(runID)
		require.NoError(t, cache.Store(ctx, runID, stored, time.Now().Add(time.Hour)))

		loaded, err := cache.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, stored, loaded)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := cache.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrResultNotFound)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := runID + "-expired"
		require.NoError(t, cache.Store(ctx, expired, SampleResult(expired), time.Now().Add(-time.Second)))

		_, err := cache.Load(ctx, expired)
		assert.ErrorIs(t, err, domain.ErrResultNotFound)

		_, err = cache.ClearExpired(ctx)
		require.NoError(t, err)
		_, err = cache.Load(ctx, runID)
		assert.NoError(t, err, "ClearExpired must keep unexpired results")
	})

	t.Run("Delete and List", func(t *testing.T) {
		other := runID + "-other"
		require.NoError(t, cache.Store(ctx, other, SampleResult(other), time.Time{}))

		ids, err := cache.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, runID)
		assert.Contains(t, ids, other)

		require.NoError(t, cache.Delete(ctx, other))
		require.NoError(t, cache.Delete(ctx, runID))
		_, err = cache.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrResultNotFound)
	})
}

// SampleResult builds a partially completed assessment result covering every
// result kind, suitable for cache round trips.
func SampleResult(runID string) *result.AssessmentResult {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	minute := func(n int) time.Time { return at.Add(time.Duration(n) * time.Minute) }

	root := result.NewAssessment("sample", runID, at)
	root.VersionString = "1.0.0"

	intro := result.NewBase("intro", minute(0))
	intro.Finish(minute(1))
	root.Append("intro", intro, result.Forward)

	section := result.NewBranch("health", minute(1))
	age := result.NewAnswer("age", answer.Integer(), minute(1))
	age.Value = int64(42)
	age.Finish(minute(2))
	section.Append("age", age, result.Forward)

	foods := result.NewAnswer("foods", answer.Array(answer.KindString, ","), minute(2))
	foods.Value = []any{"apple", "pear"}
	section.Append("foods", foods, result.Forward)

	motion := result.NewCollection("motion", minute(1))
	motion.Insert(result.NewBase("accelerometer", minute(1)))
	section.Insert(motion)

	root.Append("health", section, result.Forward)
	return root
}
