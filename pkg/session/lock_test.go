package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/persistence"
	"github.com/aretw0/arbor/pkg/result"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(persistence.NewCache(memory.NewStore()))
	ctx := context.Background()
	count := 1000

	// 1. Create and Delete many runs
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("run-%d", i)
		_ = mgr.Store(ctx, id, result.NewAssessment("a", id, time.Now()), time.Time{})
		_ = mgr.Delete(ctx, id)
	}

	// 2. Count locks remaining in map
	assert.Empty(t, mgr.locks, "locks must be released once no caller holds them")
}
