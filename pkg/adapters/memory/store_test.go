package memory_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/persistence"
	"github.com/aretw0/arbor/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunEntryStoreContract(t, memory.NewStore())
}

func TestMemoryCache_Contract(t *testing.T) {
	ports.RunResultCacheContract(t, persistence.NewCache(memory.NewStore()))
}
