package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Loader implements ports.DefinitionLoader using an in-memory map.
type Loader struct {
	mu          sync.RWMutex
	definitions map[string][]byte
}

// NewLoader creates a new Loader with the provided raw definitions (YAML or JSON).
func NewLoader(data map[string]string) *Loader {
	definitions := make(map[string][]byte, len(data))
	for k, v := range data {
		definitions[k] = []byte(v)
	}
	return &Loader{
		definitions: definitions,
	}
}

// Add registers or replaces a definition.
func (l *Loader) Add(name string, raw []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.definitions[name] = append([]byte(nil), raw...)
}

// Load retrieves the raw definition registered under name.
func (l *Loader) Load(ctx context.Context, name string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	content, ok := l.definitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
	}
	return content, nil
}

// List returns all available definition names.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.definitions))
	for k := range l.definitions {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
