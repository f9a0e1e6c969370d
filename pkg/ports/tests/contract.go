package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefinitionLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.DefinitionLoader.
// setupData maps each definition name to the bytes the loader must return for it.
func DefinitionLoaderContractTest(t *testing.T, loader ports.DefinitionLoader, setupData map[string][]byte) {
	t.Helper()
	ctx := context.Background()

	// 1. Test Load (Success)
	t.Run("Load_Success", func(t *testing.T) {
		for name, expectedContent := range setupData {
			content, err := loader.Load(ctx, name)
			if err != nil {
				t.Fatalf("unexpected error loading %s: %v", name, err)
			}
			if string(content) != string(expectedContent) {
				t.Errorf("content mismatch for %s. got %q, want %q", name, content, expectedContent)
			}
		}
	})

	// 2. Test Load (NotFound)
	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := loader.Load(ctx, "non-existent-assessment")
		if !errors.Is(err, domain.ErrDefinitionNotFound) {
			t.Errorf("expected ErrDefinitionNotFound, got %v", err)
		}
	})

	// 3. Test List
	t.Run("List", func(t *testing.T) {
		names, err := loader.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing definitions: %v", err)
		}

		if len(names) != len(setupData) {
			t.Errorf("expected %d definitions, got %d", len(setupData), len(names))
		}

		lookup := make(map[string]bool)
		for _, name := range names {
			lookup[name] = true
		}

		for name := range setupData {
			if !lookup[name] {
				t.Errorf("definition %s missing from list", name)
			}
		}
	})
}
