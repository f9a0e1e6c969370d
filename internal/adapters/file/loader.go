package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// definitionExts lists the extensions tried, in order, for a definition name.
var definitionExts = []string{".yaml", ".yml", ".json"}

// Loader implements ports.DefinitionLoader over a directory of YAML or JSON files.
// The definition name is the file name without its extension.
type Loader struct {
	Dir string
}

// NewLoader creates a loader reading from dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Load reads the definition file for name.
func (l *Loader) Load(ctx context.Context, name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", domain.ErrDefinitionNotFound, name)
	}
	for _, ext := range definitionExts {
		data, err := os.ReadFile(filepath.Join(l.Dir, name+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read definition %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
}

// List returns the names of every definition file in the directory.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, known := range definitionExts {
			if ext != known {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ext)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
