package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
)

// DefinitionMetadata is the part of a definition's metadata needed to list it.
type DefinitionMetadata struct {
	Identifier string `json:"identifier" mapstructure:"identifier"`
	Type       string `json:"type" mapstructure:"type"`
}

// Loader adapts a Loam repository to ports.DefinitionLoader.
// Markdown documents carry the definition in their frontmatter; the body
// becomes the assessment's detail text.
type Loader struct {
	repo  core.Repository
	typed *loam.TypedRepository[DefinitionMetadata]
}

// Ensure Loader implements DefinitionLoader
var _ ports.DefinitionLoader = (*Loader)(nil)

// New creates a new Loam adapter.
func New(repo core.Repository) *Loader {
	return &Loader{
		repo:  repo,
		typed: loam.NewTypedRepository[DefinitionMetadata](repo),
	}
}

// Open initializes a read-only Loam repository at path with strict numeric decoding.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(repo), nil
}

// Load returns the definition named name as JSON.
func (l *Loader) Load(ctx context.Context, name string) ([]byte, error) {
	doc, err := l.repo.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: loam get failed for %s: %v", domain.ErrDefinitionNotFound, name, err)
	}

	data := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		data[k] = v
	}
	if _, ok := data["identifier"]; !ok {
		data["identifier"] = trimExtension(doc.ID)
	}
	if body := strings.TrimSpace(doc.Content); body != "" {
		if _, ok := data["detail"]; !ok {
			data["detail"] = body
		}
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal definition %s: %w", name, err)
	}
	return out, nil
}

// List returns the names of every assessment document in the repository.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	docs, err := l.typed.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Data.Type != "" && doc.Data.Type != domain.TypeAssessment {
			continue
		}
		name := trimExtension(doc.ID)

		// Collision Detection
		if existingPath, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: definition '%s' is defined in both '%s' and '%s'", name, existingPath, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
