package ports

import "context"

// DefinitionLoader defines how the engine retrieves assessment definitions.
// This allows the storage layer (directory, Loam, memory) to be decoupled.
type DefinitionLoader interface {
	// Load returns the raw definition (YAML or JSON) registered under name.
	// Returns domain.ErrDefinitionNotFound if there is none.
	Load(ctx context.Context, name string) ([]byte, error)

	// List returns the names of every available definition.
	List(ctx context.Context) ([]string, error)
}
