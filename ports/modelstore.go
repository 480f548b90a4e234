package ports

import (
	"context"

	"hmmsynth/domain/modeldef"
)

// ModelStorePort loads and saves declarative collection definitions
type ModelStorePort interface {
	// LoadCollection reads a collection file. A file holding a single model
	// is returned as a one-model collection with zero collection settings.
	LoadCollection(ctx context.Context, path string) (modeldef.CollectionSpec, error)
	SaveCollection(ctx context.Context, path string, spec modeldef.CollectionSpec) error
}
