package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random sources for deterministic generation
type RNGPort interface {
	// ResolveSeed returns seed unchanged, or a fresh seed when seed is 0.
	// Callers resolve once per build so every stream shares the chosen seed.
	ResolveSeed(seed uint64) uint64

	// Stream creates a deterministic source for one model on one worker.
	// Different (namespace, model, worker) triples get independent streams
	// from the same base seed.
	Stream(ctx context.Context, namespace, model string, worker int, baseSeed uint64) (rand.Source, error)
}
