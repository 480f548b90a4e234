package app

import (
	"context"
	"fmt"

	"hmmsynth/domain/modeldef"
	"hmmsynth/domain/synth"
	"hmmsynth/internal"
	"hmmsynth/ports"
)

// streamNamespace keys the random streams of collections built here.
const streamNamespace = "collection"

// CollectionBuilder assembles generators and collections from declarative
// specs, deriving one random stream per model and worker.
type CollectionBuilder struct {
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewCollectionBuilder creates a builder
func NewCollectionBuilder(rng ports.RNGPort, logger *internal.Logger) *CollectionBuilder {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &CollectionBuilder{rng: rng, logger: logger}
}

// ResolveSeed returns spec with a zero seed replaced by a fresh one. Resolve
// once before building several workers so they share the seed.
func (b *CollectionBuilder) ResolveSeed(spec modeldef.CollectionSpec) modeldef.CollectionSpec {
	spec.Seed = b.rng.ResolveSeed(spec.Seed)
	return spec
}

// Generators builds every model of spec with the streams of the given
// worker. Workers with different indices get independent streams. A zero
// seed is resolved first, so such builds are not reproducible.
func (b *CollectionBuilder) Generators(ctx context.Context, spec modeldef.CollectionSpec, worker int) ([]*synth.Generator, error) {
	spec = b.ResolveSeed(spec)
	out := make([]*synth.Generator, len(spec.Models))
	for i, m := range spec.Models {
		src, err := b.rng.Stream(ctx, streamNamespace, spec.ModelName(i), worker, spec.Seed)
		if err != nil {
			return nil, fmt.Errorf("random stream for model %d: %w", i, err)
		}
		g, err := m.Generator(src)
		if err != nil {
			return nil, fmt.Errorf("models[%d]: %w", i, err)
		}
		out[i] = g
	}
	return out, nil
}

// Build validates spec and returns a collection over worker 0's streams.
func (b *CollectionBuilder) Build(ctx context.Context, spec modeldef.CollectionSpec) (*SequenceCollection, error) {
	return b.BuildWorker(ctx, spec, 0)
}

// BuildWorker is Build for a specific worker's streams.
func (b *CollectionBuilder) BuildWorker(ctx context.Context, spec modeldef.CollectionSpec, worker int) (*SequenceCollection, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	gens, err := b.Generators(ctx, spec, worker)
	if err != nil {
		return nil, err
	}
	filters, err := spec.Transforms()
	if err != nil {
		return nil, err
	}
	c, err := NewSequenceCollection(gens, CollectionOptions{
		SeqLen:      spec.SeqLen,
		DatasetSize: spec.DatasetSize,
		Filters:     filters,
		Logger:      b.logger,
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("built collection: %d models, seq_len=%d, dataset_size=%d, worker=%d",
		c.NumModels(), c.SeqLen(), c.Size(), worker)
	return c, nil
}
