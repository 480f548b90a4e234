package app

import (
	"fmt"
	"sync"

	"hmmsynth/domain/core"
	"hmmsynth/domain/synth"
	"hmmsynth/internal"
)

// CollectionOptions configures a SequenceCollection.
type CollectionOptions struct {
	SeqLen      int
	DatasetSize int

	// Filters are applied in order to every record.
	Filters []synth.Transform

	// PostProcessing is a single transform.
	//
	// Deprecated: use Filters. At most one of the two may be set.
	PostProcessing synth.Transform

	Logger *internal.Logger
}

// SequenceCollection is a fixed-size, index-addressable view over a list of
// generators. Index i is served by generator i mod K, and the record is
// tagged with that generator's position as its class label.
//
// Indices are not checked against the declared size; only the residue
// matters. Generation on each generator is serialized by its own lock, so
// Get is safe for concurrent use.
type SequenceCollection struct {
	generators []*synth.Generator
	locks      []sync.Mutex
	seqLen     int
	size       int
	transform  synth.Transform
}

// NewSequenceCollection validates the options and builds the collection.
func NewSequenceCollection(generators []*synth.Generator, opts CollectionOptions) (*SequenceCollection, error) {
	if len(generators) == 0 {
		return nil, core.NewConfigError("models", "at least one generator is required")
	}
	for i, g := range generators {
		if g == nil {
			return nil, core.NewConfigError("models", fmt.Sprintf("generator %d is nil", i))
		}
	}
	if opts.SeqLen <= 1 {
		return nil, core.NewConfigError("seq_len", fmt.Sprintf("must be greater than 1, got %d", opts.SeqLen))
	}
	if opts.DatasetSize < 0 {
		return nil, core.NewConfigError("dataset_size", fmt.Sprintf("must be non-negative, got %d", opts.DatasetSize))
	}
	if opts.Filters != nil && opts.PostProcessing != nil {
		return nil, core.NewConfigError("post_processing", "cannot be combined with i_filters")
	}

	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &SequenceCollection{
		generators: append([]*synth.Generator(nil), generators...),
		locks:      make([]sync.Mutex, len(generators)),
		seqLen:     opts.SeqLen,
		size:       opts.DatasetSize,
	}
	switch {
	case opts.Filters != nil:
		c.transform = synth.Chain(opts.Filters...)
	case opts.PostProcessing != nil:
		logger.Warn("post_processing is deprecated, use i_filters")
		c.transform = opts.PostProcessing
	}
	return c, nil
}

// Get generates the record for index i.
func (c *SequenceCollection) Get(i int) (synth.Record, error) {
	k := len(c.generators)
	label := ((i % k) + k) % k

	c.locks[label].Lock()
	rec, err := c.generators[label].Generate(c.seqLen)
	c.locks[label].Unlock()
	if err != nil {
		return synth.Record{}, fmt.Errorf("generate item %d with model %d: %w", i, label, err)
	}

	rec.ClassLabel = label
	if c.transform != nil {
		return c.transform(rec)
	}
	return rec, nil
}

// Size returns the declared dataset size.
func (c *SequenceCollection) Size() int {
	return c.size
}

// NumModels returns K, the number of generators.
func (c *SequenceCollection) NumModels() int {
	return len(c.generators)
}

// SeqLen returns the length of every generated sequence.
func (c *SequenceCollection) SeqLen() int {
	return c.seqLen
}

// Generators returns the generators in label order.
func (c *SequenceCollection) Generators() []*synth.Generator {
	return append([]*synth.Generator(nil), c.generators...)
}
