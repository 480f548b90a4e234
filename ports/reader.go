package ports

import "hmmsynth/domain/synth"

// ItemReader provides index-addressed read access to a synthetic dataset.
// The API and profiling layers depend on this rather than on a concrete
// collection.
type ItemReader interface {
	// Get generates the record for index i. Any integer is accepted;
	// only i mod NumModels selects the model.
	Get(i int) (synth.Record, error)
	Size() int
	NumModels() int
	SeqLen() int
}
