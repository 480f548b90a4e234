package testkit

import (
	"context"
	"math/rand/v2"

	"github.com/stretchr/testify/mock"

	"hmmsynth/adapters/rng"
	"hmmsynth/app"
	"hmmsynth/domain/modeldef"
	"hmmsynth/internal"
	"hmmsynth/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	logger *internal.Logger
	rng    *rng.StreamAdapter
}

// NewTestKit creates a new test kit instance
func NewTestKit(logger *internal.Logger) *TestKit {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &TestKit{logger: logger, rng: rng.NewStreamAdapter(logger)}
}

// RNGAdapter returns the seeded RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// Builder returns a collection builder over the kit's RNG adapter
func (t *TestKit) Builder() *app.CollectionBuilder {
	return app.NewCollectionBuilder(t.rng, t.logger)
}

// Collection builds a preset collection
func (t *TestKit) Collection(ctx context.Context, preset string) (*app.SequenceCollection, modeldef.CollectionSpec, error) {
	spec, err := Preset(preset)
	if err != nil {
		return nil, modeldef.CollectionSpec{}, err
	}
	c, err := t.Builder().Build(ctx, spec)
	if err != nil {
		return nil, modeldef.CollectionSpec{}, err
	}
	return c, spec, nil
}

// MockRNG is a testify mock of ports.RNGPort
type MockRNG struct {
	mock.Mock
}

func (m *MockRNG) ResolveSeed(seed uint64) uint64 {
	args := m.Called(seed)
	return args.Get(0).(uint64)
}

func (m *MockRNG) Stream(ctx context.Context, namespace, model string, worker int, baseSeed uint64) (rand.Source, error) {
	args := m.Called(ctx, namespace, model, worker, baseSeed)
	src, _ := args.Get(0).(rand.Source)
	return src, args.Error(1)
}
