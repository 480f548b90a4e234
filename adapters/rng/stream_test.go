package rng

import (
	"bytes"
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmmsynth/internal"
)

func draws(src rand.Source, n int) []float64 {
	r := rand.New(src)
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()
	}
	return out
}

func TestStream_Deterministic(t *testing.T) {
	ctx := context.Background()
	a := NewStreamAdapter(nil)

	s1, err := a.Stream(ctx, "export", "churners", 3, 42)
	require.NoError(t, err)
	s2, err := a.Stream(ctx, "export", "churners", 3, 42)
	require.NoError(t, err)
	assert.Equal(t, draws(s1, 10), draws(s2, 10))
}

func TestStream_IndependentPerWorkerAndModel(t *testing.T) {
	ctx := context.Background()
	a := NewStreamAdapter(nil)

	base, err := a.Stream(ctx, "export", "churners", 0, 42)
	require.NoError(t, err)
	otherWorker, err := a.Stream(ctx, "export", "churners", 1, 42)
	require.NoError(t, err)
	otherModel, err := a.Stream(ctx, "export", "loyal", 0, 42)
	require.NoError(t, err)

	ref := draws(base, 5)
	assert.NotEqual(t, ref, draws(otherWorker, 5))
	assert.NotEqual(t, ref, draws(otherModel, 5))
}

func TestStream_RejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStreamAdapter(nil).Stream(ctx, "", "m", 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveSeed_LogsGeneratedSeed(t *testing.T) {
	var buf bytes.Buffer
	a := NewStreamAdapter(internal.NewLoggerTo(&buf, internal.LogLevelInfo))

	assert.Equal(t, uint64(99), a.ResolveSeed(99))
	assert.Empty(t, buf.String())

	assert.NotZero(t, a.ResolveSeed(0))
	assert.Contains(t, buf.String(), "Using seed:")
}

func TestResolveSeed_ZeroSeedVariesBetweenRuns(t *testing.T) {
	a := NewStreamAdapter(internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError))
	first := a.ResolveSeed(0)
	assert.Eventually(t, func() bool { return a.ResolveSeed(0) != first }, time.Second, time.Millisecond)
}
