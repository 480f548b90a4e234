package synth

import (
	"math"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmmsynth/domain/core"
)

func TestNewGenerator_HiddenAxisMismatch(t *testing.T) {
	tensor := mustTensor(t, uniformTensor(2, 3))
	matrix := mustMatrix(t, uniformMatrix(4))

	_, err := NewGenerator(bareStates(t, 2), bareStates(t, 4), tensor, matrix, 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidModel)
}

func TestNewGenerator_NonPermutationIndices(t *testing.T) {
	observed := []*State{mustState(t, 0, "", nil), mustState(t, 2, "", nil)}
	tensor := mustTensor(t, uniformTensor(2, 1))
	matrix := mustMatrix(t, uniformMatrix(1))

	_, err := NewGenerator(observed, bareStates(t, 1), tensor, matrix, 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidModel)

	dup := []*State{mustState(t, 0, "", nil), mustState(t, 0, "", nil)}
	_, err = NewGenerator(bareStates(t, 2), dup, mustTensor(t, uniformTensor(2, 2)), mustMatrix(t, uniformMatrix(2)), 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidModel)
}

func TestNewGenerator_RankChecks(t *testing.T) {
	tensor := mustTensor(t, uniformTensor(2, 2))
	matrix := mustMatrix(t, uniformMatrix(2))

	_, err := NewGenerator(bareStates(t, 2), bareStates(t, 2), matrix, matrix, 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidModel)

	_, err = NewGenerator(bareStates(t, 2), bareStates(t, 2), tensor, tensor, 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidModel)
}

func TestNewGenerator_ObservedAxisMismatch(t *testing.T) {
	tensor := mustTensor(t, uniformTensor(3, 2))
	matrix := mustMatrix(t, uniformMatrix(2))

	_, err := NewGenerator(bareStates(t, 2), bareStates(t, 2), tensor, matrix, 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidModel)
}

func TestNewGenerator_RejectsNonStochasticRows(t *testing.T) {
	tensor := mustTensor(t, uniformTensor(2, 2))
	matrix := mustMatrix(t, [][]float64{{0.5, 0.4}, {0.5, 0.5}})

	_, err := NewGenerator(bareStates(t, 2), bareStates(t, 2), tensor, matrix, 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidModel)
}

func TestNewGenerator_RejectsNoiseOutsideUnitInterval(t *testing.T) {
	tensor := mustTensor(t, uniformTensor(2, 2))
	matrix := mustMatrix(t, uniformMatrix(2))
	for _, noise := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := NewGenerator(bareStates(t, 2), bareStates(t, 2), tensor, matrix, noise, seeded(1))
		assert.ErrorIs(t, err, core.ErrInvalidModel, "noise=%v", noise)
	}
}

func TestNewGenerator_FeatureNameCollision(t *testing.T) {
	f, err := NewCategoryFeature(2, DistUniform, DistArgs{})
	require.NoError(t, err)
	observed := []*State{mustState(t, 0, "", map[string]Feature{"mcc": f})}
	hidden := []*State{mustState(t, 0, "", map[string]Feature{"mcc": f})}

	_, err = NewGenerator(observed, hidden, mustTensor(t, uniformTensor(1, 1)), mustMatrix(t, uniformMatrix(1)), 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	for _, name := range []string{EventTimeColumn, ClassLabelField, ItemField} {
		reserved := []*State{mustState(t, 0, "", map[string]Feature{name: f})}
		_, err = NewGenerator(reserved, bareStates(t, 1), mustTensor(t, uniformTensor(1, 1)), mustMatrix(t, uniformMatrix(1)), 0, seeded(1))
		assert.ErrorIs(t, err, core.ErrInvalidConfig, name)
	}
}

func TestNewGenerator_LayerSchemaMismatch(t *testing.T) {
	f, err := NewCategoryFeature(2, DistUniform, DistArgs{})
	require.NoError(t, err)
	observed := []*State{
		mustState(t, 0, "", map[string]Feature{"a": f}),
		mustState(t, 1, "", map[string]Feature{"b": f}),
	}
	_, err = NewGenerator(observed, bareStates(t, 1), mustTensor(t, uniformTensor(2, 1)), mustMatrix(t, uniformMatrix(1)), 0, seeded(1))
	assert.ErrorIs(t, err, core.ErrInvalidModel)
}

func TestGenerate_RejectsShortLength(t *testing.T) {
	g := featureModel(t, 0.1, seeded(20))
	for _, l := range []int{1, 0, -3} {
		_, err := g.Generate(l)
		assert.ErrorIs(t, err, core.ErrInvalidArgument, "length=%d", l)
	}
}

func TestGenerate_ColumnsHaveRequestedLength(t *testing.T) {
	g := featureModel(t, 0.1, seeded(21))

	rec, err := g.Generate(50)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"amount", "mcc", "segment", "risk", EventTimeColumn}, rec.Names())
	assert.ElementsMatch(t, g.Columns(), rec.Names())
	for name, c := range rec.Columns {
		assert.Equal(t, 50, c.Len(), name)
	}
	assert.Equal(t, KindInt, rec.Columns["mcc"].Kind)
	assert.Equal(t, KindFloat, rec.Columns["amount"].Kind)

	times := rec.Columns[EventTimeColumn].Ints
	for i, v := range times {
		assert.Equal(t, int64(i), v)
	}
	assert.Equal(t, 50, rec.Len())
}

func TestGenerate_SameSeedSameSequence(t *testing.T) {
	a, err := featureModel(t, 0.2, seeded(22)).Generate(30)
	require.NoError(t, err)
	b, err := featureModel(t, 0.2, seeded(22)).Generate(30)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// chainModel has featureless states so every draw is a chain draw. Hidden
// transitions are uniform; the observed state stays put under hidden state 0
// and flips under hidden state 1.
func chainModel(t *testing.T, noise float64, src *scriptedSource) *Generator {
	t.Helper()
	tensor := mustTensor(t, [][][]float64{
		{{1, 0}, {0, 1}},
		{{0, 1}, {1, 0}},
	})
	g, err := NewGenerator(bareStates(t, 2), bareStates(t, 2), tensor, mustMatrix(t, uniformMatrix(2)), noise, src)
	require.NoError(t, err)
	return g
}

func TestGenerateTrace_ScriptedChainWithoutNoise(t *testing.T) {
	src := &scriptedSource{t: t, vals: []float64{
		0, 0, // construction reset
		0.1, 0.6, // reset: hidden 0, observed 1
		0.7, 0.3, 0.9, // hidden 1, observed flips to 0, noise draw
		0.2, 0.5, 0.4, // hidden 0, observed stays 0, noise draw
	}}
	g := chainModel(t, 0, src)

	_, tr, err := g.GenerateTrace(3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, tr.TrueHidden)
	assert.Equal(t, tr.TrueHidden, tr.EmittedHidden)
	assert.Equal(t, []int{1, 0, 0}, tr.Observed)
	assert.Equal(t, len(src.vals), src.pos)
}

func TestGenerateTrace_NoiseCorruptsEmissionOnly(t *testing.T) {
	src := &scriptedSource{t: t, vals: []float64{
		0, 0, // construction reset
		0.1, 0.6, // reset: hidden 0, observed 1
		0.7, 0.3, 0.9, 0.1, // true hidden 1, observed flips to 0, noised emission 0
		0.2, 0.5, 0.4, 0.8, // true hidden 0, observed stays 0, noised emission 1
	}}
	g := chainModel(t, 1, src)

	_, tr, err := g.GenerateTrace(3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, tr.TrueHidden)
	assert.Equal(t, []int{0, 0, 1}, tr.EmittedHidden)
	// Same observed path as without noise: the chain used the true states.
	assert.Equal(t, []int{1, 0, 0}, tr.Observed)
	assert.Equal(t, 0, g.Current().Hidden.Index)
}

// followModel moves the observed chain to the state equal to the next hidden
// state, so Observed[t] == TrueHidden[t] for t >= 1.
func followModel(t *testing.T, noise float64, seed uint64) *Generator {
	t.Helper()
	tensor := mustTensor(t, [][][]float64{
		{{1, 0}, {0, 1}},
		{{1, 0}, {0, 1}},
	})
	matrix := mustMatrix(t, [][]float64{{0.9, 0.1}, {0.1, 0.9}})
	g, err := NewGenerator(bareStates(t, 2), bareStates(t, 2), tensor, matrix, noise, seeded(seed))
	require.NoError(t, err)
	return g
}

func toFloats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = float64(v)
	}
	return out
}

func TestGenerateTrace_FullNoiseDecorrelatesEmission(t *testing.T) {
	g := followModel(t, 1, 23)

	var truth, emitted []float64
	for i := 0; i < 100; i++ {
		_, tr, err := g.GenerateTrace(200)
		require.NoError(t, err)
		truth = append(truth, toFloats(tr.TrueHidden)...)
		emitted = append(emitted, toFloats(tr.EmittedHidden)...)
		for step := 1; step < len(tr.Observed); step++ {
			require.Equal(t, tr.TrueHidden[step], tr.Observed[step])
		}
	}

	r, err := stats.Correlation(truth, emitted)
	require.NoError(t, err)
	assert.InDelta(t, 0, r, 0.05)
}

func TestGenerateTrace_ZeroNoiseEmitsTruth(t *testing.T) {
	g := followModel(t, 0, 24)
	for i := 0; i < 20; i++ {
		_, tr, err := g.GenerateTrace(100)
		require.NoError(t, err)
		assert.Equal(t, tr.TrueHidden, tr.EmittedHidden)
	}
}

func TestClone_SharesModelWithIndependentStream(t *testing.T) {
	g := featureModel(t, 0.1, seeded(25))
	a := g.Clone(seeded(99))
	b := g.Clone(seeded(99))

	ra, err := a.Generate(20)
	require.NoError(t, err)
	rb, err := b.Generate(20)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
	assert.Equal(t, g.Columns(), a.Columns())
}

func TestReset_DrawsUniformInitialStates(t *testing.T) {
	g := featureModel(t, 0, seeded(26))
	counts := map[[2]int]int{}
	const n = 8000
	for i := 0; i < n; i++ {
		s := g.Reset()
		counts[[2]int{s.Hidden.Index, s.Observed.Index}]++
	}
	require.Len(t, counts, 4)
	for k, c := range counts {
		assert.InDelta(t, 0.25, float64(c)/n, 0.03, "pair %v", k)
	}
}
