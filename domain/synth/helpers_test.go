package synth

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedSource replays fixed uniform draws in [0,1). It fails the test when
// the script runs out, which also catches unexpected extra draws.
type scriptedSource struct {
	t    *testing.T
	vals []float64
	pos  int
}

func (s *scriptedSource) Uint64() uint64 {
	s.t.Helper()
	if s.pos >= len(s.vals) {
		s.t.Fatalf("scripted source exhausted after %d draws", s.pos)
	}
	v := s.vals[s.pos]
	s.pos++
	return uint64(v * (1 << 53))
}

func seeded(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

func mustState(t *testing.T, ind int, name string, features map[string]Feature) *State {
	t.Helper()
	s, err := NewState(ind, name, features)
	require.NoError(t, err)
	return s
}

func mustMatrix(t *testing.T, rows [][]float64) Array {
	t.Helper()
	a, err := MatrixOf(rows)
	require.NoError(t, err)
	return a
}

func mustTensor(t *testing.T, v [][][]float64) Array {
	t.Helper()
	a, err := TensorOf(v)
	require.NoError(t, err)
	return a
}

func bareStates(t *testing.T, n int) []*State {
	t.Helper()
	out := make([]*State, n)
	for i := range out {
		out[i] = mustState(t, i, "", nil)
	}
	return out
}

// uniformTensor returns an s x s x h tensor whose slices are all uniform.
func uniformTensor(s, h int) [][][]float64 {
	t := make([][][]float64, s)
	for i := range t {
		t[i] = make([][]float64, s)
		for j := range t[i] {
			t[i][j] = make([]float64, h)
			for k := range t[i][j] {
				t[i][j][k] = 1 / float64(s)
			}
		}
	}
	return t
}

func uniformMatrix(h int) [][]float64 {
	m := make([][]float64, h)
	for i := range m {
		m[i] = make([]float64, h)
		for j := range m[i] {
			m[i][j] = 1 / float64(h)
		}
	}
	return m
}

// featureModel builds a two-observed, two-hidden model with one feature of
// each kind per layer.
func featureModel(t *testing.T, noise float64, src rand.Source) *Generator {
	t.Helper()
	amount, err := NewFloatFeature(0, 3, true, DistBeta, DistArgs{A: 2, B: 5})
	require.NoError(t, err)
	mcc, err := NewCategoryFeature(4, DistConst, DistArgs{P: []float64{0.1, 0.2, 0.3, 0.4}})
	require.NoError(t, err)
	segment, err := NewCategoryFeature(3, DistUniform, DistArgs{})
	require.NoError(t, err)
	risk, err := NewFloatFeature(-1, 1, false, DistUniform, DistArgs{})
	require.NoError(t, err)

	observed := []*State{
		mustState(t, 0, "browse", map[string]Feature{"amount": amount, "mcc": mcc}),
		mustState(t, 1, "buy", map[string]Feature{"amount": amount, "mcc": mcc}),
	}
	hidden := []*State{
		mustState(t, 0, "calm", map[string]Feature{"segment": segment, "risk": risk}),
		mustState(t, 1, "busy", map[string]Feature{"segment": segment, "risk": risk}),
	}
	tensor := mustTensor(t, [][][]float64{
		{{0.9, 0.2}, {0.1, 0.8}},
		{{0.5, 0.3}, {0.5, 0.7}},
	})
	matrix := mustMatrix(t, [][]float64{{0.95, 0.05}, {0.1, 0.9}})

	g, err := NewGenerator(observed, hidden, tensor, matrix, noise, src)
	require.NoError(t, err)
	return g
}
