package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"hmmsynth/domain/core"
)

// Step is one position of the chain: the hidden state reported for the step
// and the observed state.
type Step struct {
	Hidden   *State
	Observed *State
}

// Trace records, per step, the state indices behind a generated sequence.
// TrueHidden is the chain's hidden state; EmittedHidden is what the features
// were sampled from after label noise.
type Trace struct {
	TrueHidden    []int
	EmittedHidden []int
	Observed      []int
}

// Generator samples sequences from a two-layer hidden Markov process. The
// hidden chain moves by the hidden transition matrix M[h, h'] and the
// observed chain moves by the tensor T[s, s', h'], conditioned on the next
// hidden state.
//
// The model is immutable once built. The cursor and the random stream are
// not safe for concurrent use; use Clone to give each worker its own.
type Generator struct {
	observed []*State
	hidden   []*State
	tensor   Array
	matrix   Array
	noise    float64
	src      rand.Source

	hiddenRows   []categorical   // [h] -> M[h, :]
	observedRows [][]categorical // [s][h] -> T[s, :, h]

	// Rows bound to src; rebuilt by Clone.
	hiddenDraw   []boundCategorical
	observedDraw [][]boundCategorical

	hiddenSchema   []column
	observedSchema []column

	curObserved *State
	curHidden   *State
}

type column struct {
	name string
	kind ValueKind
}

// NewGenerator validates the model and returns a generator positioned at a
// random initial state. Structural violations fail with core.ErrInvalidModel;
// feature names clashing between the hidden and observed layers, or with the
// reserved columns, fail with core.ErrInvalidConfig.
func NewGenerator(observed, hidden []*State, tensor, matrix Array, noise float64, src rand.Source) (*Generator, error) {
	if tensor.Rank() != 3 {
		return nil, core.NewModelError(fmt.Sprintf("state transition tensor must be rank 3, got rank %d", tensor.Rank()))
	}
	if matrix.Rank() != 2 {
		return nil, core.NewModelError(fmt.Sprintf("hidden transition matrix must be rank 2, got rank %d", matrix.Rank()))
	}
	if len(observed) == 0 || len(hidden) == 0 {
		return nil, core.NewModelError("model needs at least one observed and one hidden state")
	}

	s, h := len(observed), len(hidden)
	ts, ms := tensor.Shape(), matrix.Shape()
	if ts[0] != s || ts[1] != s {
		return nil, core.NewModelError(fmt.Sprintf("tensor shape %v does not match %d observed states", ts, s))
	}
	if ms[0] != ms[1] {
		return nil, core.NewModelError(fmt.Sprintf("hidden transition matrix shape %v is not square", ms))
	}
	if ts[2] != ms[0] {
		return nil, core.NewModelError(fmt.Sprintf("tensor hidden axis %d does not match matrix shape %v", ts[2], ms))
	}
	if ms[0] != h {
		return nil, core.NewModelError(fmt.Sprintf("matrix shape %v does not match %d hidden states", ms, h))
	}
	if err := CheckIndices(observed); err != nil {
		return nil, fmt.Errorf("observed states: %w", err)
	}
	if err := CheckIndices(hidden); err != nil {
		return nil, fmt.Errorf("hidden states: %w", err)
	}
	if math.IsNaN(noise) || noise < 0 || noise > 1 {
		return nil, core.NewModelError(fmt.Sprintf("noise must be in [0, 1], got %v", noise))
	}

	g := &Generator{
		observed: byIndex(observed),
		hidden:   byIndex(hidden),
		tensor:   tensor,
		matrix:   matrix,
		noise:    noise,
		src:      src,
	}

	g.hiddenRows = make([]categorical, h)
	for i := 0; i < h; i++ {
		row := matrix.Fiber(1, i, 0)
		if err := checkProbabilityVector(row); err != nil {
			return nil, core.NewModelError(fmt.Sprintf("hidden transition row %d: %v", i, err))
		}
		g.hiddenRows[i] = newCategorical(row)
	}
	g.observedRows = make([][]categorical, s)
	for i := 0; i < s; i++ {
		g.observedRows[i] = make([]categorical, h)
		for k := 0; k < h; k++ {
			row := tensor.Fiber(1, i, 0, k)
			if err := checkProbabilityVector(row); err != nil {
				return nil, core.NewModelError(fmt.Sprintf("state transition slice [%d, :, %d]: %v", i, k, err))
			}
			g.observedRows[i][k] = newCategorical(row)
		}
	}
	g.bindRows()

	var err error
	if g.hiddenSchema, err = layerSchema("hidden", g.hidden); err != nil {
		return nil, err
	}
	if g.observedSchema, err = layerSchema("observed", g.observed); err != nil {
		return nil, err
	}
	if err := checkCollisions(g.hiddenSchema, g.observedSchema); err != nil {
		return nil, err
	}

	g.Reset()
	return g, nil
}

// layerSchema returns the shared feature schema of a state layer. Every state
// in the layer must emit the same names with the same dtypes, otherwise the
// columns would have gaps.
func layerSchema(layer string, states []*State) ([]column, error) {
	first := states[0]
	schema := make([]column, 0, len(first.names))
	for _, name := range first.names {
		schema = append(schema, column{name: name, kind: first.features[name].ValueKind()})
	}
	for _, st := range states[1:] {
		if !slices.Equal(st.names, first.names) {
			return nil, core.NewModelError(fmt.Sprintf("%s state %s has features %v, state %s has %v", layer, st, st.names, first, first.names))
		}
		for _, c := range schema {
			if st.features[c.name].ValueKind() != c.kind {
				return nil, core.NewModelError(fmt.Sprintf("%s feature %q is %s in state %s but %s in state %s",
					layer, c.name, st.features[c.name].ValueKind(), st, c.kind, first))
			}
		}
	}
	return schema, nil
}

func checkCollisions(hidden, observed []column) error {
	seen := map[string]string{
		EventTimeColumn: "reserved",
		ClassLabelField: "reserved",
		ItemField:       "reserved",
	}
	for _, layer := range []struct {
		name string
		cols []column
	}{{"hidden", hidden}, {"observed", observed}} {
		for _, c := range layer.cols {
			if prev, ok := seen[c.name]; ok {
				return core.NewConfigError("features", fmt.Sprintf("%s feature %q collides with %s name", layer.name, c.name, prev))
			}
			seen[c.name] = layer.name
		}
	}
	return nil
}

// ObservedStates returns the observed states ordered by index.
func (g *Generator) ObservedStates() []*State {
	return append([]*State(nil), g.observed...)
}

// HiddenStates returns the hidden states ordered by index.
func (g *Generator) HiddenStates() []*State {
	return append([]*State(nil), g.hidden...)
}

func (g *Generator) Noise() float64 {
	return g.noise
}

// Columns returns the output column names of a generated record, including
// event_time.
func (g *Generator) Columns() []string {
	out := make([]string, 0, len(g.hiddenSchema)+len(g.observedSchema)+1)
	for _, c := range g.hiddenSchema {
		out = append(out, c.name)
	}
	for _, c := range g.observedSchema {
		out = append(out, c.name)
	}
	return append(out, EventTimeColumn)
}

// Current returns the cursor without moving it.
func (g *Generator) Current() Step {
	return Step{Hidden: g.curHidden, Observed: g.curObserved}
}

// Clone returns a generator over the same model with its own cursor and
// random stream.
func (g *Generator) Clone(src rand.Source) *Generator {
	c := *g
	c.src = src
	c.bindRows()
	c.Reset()
	return &c
}

func (g *Generator) bindRows() {
	g.hiddenDraw = make([]boundCategorical, len(g.hiddenRows))
	for i, row := range g.hiddenRows {
		g.hiddenDraw[i] = row.bind(g.src)
	}
	g.observedDraw = make([][]boundCategorical, len(g.observedRows))
	for i, rows := range g.observedRows {
		g.observedDraw[i] = make([]boundCategorical, len(rows))
		for k, row := range rows {
			g.observedDraw[i][k] = row.bind(g.src)
		}
	}
}

// Reset draws the hidden and the observed state independently and uniformly.
// There is no designated start state.
func (g *Generator) Reset() Step {
	g.curHidden = g.hidden[uniformIndex(len(g.hidden), g.src)]
	g.curObserved = g.observed[uniformIndex(len(g.observed), g.src)]
	return g.Current()
}

// Advance moves the chain one step and returns the emitted hidden state with
// the new observed state. Noise replaces only the emitted hidden state; the
// chain keeps following the drawn one.
func (g *Generator) Advance() Step {
	_, step := g.advance()
	return step
}

func (g *Generator) advance() (truth *State, emitted Step) {
	next := g.hidden[g.hiddenDraw[g.curHidden.Index].draw()]
	obs := g.observed[g.observedDraw[g.curObserved.Index][next.Index].draw()]

	out := next
	if uniform01(g.src) < g.noise {
		out = g.hidden[uniformIndex(len(g.hidden), g.src)]
	}

	g.curHidden = next
	g.curObserved = obs
	return next, Step{Hidden: out, Observed: obs}
}

// Generate samples one sequence of the given length. Length must be at
// least 2.
func (g *Generator) Generate(length int) (Record, error) {
	rec, _, err := g.GenerateTrace(length)
	return rec, err
}

// GenerateTrace is Generate that also reports the state path.
func (g *Generator) GenerateTrace(length int) (Record, Trace, error) {
	if length <= 1 {
		return Record{}, Trace{}, core.NewArgumentError("length", fmt.Sprintf("must be greater than 1, got %d", length))
	}

	rec := Record{Columns: make(map[string]Column, len(g.hiddenSchema)+len(g.observedSchema)+1)}
	for _, schema := range [][]column{g.hiddenSchema, g.observedSchema} {
		for _, c := range schema {
			rec.Columns[c.name] = newColumn(c.kind, length)
		}
	}
	tr := Trace{
		TrueHidden:    make([]int, length),
		EmittedHidden: make([]int, length),
		Observed:      make([]int, length),
	}

	step := g.Reset()
	truth := step.Hidden
	for t := 0; t < length; t++ {
		if t > 0 {
			truth, step = g.advance()
		}
		tr.TrueHidden[t] = truth.Index
		tr.EmittedHidden[t] = step.Hidden.Index
		tr.Observed[t] = step.Observed.Index

		rec.set(t, step.Hidden.Unwrap(g.src))
		rec.set(t, step.Observed.Unwrap(g.src))
	}

	times := make([]int64, length)
	for t := range times {
		times[t] = int64(t)
	}
	rec.Columns[EventTimeColumn] = Column{Kind: KindInt, Ints: times}
	return rec, tr, nil
}
