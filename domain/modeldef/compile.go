package modeldef

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"

	"hmmsynth/domain/core"
	"hmmsynth/domain/synth"
)

// Feature builds the feature declared by f.
func (f FeatureSpec) Feature() (synth.Feature, error) {
	kind, err := synth.ParseFeatureKind(f.Type)
	if err != nil {
		return synth.Feature{}, err
	}
	dist, err := synth.ParseDistKind(f.DistType)
	if err != nil {
		return synth.Feature{}, err
	}
	switch kind {
	case synth.FeatureCategory:
		return synth.NewCategoryFeature(f.N, dist, f.DistArgs)
	default:
		lo, hi := 0.0, 1.0
		if f.Min != nil {
			lo = *f.Min
		}
		if f.Max != nil {
			hi = *f.Max
		}
		return synth.NewFloatFeature(lo, hi, f.Log, dist, f.DistArgs)
	}
}

// State builds the state declared by s.
func (s StateSpec) State() (*synth.State, error) {
	features := make(map[string]synth.Feature, len(s.Features))
	for name, fs := range s.Features {
		f, err := fs.Feature()
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", name, err)
		}
		features[name] = f
	}
	return synth.NewState(s.Ind, s.Name, features)
}

func buildStates(layer string, specs []StateSpec) ([]*synth.State, error) {
	out := make([]*synth.State, len(specs))
	for i, spec := range specs {
		st, err := spec.State()
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", layer, i, err)
		}
		out[i] = st
	}
	return out, nil
}

// Generator builds and validates the generator declared by m, drawing from
// src.
func (m ModelSpec) Generator(src rand.Source) (*synth.Generator, error) {
	observed, err := buildStates("observed_states", m.ObservedStates)
	if err != nil {
		return nil, m.wrap(err)
	}
	hidden, err := buildStates("hidden_states", m.HiddenStates)
	if err != nil {
		return nil, m.wrap(err)
	}
	tensor, err := ArrayOf(m.StateTransitionTensor)
	if err != nil {
		return nil, m.wrap(fmt.Errorf("state_transition_tensor: %w", err))
	}
	matrix, err := ArrayOf(m.HiddenTransitionMatrix)
	if err != nil {
		return nil, m.wrap(fmt.Errorf("hidden_transition_matrix: %w", err))
	}
	g, err := synth.NewGenerator(observed, hidden, tensor, matrix, m.Noise, src)
	if err != nil {
		return nil, m.wrap(err)
	}
	return g, nil
}

func (m ModelSpec) wrap(err error) error {
	if m.Name == "" {
		return err
	}
	return fmt.Errorf("model %q: %w", m.Name, err)
}

// Transform builds the transform declared by f.
func (f FilterSpec) Transform() (synth.Transform, error) {
	switch strings.ToLower(f.Type) {
	case "drop_columns":
		return synth.DropColumns(f.Columns...), nil
	case "select_columns":
		if len(f.Columns) == 0 {
			return nil, core.NewConfigError("i_filters", "select_columns needs columns")
		}
		return synth.SelectColumns(f.Columns...), nil
	case "truncate_tail":
		if f.N <= 0 {
			return nil, core.NewConfigError("i_filters", fmt.Sprintf("truncate_tail needs n > 0, got %d", f.N))
		}
		return synth.TruncateTail(f.N), nil
	case "cast_float":
		return synth.CastFloat(f.Columns...), nil
	default:
		return nil, core.NewConfigError("i_filters", fmt.Sprintf("unknown filter %q", f.Type))
	}
}

// Transforms builds the ordered filter list. It returns nil when no filters
// are declared.
func (c CollectionSpec) Transforms() ([]synth.Transform, error) {
	if len(c.Filters) == 0 {
		return nil, nil
	}
	out := make([]synth.Transform, len(c.Filters))
	for i, f := range c.Filters {
		t, err := f.Transform()
		if err != nil {
			return nil, fmt.Errorf("i_filters[%d]: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// Validate checks the collection-level fields. Models are validated when
// they are built.
func (c CollectionSpec) Validate() error {
	if c.SeqLen <= 1 {
		return core.NewConfigError("seq_len", fmt.Sprintf("must be greater than 1, got %d", c.SeqLen))
	}
	if c.DatasetSize < 0 {
		return core.NewConfigError("dataset_size", fmt.Sprintf("must be non-negative, got %d", c.DatasetSize))
	}
	if len(c.Models) == 0 {
		return core.NewConfigError("models", "at least one model is required")
	}
	_, err := c.Transforms()
	return err
}

// ModelName returns a stable name for model i, used to derive its random
// stream.
func (c CollectionSpec) ModelName(i int) string {
	if n := c.Models[i].Name; n != "" {
		return n
	}
	return fmt.Sprintf("model-%d", i)
}

// ArrayOf converts decoded nested lists (or typed nested slices) into a
// dense array. The nesting depth becomes the rank; ragged input and
// non-numeric leaves fail with core.ErrInvalidModel.
func ArrayOf(v any) (synth.Array, error) {
	if v == nil {
		return synth.Array{}, core.NewModelError("array is missing")
	}
	if a, ok := v.(synth.Array); ok {
		return a, nil
	}
	shape, err := shapeOf(reflect.ValueOf(v))
	if err != nil {
		return synth.Array{}, err
	}
	if len(shape) == 0 {
		return synth.Array{}, core.NewModelError("array is a scalar")
	}
	data := make([]float64, 0, product(shape))
	if err := flatten(reflect.ValueOf(v), shape, &data); err != nil {
		return synth.Array{}, err
	}
	return synth.NewArray(shape, data)
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// shapeOf follows the first element at each level.
func shapeOf(v reflect.Value) ([]int, error) {
	var shape []int
	for {
		v = deref(v)
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			if v.Len() == 0 {
				return nil, core.NewModelError(fmt.Sprintf("empty axis at depth %d", len(shape)))
			}
			shape = append(shape, v.Len())
			v = v.Index(0)
		default:
			if _, ok := toFloat(v); !ok {
				return nil, core.NewModelError(fmt.Sprintf("non-numeric value %v at depth %d", v, len(shape)))
			}
			return shape, nil
		}
	}
}

func flatten(v reflect.Value, shape []int, out *[]float64) error {
	v = deref(v)
	if len(shape) == 0 {
		f, ok := toFloat(v)
		if !ok {
			return core.NewModelError(fmt.Sprintf("non-numeric or nested value %v where a number was expected", v))
		}
		*out = append(*out, f)
		return nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return core.NewModelError(fmt.Sprintf("expected a list of length %d, got %v", shape[0], v))
	}
	if v.Len() != shape[0] {
		return core.NewModelError(fmt.Sprintf("ragged array: axis has length %d, want %d", v.Len(), shape[0]))
	}
	for i := 0; i < v.Len(); i++ {
		if err := flatten(v.Index(i), shape[1:], out); err != nil {
			return err
		}
	}
	return nil
}

func toFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	}
	return 0, false
}

func product(shape []int) int {
	p := 1
	for _, d := range shape {
		p *= d
	}
	return p
}
