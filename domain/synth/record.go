package synth

import (
	"encoding/json"
	"math"
	"slices"
	"sort"
	"strconv"
)

// Reserved record fields.
const (
	EventTimeColumn = "event_time"
	ClassLabelField = "class_label"
	ItemField       = "item" // item index column of long-format exports
)

// Column is one per-step feature across a whole sequence. Exactly one of Ints
// or Floats is populated, as selected by Kind.
type Column struct {
	Kind   ValueKind
	Ints   []int64
	Floats []float64
}

func newColumn(kind ValueKind, length int) Column {
	if kind == KindInt {
		return Column{Kind: KindInt, Ints: make([]int64, length)}
	}
	return Column{Kind: KindFloat, Floats: make([]float64, length)}
}

func (c Column) Len() int {
	if c.Kind == KindInt {
		return len(c.Ints)
	}
	return len(c.Floats)
}

// Float64s returns the column converted to float64 for numeric consumers.
func (c Column) Float64s() []float64 {
	if c.Kind == KindFloat {
		return append([]float64(nil), c.Floats...)
	}
	out := make([]float64, len(c.Ints))
	for i, v := range c.Ints {
		out[i] = float64(v)
	}
	return out
}

// At returns element i as a Value.
func (c Column) At(i int) Value {
	if c.Kind == KindInt {
		return IntValue(c.Ints[i])
	}
	return FloatValue(c.Floats[i])
}

// Slice returns elements [from, to) sharing the underlying storage.
func (c Column) Slice(from, to int) Column {
	if c.Kind == KindInt {
		return Column{Kind: KindInt, Ints: c.Ints[from:to]}
	}
	return Column{Kind: KindFloat, Floats: c.Floats[from:to]}
}

func (c Column) MarshalJSON() ([]byte, error) {
	if c.Kind == KindInt {
		if c.Ints == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Ints)
	}
	if c.Floats == nil {
		return []byte("[]"), nil
	}
	return marshalFloats(c.Floats)
}

// marshalFloats writes a JSON array of numbers. Values JSON cannot carry
// (an overflowed log feature, NaN) are written as the strings "+Inf",
// "-Inf" and "NaN", which strconv.ParseFloat reads back.
func marshalFloats(fs []float64) ([]byte, error) {
	if !slices.ContainsFunc(fs, nonFinite) {
		return json.Marshal(fs)
	}
	buf := []byte{'['}
	for i, f := range fs {
		if i > 0 {
			buf = append(buf, ',')
		}
		if nonFinite(f) {
			buf = strconv.AppendQuote(buf, strconv.FormatFloat(f, 'g', -1, 64))
			continue
		}
		b, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return append(buf, ']'), nil
}

func nonFinite(f float64) bool {
	return math.IsInf(f, 0) || math.IsNaN(f)
}

// Record is the columnar output of one generated sequence.
type Record struct {
	Columns    map[string]Column
	ClassLabel int
}

func (r Record) set(t int, values map[string]Value) {
	for k, v := range values {
		c := r.Columns[k]
		if c.Kind == KindInt {
			c.Ints[t] = v.Int
		} else {
			c.Floats[t] = v.Float
		}
	}
}

// Len is the sequence length, taken from event_time when present.
func (r Record) Len() int {
	if c, ok := r.Columns[EventTimeColumn]; ok {
		return c.Len()
	}
	for _, c := range r.Columns {
		return c.Len()
	}
	return 0
}

// Names returns the column names in sorted order.
func (r Record) Names() []string {
	names := make([]string, 0, len(r.Columns))
	for k := range r.Columns {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy so transforms can modify the result freely.
func (r Record) Clone() Record {
	out := Record{Columns: make(map[string]Column, len(r.Columns)), ClassLabel: r.ClassLabel}
	for k, c := range r.Columns {
		if c.Kind == KindInt {
			out.Columns[k] = Column{Kind: KindInt, Ints: append([]int64(nil), c.Ints...)}
		} else {
			out.Columns[k] = Column{Kind: KindFloat, Floats: append([]float64(nil), c.Floats...)}
		}
	}
	return out
}

// MarshalJSON flattens the record into {column: [...], "class_label": n}.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Columns)+1)
	for k, c := range r.Columns {
		flat[k] = c
	}
	flat[ClassLabelField] = r.ClassLabel
	return json.Marshal(flat)
}
