package synth

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmmsynth/domain/core"
)

func sampleRecord() Record {
	return Record{
		ClassLabel: 2,
		Columns: map[string]Column{
			"mcc":           {Kind: KindInt, Ints: []int64{4, 1, 3, 0}},
			"amount":        {Kind: KindFloat, Floats: []float64{1.5, 2.5, 0.5, 4}},
			EventTimeColumn: {Kind: KindInt, Ints: []int64{0, 1, 2, 3}},
		},
	}
}

func TestRecord_JSONIsFlat(t *testing.T) {
	data, err := json.Marshal(sampleRecord())
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Len(t, flat, 4)
	assert.Equal(t, 2.0, flat[ClassLabelField])
	assert.Equal(t, []any{4.0, 1.0, 3.0, 0.0}, flat["mcc"])
	assert.Equal(t, []any{1.5, 2.5, 0.5, 4.0}, flat["amount"])
}

func TestRecord_JSONCarriesNonFiniteFloats(t *testing.T) {
	rec := Record{Columns: map[string]Column{
		"amount": {Kind: KindFloat, Floats: []float64{math.Inf(1), 2, math.Inf(-1), math.NaN(), 1e-7}},
	}}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, []any{"+Inf", 2.0, "-Inf", "NaN", 1e-7}, flat["amount"])
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := sampleRecord()
	c := r.Clone()
	c.Columns["mcc"].Ints[0] = 99
	c.Columns["amount"].Floats[0] = 99

	assert.Equal(t, int64(4), r.Columns["mcc"].Ints[0])
	assert.Equal(t, 1.5, r.Columns["amount"].Floats[0])
	assert.Equal(t, r.ClassLabel, c.ClassLabel)
}

func TestRecord_LenAndNames(t *testing.T) {
	r := sampleRecord()
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, []string{"amount", EventTimeColumn, "mcc"}, r.Names())
	assert.Equal(t, 0, Record{}.Len())
}

func TestColumn_At(t *testing.T) {
	r := sampleRecord()
	assert.Equal(t, IntValue(3), r.Columns["mcc"].At(2))
	assert.Equal(t, FloatValue(0.5), r.Columns["amount"].At(2))
	assert.Equal(t, []float64{4, 1, 3, 0}, r.Columns["mcc"].Float64s())
}

func TestDropColumns(t *testing.T) {
	r := sampleRecord()
	out, err := DropColumns("mcc", "missing")(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", EventTimeColumn}, out.Names())
	assert.Equal(t, 2, out.ClassLabel)
	assert.Contains(t, r.Columns, "mcc")
}

func TestSelectColumns(t *testing.T) {
	out, err := SelectColumns("mcc")(sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, []string{EventTimeColumn, "mcc"}, out.Names())

	_, err = SelectColumns("nope")(sampleRecord())
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestTruncateTail(t *testing.T) {
	out, err := TruncateTail(2)(sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, out.Columns[EventTimeColumn].Ints)
	assert.Equal(t, []float64{0.5, 4}, out.Columns["amount"].Floats)

	out, err = TruncateTail(10)(sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())

	_, err = TruncateTail(0)(sampleRecord())
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestCastFloat(t *testing.T) {
	out, err := CastFloat()(sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, KindFloat, out.Columns["mcc"].Kind)
	assert.Equal(t, []float64{4, 1, 3, 0}, out.Columns["mcc"].Floats)
	assert.Equal(t, KindInt, out.Columns[EventTimeColumn].Kind)

	_, err = CastFloat("nope")(sampleRecord())
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestChain(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	count := func(r Record) (Record, error) {
		calls++
		return r, nil
	}

	out, err := Chain(count, nil, TruncateTail(1), count)(sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, out.Len())

	calls = 0
	_, err = Chain(count, func(Record) (Record, error) { return Record{}, boom }, count)(sampleRecord())
	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}
