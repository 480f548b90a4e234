package excel

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmmsynth/domain/synth"
	"hmmsynth/internal"
)

func quiet() *internal.Logger {
	return internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError)
}

func record(label int, amounts []float64, mcc []int64) synth.Record {
	et := make([]int64, len(amounts))
	for i := range et {
		et[i] = int64(i)
	}
	return synth.Record{
		ClassLabel: label,
		Columns: map[string]synth.Column{
			"amount":              {Kind: synth.KindFloat, Floats: amounts},
			"mcc":                 {Kind: synth.KindInt, Ints: mcc},
			synth.EventTimeColumn: {Kind: synth.KindInt, Ints: et},
		},
	}
}

func TestDataWriter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"out.csv", "out.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			w, err := NewDataWriter(DefaultWriterConfig(path), quiet())
			require.NoError(t, err)

			require.NoError(t, w.Write(ctx, 7, record(1, []float64{0.5, 1.25, 3.1415926535}, []int64{1, 2, 0})))
			require.NoError(t, w.Write(ctx, 8, record(0, []float64{2, 4, 8}, []int64{0, 0, 9})))
			files, err := w.Close()
			require.NoError(t, err)
			assert.Equal(t, []string{path}, files)

			data, err := NewDataReader(path, quiet()).ReadData()
			require.NoError(t, err)
			assert.Equal(t, []string{ItemColumn, ClassLabelColumn, synth.EventTimeColumn, "amount", "mcc"}, data.Headers)
			require.Len(t, data.Rows, 6)

			assert.Equal(t, "7", data.Rows[2][ItemColumn])
			assert.Equal(t, "1", data.Rows[2][ClassLabelColumn])
			assert.Equal(t, "2", data.Rows[2][synth.EventTimeColumn])
			v, err := data.Float(2, "amount")
			require.NoError(t, err)
			assert.Equal(t, 3.1415926535, v)

			assert.Equal(t, "8", data.Rows[5][ItemColumn])
			assert.Equal(t, "9", data.Rows[5]["mcc"])
		})
	}
}

func TestDataWriter_RejectsSchemaChange(t *testing.T) {
	ctx := context.Background()
	w, err := NewDataWriter(DefaultWriterConfig(filepath.Join(t.TempDir(), "out.csv")), quiet())
	require.NoError(t, err)

	require.NoError(t, w.Write(ctx, 0, record(0, []float64{1, 2}, []int64{0, 1})))

	dropped, err := synth.DropColumns("mcc")(record(1, []float64{1, 2}, []int64{0, 1}))
	require.NoError(t, err)
	assert.Error(t, w.Write(ctx, 1, dropped))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, w.Write(cancelled, 2, record(0, []float64{1}, []int64{0})), context.Canceled)

	_, err = w.Close()
	require.NoError(t, err)
}

func TestDataWriter_SetColumnsLeavesGapsBlank(t *testing.T) {
	for _, ext := range []string{"csv", "xlsx"} {
		t.Run(ext, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "union."+ext)
			w, err := NewDataWriter(DefaultWriterConfig(path), quiet())
			require.NoError(t, err)

			require.NoError(t, w.SetColumns([]string{"mcc", "amount", synth.EventTimeColumn, "zone"}))
			assert.Equal(t, []string{ItemColumn, ClassLabelColumn, synth.EventTimeColumn, "amount", "mcc", "zone"}, w.Headers())
			assert.Error(t, w.SetColumns([]string{"amount"}))

			require.NoError(t, w.Write(ctx, 0, record(0, []float64{1.5}, []int64{4})))
			noAmount, err := synth.DropColumns("amount")(record(1, []float64{2}, []int64{5}))
			require.NoError(t, err)
			require.NoError(t, w.Write(ctx, 1, noAmount))

			extra := record(0, []float64{1}, []int64{1})
			extra.Columns["other"] = synth.Column{Kind: synth.KindInt, Ints: []int64{1}}
			assert.Error(t, w.Write(ctx, 2, extra))

			_, err = w.Close()
			require.NoError(t, err)

			data, err := NewDataReader(path, quiet()).ReadData()
			require.NoError(t, err)
			require.Len(t, data.Rows, 2)
			assert.Equal(t, "1.5", data.Rows[0]["amount"])
			assert.Equal(t, "", data.Rows[0]["zone"])
			assert.Equal(t, "", data.Rows[1]["amount"])
			assert.Equal(t, "5", data.Rows[1]["mcc"])
		})
	}
}

func TestDataWriter_NamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "named.xlsx")
	w, err := NewDataWriter(WriterConfig{Path: path, Sheet: "records"}, quiet())
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), 0, record(0, []float64{1}, []int64{3})))
	_, err = w.Close()
	require.NoError(t, err)

	data, err := NewDataReader(path, quiet()).WithSheet("records").ReadData()
	require.NoError(t, err)
	assert.Len(t, data.Rows, 1)

	_, err = NewDataReader(filepath.Join(t.TempDir(), "missing.csv"), quiet()).ReadData()
	assert.Error(t, err)
}
