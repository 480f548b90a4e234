package profiling

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hmmsynth/app"
	"hmmsynth/domain/core"
	"hmmsynth/domain/synth"
	"hmmsynth/internal"
	"hmmsynth/internal/testkit"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Get(i int) (synth.Record, error) {
	args := m.Called(i)
	rec, _ := args.Get(0).(synth.Record)
	return rec, args.Error(1)
}

func (m *mockReader) Size() int      { return m.Called().Int(0) }
func (m *mockReader) NumModels() int { return m.Called().Int(0) }
func (m *mockReader) SeqLen() int    { return m.Called().Int(0) }

func demoCollection(t *testing.T) *app.SequenceCollection {
	t.Helper()
	kit := testkit.NewTestKit(internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError))
	c, _, err := kit.Collection(context.Background(), testkit.PresetDemo)
	require.NoError(t, err)
	return c
}

func TestDescribe_DemoCollection(t *testing.T) {
	c := demoCollection(t)
	summary, err := NewDataProfiler().Describe(context.Background(), c, 40)
	require.NoError(t, err)

	assert.Equal(t, 40, summary.Records)
	assert.Equal(t, 64, summary.SeqLen)
	assert.Equal(t, map[int]int{0: 20, 1: 20}, summary.ClassCounts)

	var names []string
	for _, col := range summary.Columns {
		names = append(names, col.Name)
	}
	assert.Equal(t, []string{"code", synth.EventTimeColumn, "regime", "value"}, names)

	et, ok := summary.Column(synth.EventTimeColumn)
	require.True(t, ok)
	assert.Equal(t, 40*64, et.Count)
	assert.Equal(t, 0.0, et.Min)
	assert.Equal(t, 63.0, et.Max)

	code, _ := summary.Column("code")
	assert.Equal(t, "int", code.Type)
	for level := range code.Levels {
		assert.Contains(t, []int64{0, 1, 2}, level)
	}

	value, _ := summary.Column("value")
	assert.Nil(t, value.Levels)
	assert.GreaterOrEqual(t, value.Min, 0.0)
	assert.LessOrEqual(t, value.Max, 1.0)
}

func TestProfileRecords_StickyChainsAreMoreAutocorrelated(t *testing.T) {
	c := demoCollection(t)
	var sticky, jumpy []synth.Record
	for i := 0; i < 60; i++ {
		rec, err := c.Get(i)
		require.NoError(t, err)
		if rec.ClassLabel == 0 {
			sticky = append(sticky, rec)
		} else {
			jumpy = append(jumpy, rec)
		}
	}

	p := NewDataProfiler()
	s, err := p.ProfileRecords(sticky)
	require.NoError(t, err)
	j, err := p.ProfileRecords(jumpy)
	require.NoError(t, err)

	sr, _ := s.Column("regime")
	jr, _ := j.Column("regime")
	assert.Greater(t, sr.Lag1, jr.Lag1+0.3)
}

func TestDescribe_Errors(t *testing.T) {
	ctx := context.Background()
	p := NewDataProfiler()

	_, err := p.Describe(ctx, &mockReader{}, 0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	boom := errors.New("boom")
	r := &mockReader{}
	r.On("SeqLen").Return(10)
	r.On("Get", 0).Return(synth.Record{}, boom)
	_, err = p.Describe(ctx, r, 5)
	assert.ErrorIs(t, err, boom)
	r.AssertExpectations(t)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Describe(cancelled, demoCollection(t), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShapeHelpers(t *testing.T) {
	symmetric := []float64{1, 2, 3, 4, 5, 6, 7}
	assert.InDelta(t, 0, calculateSkewness(symmetric, 4, 2.16), 1e-9)
	assert.Equal(t, 0.0, calculateSkewness([]float64{3, 3, 3}, 3, 0))

	assert.Equal(t, 1, detectOutliers([]float64{1, 2, 2, 3, 40}, 2, 3))
	assert.Equal(t, 0.0, meanLag1([][]float64{{1, 1, 1}, {5}}))
	assert.Greater(t, meanLag1([][]float64{{1, 2, 3, 4, 5, 6, 7, 8}}), 0.5)
}

func TestOccupancy_DemoModels(t *testing.T) {
	c := demoCollection(t)
	occ, err := NewDataProfiler().Occupancy(context.Background(), c.Generators(), 50, 20)
	require.NoError(t, err)
	require.Len(t, occ, 2)

	for k, o := range occ {
		assert.Equal(t, k, o.Model)
		for _, shares := range [][]float64{o.Hidden, o.Emitted, o.Observed} {
			require.Len(t, shares, 2)
			assert.InDelta(t, 1.0, shares[0]+shares[1], 1e-9)
		}
	}

	_, err = NewDataProfiler().Occupancy(context.Background(), c.Generators(), 50, 0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = NewDataProfiler().Occupancy(context.Background(), c.Generators(), 1, 3)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
