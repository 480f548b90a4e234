package profiling

import (
	"context"
	"fmt"
	"sort"

	"hmmsynth/domain/core"
	"hmmsynth/domain/synth"
	"hmmsynth/ports"
)

// DataProfiler summarizes a sample of generated records
type DataProfiler struct {
	analyzer *DistributionAnalyzer
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler() *DataProfiler {
	return &DataProfiler{analyzer: NewDistributionAnalyzer()}
}

type pooled struct {
	kind synth.ValueKind
	data []float64
	seqs [][]float64
}

// Describe draws records 0..n-1 from reader and summarizes every column.
// Columns are reported in name order.
func (dp *DataProfiler) Describe(ctx context.Context, reader ports.ItemReader, n int) (DatasetSummary, error) {
	if n <= 0 {
		return DatasetSummary{}, core.NewArgumentError("n", fmt.Sprintf("must be positive, got %d", n))
	}
	summary := DatasetSummary{SeqLen: reader.SeqLen(), ClassCounts: make(map[int]int)}
	columns := make(map[string]*pooled)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return DatasetSummary{}, err
		}
		rec, err := reader.Get(i)
		if err != nil {
			return DatasetSummary{}, fmt.Errorf("item %d: %w", i, err)
		}
		accumulate(&summary, columns, rec)
	}

	return dp.summarize(summary, columns)
}

// ProfileRecords summarizes records that were generated elsewhere.
func (dp *DataProfiler) ProfileRecords(records []synth.Record) (DatasetSummary, error) {
	summary := DatasetSummary{ClassCounts: make(map[int]int)}
	columns := make(map[string]*pooled)
	for _, rec := range records {
		if l := rec.Len(); l > summary.SeqLen {
			summary.SeqLen = l
		}
		accumulate(&summary, columns, rec)
	}
	return dp.summarize(summary, columns)
}

func accumulate(summary *DatasetSummary, columns map[string]*pooled, rec synth.Record) {
	summary.Records++
	summary.ClassCounts[rec.ClassLabel]++
	for name, col := range rec.Columns {
		p, ok := columns[name]
		if !ok {
			p = &pooled{kind: col.Kind}
			columns[name] = p
		}
		values := col.Float64s()
		p.data = append(p.data, values...)
		p.seqs = append(p.seqs, values)
	}
}

func (dp *DataProfiler) summarize(summary DatasetSummary, columns map[string]*pooled) (DatasetSummary, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := columns[name]
		if len(p.data) == 0 {
			continue
		}
		cs, err := dp.analyzer.AnalyzeColumn(name, p.kind, p.data, p.seqs)
		if err != nil {
			return DatasetSummary{}, fmt.Errorf("column %q: %w", name, err)
		}
		summary.Columns = append(summary.Columns, cs)
	}
	return summary, nil
}
