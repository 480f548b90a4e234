package profiling

import "hmmsynth/domain/synth"

// ColumnSummary describes one column pooled across the sampled records.
type ColumnSummary struct {
	Name  string          `json:"name"`
	Kind  synth.ValueKind `json:"-"`
	Type  string          `json:"type"`
	Count int             `json:"count"`

	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	Outliers int     `json:"outliers"`

	IsNormal   bool    `json:"is_normal"`
	NormalityP float64 `json:"normality_p"`

	// Lag1 is the mean lag-1 autocorrelation within sequences.
	Lag1 float64 `json:"lag1_autocorrelation"`

	// Levels counts each value of an int column.
	Levels map[int64]int `json:"levels,omitempty"`
}

// DatasetSummary is the result of profiling a sample of records.
type DatasetSummary struct {
	Records     int             `json:"records"`
	SeqLen      int             `json:"seq_len"`
	ClassCounts map[int]int     `json:"class_counts"`
	Columns     []ColumnSummary `json:"columns"`

	// Occupancy is only filled when the generators are at hand.
	Occupancy []StateOccupancy `json:"occupancy,omitempty"`
}

// Column returns the summary of the named column.
func (d DatasetSummary) Column(name string) (ColumnSummary, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}
