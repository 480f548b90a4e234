package excel

import "hmmsynth/domain/synth"

// RawRowData represents a row of raw spreadsheet data as string key-value pairs
type RawRowData map[string]string

// ExcelData represents the complete spreadsheet dataset
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Long-format columns added in front of the record columns. Feature names
// cannot take either.
const (
	ItemColumn       = synth.ItemField
	ClassLabelColumn = synth.ClassLabelField
)
