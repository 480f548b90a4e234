package excel

import (
	"path/filepath"
	"strings"
)

// WriterConfig selects where and how records are written
type WriterConfig struct {
	Path  string `json:"path"`
	Sheet string `json:"sheet"` // xlsx only; defaults to Sheet1
}

// DefaultWriterConfig returns a config for path with default settings
func DefaultWriterConfig(path string) WriterConfig {
	return WriterConfig{Path: path, Sheet: "Sheet1"}
}

func fileTypeOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "csv"
	}
	return "xlsx"
}
