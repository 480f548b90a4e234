package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"

	"hmmsynth/domain/synth"
	"hmmsynth/internal"
)

// DataWriter writes records in long format: one row per sequence step,
// prefixed with the item index and class label. It implements
// ports.RecordSink for both CSV and XLSX files.
//
// The header is fixed by SetColumns, or by the first record when SetColumns
// is never called. A header fixed by SetColumns may be wider than a record;
// the record's missing columns are left blank.
type DataWriter struct {
	cfg      WriterConfig
	fileType string
	logger   *internal.Logger

	columns []string // record columns in header order
	sparse  bool     // records may omit header columns
	row     int

	file      *os.File
	csvWriter *csv.Writer

	book   *excelize.File
	stream *excelize.StreamWriter
}

// NewDataWriter creates the output file, picking the format from its
// extension.
func NewDataWriter(cfg WriterConfig, logger *internal.Logger) (*DataWriter, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if cfg.Sheet == "" {
		cfg.Sheet = "Sheet1"
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(cfg.Path), err)
	}

	w := &DataWriter{cfg: cfg, fileType: fileTypeOf(cfg.Path), logger: logger}
	switch w.fileType {
	case "csv":
		f, err := os.Create(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create CSV file: %w", err)
		}
		w.file = f
		w.csvWriter = csv.NewWriter(f)
	default:
		w.book = excelize.NewFile()
		if cfg.Sheet != "Sheet1" {
			if err := w.book.SetSheetName("Sheet1", cfg.Sheet); err != nil {
				w.book.Close()
				return nil, fmt.Errorf("failed to name sheet: %w", err)
			}
		}
		sw, err := w.book.NewStreamWriter(cfg.Sheet)
		if err != nil {
			w.book.Close()
			return nil, fmt.Errorf("failed to open %s for streaming: %w", cfg.Sheet, err)
		}
		w.stream = sw
	}
	logger.Debug("[DataWriter] writing %s file: %s", w.fileType, cfg.Path)
	return w, nil
}

// Headers returns the header row, empty until the first record is written.
func (w *DataWriter) Headers() []string {
	if w.columns == nil {
		return nil
	}
	return append([]string{ItemColumn, ClassLabelColumn}, w.columns...)
}

// SetColumns fixes the header to the given record columns before any record
// is written.
func (w *DataWriter) SetColumns(columns []string) error {
	if w.columns != nil {
		return fmt.Errorf("header already written with columns %v", w.columns)
	}
	w.columns = columnOrder(columns)
	w.sparse = true
	return w.writeHeader()
}

func (w *DataWriter) Write(ctx context.Context, index int, rec synth.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.columns == nil {
		w.columns = columnOrder(rec.Names())
		if err := w.writeHeader(); err != nil {
			return err
		}
	} else if err := w.checkSchema(rec); err != nil {
		return fmt.Errorf("item %d: %w", index, err)
	}

	n := rec.Len()
	for t := 0; t < n; t++ {
		if err := w.writeStep(index, rec, t); err != nil {
			return fmt.Errorf("item %d step %d: %w", index, t, err)
		}
	}
	return nil
}

func (w *DataWriter) writeHeader() error {
	headers := w.Headers()
	if w.csvWriter != nil {
		w.row++
		return w.csvWriter.Write(headers)
	}
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	return w.setRow(values)
}

func (w *DataWriter) writeStep(index int, rec synth.Record, t int) error {
	if w.csvWriter != nil {
		cells := make([]string, 0, len(w.columns)+2)
		cells = append(cells, strconv.Itoa(index), strconv.Itoa(rec.ClassLabel))
		for _, name := range w.columns {
			col, ok := rec.Columns[name]
			if !ok {
				cells = append(cells, "")
				continue
			}
			v := col.At(t)
			if v.Kind == synth.KindInt {
				cells = append(cells, strconv.FormatInt(v.Int, 10))
			} else {
				cells = append(cells, strconv.FormatFloat(v.Float, 'g', -1, 64))
			}
		}
		w.row++
		return w.csvWriter.Write(cells)
	}

	values := make([]interface{}, 0, len(w.columns)+2)
	values = append(values, index, rec.ClassLabel)
	for _, name := range w.columns {
		col, ok := rec.Columns[name]
		if !ok {
			values = append(values, nil)
			continue
		}
		v := col.At(t)
		if v.Kind == synth.KindInt {
			values = append(values, v.Int)
		} else {
			values = append(values, v.Float)
		}
	}
	return w.setRow(values)
}

func (w *DataWriter) setRow(values []interface{}) error {
	w.row++
	if w.row > excelize.TotalRows {
		return fmt.Errorf("xlsx row limit of %d exceeded; export to CSV instead", excelize.TotalRows)
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	return w.stream.SetRow(cell, values)
}

func (w *DataWriter) checkSchema(rec synth.Record) error {
	if w.sparse {
		for name := range rec.Columns {
			if !slices.Contains(w.columns, name) {
				return fmt.Errorf("record column %q is not in the header", name)
			}
		}
		return nil
	}
	if len(rec.Columns) != len(w.columns) {
		return fmt.Errorf("record has %d columns, header has %d", len(rec.Columns), len(w.columns))
	}
	for _, name := range w.columns {
		if _, ok := rec.Columns[name]; !ok {
			return fmt.Errorf("record is missing column %q", name)
		}
	}
	return nil
}

// Close flushes and closes the file.
func (w *DataWriter) Close() ([]string, error) {
	if w.csvWriter != nil {
		w.csvWriter.Flush()
		if err := w.csvWriter.Error(); err != nil {
			w.file.Close()
			return nil, fmt.Errorf("failed to flush CSV file: %w", err)
		}
		if err := w.file.Close(); err != nil {
			return nil, fmt.Errorf("failed to close CSV file: %w", err)
		}
	} else {
		defer w.book.Close()
		if err := w.stream.Flush(); err != nil {
			return nil, fmt.Errorf("failed to flush sheet: %w", err)
		}
		if err := w.book.SaveAs(w.cfg.Path); err != nil {
			return nil, fmt.Errorf("failed to save Excel file: %w", err)
		}
	}
	w.logger.Debug("[DataWriter] %s file written (%d columns, %d rows)", w.fileType, len(w.columns)+2, w.row)
	return []string{w.cfg.Path}, nil
}

// columnOrder puts event_time first, then the remaining columns by name.
func columnOrder(names []string) []string {
	names = slices.Clone(names)
	slices.Sort(names)
	names = slices.Compact(names)
	out := make([]string, 0, len(names))
	if slices.Contains(names, synth.EventTimeColumn) {
		out = append(out, synth.EventTimeColumn)
	}
	for _, n := range names {
		if n != synth.EventTimeColumn {
			out = append(out, n)
		}
	}
	return out
}
