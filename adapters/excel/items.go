package excel

import (
	"fmt"
	"slices"
	"strconv"

	"hmmsynth/domain/synth"
	"hmmsynth/internal"
)

// ItemFile is a long-format export loaded back into records. It implements
// ports.ItemReader over the items in file order.
//
// Cell types are not stored in the file, so a column is read as int when
// every non-blank cell parses as an integer and as float otherwise. Blank
// cells mark columns a model does not emit.
type ItemFile struct {
	items     []int
	records   []synth.Record
	numModels int
	seqLen    int
}

// LoadItems reads a file written by DataWriter.
func LoadItems(path string, logger *internal.Logger) (*ItemFile, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	data, err := NewDataReader(path, logger).ReadData()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(data.Headers, ItemColumn) || !slices.Contains(data.Headers, ClassLabelColumn) {
		return nil, fmt.Errorf("%s: not a long-format export, want %q and %q columns", path, ItemColumn, ClassLabelColumn)
	}

	var columns []string
	for _, h := range data.Headers {
		if h != ItemColumn && h != ClassLabelColumn {
			columns = append(columns, h)
		}
	}
	kinds := inferKinds(data, columns)

	f := &ItemFile{}
	pos := make(map[int]int)
	var steps []int
	for r, row := range data.Rows {
		item, err := strconv.Atoi(row[ItemColumn])
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", r+2, ItemColumn, err)
		}
		label, err := strconv.Atoi(row[ClassLabelColumn])
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", r+2, ClassLabelColumn, err)
		}
		k, ok := pos[item]
		if !ok {
			k = len(f.records)
			pos[item] = k
			f.items = append(f.items, item)
			f.records = append(f.records, synth.Record{ClassLabel: label, Columns: make(map[string]synth.Column)})
			steps = append(steps, 0)
			f.numModels = max(f.numModels, label+1)
		} else if f.records[k].ClassLabel != label {
			return nil, fmt.Errorf("row %d: item %d changes class label", r+2, item)
		}
		steps[k]++

		rec := f.records[k]
		for _, name := range columns {
			raw := row[name]
			if raw == "" {
				continue
			}
			col := rec.Columns[name]
			col.Kind = kinds[name]
			if col.Kind == synth.KindInt {
				v, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("row %d column %q: %w", r+2, name, err)
				}
				col.Ints = append(col.Ints, v)
			} else {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, fmt.Errorf("row %d column %q: %w", r+2, name, err)
				}
				col.Floats = append(col.Floats, v)
			}
			rec.Columns[name] = col
		}
	}

	for k, rec := range f.records {
		for name, col := range rec.Columns {
			if col.Len() != steps[k] {
				return nil, fmt.Errorf("item %d: column %q has %d of %d steps", f.items[k], name, col.Len(), steps[k])
			}
		}
		f.seqLen = max(f.seqLen, steps[k])
	}
	logger.Debug("[ItemFile] %s: %d items, %d models", path, len(f.records), f.numModels)
	return f, nil
}

func inferKinds(data *ExcelData, columns []string) map[string]synth.ValueKind {
	kinds := make(map[string]synth.ValueKind, len(columns))
	for _, name := range columns {
		kinds[name] = synth.KindInt
		for _, row := range data.Rows {
			raw := row[name]
			if raw == "" {
				continue
			}
			if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
				kinds[name] = synth.KindFloat
				break
			}
		}
	}
	return kinds
}

// Get returns the i-th item of the file.
func (f *ItemFile) Get(i int) (synth.Record, error) {
	if i < 0 || i >= len(f.records) {
		return synth.Record{}, fmt.Errorf("item %d out of range [0, %d)", i, len(f.records))
	}
	return f.records[i].Clone(), nil
}

// Size returns the number of items in the file.
func (f *ItemFile) Size() int {
	return len(f.records)
}

// NumModels returns one more than the largest class label.
func (f *ItemFile) NumModels() int {
	return f.numModels
}

// SeqLen returns the longest sequence in the file.
func (f *ItemFile) SeqLen() int {
	return f.seqLen
}

// Items returns the exported item index of each record, in file order.
func (f *ItemFile) Items() []int {
	return slices.Clone(f.items)
}
