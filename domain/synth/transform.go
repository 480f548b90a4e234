package synth

import (
	"fmt"

	"hmmsynth/domain/core"
)

// Transform post-processes one record. Errors are returned to the caller
// unchanged.
type Transform func(Record) (Record, error)

// Chain applies transforms in order, stopping at the first error.
func Chain(transforms ...Transform) Transform {
	ts := make([]Transform, 0, len(transforms))
	for _, t := range transforms {
		if t != nil {
			ts = append(ts, t)
		}
	}
	return func(r Record) (Record, error) {
		var err error
		for _, t := range ts {
			if r, err = t(r); err != nil {
				return Record{}, err
			}
		}
		return r, nil
	}
}

// DropColumns removes the named columns. Missing names are ignored.
func DropColumns(names ...string) Transform {
	return func(r Record) (Record, error) {
		out := Record{Columns: make(map[string]Column, len(r.Columns)), ClassLabel: r.ClassLabel}
		for k, c := range r.Columns {
			out.Columns[k] = c
		}
		for _, n := range names {
			delete(out.Columns, n)
		}
		return out, nil
	}
}

// SelectColumns keeps only the named columns plus event_time. A missing name
// is an error.
func SelectColumns(names ...string) Transform {
	return func(r Record) (Record, error) {
		out := Record{Columns: make(map[string]Column, len(names)+1), ClassLabel: r.ClassLabel}
		for _, n := range names {
			c, ok := r.Columns[n]
			if !ok {
				return Record{}, core.NewArgumentError("column", fmt.Sprintf("%q not in record", n))
			}
			out.Columns[n] = c
		}
		if c, ok := r.Columns[EventTimeColumn]; ok {
			out.Columns[EventTimeColumn] = c
		}
		return out, nil
	}
}

// TruncateTail keeps the last n steps of every column.
func TruncateTail(n int) Transform {
	return func(r Record) (Record, error) {
		if n <= 0 {
			return Record{}, core.NewArgumentError("n", fmt.Sprintf("must be positive, got %d", n))
		}
		out := Record{Columns: make(map[string]Column, len(r.Columns)), ClassLabel: r.ClassLabel}
		for k, c := range r.Columns {
			if l := c.Len(); l > n {
				c = c.Slice(l-n, l)
			}
			out.Columns[k] = c
		}
		return out, nil
	}
}

// CastFloat converts the named int columns to float. With no names, every
// int column except event_time is converted.
func CastFloat(names ...string) Transform {
	return func(r Record) (Record, error) {
		targets := names
		if len(targets) == 0 {
			for _, k := range r.Names() {
				if k != EventTimeColumn && r.Columns[k].Kind == KindInt {
					targets = append(targets, k)
				}
			}
		}
		out := Record{Columns: make(map[string]Column, len(r.Columns)), ClassLabel: r.ClassLabel}
		for k, c := range r.Columns {
			out.Columns[k] = c
		}
		for _, k := range targets {
			c, ok := out.Columns[k]
			if !ok {
				return Record{}, core.NewArgumentError("column", fmt.Sprintf("%q not in record", k))
			}
			out.Columns[k] = Column{Kind: KindFloat, Floats: c.Float64s()}
		}
		return out, nil
	}
}
