package synth

import (
	"fmt"

	"hmmsynth/domain/core"
)

// Array is a dense row-major float array of arbitrary rank. It carries the
// transition tensor (rank 3) and the hidden transition matrix (rank 2).
type Array struct {
	shape   []int
	strides []int
	data    []float64
}

// NewArray wraps data with the given shape. len(data) must equal the product
// of the shape and every axis must be positive.
func NewArray(shape []int, data []float64) (Array, error) {
	if len(shape) == 0 {
		return Array{}, core.NewModelError("array has no axes")
	}
	size := 1
	for i, d := range shape {
		if d <= 0 {
			return Array{}, core.NewModelError(fmt.Sprintf("axis %d has non-positive length %d", i, d))
		}
		size *= d
	}
	if len(data) != size {
		return Array{}, core.NewModelError(fmt.Sprintf("shape %v needs %d values, got %d", shape, size, len(data)))
	}
	a := Array{
		shape:   append([]int(nil), shape...),
		strides: make([]int, len(shape)),
		data:    append([]float64(nil), data...),
	}
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		a.strides[i] = stride
		stride *= shape[i]
	}
	return a, nil
}

// MatrixOf builds a rank-2 array from rows. Ragged rows are rejected.
func MatrixOf(rows [][]float64) (Array, error) {
	if len(rows) == 0 {
		return Array{}, core.NewModelError("matrix has no rows")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return Array{}, core.NewModelError(fmt.Sprintf("matrix row %d has %d columns, want %d", i, len(r), cols))
		}
		data = append(data, r...)
	}
	return NewArray([]int{len(rows), cols}, data)
}

// TensorOf builds a rank-3 array from nested slices. Ragged input is rejected.
func TensorOf(t [][][]float64) (Array, error) {
	if len(t) == 0 || len(t[0]) == 0 {
		return Array{}, core.NewModelError("tensor is empty")
	}
	d1, d2 := len(t[0]), len(t[0][0])
	data := make([]float64, 0, len(t)*d1*d2)
	for i, plane := range t {
		if len(plane) != d1 {
			return Array{}, core.NewModelError(fmt.Sprintf("tensor plane %d has %d rows, want %d", i, len(plane), d1))
		}
		for j, r := range plane {
			if len(r) != d2 {
				return Array{}, core.NewModelError(fmt.Sprintf("tensor row [%d][%d] has %d values, want %d", i, j, len(r), d2))
			}
			data = append(data, r...)
		}
	}
	return NewArray([]int{len(t), d1, d2}, data)
}

func (a Array) Rank() int {
	return len(a.shape)
}

// Shape returns a copy of the axis lengths.
func (a Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

// At returns the element at idx. It panics on a rank or range mismatch, like
// slice indexing.
func (a Array) At(idx ...int) float64 {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("synth: %d indices for rank %d array", len(idx), len(a.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("synth: index %d out of range on axis %d", v, i))
		}
		off += v * a.strides[i]
	}
	return a.data[off]
}

// Fiber returns a copy of the values along axis with every other index fixed
// by idx. The entry of idx at position axis is ignored.
func (a Array) Fiber(axis int, idx ...int) []float64 {
	if axis < 0 || axis >= len(a.shape) {
		panic(fmt.Sprintf("synth: axis %d out of range for rank %d array", axis, len(a.shape)))
	}
	pos := append([]int(nil), idx...)
	out := make([]float64, a.shape[axis])
	for k := range out {
		pos[axis] = k
		out[k] = a.At(pos...)
	}
	return out
}
