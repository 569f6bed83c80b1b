package params

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpandArray declares one scalar sub-parameter per cell of an N-dimensional
// shape and returns the produced values flattened in row-major order. Cells
// are visited in lexicographic index order and named "<name>[i,j,...]", so
// the sub-parameter names (and hence store history) are stable across runs
// with an unchanged shape.
//
// Array-valued options are sliced to the matching cell via an Index
// transform before being handed to the scalar declarator.
func ExpandArray(name string, shape []int, opts Options, declare func(cellName string, cellOpts Options) (float64, error)) ([]float64, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must be a non-empty string"}
	}
	if len(shape) == 0 {
		return nil, &ValidationError{Field: name, Reason: "shape must have at least one dimension"}
	}
	total := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("shape dimensions must be positive, got %v", shape)}
		}
		total *= dim
	}

	values := make([]float64, 0, total)
	indices := make([]int, len(shape))
	for {
		cellName := name + "[" + joinIndices(indices) + "]"
		cellIdx := make([]int, len(indices))
		copy(cellIdx, indices)
		cellOpts := Reparameterize(opts, Index{Indices: cellIdx})

		v, err := declare(cellName, cellOpts)
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		if !nextIndex(indices, shape) {
			break
		}
	}
	return values, nil
}

// nextIndex advances indices one step in row-major order, returning false
// once the last cell has been visited.
func nextIndex(indices, shape []int) bool {
	for axis := len(indices) - 1; axis >= 0; axis-- {
		indices[axis]++
		if indices[axis] < shape[axis] {
			return true
		}
		indices[axis] = 0
	}
	return false
}

func joinIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ",")
}
