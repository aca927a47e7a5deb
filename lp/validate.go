package lp

import (
	"fmt"
	"math"
)

// Validate checks the structural invariants of the model: unique names,
// a well-shaped matrix with in-range row indices and no repeated
// (row, column) pair, consistent row bounds, and lower ≤ upper everywhere.
func (m *Model) Validate() error {
	rowNames := make(map[string]struct{}, len(m.Rows))
	for i, r := range m.Rows {
		if r.Name == "" {
			return newErrorAt("Validate", i, -1, "row %d has no name", i)
		}
		if _, dup := rowNames[r.Name]; dup {
			return newErrorAt("Validate", i, -1, "duplicate row name %q", r.Name)
		}
		rowNames[r.Name] = struct{}{}

		lo, hi := RowBounds(r.Kind, r.RHS, r.Range, r.HasRange)
		if !sameBound(lo, r.Lower) || !sameBound(hi, r.Upper) {
			return newErrorAt("Validate", i, -1,
				"row %q bounds [%g, %g] do not match kind %s with rhs %g",
				r.Name, r.Lower, r.Upper, r.Kind.Code(), r.RHS)
		}
	}

	colNames := make(map[string]struct{}, len(m.Cols))
	for j, c := range m.Cols {
		if c.Name == "" {
			return newErrorAt("Validate", -1, j, "column %d has no name", j)
		}
		if _, dup := colNames[c.Name]; dup {
			return newErrorAt("Validate", -1, j, "duplicate column name %q", c.Name)
		}
		colNames[c.Name] = struct{}{}
		if math.IsNaN(c.Lower) || math.IsNaN(c.Upper) || c.Lower > c.Upper {
			return newErrorAt("Validate", -1, j,
				"column %q has bounds [%g, %g]", c.Name, c.Lower, c.Upper)
		}
	}

	if m.Objective < -1 || m.Objective >= len(m.Rows) {
		return newErrorMsg("Validate", fmt.Sprintf("objective index %d out of range", m.Objective))
	}
	if m.Objective >= 0 && m.Rows[m.Objective].Kind != RowFree {
		return newErrorMsg("Validate", fmt.Sprintf("objective row %q is not a free row", m.Rows[m.Objective].Name))
	}
	if m.Objective < 0 && m.Offset != 0 {
		return newErrorMsg("Validate", "objective offset set without an objective row")
	}

	return m.validateMatrix()
}

func (m *Model) validateMatrix() error {
	mat := m.Matrix
	if len(mat.Start) != len(m.Cols)+1 {
		return newErrorMsg("Validate", fmt.Sprintf(
			"matrix has %d column starts, expected %d", len(mat.Start), len(m.Cols)+1))
	}
	if len(mat.Index) != len(mat.Value) {
		return newErrorMsg("Validate", "matrix index and value must have same length")
	}
	if mat.Start[0] != 0 || mat.Start[len(m.Cols)] != len(mat.Value) {
		return newErrorMsg("Validate", "matrix column starts do not cover the entries")
	}

	for j := range m.Cols {
		if mat.Start[j] > mat.Start[j+1] {
			return newErrorAt("Validate", -1, j, "column starts decrease at column %d", j)
		}
		if mat.Start[j+1] > len(mat.Index) {
			return newErrorAt("Validate", -1, j, "column %d ends past the last entry", j)
		}
	}

	seen := make(map[int]struct{})
	for j := range m.Cols {
		clear(seen)
		idx, _ := mat.Column(j)
		for _, r := range idx {
			if _, dup := seen[r]; dup {
				return newErrorAt("Validate", r, j, "repeated entry for row %d in column %d", r, j)
			}
			seen[r] = struct{}{}
		}
	}

	maxRow, _ := maxRowCol(m.Nonzeros(false))
	if maxRow >= len(m.Rows) {
		return newErrorAt("Validate", maxRow, -1, "row index %d out of range", maxRow)
	}
	for _, r := range mat.Index {
		if r < 0 {
			return newErrorAt("Validate", r, -1, "negative row index")
		}
	}
	return nil
}

// sameBound compares two bounds, treating equal infinities as equal.
func sameBound(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return a == b || math.Abs(a-b) <= 1e-12*math.Max(1, math.Abs(a))
}
