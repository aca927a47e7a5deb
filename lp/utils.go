package lp

import (
	"math"
	"sort"
)

// Inf returns positive infinity, suitable for unbounded variable bounds.
func Inf() float64 {
	return math.Inf(1)
}

// NegInf returns negative infinity, suitable for unbounded variable bounds.
func NegInf() float64 {
	return math.Inf(-1)
}

// RowBounds derives the lower/upper bound pair of a row from its kind, its
// right-hand side and an optional range value.
//
//	kind  no range        with range R
//	N     (-Inf, +Inf)    (-Inf, +Inf)
//	L     (-Inf, rhs]     [rhs-|R|, rhs]
//	G     [rhs, +Inf)     [rhs, rhs+|R|]
//	E     [rhs, rhs]      R>0: [rhs, rhs+R]  R<0: [rhs+R, rhs]
func RowBounds(kind RowKind, rhs, rng float64, hasRange bool) (lower, upper float64) {
	switch kind {
	case RowLE:
		if hasRange {
			return rhs - math.Abs(rng), rhs
		}
		return NegInf(), rhs
	case RowGE:
		if hasRange {
			return rhs, rhs + math.Abs(rng)
		}
		return rhs, Inf()
	case RowEQ:
		if hasRange && rng > 0 {
			return rhs, rhs + rng
		}
		if hasRange && rng < 0 {
			return rhs + rng, rhs
		}
		return rhs, rhs
	default:
		return NegInf(), Inf()
	}
}

// NewMatrix converts a slice of Nonzero elements to compressed sparse column
// format for a matrix with numCol columns.
//
// Entries keep their relative input order within each column. Repeated
// (row, column) pairs are summed under DuplicateSum and rejected under
// DuplicateReject.
func NewMatrix(numCol int, nz []Nonzero, policy DuplicatePolicy) (Matrix, error) {
	m := Matrix{Start: make([]int, numCol+1)}
	if len(nz) == 0 {
		return m, nil
	}

	// Stable sort by column keeps first-seen row order inside a column
	sorted := make([]Nonzero, len(nz))
	copy(sorted, nz)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Col < sorted[j].Col
	})

	// Validate and resolve duplicates
	filtered := make([]Nonzero, 0, len(sorted))
	seen := make(map[int]int) // row -> position in filtered, reset per column
	prevCol := -1
	for _, n := range sorted {
		if n.Row < 0 || n.Col < 0 || n.Col >= numCol {
			return Matrix{}, newErrorAt("NewMatrix", n.Row, n.Col, "index out of range")
		}
		if n.Col != prevCol {
			clear(seen)
			prevCol = n.Col
		}
		if pos, dup := seen[n.Row]; dup {
			if policy == DuplicateReject {
				return Matrix{}, newErrorAt("NewMatrix", n.Row, n.Col,
					"duplicate coefficient for row %d, column %d", n.Row, n.Col)
			}
			filtered[pos].Val += n.Val
			continue
		}
		seen[n.Row] = len(filtered)
		filtered = append(filtered, n)
	}

	// Build CSC format
	m.Index = make([]int, len(filtered))
	m.Value = make([]float64, len(filtered))
	for i, n := range filtered {
		m.Start[n.Col+1]++
		m.Index[i] = n.Row
		m.Value[i] = n.Val
	}
	for j := 0; j < numCol; j++ {
		m.Start[j+1] += m.Start[j]
	}

	return m, nil
}

// maxRowCol finds the maximum row and column indices from a slice of nonzeros.
func maxRowCol(nz []Nonzero) (maxRow, maxCol int) {
	maxRow, maxCol = -1, -1
	for _, n := range nz {
		if n.Row > maxRow {
			maxRow = n.Row
		}
		if n.Col > maxCol {
			maxCol = n.Col
		}
	}
	return maxRow, maxCol
}
