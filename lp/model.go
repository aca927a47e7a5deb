package lp

import "math"

// Row is a named linear expression: the objective or a constraint.
type Row struct {
	Name string
	Kind RowKind

	// RHS is the right-hand side (0 unless set).
	RHS float64

	// Range narrows the row into a two-sided bound when HasRange is set.
	Range    float64
	HasRange bool

	// Lower and Upper are the bound pair derived from Kind, RHS and Range.
	Lower float64
	Upper float64
}

// NewRow returns a row with its bound pair derived from kind, rhs and range.
func NewRow(name string, kind RowKind, rhs float64) Row {
	r := Row{Name: name, Kind: kind, RHS: rhs}
	r.Lower, r.Upper = RowBounds(kind, rhs, 0, false)
	return r
}

// WithRange returns a copy of r carrying the given range value.
func (r Row) WithRange(rng float64) Row {
	r.Range = rng
	r.HasRange = true
	r.Lower, r.Upper = RowBounds(r.Kind, r.RHS, rng, true)
	return r
}

// Column is a named decision variable.
type Column struct {
	Name string

	// Lower and Upper default to 0 and +Inf.
	Lower float64
	Upper float64

	// Integer marks an integer-constrained variable.
	Integer bool
}

// NewColumn returns a continuous column with the default bounds [0, +Inf).
func NewColumn(name string) Column {
	return Column{Name: name, Lower: 0, Upper: Inf()}
}

// IsDefault reports whether the column carries the implicit MPS defaults.
func (c Column) IsDefault() bool {
	return c.Lower == 0 && math.IsInf(c.Upper, 1)
}

// Matrix is a sparse matrix in compressed sparse column form.
// Column j owns entries Start[j] up to Start[j+1].
type Matrix struct {
	Start []int
	Index []int
	Value []float64
}

// NumNonzeros returns the number of stored entries.
func (m Matrix) NumNonzeros() int {
	return len(m.Value)
}

// Column returns the row indices and values of column j.
// The returned slices alias the matrix and must not be modified.
func (m Matrix) Column(j int) ([]int, []float64) {
	if j < 0 || j+1 >= len(m.Start) {
		return nil, nil
	}
	lo, hi := m.Start[j], m.Start[j+1]
	return m.Index[lo:hi], m.Value[lo:hi]
}

// Provenance records how a model was produced.
type Provenance struct {
	// Source names the file or stream the model was read from.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Dialect is the MPS dialect used to read the model ("fixed" or "free").
	Dialect string `json:"dialect,omitempty" yaml:"dialect,omitempty"`

	// Duplicates is the policy applied to repeated coefficients.
	Duplicates DuplicatePolicy `json:"-" yaml:"-"`
}

// Model represents a sparse optimization model.
//
// Rows and Cols are ordered; an index into either slice is the position of
// the row or column. The objective is the row at index Objective, or there
// is no objective when Objective is -1.
type Model struct {
	// Name is the problem name from the NAME section.
	Name string

	// Sense indicates whether to minimize (default) or maximize.
	Sense Sense

	// Offset is a constant added to the objective function.
	Offset float64

	// Objective is the index of the objective row, or -1.
	Objective int

	Rows []Row
	Cols []Column

	// Matrix holds all coefficients, including those of the objective row.
	Matrix Matrix

	Provenance Provenance
}

// NumRows returns the number of rows, including the objective.
func (m *Model) NumRows() int {
	return len(m.Rows)
}

// NumCols returns the number of columns.
func (m *Model) NumCols() int {
	return len(m.Cols)
}

// RowIndex returns the index of the named row.
func (m *Model) RowIndex(name string) (int, bool) {
	for i := range m.Rows {
		if m.Rows[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// ColIndex returns the index of the named column.
func (m *Model) ColIndex(name string) (int, bool) {
	for j := range m.Cols {
		if m.Cols[j].Name == name {
			return j, true
		}
	}
	return -1, false
}

// Coefficient returns the value stored for (row, col), or 0.
func (m *Model) Coefficient(row, col int) float64 {
	idx, val := m.Matrix.Column(col)
	for k, r := range idx {
		if r == row {
			return val[k]
		}
	}
	return 0
}

// ColCosts returns the objective coefficients for each column.
// All costs are zero when the model has no objective row.
func (m *Model) ColCosts() []float64 {
	costs := make([]float64, len(m.Cols))
	if m.Objective < 0 {
		return costs
	}
	for j := range m.Cols {
		costs[j] = m.Coefficient(m.Objective, j)
	}
	return costs
}

// Nonzeros returns the coefficients as (row, column, value) triplets in
// column order. Objective coefficients are included unless skipObjective
// is set, in which case constraint rows are renumbered to close the gap.
func (m *Model) Nonzeros(skipObjective bool) []Nonzero {
	nz := make([]Nonzero, 0, m.Matrix.NumNonzeros())
	for j := range m.Cols {
		idx, val := m.Matrix.Column(j)
		for k, r := range idx {
			if skipObjective && m.Objective >= 0 {
				if r == m.Objective {
					continue
				}
				if r > m.Objective {
					r--
				}
			}
			nz = append(nz, Nonzero{Row: r, Col: j, Val: val[k]})
		}
	}
	return nz
}

// Stats summarizes the shape of a model.
type Stats struct {
	Rows     int            `json:"rows" yaml:"rows"`
	Cols     int            `json:"cols" yaml:"cols"`
	Nonzeros int            `json:"nonzeros" yaml:"nonzeros"`
	Integers int            `json:"integers" yaml:"integers"`
	Ranged   int            `json:"ranged" yaml:"ranged"`
	Bounded  int            `json:"bounded" yaml:"bounded"`
	ByKind   map[string]int `json:"by_kind" yaml:"by_kind"`
}

// Stats computes summary counts for the model.
func (m *Model) Stats() Stats {
	s := Stats{
		Rows:     len(m.Rows),
		Cols:     len(m.Cols),
		Nonzeros: m.Matrix.NumNonzeros(),
		ByKind:   make(map[string]int),
	}
	for _, r := range m.Rows {
		s.ByKind[r.Kind.Code()]++
		if r.HasRange {
			s.Ranged++
		}
	}
	for _, c := range m.Cols {
		if c.Integer {
			s.Integers++
		}
		if !c.IsDefault() {
			s.Bounded++
		}
	}
	return s
}
