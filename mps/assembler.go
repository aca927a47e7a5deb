package mps

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/bartolsthoorn/gomps/lp"
)

type rowEntry struct {
	name     string
	kind     lp.RowKind
	rhs      float64
	rng      float64
	hasRange bool
}

type colEntry struct {
	name     string
	lower    float64
	upper    float64
	lowerSet bool
	integer  bool
}

// assembler accumulates one read into append-only arenas. Entries are only
// ever appended or updated in place; finish copies everything into a new
// lp.Model so nothing is shared with the caller.
type assembler struct {
	policy lp.DuplicatePolicy
	log    *zap.Logger

	name      string
	sense     lp.Sense
	offset    float64
	objective int
	objName   string

	rows     []rowEntry
	rowIndex map[string]int

	cols     []colEntry
	colIndex map[string]int

	entries    []lp.Nonzero
	entryIndex map[[2]int]int
}

func newAssembler(policy lp.DuplicatePolicy, log *zap.Logger) *assembler {
	return &assembler{
		policy:     policy,
		log:        log,
		objective:  -1,
		rowIndex:   make(map[string]int),
		colIndex:   make(map[string]int),
		entryIndex: make(map[[2]int]int),
	}
}

func (a *assembler) addRow(name string, kind lp.RowKind) error {
	if _, dup := a.rowIndex[name]; dup {
		return fmt.Errorf("row %q declared twice", name)
	}
	a.rowIndex[name] = len(a.rows)
	if kind == lp.RowFree && a.objective < 0 && a.objName == "" {
		a.objective = len(a.rows)
	}
	a.rows = append(a.rows, rowEntry{name: name, kind: kind})
	return nil
}

func (a *assembler) row(name string) (int, error) {
	i, ok := a.rowIndex[name]
	if !ok {
		return -1, fmt.Errorf("undeclared row %q", name)
	}
	return i, nil
}

// column returns the index of the named column, declaring it on first
// sight. integer only affects a new declaration.
func (a *assembler) column(name string, integer bool) int {
	if j, ok := a.colIndex[name]; ok {
		return j
	}
	j := len(a.cols)
	a.colIndex[name] = j
	a.cols = append(a.cols, colEntry{name: name, upper: lp.Inf(), integer: integer})
	return j
}

func (a *assembler) lookupColumn(name string) (int, error) {
	j, ok := a.colIndex[name]
	if !ok {
		return -1, fmt.Errorf("undeclared column %q", name)
	}
	return j, nil
}

// addCoefficient records A[row, col] += v, or fails under the reject policy.
func (a *assembler) addCoefficient(row, col int, v float64) error {
	key := [2]int{row, col}
	if k, dup := a.entryIndex[key]; dup {
		if a.policy == lp.DuplicateReject {
			return &Error{Kind: KindDuplicateCoefficient, Msg: fmt.Sprintf(
				"coefficient for row %q, column %q declared twice", a.rows[row].name, a.cols[col].name)}
		}
		a.entries[k].Val += v
		return nil
	}
	a.entryIndex[key] = len(a.entries)
	a.entries = append(a.entries, lp.Nonzero{Row: row, Col: col, Val: v})
	return nil
}

func (a *assembler) isObjective(row int) bool {
	if a.objName != "" {
		return a.rows[row].name == a.objName
	}
	return row == a.objective
}

func (a *assembler) setRHS(row int, v float64) {
	if a.isObjective(row) {
		// Objective RHS is the negated constant term
		a.offset = -v
		return
	}
	a.rows[row].rhs = v
}

func (a *assembler) setRange(row int, v float64) {
	if a.rows[row].kind == lp.RowFree {
		a.log.Warn("ignoring range on free row", zap.String("row", a.rows[row].name))
		return
	}
	a.rows[row].rng = v
	a.rows[row].hasRange = true
}

func (a *assembler) setBound(col int, code string, v float64) {
	c := &a.cols[col]
	switch code {
	case "UP", "UI":
		c.upper = v
		if v < 0 && !c.lowerSet && c.lower == 0 {
			a.log.Warn("negative upper bound with default lower bound, lower set to -Inf",
				zap.String("column", c.name), zap.Float64("upper", v))
			c.lower = lp.NegInf()
		}
		c.integer = c.integer || code == "UI"
	case "LO", "LI":
		c.lower = v
		c.lowerSet = true
		c.integer = c.integer || code == "LI"
	case "FX":
		c.lower, c.upper = v, v
		c.lowerSet = true
	case "FR":
		c.lower, c.upper = lp.NegInf(), lp.Inf()
		c.lowerSet = true
	case "MI":
		c.lower = lp.NegInf()
		c.lowerSet = true
	case "PL":
		c.upper = lp.Inf()
	case "BV":
		c.lower, c.upper = 0, 1
		c.lowerSet = true
		c.integer = true
	}
}

// finish derives bounds, checks them and builds the canonical model.
func (a *assembler) finish() (*lp.Model, error) {
	if a.objName != "" {
		i, ok := a.rowIndex[a.objName]
		if !ok {
			return nil, fmt.Errorf("objective row %q is not declared", a.objName)
		}
		if a.rows[i].kind != lp.RowFree {
			return nil, fmt.Errorf("objective row %q is not an N row", a.objName)
		}
		a.objective = i
	}

	m := &lp.Model{
		Name:      a.name,
		Sense:     a.sense,
		Offset:    a.offset,
		Objective: a.objective,
		Rows:      make([]lp.Row, len(a.rows)),
		Cols:      make([]lp.Column, len(a.cols)),
	}
	for i, r := range a.rows {
		row := lp.NewRow(r.name, r.kind, r.rhs)
		if r.hasRange {
			row = row.WithRange(r.rng)
		}
		m.Rows[i] = row
	}
	for j, c := range a.cols {
		if math.IsNaN(c.lower) || math.IsNaN(c.upper) || c.lower > c.upper {
			return nil, fmt.Errorf("column %q has lower bound %g above upper bound %g", c.name, c.lower, c.upper)
		}
		m.Cols[j] = lp.Column{Name: c.name, Lower: c.lower, Upper: c.upper, Integer: c.integer}
	}

	mat, err := lp.NewMatrix(len(a.cols), a.entries, a.policy)
	if err != nil {
		return nil, err
	}
	m.Matrix = mat
	return m, nil
}
