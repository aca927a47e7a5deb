package mps

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bartolsthoorn/gomps/lp"
)

const (
	nameWidth   = 8
	numberWidth = 12
)

// writer emits a model in the fixed dialect. The first write error is kept
// and later writes become no-ops.
type writer struct {
	w   *bufio.Writer
	err error
	log *zap.Logger

	rowNames []string
	colNames []string
}

func newWriter(w io.Writer, log *zap.Logger) *writer {
	return &writer{w: bufio.NewWriter(w), log: log}
}

func (wr *writer) println(s string) {
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.WriteString(s + "\n")
}

// line writes a data line with fields placed at the fixed column ranges.
func (wr *writer) line(fields ...string) {
	buf := []byte(strings.Repeat(" ", fixedWidth))
	for i, f := range fields {
		copy(buf[fixedFields[i].start:fixedFields[i].end], f)
	}
	wr.println(strings.TrimRight(string(buf), " "))
}

// pairs writes (name, value) pairs two per line after the given lead fields.
func (wr *writer) pairs(f1, f2 string, names []string, values []float64) {
	for k := 0; k < len(names); k += 2 {
		fields := []string{f1, f2, names[k], formatNumber(values[k])}
		if k+1 < len(names) {
			fields = append(fields, names[k+1], formatNumber(values[k+1]))
		}
		wr.line(fields...)
	}
}

func (wr *writer) write(m *lp.Model) error {
	wr.rowNames = fixedNames(wr.log, "row", "R", len(m.Rows), func(i int) string { return m.Rows[i].Name })
	wr.colNames = fixedNames(wr.log, "column", "C", len(m.Cols), func(j int) string { return m.Cols[j].Name })

	if m.Name != "" {
		wr.println(fmt.Sprintf("%-14s%s", "NAME", m.Name))
	} else {
		wr.println("NAME")
	}
	if m.Sense == lp.Maximize {
		wr.println("OBJSENSE")
		wr.line("", "MAX")
	}
	if m.Objective >= 0 && m.Objective != firstFreeRow(m) {
		wr.println("OBJNAME")
		wr.line("", wr.rowNames[m.Objective])
	}

	wr.println("ROWS")
	for i, r := range m.Rows {
		wr.line(r.Kind.Code(), wr.rowNames[i])
	}

	wr.println("COLUMNS")
	wr.columns(m)

	wr.println("RHS")
	wr.rhs(m)

	if hasRanges(m) {
		wr.println("RANGES")
		wr.ranges(m)
	}

	if hasBounds(m) {
		wr.println("BOUNDS")
		wr.bounds(m)
	}

	wr.println("ENDATA")
	if wr.err != nil {
		return wr.err
	}
	return wr.w.Flush()
}

// firstFreeRow is the row a reader takes as the objective when no OBJNAME
// section is present.
func firstFreeRow(m *lp.Model) int {
	for i, r := range m.Rows {
		if r.Kind == lp.RowFree {
			return i
		}
	}
	return -1
}

func (wr *writer) columns(m *lp.Model) {
	inInteger := false
	marker := func(kind string) {
		wr.println("    MARKER                 'MARKER'                 '" + kind + "'")
	}

	for j, c := range m.Cols {
		if c.Integer != inInteger {
			if c.Integer {
				marker("INTORG")
			} else {
				marker("INTEND")
			}
			inInteger = c.Integer
		}

		idx, val := m.Matrix.Column(j)
		if len(idx) == 0 {
			wr.line("", wr.colNames[j])
			continue
		}
		names := make([]string, len(idx))
		for k, r := range idx {
			names[k] = wr.rowNames[r]
		}
		wr.pairs("", wr.colNames[j], names, val)
	}
	if inInteger {
		marker("INTEND")
	}
}

func (wr *writer) rhs(m *lp.Model) {
	var names []string
	var values []float64
	for i, r := range m.Rows {
		switch {
		case i == m.Objective:
			if m.Offset != 0 {
				names = append(names, wr.rowNames[i])
				values = append(values, -m.Offset)
			}
		case r.RHS != 0:
			names = append(names, wr.rowNames[i])
			values = append(values, r.RHS)
		}
	}
	wr.pairs("", "RHS", names, values)
}

func hasRanges(m *lp.Model) bool {
	for _, r := range m.Rows {
		if r.HasRange && r.Kind != lp.RowFree {
			return true
		}
	}
	return false
}

func (wr *writer) ranges(m *lp.Model) {
	var names []string
	var values []float64
	for i, r := range m.Rows {
		if r.HasRange && r.Kind != lp.RowFree {
			names = append(names, wr.rowNames[i])
			values = append(values, r.Range)
		}
	}
	wr.pairs("", "RNG", names, values)
}

func hasBounds(m *lp.Model) bool {
	for _, c := range m.Cols {
		if !c.IsDefault() {
			return true
		}
	}
	return false
}

// bounds emits the most compact bound codes for each non-default column.
func (wr *writer) bounds(m *lp.Model) {
	for j, c := range m.Cols {
		if c.IsDefault() {
			continue
		}
		name := wr.colNames[j]
		lo, up := c.Lower, c.Upper
		switch {
		case c.Integer && lo == 0 && up == 1:
			wr.line("BV", "BND", name)
		case lo == up:
			wr.line("FX", "BND", name, formatNumber(lo))
		case math.IsInf(lo, -1) && math.IsInf(up, 1):
			wr.line("FR", "BND", name)
		default:
			if math.IsInf(lo, -1) {
				wr.line("MI", "BND", name)
			} else if lo != 0 {
				wr.line("LO", "BND", name, formatNumber(lo))
			}
			if !math.IsInf(up, 1) {
				wr.line("UP", "BND", name, formatNumber(up))
			}
		}
	}
}

// formatNumber renders v in at most twelve characters, using the shortest
// exact representation when it fits.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	for prec := numberWidth; len(s) > numberWidth && prec > 0; prec-- {
		s = strconv.FormatFloat(v, 'g', prec, 64)
	}
	return s
}

// fixedNames returns the names to write for n rows or columns. When any name
// does not fit a fixed field, all of them are replaced by generated names.
func fixedNames(log *zap.Logger, what, prefix string, n int, name func(int) string) []string {
	names := make([]string, n)
	fits := true
	for i := range names {
		names[i] = name(i)
		if !fitsField(names[i]) {
			fits = false
		}
	}
	if fits {
		return names
	}
	log.Warn("names do not fit the fixed layout, writing generated names", zap.String("kind", what))
	for i := range names {
		names[i] = fmt.Sprintf("%s%07d", prefix, i+1)
	}
	return names
}

// fitsField reports whether name can be written in a name field and read
// back unchanged. A leading '*' would turn the line into a comment.
func fitsField(name string) bool {
	return name != "" && len(name) <= nameWidth && name[0] != '*' &&
		!strings.ContainsAny(name, " \t")
}
