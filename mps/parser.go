package mps

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bartolsthoorn/gomps/lp"
)

// section is the state of the section parser.
type section int

const (
	secNone section = iota
	secName
	secObjSense
	secObjName
	secRows
	secColumns
	secRHS
	secRanges
	secBounds
	secDone
)

var sectionNames = map[string]section{
	"NAME":     secName,
	"OBJSENSE": secObjSense,
	"OBJSENCE": secObjSense,
	"OBJNAME":  secObjName,
	"ROWS":     secRows,
	"COLUMNS":  secColumns,
	"RHS":      secRHS,
	"RANGES":   secRanges,
	"BOUNDS":   secBounds,
	"ENDATA":   secDone,
}

func (s section) String() string {
	switch s {
	case secName:
		return "NAME"
	case secObjSense:
		return "OBJSENSE"
	case secObjName:
		return "OBJNAME"
	case secRows:
		return "ROWS"
	case secColumns:
		return "COLUMNS"
	case secRHS:
		return "RHS"
	case secRanges:
		return "RANGES"
	case secBounds:
		return "BOUNDS"
	case secDone:
		return "ENDATA"
	default:
		return ""
	}
}

// rank orders sections; a header may not appear after one of higher rank.
func (s section) rank() int {
	switch s {
	case secName:
		return 1
	case secObjSense, secObjName:
		return 2
	case secRows:
		return 3
	case secColumns:
		return 4
	case secRHS, secRanges, secBounds:
		return 5
	case secDone:
		return 6
	default:
		return 0
	}
}

// Values at or beyond this magnitude are read as infinite bounds.
const infiniteBound = 1e30

// parser drives the section state machine over scanner records and feeds
// the assembler.
type parser struct {
	sc  *scanner
	asm *assembler
	log *zap.Logger

	section section
	seen    map[section]bool
	line    int

	// COLUMNS state: set between INTORG and INTEND markers
	integer bool

	// Only the first RHS, RANGES and BOUNDS set is honoured
	rhsSet   string
	rangeSet string
	boundSet string
}

func newParser(sc *scanner, asm *assembler, log *zap.Logger) *parser {
	return &parser{sc: sc, asm: asm, log: log, seen: make(map[section]bool)}
}

func (p *parser) run() (*lp.Model, error) {
	for p.section != secDone {
		rec, err := p.sc.next()
		if errors.Is(err, io.EOF) {
			return nil, p.errorf("unexpected end of input before ENDATA")
		}
		if err != nil {
			return nil, p.wrap(err)
		}
		p.line = rec.Line

		switch rec.Kind {
		case RecordHeader:
			err = p.header(rec)
		case RecordData:
			err = p.data(rec.Tokens)
		}
		if err != nil {
			return nil, p.wrap(err)
		}
	}

	m, err := p.asm.finish()
	if err != nil {
		// Whole-model checks have no single line to point at
		p.line, p.section = 0, secNone
		return nil, p.wrap(err)
	}
	return m, nil
}

func (p *parser) header(rec Record) error {
	next, ok := sectionNames[rec.Name]
	if !ok {
		return fmt.Errorf("unrecognized section %q", rec.Name)
	}
	if p.seen[next] {
		return fmt.Errorf("section %s appears twice", next)
	}
	if next.rank() < p.section.rank() {
		return fmt.Errorf("section %s after %s", next, p.section)
	}
	switch next {
	case secColumns:
		if !p.seen[secRows] {
			return fmt.Errorf("COLUMNS before ROWS")
		}
	case secRHS, secRanges, secBounds:
		if !p.seen[secColumns] {
			return fmt.Errorf("%s before COLUMNS", next)
		}
	}
	p.section = next
	p.seen[next] = true

	switch next {
	case secName:
		p.asm.name = strings.Join(rec.Args, " ")
	case secObjSense:
		if len(rec.Args) > 0 {
			return p.objSense(rec.Args)
		}
	case secObjName:
		if len(rec.Args) > 0 {
			p.asm.objName = rec.Args[0]
		}
	}
	return nil
}

func (p *parser) data(tokens []string) error {
	switch p.section {
	case secObjSense:
		return p.objSense(tokens)
	case secObjName:
		if len(tokens) != 1 {
			return fmt.Errorf("expected one objective row name, got %d fields", len(tokens))
		}
		p.asm.objName = tokens[0]
		return nil
	case secRows:
		return p.rowLine(tokens)
	case secColumns:
		return p.columnLine(tokens)
	case secRHS:
		return p.rhsLine(tokens)
	case secRanges:
		return p.rangeLine(tokens)
	case secBounds:
		return p.boundLine(tokens)
	default:
		return fmt.Errorf("data line outside of a section")
	}
}

func (p *parser) objSense(tokens []string) error {
	if len(tokens) != 1 {
		return fmt.Errorf("expected one objective sense, got %d fields", len(tokens))
	}
	switch strings.ToUpper(tokens[0]) {
	case "MIN", "MINIMIZE":
		p.asm.sense = lp.Minimize
	case "MAX", "MAXIMIZE":
		p.asm.sense = lp.Maximize
	default:
		return fmt.Errorf("unknown objective sense %q", tokens[0])
	}
	return nil
}

func (p *parser) rowLine(tokens []string) error {
	if len(tokens) != 2 {
		return fmt.Errorf("expected row kind and name, got %d fields", len(tokens))
	}
	kind, ok := lp.ParseRowKind(strings.ToUpper(tokens[0]))
	if !ok {
		return fmt.Errorf("unknown row kind %q", tokens[0])
	}
	return p.asm.addRow(tokens[1], kind)
}

func (p *parser) columnLine(tokens []string) error {
	if len(tokens) >= 3 && tokens[1] == "'MARKER'" {
		switch tokens[2] {
		case "'INTORG'":
			p.integer = true
		case "'INTEND'":
			p.integer = false
		default:
			return fmt.Errorf("unknown marker %s", tokens[2])
		}
		return nil
	}

	pairs := tokens[1:]
	if len(pairs)%2 != 0 {
		return fmt.Errorf("column %q: expected (row, value) pairs, got %d fields", tokens[0], len(pairs))
	}
	col := p.asm.column(tokens[0], p.integer)
	for k := 0; k < len(pairs); k += 2 {
		row, err := p.asm.row(pairs[k])
		if err != nil {
			return err
		}
		v, err := parseNumber(pairs[k+1])
		if err != nil {
			return err
		}
		if err := p.asm.addCoefficient(row, col, v); err != nil {
			return err
		}
	}
	return nil
}

// splitSet separates an optional leading set name from (row, value) pairs.
func splitSet(tokens []string) (set string, pairs []string, err error) {
	if len(tokens)%2 == 1 {
		set, tokens = tokens[0], tokens[1:]
	}
	if len(tokens) == 0 {
		return "", nil, fmt.Errorf("expected (row, value) pairs")
	}
	return set, tokens, nil
}

// firstSet reports whether set is the first set name seen in this section.
func (p *parser) firstSet(current *string, set string) bool {
	if set == "" {
		return true
	}
	if *current == "" {
		*current = set
		return true
	}
	if set != *current {
		p.log.Debug("skipping secondary set", zap.String("section", p.section.String()),
			zap.String("set", set), zap.Int("line", p.line))
		return false
	}
	return true
}

func (p *parser) rhsLine(tokens []string) error {
	return p.pairLine(tokens, &p.rhsSet, p.asm.setRHS)
}

func (p *parser) rangeLine(tokens []string) error {
	return p.pairLine(tokens, &p.rangeSet, p.asm.setRange)
}

func (p *parser) pairLine(tokens []string, current *string, apply func(row int, v float64)) error {
	set, pairs, err := splitSet(tokens)
	if err != nil {
		return err
	}
	if !p.firstSet(current, set) {
		return nil
	}
	for k := 0; k < len(pairs); k += 2 {
		row, err := p.asm.row(pairs[k])
		if err != nil {
			return err
		}
		v, err := parseNumber(pairs[k+1])
		if err != nil {
			return err
		}
		apply(row, v)
	}
	return nil
}

func (p *parser) boundLine(tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("expected bound type and column, got %d fields", len(tokens))
	}
	code := strings.ToUpper(tokens[0])

	var set, name, value string
	switch code {
	case "UP", "LO", "FX", "LI", "UI":
		switch len(tokens) {
		case 4:
			set, name, value = tokens[1], tokens[2], tokens[3]
		case 3:
			name, value = tokens[1], tokens[2]
		default:
			return fmt.Errorf("bound %s: expected [set] column value, got %d fields", code, len(tokens))
		}
	case "FR", "MI", "PL", "BV":
		switch len(tokens) {
		case 2:
			name = tokens[1]
		case 3, 4:
			set, name = tokens[1], tokens[2]
		default:
			return fmt.Errorf("bound %s: expected [set] column, got %d fields", code, len(tokens))
		}
	default:
		return fmt.Errorf("unknown bound type %q", tokens[0])
	}

	if !p.firstSet(&p.boundSet, set) {
		return nil
	}
	col, err := p.asm.lookupColumn(name)
	if err != nil {
		return err
	}

	var v float64
	if value != "" {
		if v, err = parseNumber(value); err != nil {
			return err
		}
		if v >= infiniteBound {
			v = lp.Inf()
		} else if v <= -infiniteBound {
			v = lp.NegInf()
		}
	}
	p.asm.setBound(col, code, v)
	return nil
}

// parseNumber reads a numeric field. Fortran style exponents (1.5D+02)
// are accepted; NaN is not.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && strings.ContainsAny(s, "dD") {
		v, err = strconv.ParseFloat(strings.NewReplacer("d", "e", "D", "e").Replace(s), 64)
	}
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("malformed number %q", s)
	}
	return v, nil
}

// errorf builds a structural error at the current position.
func (p *parser) errorf(format string, args ...any) error {
	return p.wrap(fmt.Errorf(format, args...))
}

// wrap attaches the current position to err. Errors that already carry a
// kind keep it; everything else is structural.
func (p *parser) wrap(err error) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			e.Op = "Read"
		}
		if e.Line == 0 {
			e.Line = p.line
		}
		if e.Section == "" {
			e.Section = p.section.String()
		}
		e.Dialect = p.sc.tok.dialect()
		return e
	}
	var lpErr *lp.Error
	if errors.As(err, &lpErr) {
		return &Error{Op: "Read", Kind: KindStructural, Dialect: p.sc.tok.dialect(), Msg: lpErr.Msg, Err: err}
	}
	return &Error{
		Op:      "Read",
		Kind:    KindStructural,
		Dialect: p.sc.tok.dialect(),
		Line:    p.line,
		Section: p.section.String(),
		Msg:     err.Error(),
	}
}
