package mps

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Dialect selects how data lines are split into fields.
type Dialect int

const (
	// Fixed is the legacy layout where each field occupies fixed columns.
	Fixed Dialect = iota
	// Free is the whitespace-delimited layout.
	Free
)

// String returns the dialect name as used in configuration.
func (d Dialect) String() string {
	switch d {
	case Fixed:
		return "fixed"
	case Free:
		return "free"
	default:
		return "unknown"
	}
}

// ParseDialect maps "fixed" or "free" (any case) to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return Fixed, nil
	case "free":
		return Free, nil
	default:
		return Fixed, fmt.Errorf("unknown MPS dialect %q: must be fixed or free", s)
	}
}

// RecordKind classifies a scanned line.
type RecordKind int

const (
	// RecordBlank is an empty or all-blank line.
	RecordBlank RecordKind = iota
	// RecordComment is a '*' comment line.
	RecordComment
	// RecordHeader starts in column 1 and names a section.
	RecordHeader
	// RecordData is an indented line of fields.
	RecordData
)

// Record is one classified input line.
type Record struct {
	Kind RecordKind
	Line int // 1-based

	// Name and Args are set for headers: the upper-cased keyword and
	// whatever follows it on the same line.
	Name string
	Args []string

	// Tokens are the fields of a data line in logical order.
	Tokens []string
}

// tokenizer splits the body of a data line into fields.
type tokenizer interface {
	dialect() Dialect
	fields(line string) ([]string, error)
	headerArgs(rest string) []string
	comment(line string) bool
}

// scanner reads lines and classifies them. The tokenizer is chosen once at
// construction; nothing downstream branches on the dialect.
type scanner struct {
	sc   *bufio.Scanner
	tok  tokenizer
	line int
}

func newScanner(r io.Reader, d Dialect) *scanner {
	// Tolerate UTF-8 and UTF-16 byte order marks
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	sc := bufio.NewScanner(transform.NewReader(r, dec))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var tok tokenizer = fixedTokenizer{}
	if d == Free {
		tok = freeTokenizer{}
	}
	return &scanner{sc: sc, tok: tok}
}

// next returns the next record, or io.EOF once the input is exhausted.
func (s *scanner) next() (Record, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return Record{}, &Error{Op: "Read", Kind: KindStructural, Dialect: s.tok.dialect(),
				Line: s.line + 1, Msg: "cannot read line", Err: err}
		}
		return Record{}, io.EOF
	}
	s.line++
	return s.classify(s.sc.Text())
}

func (s *scanner) classify(raw string) (Record, error) {
	line := strings.TrimRight(raw, " \t\r")
	rec := Record{Line: s.line}

	trimmed := strings.TrimLeft(line, " \t")
	switch {
	case trimmed == "":
		rec.Kind = RecordBlank
		return rec, nil
	case s.tok.comment(line):
		rec.Kind = RecordComment
		return rec, nil
	case line[0] != ' ' && line[0] != '\t':
		name, rest := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			name, rest = line[:i], line[i+1:]
		}
		rec.Kind = RecordHeader
		rec.Name = strings.ToUpper(strings.TrimSpace(name))
		rec.Args = s.tok.headerArgs(rest)
		return rec, nil
	}

	fields, err := s.tok.fields(line)
	if err != nil {
		return Record{}, &Error{Op: "Read", Kind: KindStructural, Dialect: s.tok.dialect(),
			Line: s.line, Msg: err.Error()}
	}
	rec.Kind = RecordData
	rec.Tokens = fields
	return rec, nil
}

// ----------------------------------------------------------------------------
// Free dialect
// ----------------------------------------------------------------------------

type freeTokenizer struct{}

func (freeTokenizer) dialect() Dialect { return Free }

func (freeTokenizer) fields(line string) ([]string, error) {
	return strings.Fields(line), nil
}

func (freeTokenizer) headerArgs(rest string) []string {
	return strings.Fields(rest)
}

// comment reports a '*' as the first non-blank character.
func (freeTokenizer) comment(line string) bool {
	return strings.TrimLeft(line, " \t")[0] == '*'
}

// ----------------------------------------------------------------------------
// Fixed dialect
// ----------------------------------------------------------------------------

// fixedField is a 0-based, half-open column range.
type fixedField struct{ start, end int }

// Fields 1..6 occupy columns 2-3, 5-12, 15-22, 25-36, 40-47 and 50-61.
var fixedFields = [6]fixedField{
	{1, 3}, {4, 12}, {14, 22}, {24, 36}, {39, 47}, {49, 61},
}

const fixedWidth = 61

type fixedTokenizer struct{}

func (fixedTokenizer) dialect() Dialect { return Fixed }

func (fixedTokenizer) fields(line string) ([]string, error) {
	// Marker lines are rarely aligned; take them token by token
	if strings.Contains(line, "'MARKER'") {
		return strings.Fields(line), nil
	}

	if len(line) > fixedWidth {
		return nil, fmt.Errorf("text past column %d: %q", fixedWidth, line[fixedWidth:])
	}

	// Text between two fields belongs to the one on the left running long
	for i := 1; i < len(fixedFields); i++ {
		prev, f := fixedFields[i-1], fixedFields[i]
		if gap := span(line, prev.end, f.start); strings.TrimSpace(gap) != "" {
			return nil, fmt.Errorf("field %d overruns its columns near column %d", i, prev.end+1)
		}
	}

	var out []string
	emptyAt := 0
	for i, f := range fixedFields {
		v := strings.TrimSpace(span(line, f.start, f.end))
		if v == "" {
			if i >= 2 && emptyAt == 0 {
				emptyAt = i + 1
			}
			continue
		}
		if emptyAt != 0 {
			return nil, fmt.Errorf("field %d is empty but field %d is set", emptyAt, i+1)
		}
		out = append(out, v)
	}
	return out, nil
}

// comment reports a '*' in column 1. Elsewhere it is part of a name.
func (fixedTokenizer) comment(line string) bool {
	return line[0] == '*'
}

func (fixedTokenizer) headerArgs(rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	return []string{rest}
}

// span returns line[start:end] clipped to the line length.
func span(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}
