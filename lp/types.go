// Package lp defines the canonical in-memory representation of a sparse
// linear or mixed-integer optimization model.
//
// A Model holds its rows (the objective and the constraints), its columns
// (the decision variables) and the constraint matrix in compressed sparse
// column form:
//
//	Minimize (or Maximize): c · x + Offset
//	Subject to:             Row.Lower ≤ A·x ≤ Row.Upper
//	And:                    Col.Lower ≤ x ≤ Col.Upper
//
// where c is the objective row of A. Models are produced by the mps package
// and are owned by the caller once returned; nothing in this package keeps
// references to them.
package lp

import "fmt"

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

// RowKind is the relational kind of a row.
type RowKind int

const (
	// RowFree is a non-binding row (MPS "N"), used for the objective.
	RowFree RowKind = iota
	// RowLE is a less-than-or-equal row (MPS "L").
	RowLE
	// RowGE is a greater-than-or-equal row (MPS "G").
	RowGE
	// RowEQ is an equality row (MPS "E").
	RowEQ
)

// String returns a human-readable representation of the row kind.
func (k RowKind) String() string {
	switch k {
	case RowFree:
		return "Free"
	case RowLE:
		return "LessEqual"
	case RowGE:
		return "GreaterEqual"
	case RowEQ:
		return "Equal"
	default:
		return "Unknown"
	}
}

// Code returns the single-letter MPS code of the row kind.
func (k RowKind) Code() string {
	switch k {
	case RowFree:
		return "N"
	case RowLE:
		return "L"
	case RowGE:
		return "G"
	case RowEQ:
		return "E"
	default:
		return "?"
	}
}

// ParseRowKind maps an MPS row code (N, L, G, E) to a RowKind.
// The code is case-sensitive, as in the format.
func ParseRowKind(code string) (RowKind, bool) {
	switch code {
	case "N":
		return RowFree, true
	case "L":
		return RowLE, true
	case "G":
		return RowGE, true
	case "E":
		return RowEQ, true
	default:
		return RowFree, false
	}
}

// Sense is the optimization direction of the objective.
type Sense int

const (
	// Minimize is the default objective sense.
	Minimize Sense = iota
	// Maximize flips the objective direction.
	Maximize
)

// String returns a human-readable representation of the sense.
func (s Sense) String() string {
	switch s {
	case Minimize:
		return "Minimize"
	case Maximize:
		return "Maximize"
	default:
		return "Unknown"
	}
}

// DuplicatePolicy decides what happens when the same (row, column) pair
// receives more than one coefficient.
type DuplicatePolicy int

const (
	// DuplicateSum adds repeated coefficients together (default).
	DuplicateSum DuplicatePolicy = iota
	// DuplicateReject treats a repeated coefficient as an error.
	DuplicateReject
)

// String returns a human-readable representation of the policy.
func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateSum:
		return "sum"
	case DuplicateReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Nonzero represents a non-zero entry in a sparse matrix.
// Row and Col are zero-indexed.
type Nonzero struct {
	Row int
	Col int
	Val float64
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

// Error reports an inconsistency found while building or validating a model.
type Error struct {
	Op  string // Operation that failed (e.g., "NewMatrix", "Validate")
	Msg string // Additional context

	// Row and Col locate the offending entry when known, -1 otherwise.
	Row int
	Col int
}

func (e *Error) Error() string {
	return fmt.Sprintf("lp: %s failed: %s", e.Op, e.Msg)
}

// newErrorMsg creates a new Error that is not tied to a matrix position.
func newErrorMsg(op, msg string) error {
	return &Error{Op: op, Msg: msg, Row: -1, Col: -1}
}

// newErrorAt creates a new Error for a specific (row, column) position.
func newErrorAt(op string, row, col int, format string, args ...any) error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...), Row: row, Col: col}
}
