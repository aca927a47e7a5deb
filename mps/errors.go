package mps

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error so callers can tell malformed input apart from
// environment problems and unsupported requests.
type Kind int

const (
	// KindSourceNotFound means the input could not be opened.
	KindSourceNotFound Kind = iota + 1
	// KindStructural means the input is not a well-formed MPS file.
	KindStructural
	// KindDuplicateCoefficient means a (row, column) pair was declared twice
	// while the reject policy was active.
	KindDuplicateCoefficient
	// KindDestinationUnwritable means the output sink rejected the model.
	KindDestinationUnwritable
	// KindUnsupported means the operation is not provided by this package.
	KindUnsupported
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSourceNotFound:
		return "SourceNotFound"
	case KindStructural:
		return "StructuralParseError"
	case KindDuplicateCoefficient:
		return "DuplicateCoefficientConflict"
	case KindDestinationUnwritable:
		return "DestinationUnwritable"
	case KindUnsupported:
		return "UnsupportedOperation"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrSourceNotFound        = &Error{Kind: KindSourceNotFound}
	ErrStructural            = &Error{Kind: KindStructural}
	ErrDuplicateCoefficient  = &Error{Kind: KindDuplicateCoefficient}
	ErrDestinationUnwritable = &Error{Kind: KindDestinationUnwritable}
	ErrUnsupported           = &Error{Kind: KindUnsupported}
)

// Error is the single terminal error returned by read and write operations.
type Error struct {
	Op      string  // Operation that failed (e.g., "Read", "Write")
	Kind    Kind    // Error classification
	Dialect Dialect // Active dialect, for parse errors
	Line    int     // 1-based input line, 0 when not applicable
	Section string  // Section being parsed, "" when not applicable
	Msg     string  // Additional context
	Err     error   // Underlying cause (optional)
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mps: %s failed", e.Op)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at %s line %d", e.Dialect, e.Line)
	}
	if e.Section != "" {
		fmt.Fprintf(&b, " in %s", e.Section)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so the package sentinels work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// newError creates an Error that is not tied to an input position.
func newError(op string, kind Kind, msg string, err error) error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: err}
}
