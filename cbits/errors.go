package cbits

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrSyntax = errors.New("cbits: syntax error")
	ErrLookup = errors.New("cbits: lookup error")
	ErrValue  = errors.New("cbits: value error")
)

// SyntaxError reports malformed predicate notation. Pos is the byte offset
// of the offending character in the source text.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// LookupError reports a bit label or register that cannot be resolved
// against a layout.
type LookupError struct {
	Label string
	Msg   string
}

func (e *LookupError) Error() string {
	if e.Label == "" {
		return "lookup error: " + e.Msg
	}
	return fmt.Sprintf("lookup error: %s: %s", e.Label, e.Msg)
}

func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// ValueError reports a width mismatch, a duplicate label, or another
// argument that is well-formed but unusable.
type ValueError struct {
	Msg string
}

func (e *ValueError) Error() string { return "value error: " + e.Msg }

func (e *ValueError) Is(target error) bool { return target == ErrValue }

func syntaxErrorf(pos int, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func valueErrorf(format string, args ...any) error {
	return &ValueError{Msg: fmt.Sprintf(format, args...)}
}
