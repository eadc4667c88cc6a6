package sentence

import (
	"errors"
	"fmt"
)

// ErrorKind identifies which grammar rule a line violated.
type ErrorKind string

const (
	// GrammarError: a required marker is absent (or ambiguous in strict mode).
	GrammarError ErrorKind = "GrammarError"
	// FormatError: a compound field does not split as required.
	FormatError ErrorKind = "FormatError"
	// EnumerationError: a value is outside the closed set for its field.
	EnumerationError ErrorKind = "EnumerationError"
	// ProvenanceFormatError: a digest clause is not 64 hex characters.
	ProvenanceFormatError ErrorKind = "ProvenanceFormatError"
)

// Sentinels for errors.Is matching on the kind alone.
var (
	ErrGrammar          = errors.New("sentence: grammar error")
	ErrFormat           = errors.New("sentence: format error")
	ErrEnumeration      = errors.New("sentence: enumeration error")
	ErrProvenanceFormat = errors.New("sentence: provenance format error")
)

// Error is the single failure reported for a rejected line.
type Error struct {
	Kind   ErrorKind
	Field  Tag
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
}

// Is matches the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrGrammar:
		return e.Kind == GrammarError
	case ErrFormat:
		return e.Kind == FormatError
	case ErrEnumeration:
		return e.Kind == EnumerationError
	case ErrProvenanceFormat:
		return e.Kind == ProvenanceFormatError
	}
	return false
}

func newError(kind ErrorKind, field Tag, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Reason: fmt.Sprintf(format, args...)}
}
