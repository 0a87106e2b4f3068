package types

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a LoopError.
type Kind string

// Error kinds. Parse, strict-check and resolve errors are raised before any
// statement runs; runtime errors are raised while executing.
const (
	KindParse       Kind = "ParseError"
	KindStrictCheck Kind = "StrictCheckError"
	KindResolve     Kind = "ResolveError"
	KindRuntime     Kind = "RuntimeError"
)

// Extra tags attached to some errors.
const (
	TagRecursionError     = "RecursionError"
	TagResourceLimitError = "ResourceLimitError"
	TagTypeError          = "TypeError"
	TagArityError         = "ArityError"
	TagCancelled          = "Cancelled"
	TagTimeout            = "Timeout"
)

// LoopError is the error type returned by every stage of the pipeline.
type LoopError struct {
	Kind    Kind
	Message string
	Line    int // 1-based source line, 0 when unknown
	Tags    []string

	// Incomplete marks a parse error caused by running out of input inside
	// an unterminated block or expression.
	Incomplete bool
}

// Error implements the error interface.
func (e *LoopError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// HasTag returns true if the error has the specified tag.
func (e *LoopError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NewParseError creates a ParseError.
func NewParseError(line int, format string, args ...any) *LoopError {
	return &LoopError{Kind: KindParse, Message: fmt.Sprintf(format, args...), Line: line}
}

// NewIncompleteError creates a ParseError for input that ends too early.
func NewIncompleteError(line int, format string, args ...any) *LoopError {
	e := NewParseError(line, format, args...)
	e.Incomplete = true
	return e
}

// NewStrictCheckError creates a StrictCheckError.
func NewStrictCheckError(line int, format string, args ...any) *LoopError {
	return &LoopError{Kind: KindStrictCheck, Message: fmt.Sprintf(format, args...), Line: line}
}

// NewResolveError creates a ResolveError.
func NewResolveError(line int, format string, args ...any) *LoopError {
	return &LoopError{Kind: KindResolve, Message: fmt.Sprintf(format, args...), Line: line}
}

// NewRuntimeError creates a RuntimeError.
func NewRuntimeError(line int, tag string, format string, args ...any) *LoopError {
	e := &LoopError{Kind: KindRuntime, Message: fmt.Sprintf(format, args...), Line: line}
	if tag != "" {
		e.Tags = []string{tag}
	}
	return e
}

// NewRecursionError creates a RuntimeError for exceeding the call depth limit.
func NewRecursionError(line, limit int) *LoopError {
	return &LoopError{
		Kind:    KindRuntime,
		Message: fmt.Sprintf("call depth limit exceeded (max %d)", limit),
		Line:    line,
		Tags:    []string{TagRecursionError, TagResourceLimitError},
	}
}

// ProgramStop is returned when a running program executes an ERROR
// statement. It is not a LoopError.
type ProgramStop struct {
	Message string
	Line    int
}

// Error implements the error interface.
func (s *ProgramStop) Error() string {
	if s.Message != "" {
		return "program stopped: " + s.Message
	}
	return "program stopped"
}

// IsKind reports whether err wraps a LoopError of the given kind.
func IsKind(err error, kind Kind) bool {
	var le *LoopError
	return errors.As(err, &le) && le.Kind == kind
}

// IsStop reports whether err wraps a ProgramStop.
func IsStop(err error) bool {
	var s *ProgramStop
	return errors.As(err, &s)
}

// IsIncomplete reports whether err is a parse error caused by input ending
// inside an unterminated construct.
func IsIncomplete(err error) bool {
	var le *LoopError
	return errors.As(err, &le) && le.Incomplete
}

// KindOf returns the kind of the LoopError wrapped by err, or "" if none.
func KindOf(err error) Kind {
	var le *LoopError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}
