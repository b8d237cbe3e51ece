// Package fault defines the error taxonomy shared by the geometry packages.
// Every failure reported across a package boundary carries one of four
// kinds so callers can decide whether to reject, skip, ignore or abort.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// InvalidInput marks a request rejected at the boundary (non-positive
	// dimensions, zero deflection, an index built for another solid).
	InvalidInput Kind = "INVALID_INPUT"
	// DegenerateGeometry marks a single element skipped during an operation.
	DegenerateGeometry Kind = "DEGENERATE_GEOMETRY"
	// NoMatch marks a normal empty outcome.
	NoMatch Kind = "NO_MATCH"
	// KernelFailure marks an incomplete operation reported by the kernel.
	KernelFailure Kind = "KERNEL_FAILURE"
)

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "tessellate"
	Message string
	cause   error
}

// New creates an Error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf is New with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// Wrap classifies cause under kind. A nil cause yields nil.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: cause.Error(), cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err is nil or unclassified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
