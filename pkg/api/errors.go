package api

import (
	"errors"
	"fmt"
	"runtime/debug"
)

type (
	// ErrorKind classifies a run failure so callers can branch on kind
	// rather than on error identity
	ErrorKind string

	// Error is a tagged failure raised by the engine or an executor
	Error struct {
		Kind  ErrorKind `json:"kind"`
		Cause error     `json:"-"`
		Stack string    `json:"stack,omitempty"`
	}
)

const (
	// ErrKindConfiguration marks non-retriable failures: bad or missing
	// node configuration, unknown node types, malformed graphs
	ErrKindConfiguration ErrorKind = "configuration"

	// ErrKindTransient marks retriable failures such as network or IO
	// errors inside a durable step
	ErrKindTransient ErrorKind = "transient"

	// ErrKindStepBound marks a run aborted for exceeding the step bound
	ErrKindStepBound ErrorKind = "step_bound"
)

// ErrSuspended signals that a durable sleep was registered and the run
// should checkpoint and unwind. It is control flow, not a failure
var ErrSuspended = errors.New("execution suspended")

// ConfigErr wraps a failure as a non-retriable configuration error
func ConfigErr(format string, args ...any) *Error {
	return newError(ErrKindConfiguration, fmt.Errorf(format, args...))
}

// TransientErr wraps a failure as a retriable transient error
func TransientErr(err error) *Error {
	return newError(ErrKindTransient, err)
}

// StepBoundErr reports a run that exceeded the maximum step count
func StepBoundErr(limit int) *Error {
	return newError(ErrKindStepBound,
		fmt.Errorf("workflow exceeded maximum step count: %d", limit))
}

func newError(kind ErrorKind, cause error) *Error {
	return &Error{
		Kind:  kind,
		Cause: cause,
		Stack: string(debug.Stack()),
	}
}

// Error returns the message of the underlying cause
func (e *Error) Error() string {
	return e.Cause.Error()
}

// Unwrap exposes the underlying cause for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retriable reports whether a failure may be retried. Unclassified errors
// are treated as retriable at the caller's discretion
func Retriable(err error) bool {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind == ErrKindTransient
	}
	return true
}

// KindOf returns the classification of an error, defaulting unclassified
// failures to transient
func KindOf(err error) ErrorKind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ErrKindTransient
}

// StackOf returns the captured stack of a tagged error, or an empty string
func StackOf(err error) string {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Stack
	}
	return ""
}
