package pipeline

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error kind.
type Code string

const (
	// CodeNotFound indicates a bad or unreachable ticket id.
	CodeNotFound Code = "NOT_FOUND"
	// CodeUnauthorized indicates a credential or permission failure.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeTransient indicates a network or rate-limit failure.
	CodeTransient Code = "TRANSIENT_REMOTE_FAILURE"
	// CodeNoTranscripts indicates every recording on the ticket failed
	// transcription.
	CodeNoTranscripts Code = "NO_TRANSCRIPTS"
	// CodeNotMutable indicates the ticket is closed and refused the note.
	CodeNotMutable Code = "NOT_MUTABLE"
	// CodePersistence indicates an artifact write failed. Fatal for the
	// ticket: a silent partial write is worse than stopping.
	CodePersistence Code = "PERSISTENCE_FAILURE"
)

// Error is the pipeline's typed error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError creates an Error with the given code and message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches the underlying error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// CodeOf returns the code carried by err, or CodeTransient for untyped
// errors (unclassified remote failures are assumed transient).
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeTransient
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == code
}
