// Package toolerrors provides structured error types for tool invocation
// failures. ToolError preserves error chains and supports errors.Is/As while
// staying serialization-friendly for event payloads and blockers.
package toolerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a tool failure into the taxonomy used across the registry,
// agents, and event payloads. Kind is never inferred by callers: the registry
// boundary assigns it so internal backend errors never leak out as a bare Ok
// payload.
type Kind string

const (
	// KindNotFound means the referenced entity (client, document) is absent.
	KindNotFound Kind = "not_found"
	// KindPreconditionFailed means a required precondition did not hold
	// (ineligible client, invalid document).
	KindPreconditionFailed Kind = "precondition_failed"
	// KindConflict means the operation collides with existing state (an
	// account of this type already exists for the client).
	KindConflict Kind = "conflict"
	// KindInvalidArgument means the caller supplied malformed parameters.
	KindInvalidArgument Kind = "invalid_argument"
	// KindTimeout means an LLM or tool deadline expired.
	KindTimeout Kind = "timeout"
	// KindInternal means an unexpected failure; always reported, never
	// swallowed.
	KindInternal Kind = "internal"
)

// ToolError represents a structured tool failure that preserves message and
// causal context while still implementing the standard error interface. Tool
// errors may be nested via Cause to retain rich diagnostics across retries.
type ToolError struct {
	// Kind classifies the failure for routing and blocker messages.
	Kind Kind
	// Message is the human-readable summary of the failure.
	Message string
	// Cause links to the underlying tool error, enabling error chains with
	// errors.Is/As.
	Cause *ToolError
}

// New constructs a ToolError of the given kind with the provided message.
func New(kind Kind, message string) *ToolError {
	if message == "" {
		message = string(kind)
	}
	return &ToolError{Kind: kind, Message: message}
}

// NewWithCause constructs a ToolError that wraps an underlying error. The
// cause is converted into a ToolError chain so metadata survives
// serialization while still supporting errors.Is/As through Unwrap.
func NewWithCause(kind Kind, message string, cause error) *ToolError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ToolError{Kind: kind, Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into a ToolError chain, defaulting to
// KindInternal when the error carries no structured kind of its own.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{
		Kind:    KindInternal,
		Message: err.Error(),
		Cause:   FromError(errors.Unwrap(err)),
	}
}

// Errorf formats according to a format specifier and returns the result as a
// ToolError of the given kind.
func Errorf(kind Kind, format string, args ...any) *ToolError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying tool error to support errors.Is/As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
