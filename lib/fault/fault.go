// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault defines the structured error taxonomy shared by the
// geometry sandbox core. Every failure that crosses a component
// boundary (script engine, worker protocol, conversion pipeline) is a
// *fault.Error carrying a stable Code, so callers dispatch on the code
// rather than matching message strings.
//
// Faults wrap freely with fmt.Errorf("%w"); CodeOf unwraps through the
// chain. Detail carries diagnostic context (stack traces, converter
// output) that is logged server-side but trimmed before leaving the
// process; remote callers see Code and Message only.
package fault

import (
	"errors"
	"fmt"
)

// Code identifies a failure class. The set is fixed; adding a code is
// a protocol change.
type Code string

const (
	// CapabilityDenied is raised when sandboxed code touches a
	// denylisted ambient capability (network, storage, worker
	// spawning, cross-context messaging).
	CapabilityDenied Code = "CapabilityDenied"

	// ScriptSyntaxError means the script text failed to compile.
	ScriptSyntaxError Code = "ScriptSyntaxError"

	// ScriptRuntimeError means the script threw during evaluation.
	ScriptRuntimeError Code = "ScriptRuntimeError"

	// InvalidResult means the script's returned value is not a
	// geometry object, or a mesh record fails its shape invariants.
	InvalidResult Code = "InvalidResult"

	// ResourceExceeded means the post-execution memory sample
	// exceeded the configured ceiling.
	ResourceExceeded Code = "ResourceExceeded"

	// ExecutionTimeout means the host killed the execution context
	// because no reply arrived within the deadline. It is raised by
	// the host supervisor, never from inside the sandbox.
	ExecutionTimeout Code = "ExecutionTimeout"

	// DegeneratePath means a sweep path's total arc length is below
	// the numeric epsilon.
	DegeneratePath Code = "DegeneratePath"

	// InvalidParameter means a helper was called with parameters
	// outside its documented domain.
	InvalidParameter Code = "InvalidParameter"

	// EmptyGeometry means an import produced zero vertices or zero
	// triangles.
	EmptyGeometry Code = "EmptyGeometry"

	// UnrepairableGeometry means manifold construction failed even
	// after the merge and merge-with-tolerance retries.
	UnrepairableGeometry Code = "UnrepairableGeometry"

	// ConverterOutputInvalid means the external converter produced
	// no output, undersized output, or output exceeding the server
	// side parse caps.
	ConverterOutputInvalid Code = "ConverterOutputInvalid"

	// NoCachedModel means a query message arrived before any
	// successful execute or import populated the current model.
	NoCachedModel Code = "NoCachedModel"

	// UnknownMessageType means the envelope's type tag matched no
	// protocol message kind.
	UnknownMessageType Code = "UnknownMessageType"
)

// Valid reports whether c is one of the fixed taxonomy codes.
func (c Code) Valid() bool {
	switch c {
	case CapabilityDenied, ScriptSyntaxError, ScriptRuntimeError,
		InvalidResult, ResourceExceeded, ExecutionTimeout,
		DegeneratePath, InvalidParameter, EmptyGeometry,
		UnrepairableGeometry, ConverterOutputInvalid, NoCachedModel,
		UnknownMessageType:
		return true
	}
	return false
}

// Error is a classified failure. Message is safe for remote callers;
// Detail is server-side diagnostic context and must not leave the
// process unredacted.
type Error struct {
	Code    Code
	Message string
	Detail  string

	// wrapped is the underlying cause, if any.
	wrapped error
}

// New creates a fault with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a fault with a formatted message. Format arguments
// are processed by fmt.Errorf, so %w wraps an underlying cause.
func Errorf(code Code, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Code: code, Message: err.Error(), wrapped: errors.Unwrap(err)}
}

// WithDetail returns a copy of the fault carrying diagnostic detail.
func (e *Error) WithDetail(detail string) *Error {
	clone := *e
	clone.Detail = detail
	return &clone
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.wrapped }

// Is matches two faults by code, so errors.Is(err, fault.New(code, ""))
// works without identity comparison.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// CodeOf returns the fault code of err, unwrapping as needed. The
// second result is false when no *Error is in the chain.
func CodeOf(err error) (Code, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}

// DetailOf returns the diagnostic detail of err, if any.
func DetailOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Detail
	}
	return ""
}

// TrimDetail caps diagnostic detail at max bytes for logging. The cap
// applies to converter stdout/stderr and script stack traces, which
// are unbounded attacker-influenced text.
func TrimDetail(detail string, max int) string {
	if max <= 0 || len(detail) <= max {
		return detail
	}
	return detail[:max] + "... (truncated)"
}
