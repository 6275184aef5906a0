// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package expr

import "fmt"

// ErrorKind classifies expression failures so callers can distinguish
// build-time rejections from evaluation-time failures.
type ErrorKind int

const (
	// ErrSyntax is a malformed source string (build time).
	ErrSyntax ErrorKind = iota

	// ErrUnknownIdentifier is an identifier outside the allowed variable
	// and constant set (build time).
	ErrUnknownIdentifier

	// ErrUnknownFunction is a call to a function outside the whitelist
	// (build time).
	ErrUnknownFunction

	// ErrDepthExceeded is a parse or evaluation recursion deeper than
	// MaxDepth.
	ErrDepthExceeded

	// ErrUndefinedVariable is a variable required by the expression but
	// absent from the evaluation context (evaluation time).
	ErrUndefinedVariable

	// ErrDivisionByZero is a division or modulo by zero (evaluation time).
	ErrDivisionByZero

	// ErrExponentOutOfRange is a '**' exponent whose magnitude exceeds
	// MaxExponent.
	ErrExponentOutOfRange

	// ErrNotFinite is any operation whose result would be NaN or ±Inf.
	// Callers never observe a non-finite value.
	ErrNotFinite
)

// String returns the human-readable name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrSyntax:
		return "syntax"
	case ErrUnknownIdentifier:
		return "unknown_identifier"
	case ErrUnknownFunction:
		return "unknown_function"
	case ErrDepthExceeded:
		return "depth_exceeded"
	case ErrUndefinedVariable:
		return "undefined_variable"
	case ErrDivisionByZero:
		return "division_by_zero"
	case ErrExponentOutOfRange:
		return "exponent_out_of_range"
	case ErrNotFinite:
		return "not_finite"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error is the typed failure for both Build and Evaluate.
//
// Pos is a byte offset into the source string for build-time errors and
// -1 for evaluation-time errors.
type Error struct {
	Kind ErrorKind
	Msg  string
	Pos  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("expr: %s at offset %d: %s", e.Kind, e.Pos, e.Msg)
	}
	return fmt.Sprintf("expr: %s: %s", e.Kind, e.Msg)
}

// newBuildError creates a build-time error at a source offset.
func newBuildError(kind ErrorKind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// newEvalError creates an evaluation-time error (no source position).
func newEvalError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: -1}
}

// KindOf returns the ErrorKind of err if it is an expr Error, and ok=false
// otherwise.
func KindOf(err error) (ErrorKind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return 0, false
}
