// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies command errors so scripts can make
// programmatic decisions (retry, fix input, escalate) from the exit
// code without parsing error message text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// missing required arguments, wrong argument count, unparseable
	// values. The caller should fix the input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not exist:
	// unknown API, unknown verb, no binding document on the search
	// path. Retrying with the same parameters will not help.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates the caller lacks the assurance level
	// the verb demands. The caller should authenticate and retry.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryTransient indicates a temporary failure: the daemon
	// socket is unreachable, a timeout, a dropped connection. The
	// caller should back off and retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected error: bugs, I/O
	// failures, malformed data the daemon produced. The caller should
	// report the error rather than retry.
	CategoryInternal ErrorCategory = "internal"
)

// exitCodes maps each category to a distinct process exit code.
// 1 is reserved for uncategorized errors.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryNotFound:   3,
	CategoryForbidden:  4,
	CategoryTransient:  5,
	CategoryInternal:   6,
}

// ToolError is a categorized error returned by CLI commands. The main
// function inspects the category to choose the process exit code,
// giving shell callers a stable contract alongside the human-readable
// error text.
//
// ToolError wraps an inner error, preserving the full error chain for
// debugging while adding category metadata. Use the category-specific
// constructors (Validation, NotFound, etc.) rather than constructing
// ToolError directly.
type ToolError struct {
	// Category classifies the error for programmatic handling.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error

	// Hint is an optional recovery suggestion appended to the error
	// text after a blank line. Set via WithHint.
	Hint string
}

// Error returns the underlying error message, with the hint appended
// when present. The category is not included in the string — it
// travels separately via the exit code.
func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

// Unwrap returns the underlying error, allowing errors.Is and
// errors.As to walk the full chain through the ToolError wrapper.
func (e *ToolError) Unwrap() error { return e.Err }

// WithHint attaches a recovery suggestion and returns the receiver so
// constructors chain naturally:
//
//	return cli.NotFound("api %q not hosted", name).
//	    WithHint("Run 'bindery describe' to see hosted APIs.")
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// ExitCode maps an error to the process exit code main should use:
// 0 for nil, a category-specific code for ToolErrors, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		if code, ok := exitCodes[toolErr.Category]; ok {
			return code
		}
	}
	return 1
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced resource does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error: the caller lacks the required assurance.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may succeed on retry.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
