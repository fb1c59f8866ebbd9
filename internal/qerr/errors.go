// Package qerr defines the error taxonomy shared by the binder, the pipe
// algebra and the nested-query resolver.
//
// Every failure is reported synchronously as an *Error carrying a Code.
// Nothing in this module retries; callers inspect errors with the Is*
// helpers, which use errors.As so wrapped errors are recognised.
package qerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes errors.
type Code string

const (
	// CodeUnknownParameter indicates a placeholder referenced in SQL has no bound value.
	CodeUnknownParameter Code = "UNKNOWN_PARAMETER"

	// CodeUnknownReference indicates a marker names a query absent from the query map.
	CodeUnknownReference Code = "UNKNOWN_REFERENCE"

	// CodeDepthExceeded indicates the dependency graph is deeper than the configured maximum.
	CodeDepthExceeded Code = "DEPTH_EXCEEDED"

	// CodeCycleDetected indicates a query depends on itself, directly or transitively.
	CodeCycleDetected Code = "CYCLE_DETECTED"

	// CodePipeComposition indicates a pipe spec that cannot be applied.
	CodePipeComposition Code = "PIPE_COMPOSITION"

	// CodeMalformedTemplate indicates marker syntax that cannot be parsed.
	CodeMalformedTemplate Code = "MALFORMED_TEMPLATE"

	// CodeUnsupported indicates an operation the selected backend does not provide.
	CodeUnsupported Code = "UNSUPPORTED"

	// CodeInvalidArgument indicates a pipe argument outside its allowed values.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// Error is the structured error returned by every package in this module.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Name is the offending query, parameter or pipe name, if any.
	Name string

	// Template is the SQL template in which the problem was found, if any.
	Template string

	// Path is the reference chain leading to the error (cycle and depth errors).
	Path []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Name != "" {
		fmt.Fprintf(&b, " (name=%s)", e.Name)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " (path=%s)", strings.Join(e.Path, " → "))
	}
	if e.Template != "" {
		fmt.Fprintf(&b, " in %q", abbreviate(e.Template, 120))
	}
	return b.String()
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code Code) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsUnknownParameter returns true for unbound placeholder errors.
func IsUnknownParameter(err error) bool { return HasCode(err, CodeUnknownParameter) }

// IsUnknownReference returns true for markers naming an unknown query.
func IsUnknownReference(err error) bool { return HasCode(err, CodeUnknownReference) }

// IsDepthExceeded returns true for depth errors.
// A detected cycle is the degenerate infinite-depth case and also matches.
func IsDepthExceeded(err error) bool {
	return HasCode(err, CodeDepthExceeded) || HasCode(err, CodeCycleDetected)
}

// IsCycle returns true only for a detected cycle.
func IsCycle(err error) bool { return HasCode(err, CodeCycleDetected) }

// IsPipeComposition returns true for pipe specs that cannot be applied.
func IsPipeComposition(err error) bool { return HasCode(err, CodePipeComposition) }

// IsMalformedTemplate returns true for unparseable marker syntax.
func IsMalformedTemplate(err error) bool { return HasCode(err, CodeMalformedTemplate) }

// IsUnsupported returns true for backend extension points that are not implemented.
func IsUnsupported(err error) bool { return HasCode(err, CodeUnsupported) }

// IsInvalidArgument returns true for pipe arguments outside their allowed values.
func IsInvalidArgument(err error) bool { return HasCode(err, CodeInvalidArgument) }

// NewUnknownParameter creates an error for a placeholder with no bound value.
func NewUnknownParameter(name, sql string) *Error {
	return &Error{
		Code:     CodeUnknownParameter,
		Message:  "placeholder has no bound value",
		Name:     name,
		Template: sql,
	}
}

// NewConflictingParameter creates an error for one parameter name bound to two different values.
func NewConflictingParameter(name string) *Error {
	return &Error{
		Code:    CodeUnknownParameter,
		Message: "parameter bound to conflicting values",
		Name:    name,
	}
}

// NewUnknownReference creates an error for a marker naming an unknown query.
func NewUnknownReference(name, template string) *Error {
	return &Error{
		Code:     CodeUnknownReference,
		Message:  fmt.Sprintf("%s is not a known query", name),
		Name:     name,
		Template: template,
	}
}

// NewDepthExceeded creates an error for nesting deeper than maxDepth.
func NewDepthExceeded(path []string, maxDepth int) *Error {
	name := ""
	if len(path) > 0 {
		name = path[len(path)-1]
	}
	return &Error{
		Code:    CodeDepthExceeded,
		Message: fmt.Sprintf("nesting exceeds max depth %d", maxDepth),
		Name:    name,
		Path:    path,
	}
}

// NewCycle creates an error for a query that references itself.
// path starts and ends with the same name.
func NewCycle(path []string) *Error {
	name := ""
	if len(path) > 0 {
		name = path[0]
	}
	return &Error{
		Code:    CodeCycleDetected,
		Message: "query depends on itself",
		Name:    name,
		Path:    path,
	}
}

// NewMalformedTemplate creates an error for marker syntax that cannot be parsed.
func NewMalformedTemplate(name, template, detail string) *Error {
	return &Error{
		Code:     CodeMalformedTemplate,
		Message:  detail,
		Name:     name,
		Template: template,
	}
}

// NewPipeComposition creates an error for a pipe spec that cannot be applied.
func NewPipeComposition(message string) *Error {
	return &Error{
		Code:    CodePipeComposition,
		Message: message,
	}
}

// NewUnsupported creates an error for an operation the backend does not provide.
func NewUnsupported(operation, backend string) *Error {
	return &Error{
		Code:    CodeUnsupported,
		Message: fmt.Sprintf("%s is not supported by the %s backend", operation, backend),
		Name:    operation,
	}
}

// NewInvalidArgument creates an error for a pipe argument outside its allowed values.
func NewInvalidArgument(name, message string) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Message: message,
		Name:    name,
	}
}
