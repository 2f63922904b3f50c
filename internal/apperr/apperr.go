// Package apperr holds the error taxonomy shared by every omd command.
// Typed errors unwrap to one of the sentinels, so callers match with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound  = errors.New("project declaration not found")
	ErrComposeNotFound = errors.New("compose file not found")
	ErrParse           = errors.New("parse error")
	ErrValidation      = errors.New("validation error")
	ErrPortConflict    = errors.New("port conflict")
	ErrRegistryCorrupt = errors.New("registry is corrupt")
	ErrExternalCall    = errors.New("external call failed")
)

// ParseError reports structurally invalid declaration or compose content.
type ParseError struct {
	File     string
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	msg := ErrParse.Error()
	if e.File != "" {
		msg += " in " + e.File
	}
	if e.Fragment != "" {
		msg += fmt.Sprintf(" at %q", e.Fragment)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ParseError) Unwrap() error { return ErrParse }

// ValidationError reports a well-formed but semantically invalid value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%v: %s: %s", ErrValidation, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: %s %q: %s", ErrValidation, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ExternalCallError wraps a failure of the container runtime or the proxy.
type ExternalCallError struct {
	Op     string
	Target string
	Err    error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrExternalCall, e.Op, e.Target, e.Err)
}

func (e *ExternalCallError) Unwrap() []error { return []error{ErrExternalCall, e.Err} }

// Parse builds a ParseError.
func Parse(file, fragment, reason string) error {
	return &ParseError{File: file, Fragment: fragment, Reason: reason}
}

// Invalid builds a ValidationError.
func Invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// External builds an ExternalCallError.
func External(op, target string, err error) error {
	return &ExternalCallError{Op: op, Target: target, Err: err}
}
