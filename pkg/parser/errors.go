package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSpecResolution matches any *SpecResolutionError
	ErrSpecResolution = errors.New("spec resolution failed")
	// ErrSpecIncompatible matches any *SpecIncompatibleError
	ErrSpecIncompatible = errors.New("spec is not a compatible OpenAPI 3.x document")
	// ErrCircularReference matches a circular *ReferenceError
	ErrCircularReference = errors.New("circular reference")
)

// SpecResolutionError reports a document that could not be read, decoded or
// fully inlined
type SpecResolutionError struct {
	Path  string
	Cause error
}

func (e *SpecResolutionError) Error() string {
	msg := "failed to resolve OpenAPI spec"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SpecResolutionError) Unwrap() error { return e.Cause }

func (e *SpecResolutionError) Is(target error) bool { return target == ErrSpecResolution }

// SpecIncompatibleError reports a resolved document matching no supported
// OpenAPI version
type SpecIncompatibleError struct {
	Path    string
	Outcome ValidationOutcome
}

func (e *SpecIncompatibleError) Error() string {
	var b strings.Builder
	b.WriteString("OpenAPI spec")
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	b.WriteString(" does not have a 3.x layout")
	for _, a := range e.Outcome.Attempts {
		fmt.Fprintf(&b, "; %s: %v", a.Version, a.Err)
	}
	return b.String()
}

func (e *SpecIncompatibleError) Is(target error) bool { return target == ErrSpecIncompatible }

// ReferenceError reports a single $ref that could not be expanded
type ReferenceError struct {
	Ref      string
	Circular bool
	Cause    error
}

func (e *ReferenceError) Error() string {
	msg := "reference error"
	if e.Circular {
		msg = "circular reference"
	}
	if e.Ref != "" {
		msg += ": " + e.Ref
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ReferenceError) Unwrap() error { return e.Cause }

func (e *ReferenceError) Is(target error) bool {
	return target == ErrCircularReference && e.Circular
}
