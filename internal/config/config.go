package config

import (
	"path/filepath"
	"strings"

	"github.com/bluecontainer/openapi-suite-gen/pkg/selector"
)

// OutputFormat is the serialization used when the suite is written to a file
type OutputFormat string

const (
	// JSON writes the suite as indented JSON
	JSON OutputFormat = "json"
	// YAML writes the suite as YAML
	YAML OutputFormat = "yaml"
)

// Config holds the converter configuration
type Config struct {
	// SpecPath is the path or URL of the OpenAPI document
	SpecPath string
	// DiagnosticsDir is the root of the warning/, data/ and error/ directories.
	// Empty means the directory of the spec.
	DiagnosticsDir string
	// SaveData writes the suite outline to the data channel
	SaveData bool
	// Filter is a CEL expression selecting operations
	Filter string
	// Output is the file the suite is written to. Empty prints a summary only.
	Output string
	// Verbose prints a line per generated case even when stdout is not a terminal
	Verbose bool
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SpecPath == "" {
		return &ValidationError{Field: "SpecPath", Message: "OpenAPI spec path is required"}
	}
	if c.Output != "" && c.OutputFormat() == "" {
		return &ValidationError{Field: "Output", Message: "output file must end in .json, .yaml or .yml"}
	}
	if c.Filter != "" {
		if _, err := selector.Compile(c.Filter); err != nil {
			return &ValidationError{Field: "Filter", Message: err.Error()}
		}
	}
	return nil
}

// Selector compiles the filter expression. A nil selector matches everything.
func (c *Config) Selector() (*selector.Selector, error) {
	if c.Filter == "" {
		return nil, nil
	}
	return selector.Compile(c.Filter)
}

// OutputFormat derives the serialization from the output file extension
func (c *Config) OutputFormat() OutputFormat {
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".json":
		return JSON
	case ".yaml", ".yml":
		return YAML
	}
	return ""
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
