package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFile represents the YAML configuration file structure.
// All fields are optional - CLI flags take precedence over config file values.
type ConfigFile struct {
	// Spec is the path or URL to the OpenAPI specification file
	Spec string `yaml:"spec,omitempty"`

	// DiagnosticsDir is the root directory for warning, data and error logs
	DiagnosticsDir string `yaml:"diagnosticsDir,omitempty"`

	// SaveData controls whether the suite outline is written to the data log
	SaveData *bool `yaml:"saveData,omitempty"`

	// Filter is a CEL expression selecting the operations to convert
	Filter string `yaml:"filter,omitempty"`

	// Output is the file the suite is written to (.json, .yaml or .yml)
	Output string `yaml:"output,omitempty"`

	// Verbose prints every generated case
	Verbose *bool `yaml:"verbose,omitempty"`
}

// LoadConfigFile loads a configuration file from the specified path.
// Supports YAML format. Returns nil config if file doesn't exist.
func LoadConfigFile(path string) (*ConfigFile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// FindConfigFile searches the current directory for a config file and returns
// the first match, or an empty string.
// Search order:
//  1. .openapi-suite-gen.yaml
//  2. .openapi-suite-gen.yml
//  3. openapi-suite-gen.yaml
//  4. openapi-suite-gen.yml
func FindConfigFile() string {
	names := []string{
		".openapi-suite-gen.yaml",
		".openapi-suite-gen.yml",
		"openapi-suite-gen.yaml",
		"openapi-suite-gen.yml",
	}

	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	return ""
}

// MergeConfigFile merges config file values into the Config struct.
// CLI flags (non-zero values in cfg) take precedence over config file values.
func MergeConfigFile(cfg *Config, file *ConfigFile) {
	if file == nil {
		return
	}

	if cfg.SpecPath == "" && file.Spec != "" {
		cfg.SpecPath = file.Spec
	}
	if cfg.DiagnosticsDir == "" && file.DiagnosticsDir != "" {
		cfg.DiagnosticsDir = file.DiagnosticsDir
	}
	if cfg.Filter == "" && file.Filter != "" {
		cfg.Filter = file.Filter
	}
	if cfg.Output == "" && file.Output != "" {
		cfg.Output = file.Output
	}

	// Boolean flags default to false, so the file only turns them on
	if file.SaveData != nil && !cfg.SaveData {
		cfg.SaveData = *file.SaveData
	}
	if file.Verbose != nil && !cfg.Verbose {
		cfg.Verbose = *file.Verbose
	}
}

// GenerateExampleConfig generates an example configuration file content
func GenerateExampleConfig() string {
	return `# openapi-suite-gen configuration file
# All options can be overridden by CLI flags

# OpenAPI 3.0/3.1 document path or URL (required)
spec: ./api/openapi.yaml

# Root directory for warning/, data/ and error/ logs
# (defaults to the directory of the spec)
# diagnosticsDir: ./diagnostics

# Write the suite -> section -> case outline to data/<spec>.txt
saveData: false

# Only convert operations matching this CEL expression.
# Variables: path, verb, operationId, summary, tags, deprecated
# filter: verb == "GET" && !deprecated

# Write the generated suite to a file (.json, .yaml or .yml)
# output: ./suite.json

# Print every generated case
verbose: false
`
}

// WriteExampleConfig writes an example config file to the specified path
func WriteExampleConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(GenerateExampleConfig()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
