package config

import (
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantErr  bool
		errField string
	}{
		{
			name:     "missing SpecPath",
			config:   Config{Output: "suite.json"},
			wantErr:  true,
			errField: "SpecPath",
		},
		{
			name:     "unsupported output extension",
			config:   Config{SpecPath: "/spec.yaml", Output: "suite.xml"},
			wantErr:  true,
			errField: "Output",
		},
		{
			name:     "filter does not compile",
			config:   Config{SpecPath: "/spec.yaml", Filter: "verb =="},
			wantErr:  true,
			errField: "Filter",
		},
		{
			name:     "filter is not boolean",
			config:   Config{SpecPath: "/spec.yaml", Filter: "path"},
			wantErr:  true,
			errField: "Filter",
		},
		{
			name:   "minimal config",
			config: Config{SpecPath: "/petstore.yaml"},
		},
		{
			name: "full config",
			config: Config{
				SpecPath:       "https://example.com/openapi.yaml",
				DiagnosticsDir: "/tmp/diag",
				SaveData:       true,
				Filter:         `verb == "GET"`,
				Output:         "suite.YML",
				Verbose:        true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Validate() expected error, got nil")
					return
				}
				valErr, ok := err.(*ValidationError)
				if !ok {
					t.Errorf("Validate() expected *ValidationError, got %T", err)
					return
				}
				if valErr.Field != tt.errField {
					t.Errorf("Validate() error field = %q, want %q", valErr.Field, tt.errField)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_OutputFormat(t *testing.T) {
	tests := []struct {
		output   string
		expected OutputFormat
	}{
		{"", ""},
		{"suite.json", JSON},
		{"out/suite.JSON", JSON},
		{"suite.yaml", YAML},
		{"suite.yml", YAML},
		{"suite.txt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			c := Config{Output: tt.output}
			if got := c.OutputFormat(); got != tt.expected {
				t.Errorf("OutputFormat() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConfig_Selector(t *testing.T) {
	c := Config{}
	sel, err := c.Selector()
	if err != nil || sel != nil {
		t.Errorf("Selector() without filter = %v, %v; want nil, nil", sel, err)
	}

	c.Filter = `"pet" in tags`
	sel, err = c.Selector()
	if err != nil {
		t.Fatalf("Selector() error = %v", err)
	}
	if sel.Expression() != c.Filter {
		t.Errorf("Expression() = %q", sel.Expression())
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "SpecPath", Message: "OpenAPI spec path is required"}
	if got := err.Error(); got != "SpecPath: OpenAPI spec path is required" {
		t.Errorf("Error() = %q", got)
	}
}
