package suite

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Marshal serializes suites as "json" (indented) or "yaml"
func Marshal(suites []Suite, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(suites, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal suites: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(suites); err != nil {
			return nil, fmt.Errorf("failed to marshal suites: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal suites: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
