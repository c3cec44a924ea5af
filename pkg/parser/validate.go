package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	oasparser "github.com/erraggy/oastools/parser"
	oasvalidator "github.com/erraggy/oastools/validator"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// versionAttempt validates a document against one schema generation
type versionAttempt struct {
	version Version
	pattern *regexp.Regexp
	check   func(ctx context.Context, root *yaml.Node, data []byte) (*openapi3.T, error)
}

// versionAttempts are tried in order; the first match wins
var versionAttempts = []versionAttempt{
	{
		version: OAS30,
		pattern: regexp.MustCompile(`^3\.0\.\d+(-.+)?$`),
		check:   validate30,
	},
	{
		version: OAS31,
		pattern: regexp.MustCompile(`^3\.1\.\d+(-.+)?$`),
		check:   validate31,
	},
}

// AttemptResult records why a schema generation did not match
type AttemptResult struct {
	Version Version
	Err     error
}

// ValidationOutcome is the result of the ordered version attempts. Version is
// set when an attempt matched; otherwise Attempts explains every failure.
type ValidationOutcome struct {
	Version  Version
	Attempts []AttemptResult
}

// Matched reports whether any attempt succeeded
func (o ValidationOutcome) Matched() bool {
	return o.Version != ""
}

// Validate runs the version attempts against an inlined document and returns
// the typed document of the matching attempt
func Validate(ctx context.Context, root *yaml.Node) (ValidationOutcome, *openapi3.T) {
	var outcome ValidationOutcome

	declared := ""
	if v, ok := Lookup(root, "openapi"); ok && v.Kind == yaml.ScalarNode {
		declared = v.Value
	}

	data, err := toJSON(root)
	if err != nil {
		for _, a := range versionAttempts {
			outcome.Attempts = append(outcome.Attempts, AttemptResult{Version: a.version, Err: err})
		}
		return outcome, nil
	}

	for _, a := range versionAttempts {
		doc, err := a.validate(ctx, declared, root, data)
		if err != nil {
			outcome.Attempts = append(outcome.Attempts, AttemptResult{Version: a.version, Err: err})
			continue
		}
		outcome.Version = a.version
		return outcome, doc
	}
	return outcome, nil
}

func (a versionAttempt) validate(ctx context.Context, declared string, root *yaml.Node, data []byte) (*openapi3.T, error) {
	if !a.pattern.MatchString(declared) {
		return nil, fmt.Errorf("openapi version %q is not %s", declared, a.version)
	}
	return a.check(ctx, root, data)
}

// validate30 loads and validates the document with the 3.0 object model
func validate30(ctx context.Context, _ *yaml.Node, data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	ctx = openapi3.WithValidationOptions(ctx, openapi3.DisableExamplesValidation())
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	return doc, nil
}

// validate31 validates the document with the oastools 3.1 model, which
// understands JSON Schema 2020-12 keywords, type lists and webhooks. The
// returned typed view only carries info, tags and root extensions.
func validate31(_ context.Context, root *yaml.Node, data []byte) (*openapi3.T, error) {
	p := oasparser.New()
	p.ValidateStructure = true
	parsed, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	v := oasvalidator.New()
	v.IncludeWarnings = false
	result, err := v.ValidateParsed(*parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to validate document: %w", err)
	}
	if !result.Valid {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Path+": "+e.Message)
		}
		return nil, fmt.Errorf("invalid OpenAPI spec: %s", strings.Join(msgs, "; "))
	}

	return typedView(root)
}

// typedView decodes the root fields section building needs. Schemas are left
// out so 3.1-only schema forms never reach the 3.0 object model.
func typedView(root *yaml.Node) (*openapi3.T, error) {
	root = follow(root)
	view := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(root.Content); i += 2 {
		switch key := root.Content[i].Value; {
		case key == "openapi", key == "info", key == "tags", strings.HasPrefix(key, "x-"):
			view.Content = append(view.Content, root.Content[i], root.Content[i+1])
		}
	}

	data, err := toJSON(view)
	if err != nil {
		return nil, err
	}
	var doc openapi3.T
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &doc, nil
}

// toJSON re-encodes a node tree as JSON for the typed loader
func toJSON(root *yaml.Node) ([]byte, error) {
	var v interface{}
	if err := root.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	data, err := json.Marshal(convertYAMLMapKeys(v))
	if err != nil {
		return nil, fmt.Errorf("failed to convert document to JSON: %w", err)
	}
	return data, nil
}

// convertYAMLMapKeys recursively converts map[interface{}]interface{} to map[string]interface{}
// This is needed because numeric response codes decode as non-string keys which JSON can't handle
func convertYAMLMapKeys(v interface{}) interface{} {
	switch x := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, val := range x {
			m[fmt.Sprintf("%v", k)] = convertYAMLMapKeys(val)
		}
		return m
	case map[string]interface{}:
		for k, val := range x {
			x[k] = convertYAMLMapKeys(val)
		}
		return x
	case []interface{}:
		for i, val := range x {
			x[i] = convertYAMLMapKeys(val)
		}
		return x
	default:
		return v
	}
}
