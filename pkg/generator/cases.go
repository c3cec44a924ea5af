package generator

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bluecontainer/openapi-suite-gen/pkg/content"
	"github.com/bluecontainer/openapi-suite-gen/pkg/diagnostics"
	"github.com/bluecontainer/openapi-suite-gen/pkg/parser"
	"github.com/bluecontainer/openapi-suite-gen/pkg/selector"
	"github.com/bluecontainer/openapi-suite-gen/pkg/suite"
)

// httpVerbs are the operation keys of a path item that produce cases
var httpVerbs = map[string]bool{
	"get":     true,
	"put":     true,
	"patch":   true,
	"post":    true,
	"delete":  true,
	"options": true,
	"trace":   true,
	"connect": true,
}

// OperationProcessingFailure is a structural problem found while walking the
// paths. Generation stops at the failing operation; cases added before it are
// kept.
type OperationProcessingFailure struct {
	Path     string
	Verb     string
	Response string
	Cause    error
}

func (f *OperationProcessingFailure) Error() string {
	var loc []string
	if f.Verb != "" {
		loc = append(loc, f.Verb)
	}
	if f.Path != "" {
		loc = append(loc, f.Path)
	}
	if f.Response != "" {
		loc = append(loc, f.Response)
	}
	if len(loc) == 0 {
		return f.Cause.Error()
	}
	return fmt.Sprintf("%s: %v", strings.Join(loc, ":"), f.Cause)
}

func (f *OperationProcessingFailure) Unwrap() error {
	return f.Cause
}

// Generator turns the operations of a document into cases
type Generator struct {
	Registry *suite.Registry
	Warnings diagnostics.Sink
	Log      Logger
	// Selector filters operations. Nil selects every operation.
	Selector *selector.Selector
}

// NewGenerator creates a generator adding cases to reg
func NewGenerator(reg *suite.Registry, warnings diagnostics.Sink, log Logger) *Generator {
	return &Generator{Registry: reg, Warnings: warnings, Log: log}
}

// Generate adds one case per documented response of every operation in doc
// and returns the number of cases added. A structural failure stops the walk
// and is returned with the count reached so far.
func (g *Generator) Generate(doc *parser.Document) (int, *OperationProcessingFailure) {
	if g.Log == nil {
		g.Log = discardLogger{}
	}
	if g.Warnings == nil {
		g.Warnings = discardSink{}
	}

	count, failure := g.walk(doc.Root)
	if failure != nil {
		g.Warnings.Record(Warning{Kind: ProcessFailure, Detail: failure.Error()})
		g.Log.Log(fmt.Sprintf("Process Failure: -error: %v", failure))
	}
	g.Log.Log(fmt.Sprintf("Processed %d test cases based on possible responses.", count))
	return count, failure
}

func (g *Generator) walk(root *yaml.Node) (int, *OperationProcessingFailure) {
	paths, _ := parser.Lookup(root, "paths")
	pathItems, err := pairs(paths)
	if err != nil {
		return 0, &OperationProcessingFailure{Cause: fmt.Errorf("paths: %w", err)}
	}

	count := 0
	for _, p := range pathItems {
		path := p.key
		operations, err := pairs(p.value)
		if err != nil {
			return count, &OperationProcessingFailure{Path: path, Cause: err}
		}

		for _, o := range operations {
			verb := o.key
			if !httpVerbs[strings.ToLower(verb)] {
				continue
			}
			n, failure := g.operation(path, verb, o.value)
			count += n
			if failure != nil {
				return count, failure
			}
		}
	}
	return count, nil
}

// operation emits the cases of one path item operation
func (g *Generator) operation(path, verb string, op *yaml.Node) (int, *OperationProcessingFailure) {
	fail := func(response string, err error) (int, *OperationProcessingFailure) {
		return 0, &OperationProcessingFailure{Path: path, Verb: verb, Response: response, Cause: err}
	}

	if op.Kind != yaml.MappingNode {
		return fail("", errors.New("operation is not a mapping"))
	}
	responsesNode, ok := parser.Lookup(op, "responses")
	if !ok || isNull(responsesNode) {
		return 0, nil
	}
	responses, err := pairs(responsesNode)
	if err != nil {
		return fail("", fmt.Errorf("responses: %w", err))
	}

	subject := verb + ":" + path
	info := describe(path, verb, op)

	if g.Selector != nil {
		selected, err := g.Selector.Match(info)
		if err != nil {
			g.Warnings.Record(Warning{Kind: SelectorFailed, Subject: subject, Detail: err.Error()})
		} else if !selected {
			return 0, nil
		}
	}

	key := g.group(info.Tags, subject)

	name := info.Summary
	if name == "" {
		name = key
	}
	if g.Registry.Ensure(key, name, scalar(op, "description")) {
		g.Log.Log("Short-Section#: " + name)
	}
	if info.Summary == "" {
		g.Warnings.Record(Warning{Kind: MissingSummary, Subject: subject})
	}
	if info.OperationID == "" {
		g.Warnings.Record(Warning{Kind: MissingOperationID, Subject: subject})
	}

	request := withoutKey(op, "responses")

	count := 0
	for _, r := range responses {
		if r.value.Kind != yaml.MappingNode {
			return count, &OperationProcessingFailure{
				Path: path, Verb: verb, Response: r.key,
				Cause: errors.New("response is not a mapping"),
			}
		}

		operation := content.Operation{
			Path:                path,
			Verb:                verb,
			OperationID:         info.OperationID,
			ResponseCode:        r.key,
			ResponseDescription: scalar(r.value, "description"),
			Request:             request,
			Response:            r.value,
		}
		text := content.Render(operation)

		c := suite.Case{
			Title:        operation.Title(),
			AutomationID: operation.AutomationID(),
			Fields: suite.Fields{
				TemplateID:    suite.TemplateID,
				Preconditions: text.Preconditions,
				Steps:         text.Steps,
				Expected:      text.Expected,
			},
		}
		if err := g.Registry.Add(key, c); err != nil {
			if errors.Is(err, suite.ErrDuplicateAutomationID) {
				g.Warnings.Record(Warning{Kind: DuplicateCase, Subject: subject, Detail: c.AutomationID})
				continue
			}
			return count, &OperationProcessingFailure{Path: path, Verb: verb, Response: r.key, Cause: err}
		}

		g.Log.Log(" ... " + c.Title)
		count++
	}
	return count, nil
}

// group picks the first operation tag that names a known section
func (g *Generator) group(tags []string, subject string) string {
	if len(tags) == 0 {
		g.Warnings.Record(Warning{Kind: MissingTags, Subject: subject})
		return suite.UntaggedKey
	}
	for _, tag := range tags {
		if g.Registry.Has(tag) {
			return tag
		}
	}
	g.Warnings.Record(Warning{Kind: UnmatchedTags, Subject: subject})
	return suite.UntaggedKey
}

// describe collects the operation metadata used for grouping and selection
func describe(path, verb string, op *yaml.Node) selector.Operation {
	info := selector.Operation{
		Path:        path,
		Verb:        verb,
		OperationID: scalar(op, "operationId"),
		Summary:     scalar(op, "summary"),
		Deprecated:  content.Truthy(lookup(op, "deprecated")),
	}
	if tags, ok := parser.Lookup(op, "tags"); ok && tags.Kind == yaml.SequenceNode {
		for _, t := range tags.Content {
			if t.Kind == yaml.ScalarNode {
				info.Tags = append(info.Tags, t.Value)
			}
		}
	}
	return info
}

type pair struct {
	key   string
	value *yaml.Node
}

// pairs lists the entries of a mapping in document order. A missing or null
// node is an empty mapping.
func pairs(n *yaml.Node) ([]pair, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, found %s", kindName(n))
	}
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, pair{key: n.Content[i].Value, value: n.Content[i+1]})
	}
	return out, nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return fmt.Sprintf("scalar %q", n.Value)
	}
	return "an unexpected node"
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	v, _ := parser.Lookup(n, key)
	return v
}

// scalar returns the value of a scalar entry, or "" when absent or null
func scalar(n *yaml.Node, key string) string {
	v, ok := parser.Lookup(n, key)
	if !ok || isNull(v) || v.Kind != yaml.ScalarNode {
		return ""
	}
	return v.Value
}

// withoutKey returns a shallow copy of mapping n without key
func withoutKey(n *yaml.Node, key string) *yaml.Node {
	out := *n
	out.Content = make([]*yaml.Node, 0, len(n.Content))
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			continue
		}
		out.Content = append(out.Content, n.Content[i], n.Content[i+1])
	}
	return &out
}
