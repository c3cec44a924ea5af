package content

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Operation is one (path, verb, response) triple ready to be rendered
type Operation struct {
	Path                string
	Verb                string
	OperationID         string
	ResponseCode        string
	ResponseDescription string
	// Request is the operation object without its responses
	Request *yaml.Node
	// Response is the response object for ResponseCode
	Response *yaml.Node
}

// Text holds the rendered case fields
type Text struct {
	Preconditions string
	Steps         string
	Expected      string
}

// Method returns the upper-cased HTTP verb
func (op Operation) Method() string {
	return strings.ToUpper(op.Verb)
}

// Title returns "{VERB} {path} -> {code}" with the response description
// appended in parentheses when present
func (op Operation) Title() string {
	title := op.Method() + " " + op.Path + " -> " + op.ResponseCode
	if op.ResponseDescription != "" {
		title += " (" + op.ResponseDescription + ")"
	}
	return title
}

// AutomationID returns "{path}.{VERB}.{code}"
func (op Operation) AutomationID() string {
	return op.Path + "." + op.Method() + "." + op.ResponseCode
}

// Render produces all case fields of the operation
func Render(op Operation) Text {
	return Text{
		Preconditions: Preconditions(op),
		Steps:         Steps(op),
		Expected:      Expected(op),
	}
}

// Preconditions renders the deprecation banner followed by the Summary,
// Description and External Docs blocks
func Preconditions(op Operation) string {
	d := newDetails(op.Request)

	var b strings.Builder
	if Truthy(d.get("deprecated")) {
		b.WriteString(DeprecationBanner)
	}
	d.emit(&b, "summary", "Summary")
	d.emit(&b, "description", "Description")
	d.emit(&b, "externalDocs", "External Docs")
	return b.String()
}

// Steps renders the request line followed by the Parameters, Request body
// schema and Security blocks
func Steps(op Operation) string {
	d := newDetails(op.Request)

	var b strings.Builder
	writeHeader(&b, "Request")
	b.WriteString(bodyIndent + op.Method() + " " + op.Path + "\n")
	d.emit(&b, "parameters", "Parameters")
	d.emit(&b, "requestBody", "Request body schema")
	d.emit(&b, "security", "Security")
	return b.String()
}

// Expected renders the response code line followed by the Response content block
func Expected(op Operation) string {
	d := newDetails(op.Response)

	var b strings.Builder
	writeHeader(&b, "Response code")
	b.WriteString(op.ResponseCode)
	if op.ResponseDescription != "" {
		b.WriteString(" (" + op.ResponseDescription + ")")
	}
	b.WriteString("\n")
	d.emit(&b, "content", "Response content")
	return b.String()
}

// details is a working copy of a mapping fragment; emitted keys are removed
// so no key renders twice within one field.
type details struct {
	values map[string]*yaml.Node
}

func newDetails(n *yaml.Node) *details {
	d := &details{values: make(map[string]*yaml.Node)}
	n = unwrap(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return d
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		d.values[n.Content[i].Value] = n.Content[i+1]
	}
	return d
}

func (d *details) get(key string) *yaml.Node {
	return d.values[key]
}

func (d *details) emit(b *strings.Builder, key, title string) {
	v, ok := d.values[key]
	if !ok || !Truthy(v) {
		return
	}
	b.WriteString(Block(title, v))
	delete(d.values, key)
}
