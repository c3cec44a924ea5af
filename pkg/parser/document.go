package parser

import (
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Version names an OpenAPI schema generation
type Version string

const (
	// OAS30 is OpenAPI 3.0.x
	OAS30 Version = "OAS 3.0"
	// OAS31 is OpenAPI 3.1.x
	OAS31 Version = "OAS 3.1"
)

// Document is a fully inlined, validated OpenAPI document
type Document struct {
	// Source is the path or URL the document was loaded from
	Source string
	// Version is the schema generation the document validated against
	Version Version
	// Root is the inlined document as a mapping node, keys in source order
	Root *yaml.Node
	// Spec is the typed view of the same document. For OAS 3.1 it only holds
	// info, tags and root extensions.
	Spec *openapi3.T
}

// Title returns info.title, or an empty string when info is missing
func (d *Document) Title() string {
	if d.Spec == nil || d.Spec.Info == nil {
		return ""
	}
	return d.Spec.Info.Title
}

// PathCount returns the number of path items under paths. Documents without
// paths (3.1 webhook-only documents) have none.
func (d *Document) PathCount() int {
	paths, ok := Lookup(d.Root, "paths")
	if !ok || paths.Kind != yaml.MappingNode {
		return 0
	}
	return len(paths.Content) / 2
}

// Lookup returns the value stored under key in mapping node n
func Lookup(n *yaml.Node, key string) (*yaml.Node, bool) {
	n = follow(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1], true
		}
	}
	return nil, false
}

// follow unwraps document and alias nodes
func follow(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}
