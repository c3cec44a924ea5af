package parser

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-openapi/jsonpointer"
	"gopkg.in/yaml.v3"
)

// MaxNestingDepth bounds the depth of the inlined document tree
const MaxNestingDepth = 512

// inliner replaces every $ref and YAML alias with a copy of its target.
// External documents and already expanded targets are cached for the
// lifetime of one resolution.
type inliner struct {
	read      func(*url.URL) ([]byte, error)
	documents map[string]*yaml.Node
	expanded  map[string]*yaml.Node
	resolving map[string]bool
}

func newInliner(read func(*url.URL) ([]byte, error)) *inliner {
	return &inliner{
		read:      read,
		documents: make(map[string]*yaml.Node),
		expanded:  make(map[string]*yaml.Node),
		resolving: make(map[string]bool),
	}
}

// register makes an already decoded document addressable by its location
func (in *inliner) register(location *url.URL, doc *yaml.Node) {
	in.documents[documentKey(location)] = doc
}

func (in *inliner) inline(n *yaml.Node, base *url.URL, depth int) error {
	if n == nil {
		return nil
	}
	if depth > MaxNestingDepth {
		return fmt.Errorf("document nested deeper than %d levels", MaxNestingDepth)
	}

	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if err := in.inline(c, base, depth+1); err != nil {
				return err
			}
		}

	case yaml.AliasNode:
		if n.Alias == nil {
			return fmt.Errorf("alias *%s has no anchor", n.Value)
		}
		key := fmt.Sprintf("alias:%p", n.Alias)
		if in.resolving[key] {
			return &ReferenceError{Ref: "*" + n.Value, Circular: true}
		}
		in.resolving[key] = true
		cp := deepCopy(n.Alias)
		err := in.inline(cp, base, depth+1)
		delete(in.resolving, key)
		if err != nil {
			return err
		}
		*n = *cp

	case yaml.MappingNode:
		if ref, ok := refOf(n); ok {
			return in.expand(n, ref, base, depth)
		}
		for i := 1; i < len(n.Content); i += 2 {
			if err := in.inline(n.Content[i], base, depth+1); err != nil {
				return err
			}
		}
		return mergeKeys(n)
	}
	return nil
}

// mergeKeys splices "<<" entries into mapping n, whose values are already
// inlined. Keys set on n win over merged keys, and earlier merge sources win
// over later ones.
func mergeKeys(n *yaml.Node) error {
	seen := make(map[string]bool)
	merging := false
	for i := 0; i+1 < len(n.Content); i += 2 {
		if isMergeKey(n.Content[i]) {
			merging = true
			continue
		}
		seen[n.Content[i].Value] = true
	}
	if !merging {
		return nil
	}

	content := make([]*yaml.Node, 0, len(n.Content))
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if !isMergeKey(key) {
			content = append(content, key, value)
			continue
		}

		sources := []*yaml.Node{value}
		if value.Kind == yaml.SequenceNode {
			sources = value.Content
		}
		for _, src := range sources {
			if src.Kind != yaml.MappingNode {
				return fmt.Errorf("merge value at line %d is not a mapping", src.Line)
			}
			for j := 0; j+1 < len(src.Content); j += 2 {
				k := src.Content[j].Value
				if seen[k] {
					continue
				}
				seen[k] = true
				content = append(content, src.Content[j], src.Content[j+1])
			}
		}
	}
	n.Content = content
	return nil
}

// isMergeKey reports whether k is an untagged or !!merge "<<" key
func isMergeKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.Value == "<<" &&
		(k.Tag == "" || k.Tag == "!" || k.ShortTag() == "!!merge")
}

func (in *inliner) expand(n *yaml.Node, ref string, base *url.URL, depth int) error {
	refURL, err := url.Parse(ref)
	if err != nil {
		return &ReferenceError{Ref: ref, Cause: err}
	}
	location := base.ResolveReference(refURL)
	fragment := location.Fragment
	location.Fragment = ""
	key := location.String() + "#" + fragment

	if cached, ok := in.expanded[key]; ok {
		*n = *deepCopy(cached)
		return nil
	}
	if in.resolving[key] {
		return &ReferenceError{Ref: ref, Circular: true}
	}

	doc, err := in.document(location)
	if err != nil {
		return &ReferenceError{Ref: ref, Cause: err}
	}
	target, err := resolvePointer(doc, fragment)
	if err != nil {
		return &ReferenceError{Ref: ref, Cause: err}
	}

	in.resolving[key] = true
	cp := deepCopy(target)
	err = in.inline(cp, location, depth+1)
	delete(in.resolving, key)
	if err != nil {
		return err
	}

	in.expanded[key] = cp
	*n = *deepCopy(cp)
	return nil
}

// document returns the decoded document at location, reading it on first use
func (in *inliner) document(location *url.URL) (*yaml.Node, error) {
	key := documentKey(location)
	if doc, ok := in.documents[key]; ok {
		return doc, nil
	}

	data, err := in.read(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	doc, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	in.documents[key] = doc
	return doc, nil
}

func documentKey(location *url.URL) string {
	u := *location
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// decode parses JSON or YAML into a node tree
func decode(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if follow(&doc) == nil {
		return nil, fmt.Errorf("document is empty")
	}
	return &doc, nil
}

// refOf returns the $ref string of a reference object
func refOf(n *yaml.Node) (string, bool) {
	v, ok := Lookup(n, "$ref")
	if !ok || v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
		return "", false
	}
	return v.Value, true
}

// resolvePointer walks a JSON pointer fragment through a node tree
func resolvePointer(doc *yaml.Node, fragment string) (*yaml.Node, error) {
	p, err := jsonpointer.New(fragment)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON pointer %q: %w", fragment, err)
	}

	cur := follow(doc)
	for _, token := range p.DecodedTokens() {
		cur = follow(cur)
		if cur == nil {
			return nil, fmt.Errorf("reference not found: %s", fragment)
		}
		switch cur.Kind {
		case yaml.MappingNode:
			next, ok := Lookup(cur, token)
			if !ok {
				return nil, fmt.Errorf("reference not found: %s (missing key: %s)", fragment, token)
			}
			cur = next
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(cur.Content) {
				return nil, fmt.Errorf("reference not found: %s (invalid index: %s)", fragment, token)
			}
			cur = cur.Content[idx]
		default:
			return nil, fmt.Errorf("reference not found: %s (cannot traverse scalar at %s)", fragment, token)
		}
	}
	if cur == nil {
		return nil, fmt.Errorf("reference not found: %s", fragment)
	}
	return cur, nil
}

func deepCopy(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	cp := *n
	if len(n.Content) > 0 {
		cp.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			cp.Content[i] = deepCopy(c)
		}
	}
	return &cp
}
