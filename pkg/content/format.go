// Package content renders OpenAPI fragments into the fixed-format text
// blocks used as test case fields.
package content

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

const (
	// Underline separates a block title from its body
	Underline = "======="
	// DeprecationBanner opens the preconditions of deprecated operations
	DeprecationBanner = "||| :WARNING\n|| ENDPOINT IS DEPRECATED\n"

	bodyIndent = "    "
)

// Block renders a titled block. Text fragments are embedded verbatim;
// anything else is dumped as canonical YAML indented by four spaces.
func Block(title string, fragment *yaml.Node) string {
	var b strings.Builder
	writeHeader(&b, title)

	if IsText(fragment) {
		b.WriteString(fragment.Value)
		b.WriteString("\n")
		return b.String()
	}

	for _, line := range strings.SplitAfter(Dump(fragment), "\n") {
		if line == "" {
			continue
		}
		b.WriteString(bodyIndent)
		b.WriteString(line)
	}
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func writeHeader(b *strings.Builder, title string) {
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(Underline)
	b.WriteString("\n")
}

// IsText reports whether the fragment is a string scalar
func IsText(n *yaml.Node) bool {
	n = unwrap(n)
	return n != nil && n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

// Dump serializes a fragment as YAML with sorted mapping keys and two-space
// indentation, independent of the key order and layout of the source
// document. Scalar text is kept as written.
func Dump(n *yaml.Node) string {
	n = unwrap(n)
	if n == nil {
		return "null\n"
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(canonical(n)); err != nil {
		return n.Value + "\n"
	}
	_ = enc.Close()
	return buf.String()
}

// canonical copies n in block layout with mapping keys in natural order.
// Quoting is dropped; the encoder quotes strings that would otherwise read
// as another type.
func canonical(n *yaml.Node) *yaml.Node {
	n = unwrap(n)
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	cp := *n
	cp.Style &= yaml.LiteralStyle | yaml.FoldedStyle
	cp.Anchor = ""
	cp.HeadComment, cp.LineComment, cp.FootComment = "", "", ""

	switch n.Kind {
	case yaml.SequenceNode:
		cp.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			cp.Content[i] = canonical(c)
		}
	case yaml.MappingNode:
		type pair struct{ key, value *yaml.Node }
		pairs := make([]pair, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, pair{canonical(n.Content[i]), canonical(n.Content[i+1])})
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return naturalLess(pairs[i].key.Value, pairs[j].key.Value)
		})
		cp.Content = make([]*yaml.Node, 0, len(n.Content))
		for _, p := range pairs {
			cp.Content = append(cp.Content, p.key, p.value)
		}
	}
	return &cp
}

// naturalLess orders strings rune by rune, comparing runs of digits by
// numeric value so "2" sorts before "10".
func naturalLess(a, b string) bool {
	ar, br := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			si, sj := i, j
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			x := strings.TrimLeft(string(ar[si:i]), "0")
			y := strings.TrimLeft(string(br[sj:j]), "0")
			if len(x) != len(y) {
				return len(x) < len(y)
			}
			if x != y {
				return x < y
			}
			continue
		}
		if ar[i] != br[j] {
			return ar[i] < br[j]
		}
		i++
		j++
	}
	return len(ar)-i < len(br)-j
}

// Truthy reports whether a fragment counts as present: null, false, zero,
// empty strings and empty collections do not.
func Truthy(n *yaml.Node) bool {
	n = unwrap(n)
	if n == nil {
		return false
	}

	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return len(n.Content) > 0
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return false
		case "!!bool":
			var v bool
			if err := n.Decode(&v); err != nil {
				return true
			}
			return v
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(strings.ReplaceAll(n.Value, "_", ""), 64)
			if err != nil {
				return true
			}
			return f != 0
		case "!!str":
			return n.Value != ""
		}
	}
	return true
}

func unwrap(n *yaml.Node) *yaml.Node {
	for n != nil && (n.Kind == yaml.DocumentNode || n.Kind == yaml.AliasNode) {
		if n.Kind == yaml.DocumentNode {
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		} else {
			n = n.Alias
		}
	}
	return n
}
