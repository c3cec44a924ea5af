// Package selector filters operations with a CEL boolean expression, e.g.
//
//	verb == "GET" && !deprecated
//	"pet" in tags || path.startsWith("/store")
package selector

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Operation is the data an expression can see
type Operation struct {
	Path        string
	Verb        string
	OperationID string
	Summary     string
	Tags        []string
	Deprecated  bool
}

// Variables builds the activation for an operation. The verb is upper-cased
// and tags are never nil.
func (op Operation) Variables() map[string]any {
	tags := op.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"path":        op.Path,
		"verb":        strings.ToUpper(op.Verb),
		"operationId": op.OperationID,
		"summary":     op.Summary,
		"tags":        tags,
		"deprecated":  op.Deprecated,
	}
}

// NewEnvironment creates the CEL environment expressions are compiled in.
// Variables:
//   - path, verb, operationId, summary: string
//   - tags: list of strings
//   - deprecated: bool
func NewEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("path", cel.StringType),
		cel.Variable("verb", cel.StringType),
		cel.Variable("operationId", cel.StringType),
		cel.Variable("summary", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("deprecated", cel.BoolType),
	)
}

// Selector is a compiled expression. A nil Selector selects everything.
type Selector struct {
	expression string
	program    cel.Program
}

// Compile checks and plans an expression. Expressions that do not produce a
// boolean are rejected.
func Compile(expression string) (*Selector, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}
	return &Selector{expression: expression, program: prg}, nil
}

// Expression returns the source expression
func (s *Selector) Expression() string {
	if s == nil {
		return ""
	}
	return s.expression
}

// Match evaluates the expression for op
func (s *Selector) Match(op Operation) (bool, error) {
	if s == nil {
		return true, nil
	}

	out, _, err := s.program.Eval(op.Variables())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, expected bool", out.Value())
	}
	return b, nil
}
