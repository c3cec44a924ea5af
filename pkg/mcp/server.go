package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bluecontainer/openapi-suite-gen/pkg/diagnostics"
	"github.com/bluecontainer/openapi-suite-gen/pkg/importer"
	"github.com/bluecontainer/openapi-suite-gen/pkg/parser"
	"github.com/bluecontainer/openapi-suite-gen/pkg/selector"
	"github.com/bluecontainer/openapi-suite-gen/pkg/suite"
)

// NewServer creates an MCP server with validate, parse and show_case tools.
func NewServer(version, commit, date string) *server.MCPServer {
	s := server.NewMCPServer(
		"openapi-suite-gen",
		version,
	)

	h := &handlers{
		version: version,
		commit:  commit,
		date:    date,
	}

	s.AddTool(validateTool, h.handleValidate)
	s.AddTool(parseTool, h.handleParse)
	s.AddTool(showCaseTool, h.handleShowCase)

	s.AddPrompt(planTestsPrompt, h.handlePlanTestsPrompt)

	return s
}

// Tool definitions

var validateTool = mcp.NewTool("validate",
	mcp.WithDescription("Resolve all references in an OpenAPI document and check it against the OpenAPI 3.0 and 3.1 schemas. Reports the matched version, or why each version was rejected. Swagger 2.0 documents are never compatible."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("spec",
		mcp.Required(),
		mcp.Description("Path or URL to the OpenAPI specification file"),
	),
)

var parseTool = mcp.NewTool("parse",
	mcp.WithDescription("Convert an OpenAPI document into a test suite and show its outline: sections with the title and automation id of every case, followed by the data-quality warnings found. No files are written."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("spec",
		mcp.Required(),
		mcp.Description("Path or URL to the OpenAPI specification file"),
	),
	mcp.WithString("filter",
		mcp.Description(`CEL expression selecting operations, e.g. verb == "GET" && !deprecated. Variables: path, verb, operationId, summary, tags, deprecated`),
	),
)

var showCaseTool = mcp.NewTool("show_case",
	mcp.WithDescription("Show the preconditions, steps and expected result generated for one test case."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("spec",
		mcp.Required(),
		mcp.Description("Path or URL to the OpenAPI specification file"),
	),
	mcp.WithString("automation_id",
		mcp.Required(),
		mcp.Description("Automation id of the case, {path}.{VERB}.{response code}, e.g. /pets.GET.200"),
	),
)

var planTestsPrompt = mcp.NewPrompt("plan-tests",
	mcp.WithPromptDescription("Walk through turning an OpenAPI spec into a test plan: check compatibility, review the generated suite and fix the data-quality warnings in the spec."),
	mcp.WithArgument("spec",
		mcp.ArgumentDescription("Path or URL to the OpenAPI specification file"),
		mcp.RequiredArgument(),
	),
)

// handlers holds version info and implements the MCP tool handlers.
type handlers struct {
	version string
	commit  string
	date    string
}

// toolEnv collects progress lines instead of printing them; stdout carries
// the MCP protocol.
type toolEnv struct {
	file  string
	lines []string
}

func (e *toolEnv) File() string { return e.file }

func (e *toolEnv) Log(message string) { e.lines = append(e.lines, message) }

// handleValidate resolves a document and reports the matched version.
func (h *handlers) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specPath := mcp.ParseString(req, "spec", "")
	if specPath == "" {
		return mcp.NewToolResultError("'spec' parameter is required"), nil
	}

	doc, err := parser.NewResolver().Resolve(ctx, specPath)
	if err != nil {
		var incompatible *parser.SpecIncompatibleError
		if errors.As(err, &incompatible) {
			var b strings.Builder
			b.WriteString("OpenAPI Specification: Not compatible\n\n")
			for _, a := range incompatible.Outcome.Attempts {
				fmt.Fprintf(&b, "  %s: %v\n", a.Version, a.Err)
			}
			return mcp.NewToolResultText(b.String()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve OpenAPI spec: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("OpenAPI Specification: Compatible\n\n")
	fmt.Fprintf(&b, "  Version:    %s\n", doc.Version)
	if title := doc.Title(); title != "" {
		fmt.Fprintf(&b, "  Title:      %s\n", title)
	}
	fmt.Fprintf(&b, "  Paths:      %d\n", doc.PathCount())
	if doc.Spec != nil {
		fmt.Fprintf(&b, "  Tags:       %d\n", len(doc.Spec.Tags))
	}
	fmt.Fprintf(&b, "\nChecked by openapi-suite-gen %s (commit %s, built %s)\n", h.version, h.commit, h.date)

	return mcp.NewToolResultText(b.String()), nil
}

// handleParse converts a document and returns the suite outline.
func (h *handlers) handleParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specPath := mcp.ParseString(req, "spec", "")
	if specPath == "" {
		return mcp.NewToolResultError("'spec' parameter is required"), nil
	}

	var sel *selector.Selector
	if filter := mcp.ParseString(req, "filter", ""); filter != "" {
		var err error
		if sel, err = selector.Compile(filter); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid filter: %v", err)), nil
		}
	}

	s, warnings, err := parseSuite(ctx, specPath, sel)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Not compatible: %v", err)), nil
	}

	var b strings.Builder
	formatSuite(&b, s)
	if len(warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}

// handleShowCase returns the rendered fields of a single case.
func (h *handlers) handleShowCase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specPath := mcp.ParseString(req, "spec", "")
	if specPath == "" {
		return mcp.NewToolResultError("'spec' parameter is required"), nil
	}
	id := mcp.ParseString(req, "automation_id", "")
	if id == "" {
		return mcp.NewToolResultError("'automation_id' parameter is required"), nil
	}

	s, _, err := parseSuite(ctx, specPath, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Not compatible: %v", err)), nil
	}

	for _, sec := range s.Sections {
		for _, c := range sec.Cases {
			if c.AutomationID != id {
				continue
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%s\n", c.Title)
			fmt.Fprintf(&b, "Section: %s\n", sec.Name)
			fmt.Fprintf(&b, "Automation id: %s\n", c.AutomationID)
			fmt.Fprintf(&b, "\n--- Preconditions ---\n%s", c.Fields.Preconditions)
			fmt.Fprintf(&b, "\n--- Steps ---\n%s", c.Fields.Steps)
			fmt.Fprintf(&b, "\n--- Expected ---\n%s", c.Fields.Expected)
			return mcp.NewToolResultText(b.String()), nil
		}
	}

	return mcp.NewToolResultError(fmt.Sprintf("No case with automation id %q", id)), nil
}

// handlePlanTestsPrompt returns instructions for the validate, parse and
// review workflow.
func (h *handlers) handlePlanTestsPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	spec := req.Params.Arguments["spec"]

	text := fmt.Sprintf(`I want to turn an OpenAPI specification into a test plan.

The OpenAPI spec is at: %s

Follow these steps:

1. **Validate** the spec using the validate tool. If it is not compatible, explain each rejected version and stop.

2. **Parse** the spec using the parse tool. Show me the sections and how many cases each has.

3. **Review the warnings.** Group them by kind (missing tags, unmatched tags, missing summary, missing operationId, unknown tag-group tags) and suggest the spec edits that would fix them.

4. **Inspect** one or two representative cases with the show_case tool, for example a deprecated operation or one with a request body, and point out anything in the rendered text that looks wrong.`, spec)

	return mcp.NewGetPromptResult(
		"Plan tests from an OpenAPI spec",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(text),
			),
		},
	), nil
}

// parseSuite runs a parse with diagnostics kept in memory
func parseSuite(ctx context.Context, specPath string, sel *selector.Selector) (suite.Suite, []string, error) {
	dest := diagnostics.NewMemoryDestination()
	p := importer.NewParser(&toolEnv{file: specPath},
		importer.WithDestination(dest),
		importer.WithSelector(sel),
	)

	suites, err := p.ParseFile(ctx, false)
	if err != nil {
		return suite.Suite{}, nil, err
	}
	return suites[0], dest.Lines(diagnostics.Warning), nil
}

func formatSuite(b *strings.Builder, s suite.Suite) {
	fmt.Fprintf(b, "Suite: %s\n", s.Name)
	fmt.Fprintf(b, "Source: %s\n", s.Source)
	fmt.Fprintf(b, "Cases: %d\n", s.CaseCount())

	for _, sec := range s.Sections {
		fmt.Fprintf(b, "\n%s (%d)\n", sec.Name, len(sec.Cases))
		if sec.Description != "" {
			fmt.Fprintf(b, "  %s\n", sec.Description)
		}
		for _, c := range sec.Cases {
			fmt.Fprintf(b, "  - %s  [%s]\n", c.Title, c.AutomationID)
		}
	}
}
