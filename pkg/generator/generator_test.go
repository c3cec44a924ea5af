package generator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/bluecontainer/openapi-suite-gen/pkg/diagnostics"
	"github.com/bluecontainer/openapi-suite-gen/pkg/parser"
	"github.com/bluecontainer/openapi-suite-gen/pkg/selector"
	"github.com/bluecontainer/openapi-suite-gen/pkg/suite"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Log(message string) {
	l.lines = append(l.lines, message)
}

func petstore(t *testing.T) *parser.Document {
	t.Helper()
	doc, err := parser.NewResolver().Resolve(context.Background(), filepath.Join("..", "parser", "testdata", "petstore_30.yaml"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return doc
}

// rawDocument builds a document without validation, for shapes a validator
// would reject
func rawDocument(t *testing.T, src string) *parser.Document {
	t.Helper()
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(src), &n); err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return &parser.Document{Root: n.Content[0]}
}

func warnings(buf *diagnostics.Buffer) []Warning {
	var out []Warning
	for _, m := range buf.Messages() {
		out = append(out, m.(Warning))
	}
	return out
}

func titles(sec suite.Section) []string {
	var out []string
	for _, c := range sec.Cases {
		out = append(out, c.Title)
	}
	return out
}

// =============================================================================
// BuildSections Tests
// =============================================================================

func TestBuildSections(t *testing.T) {
	doc := petstore(t)
	reg := suite.NewRegistry()
	buf := &diagnostics.Buffer{}
	log := &recordingLogger{}

	BuildSections(doc.Spec, reg, buf, log)

	if diff := cmp.Diff([]string{"untagged", "pet", "store", "General"}, reg.Keys()); diff != "" {
		t.Errorf("section keys mismatch (-want +got):\n%s", diff)
	}

	pet, _ := reg.Section("pet")
	if pet.Name != "Pets" {
		t.Errorf("pet section name = %q, expected display name override", pet.Name)
	}
	if pet.Description != "Everything about your Pets" {
		t.Errorf("pet section description = %q", pet.Description)
	}
	store, _ := reg.Section("store")
	if store.Name != "store" {
		t.Errorf("store section name = %q", store.Name)
	}

	expected := []Warning{{Kind: UnknownGroupTag, Subject: "General", Detail: "user"}}
	if diff := cmp.Diff(expected, warnings(buf)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if buf.Lines()[0] != "Tag user assigned not found!: tag-group General" {
		t.Errorf("warning text = %q", buf.Lines()[0])
	}

	expectedLog := []string{"Tag-Section#: Pets", "Tag-Section#: store", "Group-Section#: General", sectionSeparator}
	if diff := cmp.Diff(expectedLog, log.lines); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSectionsMalformedInput(t *testing.T) {
	spec := &openapi3.T{
		Tags: openapi3.Tags{
			{Description: "no name"},
			{Name: "a", Extensions: map[string]any{"x-displayName": "Alpha"}},
			{Name: "a", Description: "duplicate"},
			nil,
		},
		Extensions: map[string]any{
			"x-tagGroups": []any{
				"not a mapping",
				map[string]any{"name": "G", "tags": []any{"a", "zzz"}},
				map[string]any{"tags": []any{"a"}},
				map[string]any{"name": "H", "tags": "a"},
				map[string]any{"name": "I"},
			},
		},
	}

	reg := suite.NewRegistry()
	buf := &diagnostics.Buffer{}
	BuildSections(spec, reg, buf, nil)

	if diff := cmp.Diff([]string{"untagged", "null", "a", "G", "I"}, reg.Keys()); diff != "" {
		t.Errorf("section keys mismatch (-want +got):\n%s", diff)
	}
	a, _ := reg.Section("a")
	if a.Name != "Alpha" || a.Description != "" {
		t.Errorf("first tag entry should win, got %+v", a)
	}

	expected := []Warning{
		{Kind: MalformedTagGroup, Subject: "0"},
		{Kind: UnknownGroupTag, Subject: "G", Detail: "zzz"},
		{Kind: MalformedTagGroup, Subject: "2"},
		{Kind: MalformedTagGroup, Subject: "3"},
	}
	if diff := cmp.Diff(expected, warnings(buf)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSectionsWithoutMetadata(t *testing.T) {
	reg := suite.NewRegistry()
	BuildSections(&openapi3.T{}, reg, nil, nil)
	if diff := cmp.Diff([]string{"untagged"}, reg.Keys()); diff != "" {
		t.Errorf("section keys mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGeneratePetstore(t *testing.T) {
	doc := petstore(t)
	reg := suite.NewRegistry()
	BuildSections(doc.Spec, reg, nil, nil)

	buf := &diagnostics.Buffer{}
	log := &recordingLogger{}
	count, failure := NewGenerator(reg, buf, log).Generate(doc)
	if failure != nil {
		t.Fatalf("Generate() failure = %v", failure)
	}
	if count != 6 {
		t.Errorf("count = %d, expected 6", count)
	}

	out := reg.Assemble(doc.Title(), doc.Source)
	var names []string
	for _, sec := range out.Sections {
		names = append(names, sec.Name)
	}
	if diff := cmp.Diff([]string{"untagged", "Pets", "store"}, names); diff != "" {
		t.Errorf("section order mismatch (-want +got):\n%s", diff)
	}

	expectedTitles := [][]string{
		{"GET /ping -> 200 (ok)"},
		{
			"GET /pets -> 200 (A paged array of pets)",
			"GET /pets -> default (unexpected error)",
			"POST /pets -> 201 (Null response)",
		},
		{
			"GET /pets/{petId} -> 404 (not found)",
			"GET /pets/{petId} -> 200 (Expected response to a valid request)",
		},
	}
	for i, sec := range out.Sections {
		if diff := cmp.Diff(expectedTitles[i], titles(sec)); diff != "" {
			t.Errorf("section %q cases mismatch (-want +got):\n%s", sec.Name, diff)
		}
	}

	expected := []Warning{
		{Kind: MissingSummary, Subject: "get:/pets/{petId}"},
		{Kind: MissingTags, Subject: "get:/ping"},
		{Kind: MissingOperationID, Subject: "get:/ping"},
	}
	if diff := cmp.Diff(expected, warnings(buf)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}

	if last := log.lines[len(log.lines)-1]; last != "Processed 6 test cases based on possible responses." {
		t.Errorf("last log line = %q", last)
	}
}

func TestGenerateCaseFields(t *testing.T) {
	doc := petstore(t)
	reg := suite.NewRegistry()
	BuildSections(doc.Spec, reg, nil, nil)
	if _, failure := NewGenerator(reg, nil, nil).Generate(doc); failure != nil {
		t.Fatalf("Generate() failure = %v", failure)
	}

	pet, _ := reg.Section("pet")
	post := pet.Cases[2]
	if post.AutomationID != "/pets.POST.201" {
		t.Errorf("AutomationID = %q", post.AutomationID)
	}
	if post.Fields.TemplateID != suite.TemplateID {
		t.Errorf("TemplateID = %d", post.Fields.TemplateID)
	}
	if !strings.HasPrefix(post.Fields.Preconditions, "||| :WARNING\n|| ENDPOINT IS DEPRECATED\n") {
		t.Errorf("deprecated operation should start with banner:\n%s", post.Fields.Preconditions)
	}
	if !strings.Contains(post.Fields.Steps, "Request body schema\n=======\n") {
		t.Errorf("steps missing request body:\n%s", post.Fields.Steps)
	}
	if strings.Contains(post.Fields.Steps, "responses") {
		t.Errorf("responses leaked into steps:\n%s", post.Fields.Steps)
	}

	get := pet.Cases[0]
	if strings.Contains(get.Fields.Preconditions, "ENDPOINT IS DEPRECATED") {
		t.Errorf("non-deprecated operation has banner:\n%s", get.Fields.Preconditions)
	}
	if !strings.HasPrefix(get.Fields.Expected, "Response code\n=======\n200 (A paged array of pets)\n") {
		t.Errorf("unexpected expected field:\n%s", get.Fields.Expected)
	}
}

func TestGeneratePingScenario(t *testing.T) {
	doc := rawDocument(t, `
openapi: 3.0.0
info: {title: Ping, version: "1"}
paths:
  /ping:
    get:
      responses:
        "200": {description: ok}
        "404": {description: missing}
`)
	reg := suite.NewRegistry()
	BuildSections(nil, reg, nil, nil)

	count, failure := NewGenerator(reg, nil, nil).Generate(doc)
	if failure != nil || count != 2 {
		t.Fatalf("Generate() = %d, %v", count, failure)
	}

	out := reg.Assemble("Ping", "ping.yaml")
	if len(out.Sections) != 1 || out.Sections[0].Name != suite.UntaggedKey {
		t.Fatalf("expected only the untagged section, got %+v", out.Sections)
	}
	var ids []string
	for _, c := range out.Sections[0].Cases {
		ids = append(ids, c.AutomationID)
	}
	if diff := cmp.Diff([]string{"GET /ping -> 200 (ok)", "GET /ping -> 404 (missing)"}, titles(out.Sections[0])); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/ping.GET.200", "/ping.GET.404"}, ids); diff != "" {
		t.Errorf("automation ids mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateSkipsNonOperations(t *testing.T) {
	doc := rawDocument(t, `
paths:
  /items:
    summary: path level summary
    parameters:
      - {name: q, in: query}
    x-internal: true
    HEAD:
      responses:
        "200": {description: head}
    GET:
      responses:
        "200": {description: upper}
    delete:
      summary: no responses
  /empty: ~
`)
	reg := suite.NewRegistry()
	count, failure := NewGenerator(reg, nil, nil).Generate(doc)
	if failure != nil {
		t.Fatalf("Generate() failure = %v", failure)
	}
	if count != 1 {
		t.Fatalf("count = %d, expected 1", count)
	}
	sec, _ := reg.Section(suite.UntaggedKey)
	if sec.Cases[0].AutomationID != "/items.GET.200" {
		t.Errorf("AutomationID = %q", sec.Cases[0].AutomationID)
	}
}

func TestGenerateUnmatchedTags(t *testing.T) {
	doc := rawDocument(t, `
paths:
  /a:
    post:
      tags: [nowhere]
      summary: Create A
      operationId: createA
      description: creates
      responses:
        "201": {description: created}
`)
	reg := suite.NewRegistry()
	buf := &diagnostics.Buffer{}
	log := &recordingLogger{}
	if _, failure := NewGenerator(reg, buf, log).Generate(doc); failure != nil {
		t.Fatalf("Generate() failure = %v", failure)
	}

	expected := []Warning{{Kind: UnmatchedTags, Subject: "post:/a"}}
	if diff := cmp.Diff(expected, warnings(buf)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}

	// Without BuildSections the untagged section is created on demand.
	sec, ok := reg.Section(suite.UntaggedKey)
	if !ok || sec.Name != "Create A" || sec.Description != "creates" {
		t.Errorf("unexpected fallback section %+v", sec)
	}
	if log.lines[0] != "Short-Section#: Create A" {
		t.Errorf("log line = %q", log.lines[0])
	}
}

func TestGenerateDuplicateAutomationID(t *testing.T) {
	doc := rawDocument(t, `
paths:
  /dup:
    get:
      summary: lower
      operationId: lower
      responses:
        "200": {description: ok}
    Get:
      summary: mixed
      operationId: mixed
      responses:
        "200": {description: ok}
        "500": {description: boom}
`)
	reg := suite.NewRegistry()
	buf := &diagnostics.Buffer{}
	count, failure := NewGenerator(reg, buf, nil).Generate(doc)
	if failure != nil {
		t.Fatalf("Generate() failure = %v", failure)
	}
	if count != 2 {
		t.Errorf("count = %d, expected 2", count)
	}

	var dups []Warning
	for _, w := range warnings(buf) {
		if w.Kind == DuplicateCase {
			dups = append(dups, w)
		}
	}
	expected := []Warning{{Kind: DuplicateCase, Subject: "Get:/dup", Detail: "/dup.GET.200"}}
	if diff := cmp.Diff(expected, dups); diff != "" {
		t.Errorf("duplicate warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateStructuralFailure(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		count    int
		expected OperationProcessingFailure
	}{
		{
			name: "response is not a mapping",
			src: `
paths:
  /first:
    get:
      responses:
        "200": {description: ok}
  /second:
    get:
      responses:
        "200": {description: ok}
        "500": broken
  /third:
    get:
      responses:
        "200": {description: never reached}
`,
			count:    2,
			expected: OperationProcessingFailure{Path: "/second", Verb: "get", Response: "500"},
		},
		{
			name: "responses is a list",
			src: `
paths:
  /x:
    put:
      responses: [a]
`,
			expected: OperationProcessingFailure{Path: "/x", Verb: "put"},
		},
		{
			name: "path item is a scalar",
			src: `
paths:
  /x: nope
`,
			expected: OperationProcessingFailure{Path: "/x"},
		},
		{
			name:     "paths is a list",
			src:      "paths: [a, b]\n",
			expected: OperationProcessingFailure{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := suite.NewRegistry()
			buf := &diagnostics.Buffer{}
			log := &recordingLogger{}
			count, failure := NewGenerator(reg, buf, log).Generate(rawDocument(t, tt.src))
			if failure == nil {
				t.Fatal("expected a processing failure")
			}
			if count != tt.count || reg.CaseCount() != tt.count {
				t.Errorf("count = %d, registry = %d, expected %d", count, reg.CaseCount(), tt.count)
			}
			got := OperationProcessingFailure{Path: failure.Path, Verb: failure.Verb, Response: failure.Response}
			if got != tt.expected {
				t.Errorf("failure location = %+v, expected %+v", got, tt.expected)
			}

			msgs := warnings(buf)
			if last := msgs[len(msgs)-1]; last.Kind != ProcessFailure {
				t.Errorf("last warning = %+v, expected process failure", last)
			}
			found := false
			for _, line := range log.lines {
				if strings.HasPrefix(line, "Process Failure: -error: ") {
					found = true
				}
			}
			if !found {
				t.Errorf("process failure not logged: %v", log.lines)
			}
		})
	}
}

func TestGenerateWithSelector(t *testing.T) {
	tests := []struct {
		expression string
		count      int
	}{
		{`verb == "GET"`, 5},
		{`"pet" in tags`, 3},
		{`deprecated`, 1},
		{`operationId == ""`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			sel, err := selector.Compile(tt.expression)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			doc := petstore(t)
			reg := suite.NewRegistry()
			BuildSections(doc.Spec, reg, nil, nil)

			g := NewGenerator(reg, nil, nil)
			g.Selector = sel
			count, failure := g.Generate(doc)
			if failure != nil {
				t.Fatalf("Generate() failure = %v", failure)
			}
			if count != tt.count {
				t.Errorf("count = %d, expected %d", count, tt.count)
			}
		})
	}
}

func TestGenerateSelectorErrorKeepsOperation(t *testing.T) {
	sel, err := selector.Compile(`tags[0] == "pet"`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	doc := rawDocument(t, `
paths:
  /ping:
    get:
      summary: Ping
      operationId: ping
      responses:
        "200": {description: ok}
`)
	buf := &diagnostics.Buffer{}
	g := NewGenerator(suite.NewRegistry(), buf, nil)
	g.Selector = sel
	count, _ := g.Generate(doc)
	if count != 1 {
		t.Errorf("count = %d, expected the operation to be kept", count)
	}
	msgs := warnings(buf)
	if len(msgs) == 0 || msgs[0].Kind != SelectorFailed || msgs[0].Subject != "get:/ping" {
		t.Errorf("expected selector warning first, got %+v", msgs)
	}
}

// =============================================================================
// Warning and Failure Tests
// =============================================================================

func TestWarningString(t *testing.T) {
	tests := []struct {
		warning  Warning
		expected string
	}{
		{Warning{Kind: MissingTags, Subject: "get:/a"}, "<Tags> not found!: get:/a"},
		{Warning{Kind: UnmatchedTags, Subject: "get:/a"}, "<Tags> list does not match!: get:/a"},
		{Warning{Kind: MissingSummary, Subject: "get:/a"}, "Summary not found!: get:/a"},
		{Warning{Kind: MissingOperationID, Subject: "get:/a"}, "Operation Id not found!: get:/a"},
		{Warning{Kind: UnknownGroupTag, Subject: "G", Detail: "t"}, "Tag t assigned not found!: tag-group G"},
		{Warning{Kind: MalformedTagGroup, Subject: "3"}, "Tag-group entry #3 is malformed and was skipped"},
		{Warning{Kind: DuplicateCase, Subject: "get:/a", Detail: "/a.GET.200"}, "Duplicate automation id /a.GET.200 skipped: get:/a"},
		{Warning{Kind: ProcessFailure, Detail: "boom"}, "Process Failure: -error: boom"},
	}

	for _, tt := range tests {
		t.Run(string(tt.warning.Kind), func(t *testing.T) {
			if got := tt.warning.String(); got != tt.expected {
				t.Errorf("String() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestOperationProcessingFailure(t *testing.T) {
	cause := errors.New("response is not a mapping")
	f := &OperationProcessingFailure{Path: "/x", Verb: "get", Response: "500", Cause: cause}
	if f.Error() != "get:/x:500: response is not a mapping" {
		t.Errorf("Error() = %q", f.Error())
	}
	if !errors.Is(f, cause) {
		t.Error("failure should unwrap to its cause")
	}
	if (&OperationProcessingFailure{Cause: cause}).Error() != cause.Error() {
		t.Error("failure without location should print the cause only")
	}
}
