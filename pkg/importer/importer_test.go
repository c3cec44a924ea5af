package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/bluecontainer/openapi-suite-gen/pkg/diagnostics"
	"github.com/bluecontainer/openapi-suite-gen/pkg/parser"
	"github.com/bluecontainer/openapi-suite-gen/pkg/selector"
	"github.com/bluecontainer/openapi-suite-gen/pkg/telemetry"
)

type testEnv struct {
	file  string
	lines []string
}

func (e *testEnv) File() string       { return e.file }
func (e *testEnv) Log(message string) { e.lines = append(e.lines, message) }

func fixture(name string) string {
	return filepath.Join("..", "parser", "testdata", name)
}

// copyFixture places a fixture in a temporary directory so diagnostics are
// written next to it
func copyFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(fixture(name))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// =============================================================================
// ParseFile Tests
// =============================================================================

func TestParseFilePetstore(t *testing.T) {
	env := &testEnv{file: fixture("petstore_30.yaml")}
	dest := diagnostics.NewMemoryDestination()

	suites, err := NewParser(env, WithDestination(dest)).ParseFile(context.Background(), false)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(suites) != 1 {
		t.Fatalf("expected exactly one suite, got %d", len(suites))
	}

	s := suites[0]
	if s.Name != "Swagger Petstore" || s.Source != "petstore_30.yaml" {
		t.Errorf("suite = %q from %q", s.Name, s.Source)
	}
	if s.CaseCount() != 6 {
		t.Errorf("CaseCount() = %d, expected 6", s.CaseCount())
	}

	ids := map[string]bool{}
	for _, sec := range s.Sections {
		if len(sec.Cases) == 0 {
			t.Errorf("empty section %q in suite", sec.Name)
		}
		for _, c := range sec.Cases {
			if ids[c.AutomationID] {
				t.Errorf("duplicate automation id %q", c.AutomationID)
			}
			ids[c.AutomationID] = true
		}
	}

	expected := []string{
		"Tag user assigned not found!: tag-group General",
		"Summary not found!: get:/pets/{petId}",
		"<Tags> not found!: get:/ping",
		"Operation Id not found!: get:/ping",
	}
	if diff := cmp.Diff(expected, dest.Lines(diagnostics.Warning)); diff != "" {
		t.Errorf("warning lines mismatch (-want +got):\n%s", diff)
	}
	if dest.Written(diagnostics.Data) || dest.Written(diagnostics.Error) {
		t.Error("only the warning channel should be written")
	}

	if env.lines[0] != "Parsing OpenAPI specification." {
		t.Errorf("first log line = %q", env.lines[0])
	}
	if last := env.lines[len(env.lines)-1]; last != "Processed 6 test cases based on possible responses." {
		t.Errorf("last log line = %q", last)
	}
}

func TestParseFileSaveData(t *testing.T) {
	env := &testEnv{file: fixture("ping_31.json")}
	dest := diagnostics.NewMemoryDestination()

	p := NewParser(env, WithDestination(dest))
	if _, err := p.ParseFile(context.Background(), true); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	expected := []string{
		"Ping API",
		"    1. untagged",
		"        1. GET /ping -> 200 (ok)",
		"        2. GET /ping -> 404 (missing)",
	}
	if diff := cmp.Diff(expected, dest.Lines(diagnostics.Data)); diff != "" {
		t.Errorf("data lines mismatch (-want +got):\n%s", diff)
	}
	if !p.Diagnostics().Flushed(diagnostics.Warning) {
		t.Error("warnings should be flushed after generation")
	}
}

func TestParseFileWritesFilesNextToSource(t *testing.T) {
	path := copyFixture(t, "ping_31.json")
	dir := filepath.Dir(path)

	if _, err := NewParser(&testEnv{file: path}).ParseFile(context.Background(), true); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	warnings, err := os.ReadFile(filepath.Join(dir, "warning", "ping_31.txt"))
	if err != nil {
		t.Fatalf("warning file not written: %v", err)
	}
	if string(warnings) != "<Tags> not found!: get:/ping\n" {
		t.Errorf("warning file = %q", warnings)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "ping_31.txt")); err != nil {
		t.Errorf("data file not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "error")); !os.IsNotExist(err) {
		t.Error("error directory should not exist after a successful parse")
	}
}

func TestParseFileRemovesStaleErrorLog(t *testing.T) {
	path := copyFixture(t, "ping_31.json")
	stale := filepath.Join(filepath.Dir(path), "error", "ping_31.log")
	if err := os.MkdirAll(filepath.Dir(stale), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("1. earlier failure\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewParser(&testEnv{file: path}).ParseFile(context.Background(), false); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("error log from an earlier run should be removed, stat error = %v", err)
	}
}

func TestParseFileMergeKeys(t *testing.T) {
	dest := diagnostics.NewMemoryDestination()
	env := &testEnv{file: fixture("merge_30.yaml")}

	suites, err := NewParser(env, WithDestination(dest)).ParseFile(context.Background(), false)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	var ids []string
	for _, sec := range suites[0].Sections {
		if sec.Name != "untagged" {
			t.Errorf("unexpected section %q", sec.Name)
		}
		for _, c := range sec.Cases {
			ids = append(ids, c.AutomationID)
		}
	}
	if diff := cmp.Diff([]string{"/status.GET.200", "/health.GET.500"}, ids); diff != "" {
		t.Errorf("case ids mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFileOpenAPI31Schemas(t *testing.T) {
	env := &testEnv{file: fixture("schema_31.yaml")}
	suites, err := NewParser(env, WithDestination(diagnostics.NewMemoryDestination())).
		ParseFile(context.Background(), false)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	s := suites[0]
	if len(s.Sections) != 1 || s.Sections[0].Name != "Stock" || s.CaseCount() != 1 {
		t.Fatalf("unexpected suite %+v", s.Sections)
	}
	expected := s.Sections[0].Cases[0].Fields.Expected
	for _, want := range []string{"exclusiveMinimum: 0", "- string", "- \"null\"", "example: 1.50"} {
		if !strings.Contains(expected, want) {
			t.Errorf("expected block missing %q:\n%s", want, expected)
		}
	}
}

func TestParseFileDiagnosticsDir(t *testing.T) {
	out := t.TempDir()
	env := &testEnv{file: fixture("ping_31.json")}

	if _, err := NewParser(env, WithDiagnosticsDir(out)).ParseFile(context.Background(), false); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "warning", "ping_31.txt")); err != nil {
		t.Errorf("warning file not written under diagnostics dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "data")); !os.IsNotExist(err) {
		t.Error("data directory should not exist when save is false")
	}
}

func TestParseFileIncompatible(t *testing.T) {
	path := copyFixture(t, "swagger_20.json")
	env := &testEnv{file: path}

	p := NewParser(env)
	suites, err := p.ParseFile(context.Background(), true)
	if !errors.Is(err, parser.ErrSpecIncompatible) {
		t.Fatalf("expected ErrSpecIncompatible, got %v", err)
	}
	if suites != nil {
		t.Errorf("expected no suites, got %d", len(suites))
	}

	dir := filepath.Dir(path)
	data, readErr := os.ReadFile(filepath.Join(dir, "error", "swagger_20.log"))
	if readErr != nil {
		t.Fatalf("error log not written: %v", readErr)
	}
	if !strings.HasPrefix(string(data), "1. ") || !strings.Contains(string(data), "OAS 3.0") {
		t.Errorf("unexpected error log:\n%s", data)
	}
	for _, ch := range []string{"warning", "data"} {
		if _, err := os.Stat(filepath.Join(dir, ch)); !os.IsNotExist(err) {
			t.Errorf("%s directory should not exist after a failed parse", ch)
		}
	}
}

func TestParseFileResolutionFailure(t *testing.T) {
	dest := diagnostics.NewMemoryDestination()
	env := &testEnv{file: fixture("circular.yaml")}

	_, err := NewParser(env, WithDestination(dest)).ParseFile(context.Background(), false)
	if !errors.Is(err, parser.ErrSpecResolution) {
		t.Fatalf("expected ErrSpecResolution, got %v", err)
	}
	lines := dest.Lines(diagnostics.Error)
	if len(lines) != 1 || !strings.Contains(lines[0], "circular") {
		t.Errorf("unexpected error lines %q", lines)
	}
}

func TestParseFileWithSelector(t *testing.T) {
	sel, err := selector.Compile(`"store" in tags`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	env := &testEnv{file: fixture("petstore_30.yaml")}

	suites, err := NewParser(env, WithSelector(sel), WithDestination(diagnostics.NewMemoryDestination())).
		ParseFile(context.Background(), false)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	s := suites[0]
	if len(s.Sections) != 1 || s.Sections[0].Name != "store" || s.CaseCount() != 2 {
		t.Errorf("unexpected filtered suite %+v", s.Sections)
	}
}

func TestParseFileTelemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	inst, err := telemetry.NewInstruments(tp, mp)
	if err != nil {
		t.Fatalf("NewInstruments() error = %v", err)
	}

	env := &testEnv{file: fixture("ping_31.json")}
	p := NewParser(env, WithInstruments(inst), WithDestination(diagnostics.NewMemoryDestination()))
	if _, err := p.ParseFile(context.Background(), false); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	if diff := cmp.Diff([]string{"resolve", "generate", "parse_file"}, names); diff != "" {
		t.Errorf("span names mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		file     string
		expected string
	}{
		{"specs/petstore.yaml", "petstore.yaml"},
		{"petstore.json", "petstore.json"},
		{"https://example.com/api/openapi.yaml?x=1", "openapi.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			if got := sourceName(tt.file); got != tt.expected {
				t.Errorf("sourceName(%q) = %q, expected %q", tt.file, got, tt.expected)
			}
		})
	}
}
