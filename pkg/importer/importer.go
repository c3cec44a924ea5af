// Package importer converts one OpenAPI document into a test suite.
package importer

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bluecontainer/openapi-suite-gen/pkg/diagnostics"
	"github.com/bluecontainer/openapi-suite-gen/pkg/generator"
	"github.com/bluecontainer/openapi-suite-gen/pkg/parser"
	"github.com/bluecontainer/openapi-suite-gen/pkg/selector"
	"github.com/bluecontainer/openapi-suite-gen/pkg/suite"
	"github.com/bluecontainer/openapi-suite-gen/pkg/telemetry"
)

// Environment is the application the parser runs in
type Environment interface {
	// File is the path or URL of the document to parse
	File() string
	// Log writes an application progress line
	Log(message string)
}

// Option configures a Parser
type Option func(*Parser)

// WithResolver replaces the default resolver
func WithResolver(r *parser.Resolver) Option {
	return func(p *Parser) { p.resolver = r }
}

// WithSelector restricts generation to operations matching s
func WithSelector(s *selector.Selector) Option {
	return func(p *Parser) { p.selector = s }
}

// WithDestination sends diagnostics to dest instead of files next to the document
func WithDestination(dest diagnostics.Destination) Option {
	return func(p *Parser) { p.destination = dest }
}

// WithDiagnosticsDir writes diagnostic files under dir instead of the
// document's directory
func WithDiagnosticsDir(dir string) Option {
	return func(p *Parser) { p.diagnosticsDir = dir }
}

// WithInstruments records spans and counters through inst
func WithInstruments(inst *telemetry.Instruments) Option {
	return func(p *Parser) { p.instruments = inst }
}

// Parser runs resolution, section building and case generation for the
// document named by its environment. A Parser handles one call at a time.
type Parser struct {
	env            Environment
	resolver       *parser.Resolver
	selector       *selector.Selector
	destination    diagnostics.Destination
	diagnosticsDir string
	instruments    *telemetry.Instruments

	diagnostics *diagnostics.Log
}

// NewParser creates a parser for env
func NewParser(env Environment, opts ...Option) *Parser {
	p := &Parser{env: env}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolver == nil {
		p.resolver = parser.NewResolver()
	}
	if p.instruments == nil {
		// Global instruments are no-ops until a provider is installed.
		if inst, err := telemetry.GlobalInstruments(); err == nil {
			p.instruments = inst
		}
	}
	return p
}

// Diagnostics returns the log of the most recent ParseFile call
func (p *Parser) Diagnostics() *diagnostics.Log {
	return p.diagnostics
}

// ParseFile converts the environment's document into a single suite. When
// save is set, the suite outline is written to the data channel.
//
// Resolution and compatibility failures are written to the error channel
// before being returned. Structural problems found while generating cases
// are recorded as warnings and the suite is built from what was generated.
func (p *Parser) ParseFile(ctx context.Context, save bool) (suites []suite.Suite, err error) {
	file := p.env.File()
	log := diagnostics.NewLog(p.destinationFor(file))
	p.diagnostics = log

	ctx, span := p.instruments.Start(ctx, "parse_file", attribute.String("openapi.source", file))
	defer func() { telemetry.EndSpan(span, err) }()

	p.env.Log("Parsing OpenAPI specification.")
	if err := log.Clear(diagnostics.Error); err != nil {
		p.env.Log(err.Error())
	}

	doc, err := p.resolve(ctx, file)
	if err != nil {
		log.Errors().Add(err, 1, 1)
		p.flush(log, diagnostics.Error)
		return nil, err
	}
	version := string(doc.Version)
	span.SetAttributes(telemetry.SpecVersionKey.String(version))

	reg := suite.NewRegistry()
	count := p.generate(ctx, doc, reg, log)
	p.instruments.RecordCases(ctx, count, version)
	p.instruments.RecordWarnings(ctx, log.Warnings().Len(), version)
	p.flush(log, diagnostics.Warning)

	result := reg.Assemble(doc.Title(), sourceName(file))
	if save {
		dump(log.Data(), result)
		p.flush(log, diagnostics.Data)
	}
	return []suite.Suite{result}, nil
}

func (p *Parser) resolve(ctx context.Context, file string) (doc *parser.Document, err error) {
	ctx, span := p.instruments.Start(ctx, "resolve")
	defer func() { telemetry.EndSpan(span, err) }()

	doc, err = p.resolver.Resolve(ctx, file)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.SpecVersionKey.String(string(doc.Version)))
	return doc, nil
}

func (p *Parser) generate(ctx context.Context, doc *parser.Document, reg *suite.Registry, log *diagnostics.Log) int {
	_, span := p.instruments.Start(ctx, "generate", telemetry.SpecVersionKey.String(string(doc.Version)))

	generator.BuildSections(doc.Spec, reg, log.Warnings(), p.env)
	g := generator.NewGenerator(reg, log.Warnings(), p.env)
	g.Selector = p.selector
	count, failure := g.Generate(doc)

	var err error
	if failure != nil {
		err = failure
	}
	telemetry.EndSpan(span, err)
	return count
}

// flush writes one channel; write failures are reported through the
// environment and never fail the parse
func (p *Parser) flush(log *diagnostics.Log, ch diagnostics.Channel) {
	if err := log.Flush(ch); err != nil {
		p.env.Log(fmt.Sprintf("Failed to write %s log: %v", ch, err))
	}
}

func (p *Parser) destinationFor(file string) diagnostics.Destination {
	if p.destination != nil {
		return p.destination
	}
	source := file
	if isRemote(file) {
		// Remote documents have no sibling directory; use the working directory.
		source = sourceName(file)
	}
	return diagnostics.NewFileDestination(source, p.diagnosticsDir)
}

// dump writes the suite outline: the suite at level 1, sections at level 2
// and cases at level 3, numbered within their parent
func dump(buf *diagnostics.Buffer, s suite.Suite) {
	buf.Add(s.Name, 1, 0)
	for i, sec := range s.Sections {
		buf.Add(sec.Name, 2, i+1)
		for j, c := range sec.Cases {
			buf.Add(c.Title, 3, j+1)
		}
	}
}

func isRemote(file string) bool {
	u, err := url.Parse(file)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// sourceName returns the file name of a path or URL
func sourceName(file string) string {
	if isRemote(file) {
		u, _ := url.Parse(file)
		return path.Base(u.Path)
	}
	return filepath.Base(file)
}
