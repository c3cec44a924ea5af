/*
Copyright 2024 openapi-suite-gen authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
*/

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans and metrics emitted by the converter
const InstrumentationName = "github.com/bluecontainer/openapi-suite-gen"

const (
	// CasesGenerated counts cases added to a suite
	CasesGenerated = "suitegen.cases.generated"
	// WarningsRecorded counts data-quality warnings
	WarningsRecorded = "suitegen.warnings.recorded"
)

// SpecVersionKey tags spans and counters with the matched OpenAPI version
var SpecVersionKey = attribute.Key("openapi.version")

// Instruments holds the tracer and counters used while parsing a document
type Instruments struct {
	Tracer   trace.Tracer
	Cases    metric.Int64Counter
	Warnings metric.Int64Counter
}

// NewInstruments creates instruments from the given providers
func NewInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(InstrumentationName)

	cases, err := meter.Int64Counter(CasesGenerated,
		metric.WithDescription("Number of test cases generated from OpenAPI responses"),
		metric.WithUnit("{case}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", CasesGenerated, err)
	}

	warnings, err := meter.Int64Counter(WarningsRecorded,
		metric.WithDescription("Number of data-quality warnings recorded"),
		metric.WithUnit("{warning}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", WarningsRecorded, err)
	}

	return &Instruments{
		Tracer:   tp.Tracer(InstrumentationName),
		Cases:    cases,
		Warnings: warnings,
	}, nil
}

// GlobalInstruments creates instruments from the global providers. They are
// no-ops until InitProvider has run.
func GlobalInstruments() (*Instruments, error) {
	return NewInstruments(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// Start opens a span named name. Nil instruments return a non-recording span.
func (i *Instruments) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if i == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return i.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordCases adds n generated cases
func (i *Instruments) RecordCases(ctx context.Context, n int, version string) {
	if i == nil {
		return
	}
	i.Cases.Add(ctx, int64(n), metric.WithAttributes(SpecVersionKey.String(version)))
}

// RecordWarnings adds n recorded warnings
func (i *Instruments) RecordWarnings(ctx context.Context, n int, version string) {
	if i == nil {
		return
	}
	i.Warnings.Add(ctx, int64(n), metric.WithAttributes(SpecVersionKey.String(version)))
}

// EndSpan records err on span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
