package obs

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps the process-wide otel tracer and its shutdown hook. There is
// no collector in this system to export spans to over the network, so the
// exporter is the stdouttrace exporter behind a batcher, writing to stderr:
// enough to inspect one process's dispatch spans locally without pulling in
// an OTLP endpoint nothing here talks to.
type Tracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// StartTracer builds a Tracer for component and installs it as the global
// propagator/provider.
func StartTracer(ctx context.Context, component string) (*Tracer, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("arcadehost-"+component)),
	)
	if err != nil {
		return nil, fmt.Errorf("obs: build resource: %w", err)
	}

	// Spans are written to stderr, so stdout carries only what the process
	// prints itself.
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("obs: build stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Tracer{tracer: tp.Tracer("arcadehost/" + component), shutdown: tp.Shutdown}, nil
}

// Span starts a span named name, for wrapping one dispatched action or one
// room tick-loop iteration.
func (t *Tracer) Span(ctx context.Context, name string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name)
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}
