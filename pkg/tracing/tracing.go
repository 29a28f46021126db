// Package tracing wraps the OpenTelemetry tracer used by the store and its
// repository. Until Setup runs every span is a no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	AttrConfigKey       = attribute.Key("clover.config.key")
	AttrDocumentVersion = attribute.Key("clover.document.version")
	AttrExpectedVersion = attribute.Key("clover.document.expected_version")
)

var tracer trace.Tracer = noop.NewTracerProvider().Tracer("clover")

// SetTracer replaces the package tracer.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a child span of whatever span ctx carries.
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// ConfigKey tags a span with the document key.
func ConfigKey(key string) attribute.KeyValue {
	return AttrConfigKey.String(key)
}

// DocumentVersion tags a span with the version that was read or written.
func DocumentVersion(span trace.Span, version int) {
	span.SetAttributes(AttrDocumentVersion.Int(version))
}

// RecordError marks the span as failed.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID returns the trace id of the span on ctx, or "" when ctx is not
// part of a sampled trace.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
