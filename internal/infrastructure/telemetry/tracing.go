// Package telemetry wraps OpenTelemetry tracing for console operations.
// No exporter is installed here; spans go to whatever provider the process
// registered globally (a no-op provider by default).
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for console spans
const TracerName = "github.com/erp/console"

// StartSpan starts a span named "{component}.{op}".
//
//	ctx, span := telemetry.StartSpan(ctx, "store", "save", attribute.String("resource", "orders"))
//	defer span.End()
func StartSpan(ctx context.Context, component, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, fmt.Sprintf("%s.%s", component, op),
		trace.WithSpanKind(spanKind(component)),
		trace.WithAttributes(attrs...),
	)
}

// StartClientSpan starts a span for an outgoing HTTP request.
func StartClientSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
}

// RecordError records err on span and marks the span failed.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetStatusCode annotates span with the HTTP response status.
func SetStatusCode(span trace.Span, status int) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
	}
}

func spanKind(component string) trace.SpanKind {
	if component == "courier" {
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}
