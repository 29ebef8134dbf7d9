package client

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the client tracer.
const TracerName = "github.com/recallcontext/recall-cli/client"

// Span attribute keys
const (
	AttrMethod    = "http.request.method"
	AttrRoute     = "http.route"
	AttrStatus    = "http.response.status_code"
	AttrRequestID = "recall.request_id"
	AttrErrorCode = "recall.error_code"
)

// Tracer starts client spans for backend requests.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracer returns a tracer backed by the global provider and propagator.
// The recall binary installs neither, so its spans and trace headers are
// no-ops; programs embedding the client get tracing by calling
// otel.SetTracerProvider and otel.SetTextMapPropagator first, or by passing
// NewTracerWithProvider in Options.Tracer.
func NewTracer() *Tracer {
	return NewTracerWithProvider(otel.GetTracerProvider(), otel.GetTextMapPropagator())
}

// NewTracerWithProvider returns a tracer using tp and injecting headers with p.
func NewTracerWithProvider(tp trace.TracerProvider, p propagation.TextMapPropagator) *Tracer {
	return &Tracer{
		tracer:     tp.Tracer(TracerName),
		propagator: p,
	}
}

// StartRequestSpan starts a client span for one request and injects the trace
// context into its headers.
func (t *Tracer) StartRequestSpan(ctx context.Context, req *http.Request, route, requestID string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "recall.http "+req.Method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrMethod, req.Method),
			attribute.String(AttrRoute, route),
			attribute.String(AttrRequestID, requestID),
		),
	)
	t.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	return ctx, span
}

// EndRequestSpan records the outcome on span and ends it.
func EndRequestSpan(span trace.Span, status int, err error) {
	defer span.End()
	if status > 0 {
		span.SetAttributes(attribute.Int(AttrStatus, status))
	}
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	if apiErr, ok := AsAPIError(err); ok && apiErr.Code != "" {
		span.SetAttributes(attribute.String(AttrErrorCode, string(apiErr.Code)))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
