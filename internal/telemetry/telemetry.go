// Package telemetry wires OpenTelemetry tracing across the process and
// message-queue boundaries this system crosses: a span started in the
// gateway must resume in the queryworker that eventually handles the
// message, and a span captured at Dispatcher.Submit must resume inside
// the pool goroutine that actually runs the work.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "contentpulse"

// Tracer returns the process-wide tracer from the global TracerProvider.
// This package installs no OTel SDK (exporter, resource, sampler), and
// none of the cmd/* binaries registers one, so spans are non-recording
// unless a TracerProvider is registered elsewhere.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartClient starts a span for an outbound call this process makes to
// another system (a store, an LLM provider, another service over HTTP).
func StartClient(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
}

// StartServer starts a span for an inbound request this process is handling.
func StartServer(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
}

// StartProducer starts a span for a message this process is about to
// publish onto the broker.
func StartProducer(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindProducer))
}

// StartConsumer starts a span for a message this process has just
// received off the broker, typically as a child of the extracted
// remote producer span.
func StartConsumer(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindConsumer))
}

// StartInternal starts a span for work with no external counterpart.
func StartInternal(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
}

// mapCarrier adapts a map[string]string to otel's TextMapCarrier so
// trace context can ride along inside an envelope's telemetry_headers
// field. Modeled on natsHeaderCarrier, which adapts NATS message
// headers the same way for the same purpose.
type mapCarrier map[string]string

func (c mapCarrier) Get(key string) string { return c[key] }

func (c mapCarrier) Set(key, value string) { c[key] = value }

func (c mapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Inject writes the current span context from ctx into a fresh
// map[string]string suitable for an envelope's telemetry_headers field.
func Inject(ctx context.Context) map[string]string {
	carrier := mapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}

// Extract builds a context carrying the remote span described by
// headers, as read off a received envelope's telemetry_headers field.
func Extract(ctx context.Context, headers map[string]string) context.Context {
	if headers == nil {
		headers = map[string]string{}
	}
	return otel.GetTextMapPropagator().Extract(ctx, mapCarrier(headers))
}

// CapturedContext is a detached snapshot of a span context taken at
// Dispatcher.Submit time, to be restored once a pool goroutine actually
// starts running the submitted task. ants workers are reused across
// tasks from an unrelated goroutine, so the span must travel as data,
// not as an ambient context.Context on the call stack.
type CapturedContext struct {
	spanCtx trace.SpanContext
}

// Capture snapshots the span context carried by ctx.
func Capture(ctx context.Context) CapturedContext {
	return CapturedContext{spanCtx: trace.SpanContextFromContext(ctx)}
}

// Restore attaches the captured span context to ctx as a remote parent,
// to be used as the parent of a new span started inside the pool goroutine.
func (c CapturedContext) Restore(ctx context.Context) context.Context {
	if !c.spanCtx.IsValid() {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, c.spanCtx)
}
