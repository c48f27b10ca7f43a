package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scopePrefix = "github.com/dejobratic/storefront/internal/"

// Span attribute keys shared by the shop layers.
const (
	UserIDKey    = attribute.Key("user.id")
	CartIDKey    = attribute.Key("cart.id")
	OrderIDKey   = attribute.Key("order.id")
	ProductIDKey = attribute.Key("product.id")
)

// Tracer starts spans under the instrumentation scope of one storefront
// package, e.g. NewTracer("shop/adapters"). The global provider is resolved on
// every Start so providers installed after package init are honoured.
type Tracer struct {
	scope string
}

func NewTracer(pkg string) Tracer {
	return Tracer{scope: scopePrefix + pkg}
}

// Scope returns the instrumentation scope name.
func (t Tracer) Scope() string {
	return t.scope
}

func (t Tracer) Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(t.scope).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

func AddSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}

func RecordSpanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanSuccess(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// TraceID returns the hex trace id of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func SpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		return sc.SpanID().String()
	}
	return ""
}
