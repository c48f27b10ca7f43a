package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracerUsesPackageScope(t *testing.T) {
	tracer := NewTracer("shop/adapters")

	exp := tracetest.NewInMemoryExporter()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx, span := tracer.Start(context.Background(), "CartStore.Save", CartIDKey.String("c1"), UserIDKey.String("u1"))
	if TraceID(ctx) == "" || SpanID(ctx) == "" {
		t.Error("expected span context in returned ctx")
	}
	RecordSpanError(span, errors.New("stale cart"))
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.InstrumentationScope.Name != "github.com/dejobratic/storefront/internal/shop/adapters" {
		t.Errorf("unexpected scope %q", got.InstrumentationScope.Name)
	}
	if got.InstrumentationScope.Name != tracer.Scope() {
		t.Errorf("expected Scope() to match exported scope, got %q", tracer.Scope())
	}
	if got.Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", got.Status)
	}

	attrs := map[string]string{}
	for _, kv := range got.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["cart.id"] != "c1" || attrs["user.id"] != "u1" {
		t.Errorf("expected start attributes on span, got %v", attrs)
	}
}

func TestSpanHelpersTolerateMissingSpan(t *testing.T) {
	AddSpanAttributes(nil, UserIDKey.String("u1"))
	RecordSpanError(nil, errors.New("boom"))
	SetSpanSuccess(nil)

	if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
		t.Error("expected empty ids without a span")
	}
}
