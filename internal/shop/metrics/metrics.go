package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for checkout attempts.
const (
	OutcomeSuccess           = "success"
	OutcomeValidation        = "validation"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

type Metrics struct {
	checkoutsTotal    metric.Int64Counter
	checkoutDuration  metric.Float64Histogram
	cartOperations    metric.Int64Counter
	orderValue        metric.Float64Histogram
	itemsPerOrder     metric.Int64Histogram
	cartCacheRequests metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.checkoutsTotal, err = meter.Int64Counter(
		"checkouts_total",
		metric.WithDescription("Total number of checkout attempts by outcome"),
		metric.WithUnit("{checkout}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkouts_total counter: %w", err)
	}

	m.checkoutDuration, err = meter.Float64Histogram(
		"checkout_duration_seconds",
		metric.WithDescription("Duration of checkout transactions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_duration histogram: %w", err)
	}

	m.cartOperations, err = meter.Int64Counter(
		"cart_operations_total",
		metric.WithDescription("Total number of cart mutations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cart_operations_total counter: %w", err)
	}

	m.orderValue, err = meter.Float64Histogram(
		"order_value",
		metric.WithDescription("Pre-tax total of placed orders"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_value histogram: %w", err)
	}

	m.itemsPerOrder, err = meter.Int64Histogram(
		"order_items",
		metric.WithDescription("Number of units per placed order"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_items histogram: %w", err)
	}

	m.cartCacheRequests, err = meter.Int64Counter(
		"cart_cache_requests_total",
		metric.WithDescription("Cart cache lookups by result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cart_cache_requests_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordCheckout(ctx context.Context, outcome string) {
	m.checkoutsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordCheckoutDuration(ctx context.Context, durationSeconds float64) {
	m.checkoutDuration.Record(ctx, durationSeconds)
}

// RecordOrderPlaced records the value and size of a committed order.
func (m *Metrics) RecordOrderPlaced(ctx context.Context, amount float64, items int) {
	m.orderValue.Record(ctx, amount)
	m.itemsPerOrder.Record(ctx, int64(items))
}

func (m *Metrics) RecordCartOperation(ctx context.Context, operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.cartOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordCartCache(ctx context.Context, hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	m.cartCacheRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}
