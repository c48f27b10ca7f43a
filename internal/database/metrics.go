package database

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	queryDuration metric.Float64Histogram
	txDuration    metric.Float64Histogram
	txTotal       metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	m.txDuration, err = meter.Float64Histogram(
		"db_transaction_duration_seconds",
		metric.WithDescription("Duration of database transactions from begin to commit or rollback"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_transaction_duration histogram: %w", err)
	}

	m.txTotal, err = meter.Int64Counter(
		"db_transactions_total",
		metric.WithDescription("Database transactions by outcome"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_transactions_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuery(ctx context.Context, operation string, durationSeconds float64) {
	m.queryDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordTransaction records a finished transaction. committed is false for rollbacks.
func (m *Metrics) RecordTransaction(ctx context.Context, committed bool, durationSeconds float64) {
	outcome := "commit"
	if !committed {
		outcome = "rollback"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.txTotal.Add(ctx, 1, attrs)
	m.txDuration.Record(ctx, durationSeconds, attrs)
}
