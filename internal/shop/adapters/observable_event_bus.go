package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/storefront/internal/kafka"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	topic   string
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, topic string, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		topic:   topic,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	ctx, span := tracer.Start(ctx, "EventBus.PublishOrderPlaced")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		telemetry.OrderIDKey.String(order.ID),
		telemetry.UserIDKey.String(order.UserID),
		attribute.String("event.type", kafka.EventOrderPlaced),
		attribute.String("topic", e.topic),
	)

	start := time.Now()
	err := e.bus.PublishOrderPlaced(ctx, order)
	e.metrics.RecordPublish(ctx, e.topic, kafka.EventOrderPlaced, time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishCheckoutFailed(ctx context.Context, userID string, reason string) error {
	ctx, span := tracer.Start(ctx, "EventBus.PublishCheckoutFailed")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		telemetry.UserIDKey.String(userID),
		attribute.String("event.type", kafka.EventCheckoutFailed),
		attribute.String("topic", e.topic),
		attribute.String("failure.reason", reason),
	)

	start := time.Now()
	err := e.bus.PublishCheckoutFailed(ctx, userID, reason)
	e.metrics.RecordPublish(ctx, e.topic, kafka.EventCheckoutFailed, time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
