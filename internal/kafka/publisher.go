package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/shop/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ErrPublisherUnavailable is returned while the breaker is open.
var ErrPublisherUnavailable = errors.New("event publisher unavailable")

// Producer is the subset of *kafkago.Writer the publisher needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

type PublisherConfig struct {
	Topic string
	// BreakerTimeout is how long the breaker stays open before letting a probe through.
	BreakerTimeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
}

// Publisher writes checkout events to a single topic keyed by user id, so all
// events for a user land on the same partition in order.
type Publisher struct {
	producer Producer
	topic    string
	breaker  *gobreaker.CircuitBreaker[struct{}]
	logger   *slog.Logger
	now      func() time.Time
}

func NewPublisher(producer Producer, cfg PublisherConfig, logger *slog.Logger) *Publisher {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-" + cfg.Topic,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Publisher{
		producer: producer,
		topic:    cfg.Topic,
		breaker:  breaker,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	return p.publish(ctx, EventOrderPlaced, order.UserID, NewOrderPlacedEvent(order))
}

func (p *Publisher) PublishCheckoutFailed(ctx context.Context, userID string, reason string) error {
	return p.publish(ctx, EventCheckoutFailed, userID, CheckoutFailedEvent{
		UserID:   userID,
		Reason:   reason,
		FailedAt: p.now().UTC(),
	})
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafkago.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: injectTraceHeaders(ctx, []kafkago.Header{{Key: EventTypeHeader, Value: []byte(eventType)}}),
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.producer.WriteMessages(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("publish %s: %w", eventType, ErrPublisherUnavailable)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func injectTraceHeaders(ctx context.Context, headers []kafkago.Header) []kafkago.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
