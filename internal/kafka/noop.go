package kafka

import (
	"context"
	"log/slog"

	"github.com/dejobratic/storefront/internal/shop/domain"
)

// NoopEventBus logs events instead of sending them. Used when no brokers are configured.
type NoopEventBus struct {
	logger *slog.Logger
}

func NewNoopEventBus(logger *slog.Logger) *NoopEventBus {
	return &NoopEventBus{logger: logger}
}

func (n *NoopEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	n.logger.DebugContext(ctx, "event::"+EventOrderPlaced,
		"order_id", order.ID,
		"user_id", order.UserID,
		"total_amount", order.TotalAmount.StringFixed(2),
	)
	return nil
}

func (n *NoopEventBus) PublishCheckoutFailed(ctx context.Context, userID string, reason string) error {
	n.logger.DebugContext(ctx, "event::"+EventCheckoutFailed, "user_id", userID, "reason", reason)
	return nil
}
