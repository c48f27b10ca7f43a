package ports

import (
	"context"

	"github.com/dejobratic/storefront/internal/shop/domain"
)

// EventBus defines the contract for publishing checkout events.
type EventBus interface {
	PublishOrderPlaced(ctx context.Context, order domain.Order) error
	PublishCheckoutFailed(ctx context.Context, userID string, reason string) error
}
