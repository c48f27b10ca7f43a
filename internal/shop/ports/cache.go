package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/storefront/internal/shop/domain"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheFenced is returned by Set when the entry was invalidated after
	// the caller read its generation.
	ErrCacheFenced = errors.New("cache entry invalidated since read")
)

// CartCache holds the active cart per user for the read path. A filler reads
// Generation before loading the cart from storage and hands it back to Set.
// Delete advances the generation, so a fill that raced an invalidation from
// any instance is dropped instead of caching a stale cart.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Generation(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, generation int64, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}
