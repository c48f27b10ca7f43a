package memory

import (
	"context"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
)

// CartStore is the in-memory ports.CartStore.
type CartStore struct {
	store *Store
}

// GetActive returns a copy of the active cart for userID.
func (c *CartStore) GetActive(_ context.Context, userID string) (*domain.Cart, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	id, ok := c.store.active[userID]
	if !ok {
		return nil, ports.ErrCartNotFound
	}
	cart := c.store.carts[id].Clone()
	return &cart, nil
}

// Create stores a new active cart.
func (c *CartStore) Create(_ context.Context, cart domain.Cart) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if cart.IsActive() {
		if _, exists := c.store.active[cart.UserID]; exists {
			return ports.ErrActiveCartExists
		}
		c.store.active[cart.UserID] = cart.ID
	}
	c.store.carts[cart.ID] = cart.Clone()
	return nil
}

// Save replaces the stored cart when versions match and bumps cart.Version.
func (c *CartStore) Save(_ context.Context, cart *domain.Cart) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	stored, ok := c.store.carts[cart.ID]
	if !ok {
		return ports.ErrCartNotFound
	}
	if stored.Version != cart.Version {
		return ports.ErrStaleCart
	}

	cart.Version++
	cart.UpdatedAt = c.store.now()
	c.store.carts[cart.ID] = cart.Clone()

	if cart.IsActive() {
		c.store.active[cart.UserID] = cart.ID
	} else if c.store.active[cart.UserID] == cart.ID {
		delete(c.store.active, cart.UserID)
	}
	return nil
}
