package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
)

// OrderStore is the in-memory ports.OrderStore.
type OrderStore struct {
	store *Store
}

// Create stores a new order. Orders are append-only.
func (o *OrderStore) Create(_ context.Context, order domain.Order) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	if _, exists := o.store.orders[order.ID]; exists {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrConflict)
	}
	o.store.orders[order.ID] = order.Clone()
	return nil
}

// GetByID fetches a single order by identifier.
func (o *OrderStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()

	order, ok := o.store.orders[id]
	if !ok {
		return nil, ports.ErrOrderNotFound
	}
	clone := order.Clone()
	return &clone, nil
}

// ListByUser returns the user's orders newest first. Pagination is 1-based.
func (o *OrderStore) ListByUser(_ context.Context, userID string, filter ports.ListFilter) ([]domain.Order, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()

	var result []domain.Order
	for _, order := range o.store.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	filter = filter.Normalize()
	start := filter.Offset()
	if start >= len(result) {
		return []domain.Order{}, nil
	}

	end := start + filter.PageSize
	if end > len(result) {
		end = len(result)
	}

	page := make([]domain.Order, 0, end-start)
	for _, order := range result[start:end] {
		page = append(page, order.Clone())
	}
	return page, nil
}
