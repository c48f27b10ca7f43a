package commands_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dejobratic/storefront/internal/keylock"
	"github.com/dejobratic/storefront/internal/shop/adapters/memory"
	"github.com/dejobratic/storefront/internal/shop/app/commands"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/shopspring/decimal"
)

type mockCache struct {
	mu          sync.Mutex
	carts       map[string]domain.Cart
	generations map[string]int64
	deletes     int
	sets        int
	fenced      int
	// beforeSet runs without the mutex just ahead of Set.
	beforeSet func()
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]domain.Cart), generations: make(map[string]int64)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return &cart, nil
}

func (m *mockCache) Generation(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[userID], nil
}

func (m *mockCache) Set(_ context.Context, userID string, generation int64, cart *domain.Cart) error {
	if m.beforeSet != nil {
		m.beforeSet()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[userID] != generation {
		m.fenced++
		return ports.ErrCacheFenced
	}
	m.sets++
	m.carts[userID] = cart.Clone()
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.generations[userID]++
	delete(m.carts, userID)
	return nil
}

type mockEventBus struct {
	mu                   sync.Mutex
	placed               []domain.Order
	failed               []string
	publishOrderPlacedFn func(ctx context.Context, order domain.Order) error
}

func (m *mockEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	m.placed = append(m.placed, order)
	m.mu.Unlock()
	if m.publishOrderPlacedFn != nil {
		return m.publishOrderPlacedFn(ctx, order)
	}
	return nil
}

func (m *mockEventBus) PublishCheckoutFailed(_ context.Context, _ string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, reason)
	return nil
}

type fixture struct {
	store    *memory.Store
	cache    *mockCache
	events   *mockEventBus
	carts    *commands.CartHandler
	checkout *commands.CheckoutHandler
}

func newFixture(t *testing.T, products ...domain.Product) *fixture {
	t.Helper()

	store := memory.NewStore()
	for _, p := range products {
		if err := store.Products().Upsert(context.Background(), p); err != nil {
			t.Fatalf("seed %s: %v", p.ID, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := keylock.New()
	cache := newMockCache()
	events := &mockEventBus{}

	return &fixture{
		store:    store,
		cache:    cache,
		events:   events,
		carts:    commands.NewCartHandler(store, locks, cache, logger),
		checkout: commands.NewCheckoutHandler(store, locks, cache, events, logger),
	}
}

// peer returns a cart handler with its own lock table, standing in for another
// API instance sharing the same storage and cache.
func (f *fixture) peer() *commands.CartHandler {
	return commands.NewCartHandler(f.store, keylock.New(), f.cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (f *fixture) add(t *testing.T, userID, productID string, quantity int) *domain.Cart {
	t.Helper()
	cart, err := f.carts.AddItem(context.Background(), commands.AddItemCommand{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		t.Fatalf("add %s: %v", productID, err)
	}
	return cart
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	product, err := f.store.Products().FindByID(context.Background(), productID)
	if err != nil {
		t.Fatalf("find %s: %v", productID, err)
	}
	return product.Stock
}

func product(id, name, price string, stock int) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: domain.CategoryElectronics,
		Stock:    stock,
		Active:   true,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
