package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
)

// Store provides in-memory catalog, cart and order storage useful for local
// development and tests.
//
// Units of work run one at a time under txMu and are rolled back by restoring
// a snapshot. Writes made outside WithinTx are only safe while no unit of work
// is running (seeding at startup).
type Store struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	products map[string]domain.Product
	carts    map[string]domain.Cart
	active   map[string]string
	orders   map[string]domain.Order

	now func() time.Time
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		carts:    make(map[string]domain.Cart),
		active:   make(map[string]string),
		orders:   make(map[string]domain.Order),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Products() *ProductCatalog { return &ProductCatalog{store: s} }

func (s *Store) Carts() *CartStore { return &CartStore{store: s} }

func (s *Store) Orders() *OrderStore { return &OrderStore{store: s} }

// Repositories returns the stores bound to s.
func (s *Store) Repositories() ports.Repositories {
	return ports.Repositories{
		Products: s.Products(),
		Carts:    s.Carts(),
		Orders:   s.Orders(),
	}
}

// WithinTx runs fn exclusively and restores the previous state if it fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	if err := fn(ctx, s.Repositories()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	products map[string]domain.Product
	carts    map[string]domain.Cart
	active   map[string]string
	orders   map[string]domain.Order
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		products: make(map[string]domain.Product, len(s.products)),
		carts:    make(map[string]domain.Cart, len(s.carts)),
		active:   make(map[string]string, len(s.active)),
		orders:   make(map[string]domain.Order, len(s.orders)),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.carts {
		snap.carts[k] = v.Clone()
	}
	for k, v := range s.active {
		snap.active[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = snap.products
	s.carts = snap.carts
	s.active = snap.active
	s.orders = snap.orders
}
