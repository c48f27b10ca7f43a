package ports

import (
	"context"
	"fmt"
	"math"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when the requested product does not exist.
	ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)
	// ErrCartNotFound is returned when the user has no active cart.
	ErrCartNotFound = fmt.Errorf("cart %w", domain.ErrNotFound)
	// ErrOrderNotFound is returned when the requested order does not exist.
	ErrOrderNotFound = fmt.Errorf("order %w", domain.ErrNotFound)
	// ErrActiveCartExists is returned when creating a second active cart for a user.
	ErrActiveCartExists = fmt.Errorf("active cart already exists: %w", domain.ErrConflict)
	// ErrStaleCart is returned when a cart was saved by someone else since it was read.
	ErrStaleCart = fmt.Errorf("cart was modified concurrently: %w", domain.ErrConflict)
)

// ProductCatalog exposes the product operations the cart and checkout need.
type ProductCatalog interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	// DecrementStock atomically subtracts quantity, failing with a *domain.StockError
	// instead of going negative.
	DecrementStock(ctx context.Context, id string, quantity int) error
	Upsert(ctx context.Context, product domain.Product) error
}

// CartStore keeps at most one active cart per user.
type CartStore interface {
	GetActive(ctx context.Context, userID string) (*domain.Cart, error)
	Create(ctx context.Context, cart domain.Cart) error
	// Save persists cart if its Version still matches the stored one and bumps it.
	Save(ctx context.Context, cart *domain.Cart) error
}

// OrderStore is append-only.
type OrderStore interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]domain.Order, error)
}

// Repositories groups the stores participating in a unit of work.
type Repositories struct {
	Products ProductCatalog
	Carts    CartStore
	Orders   OrderStore
}

// Transactor runs fn as a single atomic unit. If fn returns an error every
// write made through repos is discarded.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// ProductSort orders product listings.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price-asc"
	SortPriceDesc ProductSort = "price-desc"
	SortName      ProductSort = "name"
	SortRating    ProductSort = "rating"
)

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category        *domain.Category
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	Search          string
	Sort            ProductSort
	IncludeInactive bool
}

// ListFilter paginates list queries. Pages are 1-based.
type ListFilter struct {
	Page     int
	PageSize int
}

const defaultPageSize = 20

// Normalize applies pagination defaults.
func (f ListFilter) Normalize() ListFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	return f
}

// Offset returns the number of rows to skip, saturating at math.MaxInt.
func (f ListFilter) Offset() int {
	n := f.Normalize()
	if n.Page-1 > math.MaxInt/n.PageSize {
		return math.MaxInt
	}
	return (n.Page - 1) * n.PageSize
}
