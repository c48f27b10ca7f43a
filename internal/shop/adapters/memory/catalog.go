package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
)

// ProductCatalog is the in-memory ports.ProductCatalog.
type ProductCatalog struct {
	store *Store
}

// FindByID fetches a single product by identifier.
func (c *ProductCatalog) FindByID(_ context.Context, id string) (*domain.Product, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	product, ok := c.store.products[id]
	if !ok {
		return nil, ports.ErrProductNotFound
	}
	return &product, nil
}

// List returns products matching filter.
func (c *ProductCatalog) List(_ context.Context, filter ports.ProductFilter) ([]domain.Product, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	result := []domain.Product{}
	for _, p := range c.store.products {
		if !filter.IncludeInactive && !p.Active {
			continue
		}
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		result = append(result, p)
	}

	sort.SliceStable(result, productLess(result, filter.Sort))
	return result, nil
}

func productLess(products []domain.Product, order ports.ProductSort) func(i, j int) bool {
	switch order {
	case ports.SortPriceAsc:
		return func(i, j int) bool { return products[i].Price.LessThan(products[j].Price) }
	case ports.SortPriceDesc:
		return func(i, j int) bool { return products[i].Price.GreaterThan(products[j].Price) }
	case ports.SortName:
		return func(i, j int) bool { return products[i].Name < products[j].Name }
	case ports.SortRating:
		return func(i, j int) bool { return products[i].Rating > products[j].Rating }
	default:
		return func(i, j int) bool {
			if products[i].CreatedAt.Equal(products[j].CreatedAt) {
				return products[i].ID < products[j].ID
			}
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
	}
}

// DecrementStock subtracts quantity under the write lock so the check and the
// update cannot interleave with another decrement.
func (c *ProductCatalog) DecrementStock(_ context.Context, id string, quantity int) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	product, ok := c.store.products[id]
	if !ok {
		return ports.ErrProductNotFound
	}
	if !product.HasStock(quantity) {
		return &domain.StockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	product.Stock -= quantity
	product.UpdatedAt = c.store.now()
	c.store.products[id] = product
	return nil
}

// Upsert inserts or replaces a product.
func (c *ProductCatalog) Upsert(_ context.Context, product domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	now := c.store.now()
	if existing, ok := c.store.products[product.ID]; ok {
		product.CreatedAt = existing.CreatedAt
	} else if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	c.store.products[product.ID] = product
	return nil
}
