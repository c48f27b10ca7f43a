package queries

import (
	"context"
	"strings"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/shopspring/decimal"
)

type GetProductQuery struct {
	ProductID string
}

func (q GetProductQuery) Validate() error {
	if strings.TrimSpace(q.ProductID) == "" {
		return domain.NewValidationError("product_id", "product_id is required")
	}
	return nil
}

// GetProductQueryHandler returns active products only.
type GetProductQueryHandler struct {
	products ports.ProductCatalog
}

func NewGetProductQueryHandler(products ports.ProductCatalog) *GetProductQueryHandler {
	return &GetProductQueryHandler{products: products}
}

func (h *GetProductQueryHandler) Handle(ctx context.Context, query GetProductQuery) (*domain.Product, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	product, err := h.products.FindByID(ctx, query.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, ports.ErrProductNotFound
	}
	return product, nil
}

// ListProductsQuery filters and sorts the active catalog.
type ListProductsQuery struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
	Sort     string
}

// Filter validates the query and converts it to a catalog filter.
func (q ListProductsQuery) Filter() (ports.ProductFilter, error) {
	filter := ports.ProductFilter{Search: strings.TrimSpace(q.Search)}

	if q.Category != "" {
		category := domain.Category(q.Category)
		if !category.Valid() {
			return ports.ProductFilter{}, domain.NewValidationError("category", "category must be valid")
		}
		filter.Category = &category
	}

	if q.MinPrice != nil && q.MinPrice.IsNegative() {
		return ports.ProductFilter{}, domain.NewValidationError("min_price", "min_price cannot be negative")
	}
	if q.MaxPrice != nil && q.MaxPrice.IsNegative() {
		return ports.ProductFilter{}, domain.NewValidationError("max_price", "max_price cannot be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return ports.ProductFilter{}, domain.NewValidationError("min_price", "min_price cannot exceed max_price")
	}
	filter.MinPrice = q.MinPrice
	filter.MaxPrice = q.MaxPrice

	switch sort := ports.ProductSort(q.Sort); sort {
	case "":
		filter.Sort = ports.SortNewest
	case ports.SortNewest, ports.SortPriceAsc, ports.SortPriceDesc, ports.SortName, ports.SortRating:
		filter.Sort = sort
	default:
		return ports.ProductFilter{}, domain.NewValidationError("sort", "sort must be one of newest, price-asc, price-desc, name, rating")
	}

	return filter, nil
}

type ListProductsQueryHandler struct {
	products ports.ProductCatalog
}

func NewListProductsQueryHandler(products ports.ProductCatalog) *ListProductsQueryHandler {
	return &ListProductsQueryHandler{products: products}
}

func (h *ListProductsQueryHandler) Handle(ctx context.Context, query ListProductsQuery) ([]domain.Product, error) {
	filter, err := query.Filter()
	if err != nil {
		return nil, err
	}
	return h.products.List(ctx, filter)
}
