package queries

import (
	"context"
	"errors"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/shopspring/decimal"
)

// CartItemView is a cart line joined with live catalog data.
type CartItemView struct {
	LineID    string
	ProductID string
	Name      string
	Image     string
	Stock     int
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// CartView is what clients see of a cart.
type CartView struct {
	ID         string
	UserID     string
	Items      []CartItemView
	TotalItems int
	TotalPrice decimal.Decimal
	Status     domain.CartStatus
}

// CartViewBuilder joins cart lines with the catalog. Prices always come from
// the cart; only display fields are read live.
type CartViewBuilder struct {
	products ports.ProductCatalog
}

func NewCartViewBuilder(products ports.ProductCatalog) *CartViewBuilder {
	return &CartViewBuilder{products: products}
}

func (b *CartViewBuilder) Build(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	view := &CartView{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      make([]CartItemView, 0, len(cart.Lines)),
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
		Status:     cart.Status,
	}

	for _, line := range cart.Lines {
		item := CartItemView{
			LineID:    line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal(),
		}

		product, err := b.products.FindByID(ctx, line.ProductID)
		switch {
		case err == nil:
			item.Name = product.Name
			item.Image = product.Image
			item.Stock = product.Stock
		case errors.Is(err, ports.ErrProductNotFound):
			// removed from the catalog; the line still shows its captured price
		default:
			return nil, err
		}

		view.Items = append(view.Items, item)
	}

	return view, nil
}
