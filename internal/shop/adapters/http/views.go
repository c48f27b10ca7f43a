package http

import (
	"time"

	"github.com/dejobratic/storefront/internal/shop/app/queries"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/shopspring/decimal"
)

// money renders amounts with exactly two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type productView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       string  `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
	InStock     bool    `json:"inStock"`
}

func newProductView(p domain.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Image:       p.Image,
		Category:    string(p.Category),
		Stock:       p.Stock,
		Rating:      p.Rating,
		InStock:     p.Stock > 0,
	}
}

type cartItemView struct {
	LineID    string `json:"lineId"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Stock     int    `json:"stock"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
}

type cartView struct {
	ID         string         `json:"id"`
	Items      []cartItemView `json:"items"`
	TotalItems int            `json:"totalItems"`
	TotalPrice string         `json:"totalPrice"`
	Status     string         `json:"status"`
}

func newCartView(c *queries.CartView) cartView {
	items := make([]cartItemView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, cartItemView{
			LineID:    item.LineID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Stock:     item.Stock,
			Quantity:  item.Quantity,
			Price:     money(item.UnitPrice),
			Subtotal:  money(item.Subtotal),
		})
	}

	return cartView{
		ID:         c.ID,
		Items:      items,
		TotalItems: c.TotalItems,
		TotalPrice: money(c.TotalPrice),
		Status:     string(c.Status),
	}
}

type customerView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type lineItemView struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
}

type receiptView struct {
	OrderID       string         `json:"orderId"`
	Customer      customerView   `json:"customer"`
	Items         []lineItemView `json:"items"`
	Subtotal      string         `json:"subtotal"`
	Tax           string         `json:"tax"`
	Total         string         `json:"total"`
	TotalItems    int            `json:"totalItems"`
	Timestamp     time.Time      `json:"timestamp"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"paymentStatus"`
}

func newReceiptView(r *domain.Receipt) receiptView {
	items := make([]lineItemView, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, lineItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     money(item.Price),
			Subtotal:  money(item.Subtotal),
		})
	}

	return receiptView{
		OrderID:       r.OrderID,
		Customer:      customerView{Name: r.Customer.Name, Email: r.Customer.Email},
		Items:         items,
		Subtotal:      money(r.Subtotal),
		Tax:           money(r.Tax),
		Total:         money(r.Total),
		TotalItems:    r.TotalItems,
		Timestamp:     r.Timestamp,
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
	}
}

type orderView struct {
	ID            string         `json:"id"`
	Customer      customerView   `json:"customer"`
	Items         []lineItemView `json:"items"`
	TotalAmount   string         `json:"totalAmount"`
	TotalItems    int            `json:"totalItems"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"paymentStatus"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func newOrderView(o domain.Order) orderView {
	items := make([]lineItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, lineItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     money(item.Price),
			Subtotal:  money(item.Subtotal()),
		})
	}

	return orderView{
		ID:            o.ID,
		Customer:      customerView{Name: o.Customer.Name, Email: o.Customer.Email},
		Items:         items,
		TotalAmount:   money(o.TotalAmount),
		TotalItems:    o.TotalItems,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		CreatedAt:     o.CreatedAt,
	}
}
