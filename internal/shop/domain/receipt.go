package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied on receipts.
var TaxRate = decimal.RequireFromString("0.10")

type ReceiptItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Receipt is the display view of an order. It is derived on demand and never stored.
type Receipt struct {
	OrderID       string          `json:"order_id"`
	Customer      Customer        `json:"customer"`
	Items         []ReceiptItem   `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	TotalItems    int             `json:"total_items"`
	Timestamp     time.Time       `json:"timestamp"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewReceipt derives tax and totals from an order, rounded to cents.
func NewReceipt(order Order) Receipt {
	items := make([]ReceiptItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ReceiptItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal().Round(2),
		})
	}

	subtotal := order.TotalAmount
	return Receipt{
		OrderID:       order.ID,
		Customer:      order.Customer,
		Items:         items,
		Subtotal:      subtotal.Round(2),
		Tax:           subtotal.Mul(TaxRate).Round(2),
		Total:         subtotal.Mul(decimal.NewFromInt(1).Add(TaxRate)).Round(2),
		TotalItems:    order.TotalItems,
		Timestamp:     order.CreatedAt,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	}
}
