package kafka

import (
	"time"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced    = "order.placed"
	EventCheckoutFailed = "checkout.failed"
)

// EventTypeHeader carries the event type so consumers can route without decoding the payload.
const EventTypeHeader = "event_type"

type OrderPlacedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlacedEvent struct {
	OrderID       string            `json:"order_id"`
	UserID        string            `json:"user_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Items         []OrderPlacedItem `json:"items"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	TotalItems    int               `json:"total_items"`
	PlacedAt      time.Time         `json:"placed_at"`
}

func NewOrderPlacedEvent(order domain.Order) OrderPlacedEvent {
	items := make([]OrderPlacedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderPlacedItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return OrderPlacedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		CustomerName:  order.Customer.Name,
		CustomerEmail: order.Customer.Email,
		Items:         items,
		TotalAmount:   order.TotalAmount,
		TotalItems:    order.TotalItems,
		PlacedAt:      order.CreatedAt,
	}
}

type CheckoutFailedEvent struct {
	UserID   string    `json:"user_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
