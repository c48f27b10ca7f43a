package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// OrderStatus captures the lifecycle of an order in the system.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus records the payment state. There is no payment gateway, so
// checkout always records paid.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

const (
	minNameLength = 2
	maxNameLength = 50
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Customer holds the contact details captured at checkout.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewCustomer trims and validates contact details. The name is checked in full
// before the email.
func NewCustomer(name, email string) (Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return Customer{}, NewValidationError("name", "name is required")
	}
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return Customer{}, NewValidationError("name", "name must be between 2 and 50 characters")
	}
	if email == "" {
		return Customer{}, NewValidationError("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return Customer{}, NewValidationError("email", "email must be valid")
	}

	return Customer{Name: name, Email: email}, nil
}

// OrderItem is an immutable snapshot of a cart line at checkout time.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal returns quantity × price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the record produced by checkout. It is never mutated after creation.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Customer      Customer        `json:"customer"`
	Items         []OrderItem     `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalItems    int             `json:"total_items"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewOrderFromCart copies the cart lines into an order. names maps product id
// to the product name captured now; unit prices come from the cart lines.
func NewOrderFromCart(id string, cart Cart, customer Customer, names map[string]string, now time.Time) (Order, error) {
	if cart.IsEmpty() {
		return Order{}, ErrEmptyCart
	}

	items := make([]OrderItem, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, OrderItem{
			ProductID: line.ProductID,
			Name:      names[line.ProductID],
			Quantity:  line.Quantity,
			Price:     line.UnitPrice,
		})
	}

	order := Order{
		ID:            id,
		UserID:        cart.UserID,
		Customer:      customer,
		Items:         items,
		TotalAmount:   cart.TotalPrice,
		TotalItems:    cart.TotalItems,
		Status:        StatusCompleted,
		PaymentStatus: PaymentPaid,
		CreatedAt:     now,
	}

	if err := order.Validate(); err != nil {
		return Order{}, err
	}
	return order, nil
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("order id is required")
	}
	if strings.TrimSpace(o.UserID) == "" {
		return errors.New("user_id is required")
	}
	if len(o.Items) == 0 {
		return ErrEmptyCart
	}

	items := 0
	total := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity < 1 {
			return errors.New("item quantity must be at least 1")
		}
		items += item.Quantity
		total = total.Add(item.Subtotal())
	}
	if items != o.TotalItems || !total.Equal(o.TotalAmount) {
		return errors.New("order totals do not match items")
	}
	return nil
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	items := make([]OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
