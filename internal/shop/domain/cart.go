package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStatus captures the lifecycle of a cart.
type CartStatus string

const (
	CartActive    CartStatus = "active"
	CartCompleted CartStatus = "completed"
	CartAbandoned CartStatus = "abandoned"
)

// CartLine is one product entry in a cart. UnitPrice is locked in when the line is created.
type CartLine struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal returns quantity × unit price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart accumulates lines for a single user. TotalItems and TotalPrice are
// recomputed after every mutation and never set directly.
type Cart struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Lines      []CartLine      `json:"lines"`
	Status     CartStatus      `json:"status"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewCart returns an empty active cart for userID.
func NewCart(userID string, now time.Time) Cart {
	return Cart{
		ID:         uuid.NewString(),
		UserID:     userID,
		Lines:      []CartLine{},
		Status:     CartActive,
		TotalPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsActive reports whether the cart still accepts mutations.
func (c *Cart) IsActive() bool {
	return c.Status == CartActive
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Line returns the line with the given id.
func (c *Cart) Line(lineID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ID == lineID {
			return line, true
		}
	}
	return CartLine{}, false
}

// LineForProduct returns the line holding productID, if any.
func (c *Cart) LineForProduct(productID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// AddItem increments the existing line for productID or appends a new one
// priced at unitPrice. Stock is the caller's concern.
func (c *Cart) AddItem(productID string, quantity int, unitPrice decimal.Decimal) error {
	if !c.IsActive() {
		return ErrCartNotActive
	}
	if productID == "" {
		return NewValidationError("product_id", "product_id is required")
	}
	if quantity < 1 {
		return NewValidationError("quantity", "quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return NewValidationError("price", "price cannot be negative")
	}

	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			if c.Lines[i].Quantity > math.MaxInt-quantity {
				return NewValidationError("quantity", "quantity is too large")
			}
			c.Lines[i].Quantity += quantity
			c.recalculate()
			return nil
		}
	}

	c.Lines = append(c.Lines, CartLine{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	c.recalculate()
	return nil
}

// RemoveItem deletes the line with lineID.
func (c *Cart) RemoveItem(lineID string) error {
	if !c.IsActive() {
		return ErrCartNotActive
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.recalculate()
			return nil
		}
	}
	return ErrLineNotFound
}

// UpdateQuantity sets the absolute quantity of a line. Zero or negative
// quantities remove the line.
func (c *Cart) UpdateQuantity(lineID string, quantity int) error {
	if !c.IsActive() {
		return ErrCartNotActive
	}
	if quantity <= 0 {
		return c.RemoveItem(lineID)
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines[i].Quantity = quantity
			c.recalculate()
			return nil
		}
	}
	return ErrLineNotFound
}

// Clear removes every line.
func (c *Cart) Clear() error {
	if !c.IsActive() {
		return ErrCartNotActive
	}
	c.Lines = []CartLine{}
	c.recalculate()
	return nil
}

// Complete retires the cart after checkout. Lines are kept as a record of what was ordered.
func (c *Cart) Complete() error {
	if !c.IsActive() {
		return ErrCartNotActive
	}
	c.Status = CartCompleted
	return nil
}

// Clone returns a deep copy so callers cannot alias stored lines.
func (c Cart) Clone() Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	c.Lines = lines
	return c
}

func (c *Cart) recalculate() {
	items := 0
	total := decimal.Zero
	for _, line := range c.Lines {
		items += line.Quantity
		total = total.Add(line.Subtotal())
	}
	c.TotalItems = items
	c.TotalPrice = total
}
