package domain_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/shopspring/decimal"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertTotals(t *testing.T, cart domain.Cart) {
	t.Helper()
	items := 0
	total := decimal.Zero
	for _, line := range cart.Lines {
		items += line.Quantity
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if cart.TotalItems != items {
		t.Errorf("expected total items %d, got %d", items, cart.TotalItems)
	}
	if !cart.TotalPrice.Equal(total) {
		t.Errorf("expected total price %s, got %s", total, cart.TotalPrice)
	}
}

func TestNewCart(t *testing.T) {
	now := time.Now().UTC()
	cart := domain.NewCart("user-1", now)

	if cart.ID == "" {
		t.Error("expected cart ID to be generated")
	}
	if cart.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", cart.UserID)
	}
	if cart.Status != domain.CartActive {
		t.Errorf("expected status %s, got %s", domain.CartActive, cart.Status)
	}
	if !cart.IsEmpty() || cart.TotalItems != 0 || !cart.TotalPrice.IsZero() {
		t.Errorf("expected empty cart with zero totals, got %+v", cart)
	}
}

func TestCartAddItem(t *testing.T) {
	t.Run("appends new line with captured price", func(t *testing.T) {
		cart := domain.NewCart("user-1", time.Now())

		if err := cart.AddItem("p1", 2, price("10")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(cart.Lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(cart.Lines))
		}
		if cart.Lines[0].ID == "" {
			t.Error("expected line ID to be generated")
		}
		if !cart.Lines[0].UnitPrice.Equal(price("10")) {
			t.Errorf("expected unit price 10, got %s", cart.Lines[0].UnitPrice)
		}
		assertTotals(t, cart)
	})

	t.Run("merges same product into one line", func(t *testing.T) {
		cart := domain.NewCart("user-1", time.Now())

		_ = cart.AddItem("p1", 2, price("10"))
		if err := cart.AddItem("p1", 3, price("12")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(cart.Lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(cart.Lines))
		}
		if cart.Lines[0].Quantity != 5 {
			t.Errorf("expected quantity 5, got %d", cart.Lines[0].Quantity)
		}
		if !cart.Lines[0].UnitPrice.Equal(price("10")) {
			t.Errorf("expected locked-in price 10, got %s", cart.Lines[0].UnitPrice)
		}
		if !cart.TotalPrice.Equal(price("50")) {
			t.Errorf("expected total 50, got %s", cart.TotalPrice)
		}
	})

	t.Run("keeps insertion order", func(t *testing.T) {
		cart := domain.NewCart("user-1", time.Now())
		_ = cart.AddItem("p1", 1, price("1"))
		_ = cart.AddItem("p2", 1, price("2"))
		_ = cart.AddItem("p3", 1, price("3"))

		for i, want := range []string{"p1", "p2", "p3"} {
			if cart.Lines[i].ProductID != want {
				t.Errorf("line %d: expected %s, got %s", i, want, cart.Lines[i].ProductID)
			}
		}
	})

	tests := []struct {
		name      string
		productID string
		quantity  int
		price     decimal.Decimal
		field     string
	}{
		{"zero quantity", "p1", 0, price("1"), "quantity"},
		{"negative quantity", "p1", -1, price("1"), "quantity"},
		{"missing product", "", 1, price("1"), "product_id"},
		{"negative price", "p1", 1, price("-1"), "price"},
	}

	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			cart := domain.NewCart("user-1", time.Now())

			err := cart.AddItem(tt.productID, tt.quantity, tt.price)

			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("expected field %s, got %+v", tt.field, verr)
			}
			if !cart.IsEmpty() {
				t.Error("expected cart to stay empty")
			}
		})
	}
}

func TestCartAddItemRejectsQuantityOverflow(t *testing.T) {
	cart := domain.NewCart("user-1", time.Now())
	if err := cart.AddItem("p1", 5, price("10")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err := cart.AddItem("p1", math.MaxInt-2, price("10"))

	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "quantity" {
		t.Fatalf("expected quantity validation error, got %v", err)
	}
	if cart.Lines[0].Quantity != 5 || cart.TotalItems != 5 {
		t.Errorf("expected line to keep quantity 5, got %+v", cart.Lines[0])
	}
	assertTotals(t, cart)
}

func TestCartRemoveItem(t *testing.T) {
	t.Run("removes line and recomputes totals", func(t *testing.T) {
		cart := domain.NewCart("user-1", time.Now())
		_ = cart.AddItem("p1", 2, price("10"))
		_ = cart.AddItem("p2", 1, price("5"))
		lineID := cart.Lines[0].ID

		if err := cart.RemoveItem(lineID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if _, ok := cart.Line(lineID); ok {
			t.Error("expected line to be removed")
		}
		if cart.TotalItems != 1 || !cart.TotalPrice.Equal(price("5")) {
			t.Errorf("expected totals 1/5, got %d/%s", cart.TotalItems, cart.TotalPrice)
		}
	})

	t.Run("returns not found for unknown line", func(t *testing.T) {
		cart := domain.NewCart("user-1", time.Now())
		_ = cart.AddItem("p1", 2, price("10"))

		err := cart.RemoveItem("missing")

		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if len(cart.Lines) != 1 {
			t.Error("expected cart to be unchanged")
		}
	})
}

func TestCartUpdateQuantity(t *testing.T) {
	t.Run("sets absolute quantity", func(t *testing.T) {
		cart := domain.NewCart("user-1", time.Now())
		_ = cart.AddItem("p1", 2, price("10"))

		if err := cart.UpdateQuantity(cart.Lines[0].ID, 7); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if cart.Lines[0].Quantity != 7 {
			t.Errorf("expected quantity 7, got %d", cart.Lines[0].Quantity)
		}
		assertTotals(t, cart)
	})

	t.Run("zero quantity is the same as removal", func(t *testing.T) {
		updated := domain.NewCart("user-1", time.Now())
		_ = updated.AddItem("p1", 2, price("10"))
		_ = updated.AddItem("p2", 1, price("5"))
		removed := updated.Clone()
		lineID := updated.Lines[0].ID

		if err := updated.UpdateQuantity(lineID, 0); err != nil {
			t.Fatalf("update: %v", err)
		}
		if err := removed.RemoveItem(lineID); err != nil {
			t.Fatalf("remove: %v", err)
		}

		if len(updated.Lines) != len(removed.Lines) {
			t.Fatalf("expected %d lines, got %d", len(removed.Lines), len(updated.Lines))
		}
		if updated.TotalItems != removed.TotalItems || !updated.TotalPrice.Equal(removed.TotalPrice) {
			t.Errorf("expected totals %d/%s, got %d/%s",
				removed.TotalItems, removed.TotalPrice, updated.TotalItems, updated.TotalPrice)
		}
	})

	t.Run("negative quantity removes the line", func(t *testing.T) {
		cart := domain.NewCart("user-1", time.Now())
		_ = cart.AddItem("p1", 2, price("10"))

		if err := cart.UpdateQuantity(cart.Lines[0].ID, -3); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !cart.IsEmpty() {
			t.Error("expected cart to be empty")
		}
	})

	t.Run("returns not found for unknown line", func(t *testing.T) {
		cart := domain.NewCart("user-1", time.Now())

		if err := cart.UpdateQuantity("missing", 2); !errors.Is(err, domain.ErrLineNotFound) {
			t.Errorf("expected ErrLineNotFound, got %v", err)
		}
		if err := cart.UpdateQuantity("missing", 0); !errors.Is(err, domain.ErrLineNotFound) {
			t.Errorf("expected ErrLineNotFound for zero quantity, got %v", err)
		}
	})
}

func TestCartClear(t *testing.T) {
	cart := domain.NewCart("user-1", time.Now())
	_ = cart.AddItem("p1", 2, price("10"))
	_ = cart.AddItem("p2", 1, price("5"))

	if err := cart.Clear(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !cart.IsEmpty() || cart.TotalItems != 0 || !cart.TotalPrice.IsZero() {
		t.Errorf("expected empty cart with zero totals, got %+v", cart)
	}
}

func TestCartTotalsAfterMutationSequence(t *testing.T) {
	cart := domain.NewCart("user-1", time.Now())

	steps := []func() error{
		func() error { return cart.AddItem("p1", 3, price("19.99")) },
		func() error { return cart.AddItem("p2", 1, price("0.10")) },
		func() error { return cart.AddItem("p1", 2, price("19.99")) },
		func() error { return cart.UpdateQuantity(cart.Lines[1].ID, 4) },
		func() error { return cart.AddItem("p3", 10, price("0.01")) },
		func() error { return cart.RemoveItem(cart.Lines[0].ID) },
	}

	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertTotals(t, cart)
	}

	if !cart.TotalPrice.Equal(price("0.50")) {
		t.Errorf("expected exact total 0.50, got %s", cart.TotalPrice)
	}
}

func TestCompletedCartRejectsMutations(t *testing.T) {
	cart := domain.NewCart("user-1", time.Now())
	_ = cart.AddItem("p1", 1, price("10"))

	if err := cart.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := cart.AddItem("p2", 1, price("1")); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict on add, got %v", err)
	}
	if err := cart.Clear(); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict on clear, got %v", err)
	}
	if err := cart.Complete(); !errors.Is(err, domain.ErrCartNotActive) {
		t.Errorf("expected ErrCartNotActive on second complete, got %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Error("expected lines to be kept after completion")
	}
}

func TestCartClone(t *testing.T) {
	cart := domain.NewCart("user-1", time.Now())
	_ = cart.AddItem("p1", 1, price("10"))

	clone := cart.Clone()
	clone.Lines[0].Quantity = 99

	if cart.Lines[0].Quantity != 1 {
		t.Error("expected clone to not alias original lines")
	}
}
