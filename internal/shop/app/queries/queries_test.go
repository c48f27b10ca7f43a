package queries_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/shop/adapters/memory"
	"github.com/dejobratic/storefront/internal/shop/app/queries"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seedOrder(t *testing.T, store *memory.Store, id, userID string, createdAt time.Time) domain.Order {
	t.Helper()
	order := domain.Order{
		ID:          id,
		UserID:      userID,
		Customer:    domain.Customer{Name: "Jane", Email: "jane@example.com"},
		Items:       []domain.OrderItem{{ProductID: "p1", Name: "Headphones", Quantity: 2, Price: *dec("12.50")}},
		TotalAmount: *dec("25.00"),
		TotalItems:  2,
		Status:      domain.StatusCompleted,
		CreatedAt:   createdAt,
	}
	if err := store.Orders().Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestGetOrder(t *testing.T) {
	store := memory.NewStore()
	seedOrder(t, store, "ORD-1", "user-1", time.Now())
	handler := queries.NewGetOrderQueryHandler(store.Orders())
	ctx := context.Background()

	t.Run("returns own order", func(t *testing.T) {
		order, err := handler.Handle(ctx, queries.GetOrderQuery{UserID: "user-1", OrderID: "ORD-1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.ID != "ORD-1" {
			t.Errorf("expected ORD-1, got %s", order.ID)
		}
	})

	t.Run("hides other users' orders", func(t *testing.T) {
		_, err := handler.Handle(ctx, queries.GetOrderQuery{UserID: "user-2", OrderID: "ORD-1"})
		if !errors.Is(err, ports.ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := handler.Handle(ctx, queries.GetOrderQuery{UserID: "user-1", OrderID: "ORD-404"})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("requires order id", func(t *testing.T) {
		_, err := handler.Handle(ctx, queries.GetOrderQuery{UserID: "user-1"})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestGetReceipt(t *testing.T) {
	store := memory.NewStore()
	seedOrder(t, store, "ORD-1", "user-1", time.Now())
	handler := queries.NewGetReceiptQueryHandler(queries.NewGetOrderQueryHandler(store.Orders()))

	receipt, err := handler.Handle(context.Background(), queries.GetOrderQuery{UserID: "user-1", OrderID: "ORD-1"})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receipt.Tax.StringFixed(2) != "2.50" || receipt.Total.StringFixed(2) != "27.50" {
		t.Errorf("expected tax 2.50 total 27.50, got %s %s", receipt.Tax.StringFixed(2), receipt.Total.StringFixed(2))
	}
}

func TestListOrders(t *testing.T) {
	store := memory.NewStore()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	seedOrder(t, store, "ORD-1", "user-1", base)
	seedOrder(t, store, "ORD-2", "user-1", base.Add(time.Hour))
	seedOrder(t, store, "ORD-3", "user-2", base)
	handler := queries.NewListOrdersQueryHandler(store.Orders())
	ctx := context.Background()

	orders, err := handler.Handle(ctx, queries.ListOrdersQuery{UserID: "user-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(orders) != 2 || orders[0].ID != "ORD-2" {
		t.Errorf("expected [ORD-2 ORD-1], got %+v", orders)
	}

	_, err = handler.Handle(ctx, queries.ListOrdersQuery{UserID: "user-1", PageSize: 500})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for oversized page, got %v", err)
	}

	_, err = handler.Handle(ctx, queries.ListOrdersQuery{UserID: "user-1", Page: math.MaxInt})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "page" {
		t.Errorf("expected page validation error, got %v", err)
	}

	orders, err = handler.Handle(ctx, queries.ListOrdersQuery{UserID: "user-1", Page: math.MaxInt / 100, PageSize: 100})
	if err != nil || len(orders) != 0 {
		t.Errorf("expected empty last page, got %d (%v)", len(orders), err)
	}
}

func TestListProductsQueryFilter(t *testing.T) {
	tests := []struct {
		name      string
		query     queries.ListProductsQuery
		wantField string
		wantSort  ports.ProductSort
	}{
		{"defaults to newest", queries.ListProductsQuery{}, "", ports.SortNewest},
		{"accepts known sort", queries.ListProductsQuery{Sort: "price-desc"}, "", ports.SortPriceDesc},
		{"rejects unknown sort", queries.ListProductsQuery{Sort: "cheapest"}, "sort", ""},
		{"rejects unknown category", queries.ListProductsQuery{Category: "Toys"}, "category", ""},
		{"rejects negative min", queries.ListProductsQuery{MinPrice: dec("-1")}, "min_price", ""},
		{"rejects inverted range", queries.ListProductsQuery{MinPrice: dec("10"), MaxPrice: dec("5")}, "min_price", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := tt.query.Filter()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if filter.Sort != tt.wantSort {
					t.Errorf("expected sort %s, got %s", tt.wantSort, filter.Sort)
				}
				return
			}

			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Errorf("expected validation error on %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestGetProductHidesInactive(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	active := domain.Product{ID: "p1", Name: "Headphones", Price: *dec("10"), Category: domain.CategoryElectronics, Active: true}
	retired := domain.Product{ID: "p2", Name: "Speaker", Price: *dec("10"), Category: domain.CategoryElectronics}
	_ = store.Products().Upsert(ctx, active)
	_ = store.Products().Upsert(ctx, retired)
	handler := queries.NewGetProductQueryHandler(store.Products())

	if _, err := handler.Handle(ctx, queries.GetProductQuery{ProductID: "p1"}); err != nil {
		t.Errorf("expected active product, got %v", err)
	}
	if _, err := handler.Handle(ctx, queries.GetProductQuery{ProductID: "p2"}); !errors.Is(err, ports.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCartViewBuilder(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	_ = store.Products().Upsert(ctx, domain.Product{
		ID: "p1", Name: "Headphones", Image: "/img/p1.png", Price: *dec("15"),
		Category: domain.CategoryElectronics, Stock: 7, Active: true,
	})

	cart := domain.NewCart("user-1", time.Now())
	_ = cart.AddItem("p1", 2, *dec("10"))
	_ = cart.AddItem("gone", 1, *dec("3"))

	view, err := queries.NewCartViewBuilder(store.Products()).Build(ctx, &cart)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(view.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(view.Items))
	}
	first := view.Items[0]
	if first.Name != "Headphones" || first.Image != "/img/p1.png" || first.Stock != 7 {
		t.Errorf("expected live catalog fields, got %+v", first)
	}
	if !first.UnitPrice.Equal(*dec("10")) || !first.Subtotal.Equal(*dec("20")) {
		t.Errorf("expected cart price 10 and subtotal 20, got %s %s", first.UnitPrice, first.Subtotal)
	}
	if view.Items[1].Name != "" || !view.Items[1].Subtotal.Equal(*dec("3")) {
		t.Errorf("expected removed product to keep its line, got %+v", view.Items[1])
	}
	if !view.TotalPrice.Equal(*dec("23")) || view.TotalItems != 3 {
		t.Errorf("expected totals 3/23, got %d/%s", view.TotalItems, view.TotalPrice)
	}
}
