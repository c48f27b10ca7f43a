package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dejobratic/storefront/internal/shop/adapters/memory"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/shopspring/decimal"
)

const sample = `
products:
  - id: lamp
    name: Desk Lamp
    price: "59.99"
    category: Home
    stock: 60
    rating: 4.4
  - id: retired-mug
    name: Old Mug
    price: "5.00"
    category: Home
    stock: 0
    active: false
`

func TestParse(t *testing.T) {
	products, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	lamp := products[0]
	if !lamp.Price.Equal(decimal.RequireFromString("59.99")) {
		t.Errorf("expected price 59.99, got %s", lamp.Price)
	}
	if lamp.Category != domain.CategoryHome || !lamp.Active {
		t.Errorf("unexpected lamp %+v", lamp)
	}
	if products[1].Active {
		t.Error("expected retired product to be inactive")
	}
}

func TestParseRejectsInvalidProducts(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad price",
			yaml:    "products:\n  - {id: a, name: A, price: cheap, category: Home}",
			wantErr: "invalid price",
		},
		{
			name:    "unknown category",
			yaml:    "products:\n  - {id: a, name: A, price: \"1\", category: Toys}",
			wantErr: "category",
		},
		{
			name:    "duplicate id",
			yaml:    "products:\n  - {id: a, name: A, price: \"1\", category: Home}\n  - {id: a, name: B, price: \"2\", category: Home}",
			wantErr: "duplicate id",
		},
		{
			name:    "malformed yaml",
			yaml:    "products: [",
			wantErr: "parse catalog YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFileBundledCatalog(t *testing.T) {
	products, err := LoadFile(filepath.Join("..", "..", "catalog", "products.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if len(products) == 0 {
		t.Fatal("expected bundled catalog to contain products")
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestSeed(t *testing.T) {
	products, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	store := memory.NewStore()
	ctx := context.Background()

	n, err := Seed(ctx, store.Products(), products)
	if err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 products written, got %d", n)
	}

	lamp, err := store.Products().FindByID(ctx, "lamp")
	if err != nil {
		t.Fatalf("FindByID() failed: %v", err)
	}
	if lamp.Stock != 60 {
		t.Errorf("expected stock 60, got %d", lamp.Stock)
	}

	listed, err := store.Products().List(ctx, ports.ProductFilter{})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("expected only the active product listed, got %d", len(listed))
	}
}
