// Package catalog loads the product seed file shared by cmd/seed and the
// in-memory backend.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type file struct {
	Products []record `yaml:"products"`
}

// record keeps the price as text so it never passes through float64.
type record struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       string  `yaml:"price"`
	Image       string  `yaml:"image"`
	Category    string  `yaml:"category"`
	Stock       int     `yaml:"stock"`
	Rating      float64 `yaml:"rating"`
	Active      *bool   `yaml:"active"`
}

// LoadFile reads and validates a YAML product file.
func LoadFile(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML product data. Products default to active.
func Parse(data []byte) ([]domain.Product, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Products))
	products := make([]domain.Product, 0, len(f.Products))
	for i, r := range f.Products {
		product, err := r.toProduct()
		if err != nil {
			return nil, fmt.Errorf("product %d (%s): %w", i, r.ID, err)
		}
		if _, dup := seen[product.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, product.ID)
		}
		seen[product.ID] = struct{}{}
		products = append(products, product)
	}

	return products, nil
}

func (r record) toProduct() (domain.Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return domain.Product{}, domain.NewValidationError("price", fmt.Sprintf("invalid price %q", r.Price))
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	product := domain.Product{
		ID:          strings.TrimSpace(r.ID),
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Price:       price,
		Image:       r.Image,
		Category:    domain.Category(r.Category),
		Stock:       r.Stock,
		Rating:      r.Rating,
		Active:      active,
	}
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// Seed upserts every product and returns how many were written.
func Seed(ctx context.Context, products ports.ProductCatalog, items []domain.Product) (int, error) {
	for i, product := range items {
		if err := products.Upsert(ctx, product); err != nil {
			return i, fmt.Errorf("upsert product %s: %w", product.ID, err)
		}
	}
	return len(items), nil
}
