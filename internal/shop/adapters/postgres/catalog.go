package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type ProductCatalog struct {
	db querier
}

const productColumns = `id, name, description, price::text, image, category, stock, rating, active, created_at, updated_at`

func (c *ProductCatalog) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(c.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrProductNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

var productOrderBy = map[ports.ProductSort]string{
	ports.SortNewest:    "created_at DESC, id",
	ports.SortPriceAsc:  "price ASC, id",
	ports.SortPriceDesc: "price DESC, id",
	ports.SortName:      "name ASC, id",
	ports.SortRating:    "rating DESC, id",
}

func (c *ProductCatalog) List(ctx context.Context, filter ports.ProductFilter) ([]domain.Product, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeInactive {
		conditions = append(conditions, "active")
	}
	if filter.Category != nil {
		conditions = append(conditions, "category = "+arg(string(*filter.Category)))
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, "price >= "+arg(filter.MinPrice.String())+"::numeric")
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "price <= "+arg(filter.MaxPrice.String())+"::numeric")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		p := arg("%" + escapeLike(search) + "%")
		conditions = append(conditions, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	orderBy, ok := productOrderBy[filter.Sort]
	if !ok {
		orderBy = productOrderBy[ports.SortNewest]
	}
	query += " ORDER BY " + orderBy

	rows, err := c.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// DecrementStock relies on the conditional update so concurrent decrements
// cannot take stock below zero.
func (c *ProductCatalog) DecrementStock(ctx context.Context, id string, quantity int) error {
	result, err := c.db.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var (
		name  string
		stock int
	)
	err = c.db.QueryRow(ctx, `SELECT name, stock FROM products WHERE id = $1`, id).Scan(&name, &stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.ErrProductNotFound
		}
		return fmt.Errorf("select stock: %w", err)
	}

	return &domain.StockError{
		ProductID:   id,
		ProductName: name,
		Requested:   quantity,
		Available:   stock,
	}
}

func (c *ProductCatalog) Upsert(ctx context.Context, product domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	_, err := c.db.Exec(ctx, `
		INSERT INTO products (id, name, description, price, image, category, stock, rating, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, COALESCE($10, NOW()), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			image = EXCLUDED.image,
			category = EXCLUDED.category,
			stock = EXCLUDED.stock,
			rating = EXCLUDED.rating,
			active = EXCLUDED.active,
			updated_at = NOW()
	`,
		product.ID,
		product.Name,
		product.Description,
		product.Price.String(),
		product.Image,
		string(product.Category),
		product.Stock,
		product.Rating,
		product.Active,
		nullableTime(product.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		product  domain.Product
		price    string
		category string
	)
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&price,
		&product.Image,
		&category,
		&product.Stock,
		&product.Rating,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	product.Category = domain.Category(category)
	return &product, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
