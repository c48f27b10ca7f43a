package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CartStore keeps lines as JSONB on the cart row. When bound to a transaction
// it reads the active cart with FOR UPDATE.
type CartStore struct {
	db        querier
	forUpdate bool
}

func (s *CartStore) GetActive(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, lines, status, total_items, total_price::text, version, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND status = 'active'
	`
	if s.forUpdate {
		query += " FOR UPDATE"
	}

	var (
		cart   domain.Cart
		lines  []byte
		status string
		total  string
	)
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&lines,
		&status,
		&cart.TotalItems,
		&total,
		&cart.Version,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrCartNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	if err := json.Unmarshal(lines, &cart.Lines); err != nil {
		return nil, fmt.Errorf("decode cart lines: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	cart.TotalPrice, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse cart total %q: %w", total, err)
	}
	cart.Status = domain.CartStatus(status)

	return &cart, nil
}

func (s *CartStore) Create(ctx context.Context, cart domain.Cart) error {
	lines, err := encodeLines(cart.Lines)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `
		INSERT INTO carts (id, user_id, lines, status, total_items, total_price, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
		ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
	`,
		cart.ID,
		cart.UserID,
		lines,
		string(cart.Status),
		cart.TotalItems,
		cart.TotalPrice.String(),
		cart.Version,
		cart.CreatedAt,
		cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ports.ErrActiveCartExists
	}
	return nil
}

func (s *CartStore) Save(ctx context.Context, cart *domain.Cart) error {
	lines, err := encodeLines(cart.Lines)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.Exec(ctx, `
		UPDATE carts
		SET lines = $3, status = $4, total_items = $5, total_price = $6::numeric,
			version = version + 1, updated_at = $7
		WHERE id = $1 AND version = $2
	`,
		cart.ID,
		cart.Version,
		lines,
		string(cart.Status),
		cart.TotalItems,
		cart.TotalPrice.String(),
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrActiveCartExists
		}
		return fmt.Errorf("update cart: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cart.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check cart: %w", err)
		}
		if !exists {
			return ports.ErrCartNotFound
		}
		return ports.ErrStaleCart
	}

	cart.Version++
	cart.UpdatedAt = now
	return nil
}

func encodeLines(lines []domain.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode cart lines: %w", err)
	}
	return data, nil
}
