package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/keylock"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
)

type AddItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

func (c AddItemCommand) Validate() error {
	if err := validateUserID(c.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(c.ProductID) == "" {
		return domain.NewValidationError("product_id", "product_id is required")
	}
	if c.Quantity < 1 {
		return domain.NewValidationError("quantity", "quantity must be at least 1")
	}
	return nil
}

type UpdateItemCommand struct {
	UserID   string
	LineID   string
	Quantity int
}

func (c UpdateItemCommand) Validate() error {
	if err := validateUserID(c.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(c.LineID) == "" {
		return domain.NewValidationError("line_id", "line_id is required")
	}
	return nil
}

type RemoveItemCommand struct {
	UserID string
	LineID string
}

func (c RemoveItemCommand) Validate() error {
	if err := validateUserID(c.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(c.LineID) == "" {
		return domain.NewValidationError("line_id", "line_id is required")
	}
	return nil
}

type ClearCartCommand struct {
	UserID string
}

func (c ClearCartCommand) Validate() error {
	return validateUserID(c.UserID)
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.NewValidationError("user_id", "user_id is required")
	}
	return nil
}

// CartCommandHandler mutates the user's single active cart.
type CartCommandHandler interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cmd AddItemCommand) (*domain.Cart, error)
	UpdateItem(ctx context.Context, cmd UpdateItemCommand) (*domain.Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveItemCommand) (*domain.Cart, error)
	ClearCart(ctx context.Context, cmd ClearCartCommand) (*domain.Cart, error)
}

// CartHandler runs every cart mutation for a user under that user's lock and
// inside one unit of work. The cached copy is dropped before the lock is
// released so readers never repopulate it with a stale cart.
type CartHandler struct {
	tx     ports.Transactor
	locks  *keylock.Locker
	cache  ports.CartCache
	logger *slog.Logger
	now    func() time.Time
}

func NewCartHandler(
	tx ports.Transactor,
	locks *keylock.Locker,
	cache ports.CartCache,
	logger *slog.Logger,
) *CartHandler {
	return &CartHandler{
		tx:     tx,
		locks:  locks,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the active cart, creating an empty one when the user has
// none. The cache generation is read before the cart is loaded, so the fill is
// dropped if another instance invalidated the entry in between.
func (h *CartHandler) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	unlock, err := h.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	generation, genErr := h.cache.Generation(ctx, userID)
	if genErr != nil {
		h.logger.WarnContext(ctx, "failed to read cart cache generation", "user_id", userID, "error", genErr)
	}

	var cart *domain.Cart
	err = h.tx.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		cart, err = h.activeCart(ctx, repos.Carts, userID, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		h.fill(ctx, userID, generation, cart)
	}
	return cart, nil
}

func (h *CartHandler) AddItem(ctx context.Context, cmd AddItemCommand) (*domain.Cart, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return h.mutate(ctx, cmd.UserID, true, func(ctx context.Context, repos ports.Repositories, cart *domain.Cart) error {
		product, err := repos.Products.FindByID(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		if !product.Active {
			return ports.ErrProductNotFound
		}

		inCart := 0
		if line, ok := cart.LineForProduct(product.ID); ok {
			inCart = line.Quantity
		}
		// Compared against the remaining stock so a huge quantity cannot wrap.
		if cmd.Quantity > product.Stock-inCart {
			return stockError(product, saturatingAdd(inCart, cmd.Quantity))
		}

		return cart.AddItem(product.ID, cmd.Quantity, product.Price)
	})
}

func (h *CartHandler) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (*domain.Cart, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return h.mutate(ctx, cmd.UserID, false, func(ctx context.Context, repos ports.Repositories, cart *domain.Cart) error {
		line, ok := cart.Line(cmd.LineID)
		if !ok {
			return domain.ErrLineNotFound
		}

		if cmd.Quantity > 0 {
			product, err := repos.Products.FindByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !product.HasStock(cmd.Quantity) {
				return stockError(product, cmd.Quantity)
			}
		}

		return cart.UpdateQuantity(cmd.LineID, cmd.Quantity)
	})
}

func (h *CartHandler) RemoveItem(ctx context.Context, cmd RemoveItemCommand) (*domain.Cart, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return h.mutate(ctx, cmd.UserID, false, func(_ context.Context, _ ports.Repositories, cart *domain.Cart) error {
		return cart.RemoveItem(cmd.LineID)
	})
}

func (h *CartHandler) ClearCart(ctx context.Context, cmd ClearCartCommand) (*domain.Cart, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return h.mutate(ctx, cmd.UserID, false, func(_ context.Context, _ ports.Repositories, cart *domain.Cart) error {
		return cart.Clear()
	})
}

type cartMutation func(ctx context.Context, repos ports.Repositories, cart *domain.Cart) error

func (h *CartHandler) mutate(ctx context.Context, userID string, create bool, apply cartMutation) (*domain.Cart, error) {
	unlock, err := h.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var cart *domain.Cart
	err = h.tx.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		current, err := h.activeCart(ctx, repos.Carts, userID, create)
		if err != nil {
			return err
		}
		if err := apply(ctx, repos, current); err != nil {
			return err
		}
		if err := repos.Carts.Save(ctx, current); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		cart = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.invalidate(ctx, userID)
	return cart, nil
}

func (h *CartHandler) activeCart(ctx context.Context, carts ports.CartStore, userID string, create bool) (*domain.Cart, error) {
	cart, err := carts.GetActive(ctx, userID)
	if err == nil || !create || !errors.Is(err, ports.ErrCartNotFound) {
		return cart, err
	}

	fresh := domain.NewCart(userID, h.now())
	err = carts.Create(ctx, fresh)
	if errors.Is(err, ports.ErrActiveCartExists) {
		return carts.GetActive(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return &fresh, nil
}

func (h *CartHandler) fill(ctx context.Context, userID string, generation int64, cart *domain.Cart) {
	err := h.cache.Set(ctx, userID, generation, cart)
	switch {
	case errors.Is(err, ports.ErrCacheFenced):
		h.logger.DebugContext(ctx, "cart invalidated while loading, not cached", "user_id", userID)
	case err != nil:
		h.logger.WarnContext(ctx, "failed to cache cart", "user_id", userID, "error", err)
	}
}

func (h *CartHandler) invalidate(ctx context.Context, userID string) {
	if err := h.cache.Delete(ctx, userID); err != nil {
		h.logger.WarnContext(ctx, "failed to invalidate cached cart", "user_id", userID, "error", err)
	}
}

func saturatingAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func stockError(product *domain.Product, requested int) *domain.StockError {
	return &domain.StockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   requested,
		Available:   product.Stock,
	}
}
