package commands

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/keylock"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
)

type CheckoutCommand struct {
	UserID string
	Name   string
	Email  string
}

// Validate checks the request fields and returns the normalized customer.
func (c CheckoutCommand) Validate() (domain.Customer, error) {
	if err := validateUserID(c.UserID); err != nil {
		return domain.Customer{}, err
	}
	return domain.NewCustomer(c.Name, c.Email)
}

type CheckoutCommandHandler interface {
	Handle(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error)
}

// CheckoutHandler converts the user's active cart into an order. Order
// persistence, stock decrements, cart completion and the replacement cart are
// one unit of work; nothing is written unless all of them succeed.
type CheckoutHandler struct {
	tx     ports.Transactor
	locks  *keylock.Locker
	cache  ports.CartCache
	events ports.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewCheckoutHandler(
	tx ports.Transactor,
	locks *keylock.Locker,
	cache ports.CartCache,
	events ports.EventBus,
	logger *slog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		tx:     tx,
		locks:  locks,
		cache:  cache,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *CheckoutHandler) Handle(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error) {
	customer, err := cmd.Validate()
	if err != nil {
		return nil, err
	}

	order, err := h.placeOrder(ctx, cmd.UserID, customer)
	if err != nil {
		h.publishFailure(ctx, cmd.UserID, err)
		return nil, err
	}

	if err := h.events.PublishOrderPlaced(ctx, *order); err != nil {
		h.logger.ErrorContext(ctx, "order placed but failed to publish event",
			"order_id", order.ID,
			"error", err,
		)
	}

	return order, nil
}

func (h *CheckoutHandler) placeOrder(ctx context.Context, userID string, customer domain.Customer) (*domain.Order, error) {
	unlock, err := h.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := h.now()
	var order domain.Order
	err = h.tx.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		cart, err := repos.Carts.GetActive(ctx, userID)
		if errors.Is(err, ports.ErrCartNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		names := make(map[string]string, len(cart.Lines))
		for _, line := range cart.Lines {
			product, err := repos.Products.FindByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !product.HasStock(line.Quantity) {
				return stockError(product, line.Quantity)
			}
			names[product.ID] = product.Name
		}

		orderID, err := generateOrderID(now)
		if err != nil {
			return err
		}
		order, err = domain.NewOrderFromCart(orderID, *cart, customer, names, now)
		if err != nil {
			return err
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range order.Items {
			if err := repos.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := cart.Complete(); err != nil {
			return err
		}
		if err := repos.Carts.Save(ctx, cart); err != nil {
			return fmt.Errorf("complete cart: %w", err)
		}

		if err := repos.Carts.Create(ctx, domain.NewCart(userID, now)); err != nil {
			return fmt.Errorf("create replacement cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := h.cache.Delete(ctx, userID); err != nil {
		h.logger.WarnContext(ctx, "failed to invalidate cached cart", "user_id", userID, "error", err)
	}
	return &order, nil
}

func (h *CheckoutHandler) publishFailure(ctx context.Context, userID string, cause error) {
	var reason string
	switch {
	case errors.Is(cause, domain.ErrEmptyCart):
		reason = "empty_cart"
	case errors.Is(cause, domain.ErrInsufficientStock):
		reason = "insufficient_stock"
	default:
		return
	}

	if err := h.events.PublishCheckoutFailed(ctx, userID, reason); err != nil {
		h.logger.WarnContext(ctx, "failed to publish checkout failure", "user_id", userID, "error", err)
	}
}

const (
	orderIDAlphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderIDSuffixSize = 9
)

// generateOrderID returns ORD-<unix millis>-<9 random base36 characters>.
func generateOrderID(now time.Time) (string, error) {
	var suffix strings.Builder
	suffix.Grow(orderIDSuffixSize)

	limit := big.NewInt(int64(len(orderIDAlphabet)))
	for range orderIDSuffixSize {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate order id: %w", err)
		}
		suffix.WriteByte(orderIDAlphabet[n.Int64()])
	}

	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix.String()), nil
}
