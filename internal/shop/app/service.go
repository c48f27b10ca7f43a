package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dejobratic/storefront/internal/keylock"
	"github.com/dejobratic/storefront/internal/shop/app/commands"
	"github.com/dejobratic/storefront/internal/shop/app/queries"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/metrics"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"golang.org/x/sync/singleflight"
)

// Dependencies lists what the service needs from adapters.
type Dependencies struct {
	Transactor  ports.Transactor
	Products    ports.ProductCatalog
	Orders      ports.OrderStore
	Cache       ports.CartCache
	Events      ports.EventBus
	Idempotency ports.IdempotencyStore
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Service bundles the catalog, cart, checkout and order use cases for the API.
type Service struct {
	cache       ports.CartCache
	idemStore   ports.IdempotencyStore
	logger      *slog.Logger
	metrics     *metrics.Metrics
	cartReads   singleflight.Group
	carts       commands.CartCommandHandler
	checkout    commands.CheckoutCommandHandler
	cartViews   *queries.CartViewBuilder
	getOrder    *queries.GetOrderQueryHandler
	listOrders  *queries.ListOrdersQueryHandler
	getReceipt  *queries.GetReceiptQueryHandler
	getProduct  *queries.GetProductQueryHandler
	listProduct *queries.ListProductsQueryHandler
}

// NewService wires required dependencies. Cart mutations and checkout share
// one per-user lock.
func NewService(deps Dependencies) *Service {
	locks := keylock.New()

	cartHandler := commands.NewCartHandler(deps.Transactor, locks, deps.Cache, deps.Logger)
	checkoutHandler := commands.NewCheckoutHandler(deps.Transactor, locks, deps.Cache, deps.Events, deps.Logger)
	getOrder := queries.NewGetOrderQueryHandler(deps.Orders)

	return &Service{
		cache:       deps.Cache,
		idemStore:   deps.Idempotency,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		carts:       commands.NewObservableCartCommandHandler(cartHandler, deps.Logger, deps.Metrics),
		checkout:    commands.NewObservableCheckoutHandler(checkoutHandler, deps.Logger, deps.Metrics),
		cartViews:   queries.NewCartViewBuilder(deps.Products),
		getOrder:    getOrder,
		listOrders:  queries.NewListOrdersQueryHandler(deps.Orders),
		getReceipt:  queries.NewGetReceiptQueryHandler(getOrder),
		getProduct:  queries.NewGetProductQueryHandler(deps.Products),
		listProduct: queries.NewListProductsQueryHandler(deps.Products),
	}
}

// GetCart returns the user's active cart, creating it on first access.
// Concurrent misses for the same user share one load.
func (s *Service) GetCart(ctx context.Context, userID string) (*queries.CartView, error) {
	v, err, _ := s.cartReads.Do(userID, func() (any, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			s.metrics.RecordCartCache(ctx, true)
			return cart, nil
		}
		s.metrics.RecordCartCache(ctx, false)
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cart cache read failed", "user_id", userID, "error", err)
		}
		return s.carts.GetOrCreate(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return s.cartViews.Build(ctx, v.(*domain.Cart))
}

// AddItemInput captures payload for adding a product to the cart.
type AddItemInput struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func (s *Service) AddItem(ctx context.Context, userID string, input AddItemInput) (*queries.CartView, error) {
	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	cart, err := s.carts.AddItem(ctx, commands.AddItemCommand{
		UserID:    userID,
		ProductID: input.ProductID,
		Quantity:  quantity,
	})
	return s.view(ctx, cart, err)
}

// UpdateItemInput captures payload for changing a line quantity.
type UpdateItemInput struct {
	Quantity *int `json:"quantity"`
}

func (s *Service) UpdateItem(ctx context.Context, userID, lineID string, input UpdateItemInput) (*queries.CartView, error) {
	if input.Quantity == nil {
		return nil, domain.NewValidationError("quantity", "quantity is required")
	}
	cart, err := s.carts.UpdateItem(ctx, commands.UpdateItemCommand{
		UserID:   userID,
		LineID:   lineID,
		Quantity: *input.Quantity,
	})
	return s.view(ctx, cart, err)
}

func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) (*queries.CartView, error) {
	cart, err := s.carts.RemoveItem(ctx, commands.RemoveItemCommand{UserID: userID, LineID: lineID})
	return s.view(ctx, cart, err)
}

func (s *Service) ClearCart(ctx context.Context, userID string) (*queries.CartView, error) {
	cart, err := s.carts.ClearCart(ctx, commands.ClearCartCommand{UserID: userID})
	return s.view(ctx, cart, err)
}

func (s *Service) view(ctx context.Context, cart *domain.Cart, err error) (*queries.CartView, error) {
	if err != nil {
		return nil, err
	}
	return s.cartViews.Build(ctx, cart)
}

// CheckoutInput captures payload for checking out the active cart.
type CheckoutInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Checkout converts the cart into an order and returns its receipt.
func (s *Service) Checkout(ctx context.Context, userID string, input CheckoutInput) (*domain.Receipt, error) {
	order, err := s.checkout.Handle(ctx, commands.CheckoutCommand{
		UserID: userID,
		Name:   input.Name,
		Email:  input.Email,
	})
	if err != nil {
		return nil, err
	}
	receipt := domain.NewReceipt(*order)
	return &receipt, nil
}

// GetOrder retrieves one of the user's orders.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{UserID: userID, OrderID: orderID})
}

// GetReceipt re-derives the receipt for one of the user's orders.
func (s *Service) GetReceipt(ctx context.Context, userID, orderID string) (*domain.Receipt, error) {
	return s.getReceipt.Handle(ctx, queries.GetOrderQuery{UserID: userID, OrderID: orderID})
}

// ListOrders returns the user's orders newest first.
func (s *Service) ListOrders(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, error) {
	return s.listOrders.Handle(ctx, queries.ListOrdersQuery{UserID: userID, Page: page, PageSize: pageSize})
}

func (s *Service) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return s.getProduct.Handle(ctx, queries.GetProductQuery{ProductID: productID})
}

func (s *Service) ListProducts(ctx context.Context, query queries.ListProductsQuery) ([]domain.Product, error) {
	return s.listProduct.Handle(ctx, query)
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
