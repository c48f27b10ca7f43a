package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = telemetry.NewTracer("shop/adapters")

// ObservableTransactor traces each unit of work and wraps the repositories it
// hands out so every statement inside the transaction is traced too.
type ObservableTransactor struct {
	tx      ports.Transactor
	metrics *database.Metrics
}

func NewObservableTransactor(tx ports.Transactor, metrics *database.Metrics) *ObservableTransactor {
	return &ObservableTransactor{tx: tx, metrics: metrics}
}

func (t *ObservableTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	ctx, span := tracer.Start(ctx, "Transactor.WithinTx")
	defer span.End()

	start := time.Now()
	err := t.tx.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		return fn(ctx, ports.Repositories{
			Products: NewObservableProductCatalog(repos.Products, t.metrics),
			Carts:    NewObservableCartStore(repos.Carts, t.metrics),
			Orders:   NewObservableOrderStore(repos.Orders, t.metrics),
		})
	})
	t.metrics.RecordTransaction(ctx, err == nil, time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

type ObservableProductCatalog struct {
	repo    ports.ProductCatalog
	metrics *database.Metrics
}

func NewObservableProductCatalog(repo ports.ProductCatalog, metrics *database.Metrics) *ObservableProductCatalog {
	return &ObservableProductCatalog{repo: repo, metrics: metrics}
}

func (r *ObservableProductCatalog) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var product *domain.Product
	err := observeQuery(ctx, r.metrics, "ProductCatalog.FindByID", "find_product", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span, telemetry.ProductIDKey.String(id))
		var err error
		product, err = r.repo.FindByID(ctx, id)
		return err
	})
	return product, err
}

func (r *ObservableProductCatalog) List(ctx context.Context, filter ports.ProductFilter) ([]domain.Product, error) {
	var products []domain.Product
	err := observeQuery(ctx, r.metrics, "ProductCatalog.List", "list_products", func(ctx context.Context, span trace.Span) error {
		attrs := []attribute.KeyValue{attribute.String("sort", string(filter.Sort))}
		if filter.Category != nil {
			attrs = append(attrs, attribute.String("filter.category", string(*filter.Category)))
		}
		telemetry.AddSpanAttributes(span, attrs...)

		var err error
		products, err = r.repo.List(ctx, filter)
		if err == nil {
			telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(products)))
		}
		return err
	})
	return products, err
}

func (r *ObservableProductCatalog) DecrementStock(ctx context.Context, id string, quantity int) error {
	return observeQuery(ctx, r.metrics, "ProductCatalog.DecrementStock", "decrement_stock", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span,
			telemetry.ProductIDKey.String(id),
			attribute.Int("quantity", quantity),
		)
		return r.repo.DecrementStock(ctx, id, quantity)
	})
}

func (r *ObservableProductCatalog) Upsert(ctx context.Context, product domain.Product) error {
	return observeQuery(ctx, r.metrics, "ProductCatalog.Upsert", "upsert_product", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span, telemetry.ProductIDKey.String(product.ID))
		return r.repo.Upsert(ctx, product)
	})
}

type ObservableCartStore struct {
	repo    ports.CartStore
	metrics *database.Metrics
}

func NewObservableCartStore(repo ports.CartStore, metrics *database.Metrics) *ObservableCartStore {
	return &ObservableCartStore{repo: repo, metrics: metrics}
}

func (r *ObservableCartStore) GetActive(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := observeQuery(ctx, r.metrics, "CartStore.GetActive", "get_active_cart", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span, telemetry.UserIDKey.String(userID))
		var err error
		cart, err = r.repo.GetActive(ctx, userID)
		return err
	})
	return cart, err
}

func (r *ObservableCartStore) Create(ctx context.Context, cart domain.Cart) error {
	return observeQuery(ctx, r.metrics, "CartStore.Create", "create_cart", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span,
			telemetry.CartIDKey.String(cart.ID),
			telemetry.UserIDKey.String(cart.UserID),
		)
		return r.repo.Create(ctx, cart)
	})
}

func (r *ObservableCartStore) Save(ctx context.Context, cart *domain.Cart) error {
	return observeQuery(ctx, r.metrics, "CartStore.Save", "save_cart", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span,
			telemetry.CartIDKey.String(cart.ID),
			attribute.String("cart.status", string(cart.Status)),
			attribute.Int("cart.version", cart.Version),
		)
		return r.repo.Save(ctx, cart)
	})
}

type ObservableOrderStore struct {
	repo    ports.OrderStore
	metrics *database.Metrics
}

func NewObservableOrderStore(repo ports.OrderStore, metrics *database.Metrics) *ObservableOrderStore {
	return &ObservableOrderStore{repo: repo, metrics: metrics}
}

func (r *ObservableOrderStore) Create(ctx context.Context, order domain.Order) error {
	return observeQuery(ctx, r.metrics, "OrderStore.Create", "create_order", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span,
			telemetry.OrderIDKey.String(order.ID),
			attribute.Int("order.items", order.TotalItems),
		)
		return r.repo.Create(ctx, order)
	})
}

func (r *ObservableOrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order
	err := observeQuery(ctx, r.metrics, "OrderStore.GetByID", "get_order_by_id", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span, telemetry.OrderIDKey.String(id))
		var err error
		order, err = r.repo.GetByID(ctx, id)
		return err
	})
	return order, err
}

func (r *ObservableOrderStore) ListByUser(ctx context.Context, userID string, filter ports.ListFilter) ([]domain.Order, error) {
	var orders []domain.Order
	err := observeQuery(ctx, r.metrics, "OrderStore.ListByUser", "list_orders", func(ctx context.Context, span trace.Span) error {
		telemetry.AddSpanAttributes(span,
			telemetry.UserIDKey.String(userID),
			attribute.Int("page", filter.Page),
			attribute.Int("page_size", filter.PageSize),
		)
		var err error
		orders, err = r.repo.ListByUser(ctx, userID, filter)
		if err == nil {
			telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(orders)))
		}
		return err
	})
	return orders, err
}

func observeQuery(
	ctx context.Context,
	metrics *database.Metrics,
	spanName string,
	operation string,
	fn func(ctx context.Context, span trace.Span) error,
) error {
	ctx, span := tracer.Start(ctx, spanName, attribute.String("operation", operation))
	defer span.End()

	start := time.Now()
	err := fn(ctx, span)
	metrics.RecordQuery(ctx, operation, time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
