package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/metrics"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = telemetry.NewTracer("shop/app/commands")

type ObservableCheckoutHandler struct {
	handler CheckoutCommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCheckoutHandler(handler CheckoutCommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCheckoutHandler {
	return &ObservableCheckoutHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCheckoutHandler) Handle(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "CheckoutCommand.Handle")
	defer span.End()

	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		o.metrics.RecordCheckoutDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordCheckout(ctx, outcome)
	}()

	telemetry.AddSpanAttributes(span, telemetry.UserIDKey.String(cmd.UserID))
	o.logger.InfoContext(ctx, "checking out cart", "user_id", cmd.UserID)

	order, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		outcome = checkoutOutcome(err)
		telemetry.RecordSpanError(span, err)
		if outcome == metrics.OutcomeError {
			o.logger.ErrorContext(ctx, "checkout failed", "error", err, "user_id", cmd.UserID)
		} else {
			o.logger.InfoContext(ctx, "checkout rejected", "reason", outcome, "error", err, "user_id", cmd.UserID)
		}
		return nil, err
	}

	amount, _ := order.TotalAmount.Float64()
	o.metrics.RecordOrderPlaced(ctx, amount, order.TotalItems)

	telemetry.AddSpanAttributes(span,
		telemetry.OrderIDKey.String(order.ID),
		attribute.String("order.total_amount", order.TotalAmount.String()),
		attribute.Int("order.total_items", order.TotalItems),
	)
	o.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"user_id", order.UserID,
		"total_amount", order.TotalAmount.String(),
	)

	outcome = metrics.OutcomeSuccess
	telemetry.SetSpanSuccess(span)
	return order, nil
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, domain.ErrEmptyCart):
		return metrics.OutcomeEmptyCart
	case errors.Is(err, domain.ErrInsufficientStock):
		return metrics.OutcomeInsufficientStock
	case errors.Is(err, domain.ErrConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

type ObservableCartCommandHandler struct {
	handler CartCommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCartCommandHandler(handler CartCommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCartCommandHandler {
	return &ObservableCartCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCartCommandHandler) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	return o.observe(ctx, "get_or_create", userID, func(ctx context.Context) (*domain.Cart, error) {
		return o.handler.GetOrCreate(ctx, userID)
	})
}

func (o *ObservableCartCommandHandler) AddItem(ctx context.Context, cmd AddItemCommand) (*domain.Cart, error) {
	return o.observe(ctx, "add_item", cmd.UserID, func(ctx context.Context) (*domain.Cart, error) {
		return o.handler.AddItem(ctx, cmd)
	}, telemetry.ProductIDKey.String(cmd.ProductID), attribute.Int("cart.quantity", cmd.Quantity))
}

func (o *ObservableCartCommandHandler) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (*domain.Cart, error) {
	return o.observe(ctx, "update_item", cmd.UserID, func(ctx context.Context) (*domain.Cart, error) {
		return o.handler.UpdateItem(ctx, cmd)
	}, attribute.String("cart.line_id", cmd.LineID), attribute.Int("cart.quantity", cmd.Quantity))
}

func (o *ObservableCartCommandHandler) RemoveItem(ctx context.Context, cmd RemoveItemCommand) (*domain.Cart, error) {
	return o.observe(ctx, "remove_item", cmd.UserID, func(ctx context.Context) (*domain.Cart, error) {
		return o.handler.RemoveItem(ctx, cmd)
	}, attribute.String("cart.line_id", cmd.LineID))
}

func (o *ObservableCartCommandHandler) ClearCart(ctx context.Context, cmd ClearCartCommand) (*domain.Cart, error) {
	return o.observe(ctx, "clear", cmd.UserID, func(ctx context.Context) (*domain.Cart, error) {
		return o.handler.ClearCart(ctx, cmd)
	})
}

func (o *ObservableCartCommandHandler) observe(
	ctx context.Context,
	operation string,
	userID string,
	fn func(ctx context.Context) (*domain.Cart, error),
	attrs ...attribute.KeyValue,
) (*domain.Cart, error) {
	ctx, span := tracer.Start(ctx, "CartCommand."+operation, append(attrs, telemetry.UserIDKey.String(userID))...)
	defer span.End()

	cart, err := fn(ctx)
	o.metrics.RecordCartOperation(ctx, operation, err == nil)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.WarnContext(ctx, "cart operation failed",
			"operation", operation,
			"user_id", userID,
			"error", err,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		telemetry.CartIDKey.String(cart.ID),
		attribute.Int("cart.total_items", cart.TotalItems),
	)
	o.logger.DebugContext(ctx, "cart operation completed",
		"operation", operation,
		"user_id", userID,
		"cart_id", cart.ID,
	)
	telemetry.SetSpanSuccess(span)
	return cart, nil
}
