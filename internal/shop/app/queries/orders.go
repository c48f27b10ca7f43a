package queries

import (
	"context"
	"math"
	"strings"

	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
)

// GetOrderQuery represents a request to retrieve one of the user's orders.
type GetOrderQuery struct {
	UserID  string
	OrderID string
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return domain.NewValidationError("user_id", "user_id is required")
	}
	if strings.TrimSpace(q.OrderID) == "" {
		return domain.NewValidationError("order_id", "order_id is required")
	}
	return nil
}

// GetOrderQueryHandler executes GetOrderQuery. Orders owned by another user
// are reported as not found.
type GetOrderQueryHandler struct {
	orders ports.OrderStore
}

// NewGetOrderQueryHandler constructs a GetOrderQueryHandler.
func NewGetOrderQueryHandler(orders ports.OrderStore) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{orders: orders}
}

// Handle executes the query and retrieves the order.
func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	order, err := h.orders.GetByID(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != query.UserID {
		return nil, ports.ErrOrderNotFound
	}

	return order, nil
}

// GetReceiptQueryHandler re-derives the receipt of a stored order.
type GetReceiptQueryHandler struct {
	orders *GetOrderQueryHandler
}

func NewGetReceiptQueryHandler(orders *GetOrderQueryHandler) *GetReceiptQueryHandler {
	return &GetReceiptQueryHandler{orders: orders}
}

func (h *GetReceiptQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Receipt, error) {
	order, err := h.orders.Handle(ctx, query)
	if err != nil {
		return nil, err
	}
	receipt := domain.NewReceipt(*order)
	return &receipt, nil
}

// ListOrdersQuery pages through a user's orders, newest first.
type ListOrdersQuery struct {
	UserID   string
	Page     int
	PageSize int
}

const (
	maxPageSize = 100
	maxPage     = math.MaxInt / maxPageSize
)

func (q ListOrdersQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return domain.NewValidationError("user_id", "user_id is required")
	}
	if q.Page < 0 {
		return domain.NewValidationError("page", "page cannot be negative")
	}
	if q.Page > maxPage {
		return domain.NewValidationError("page", "page is too large")
	}
	if q.PageSize < 0 || q.PageSize > maxPageSize {
		return domain.NewValidationError("page_size", "page_size must be between 1 and 100")
	}
	return nil
}

type ListOrdersQueryHandler struct {
	orders ports.OrderStore
}

func NewListOrdersQueryHandler(orders ports.OrderStore) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{orders: orders}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	filter := ports.ListFilter{Page: query.Page, PageSize: query.PageSize}.Normalize()
	return h.orders.ListByUser(ctx, query.UserID, filter)
}
