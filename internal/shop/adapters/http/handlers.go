package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/storefront/internal/shop/app"
	"github.com/dejobratic/storefront/internal/shop/app/queries"
	"github.com/dejobratic/storefront/internal/shop/domain"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	maxBodyBytes         = 1 << 20
)

// Handler exposes the catalog, cart, checkout and order endpoints.
type Handler struct {
	service *app.Service
	logger  *slog.Logger
}

func NewHandler(service *app.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the /v1 routes. Cart, checkout and order routes require a user.
func (h *Handler) Register(r chi.Router, defaultUserID string) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/category/{category}", h.listProductsByCategory)
			r.Get("/{productID}", h.getProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireUser(defaultUserID))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.getCart)
				r.Delete("/", h.clearCart)
				r.Post("/items", h.addItem)
				r.Put("/items/{lineID}", h.updateItem)
				r.Delete("/items/{lineID}", h.removeItem)
			})

			r.Post("/checkout", h.checkout)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.listOrders)
				r.Get("/{orderID}", h.getOrder)
				r.Get("/{orderID}/receipt", h.getReceipt)
			})
		})
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := queries.ListProductsQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}

	var err error
	if query.MinPrice, err = parsePrice(q.Get("min_price"), "min_price"); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if query.MaxPrice, err = parsePrice(q.Get("max_price"), "max_price"); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	h.writeProducts(w, r, query)
}

func (h *Handler) listProductsByCategory(w http.ResponseWriter, r *http.Request) {
	h.writeProducts(w, r, queries.ListProductsQuery{
		Category: chi.URLParam(r, "category"),
		Sort:     r.URL.Query().Get("sort"),
	})
}

func (h *Handler) writeProducts(w http.ResponseWriter, r *http.Request, query queries.ListProductsQuery) {
	products, err := h.service.ListProducts(r.Context(), query)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": views, "count": len(views)})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": newProductView(*product)})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), UserID(r.Context()))
	h.writeCart(w, r, cart, err)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var payload app.AddItemInput
	if !h.decode(w, r, &payload) {
		return
	}
	cart, err := h.service.AddItem(r.Context(), UserID(r.Context()), payload)
	h.writeCart(w, r, cart, err)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var payload app.UpdateItemInput
	if !h.decode(w, r, &payload) {
		return
	}
	cart, err := h.service.UpdateItem(r.Context(), UserID(r.Context()), chi.URLParam(r, "lineID"), payload)
	h.writeCart(w, r, cart, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveItem(r.Context(), UserID(r.Context()), chi.URLParam(r, "lineID"))
	h.writeCart(w, r, cart, err)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearCart(r.Context(), UserID(r.Context()))
	h.writeCart(w, r, cart, err)
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, cart *queries.CartView, err error) {
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": newCartView(cart)})
}

// checkout replays the stored response when the Idempotency-Key was already
// used by the same user. Failed checkouts are not stored so they can be retried.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserID(ctx)

	var idemKey string
	if key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)); key != "" {
		idemKey = userID + ":" + key

		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			writeDomainError(w, r, h.logger, err)
			return
		}
		if stored != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(replayedHeader, "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	var payload app.CheckoutInput
	if !h.decode(w, r, &payload) {
		return
	}

	receipt, err := h.service.Checkout(ctx, userID, payload)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	body, err := json.Marshal(map[string]any{
		"message": "Order placed successfully",
		"receipt": newReceiptView(receipt),
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			StatusCode: http.StatusCreated,
			Body:       body,
			OrderID:    receipt.OrderID,
		}
		// The order is already placed; a lost key only costs replay protection.
		if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
			h.logger.WarnContext(ctx, "failed to store idempotent response", "order_id", receipt.OrderID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/v1/orders/"+receipt.OrderID)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := parseInt(r.URL.Query().Get("page"), "page")
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	pageSize, err := parseInt(r.URL.Query().Get("page_size"), "page_size")
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), UserID(r.Context()), page, pageSize)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), UserID(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": newOrderView(*order)})
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.GetReceipt(r.Context(), UserID(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipt": newReceiptView(receipt)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func parsePrice(raw, field string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.NewValidationError(field, field+" must be a number")
	}
	return &price, nil
}

func parseInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(field, field+" must be an integer")
	}
	return n, nil
}
