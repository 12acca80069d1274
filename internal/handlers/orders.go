package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/platform/auth"
	"github.com/silverline-jewels/storefront-api/internal/platform/httpx"
	"github.com/silverline-jewels/storefront-api/internal/services"
)

// OrderHandlers exposes the caller's order history endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs the order history handlers.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the order history endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireAuth())
	}
	group.Get("/user/orders", h.list)
	group.Get("/user/orders/{orderID}", h.get)
	group.Post("/user/orders/{orderID}/cancel", h.cancel)
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Number        string              `json:"number"`
	AddressID     string              `json:"address_id"`
	Subtotal      string              `json:"subtotal"`
	ShippingFee   string              `json:"shipping_fee"`
	Total         string              `json:"total"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	Notes         string              `json:"notes,omitempty"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     string              `json:"created_at"`
}

type orderListResponse struct {
	Items         []orderResponse `json:"items"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	pager := services.Pagination{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
			return
		}
		pager.PageSize = size
	}

	page, err := h.orders.ListOrders(ctx, identity.UserID, pager)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	out := orderListResponse{
		Items:         make([]orderResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, order := range page.Items {
		out.Items = append(out.Items, toOrderResponse(order))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	order, err := h.orders.GetOrder(ctx, identity.UserID, orderID)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	order, err := h.orders.CancelOrder(ctx, identity.UserID, orderID)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(order services.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     domain.FormatAmount(item.Price),
			LineTotal: domain.FormatAmount(item.LineTotal()),
		})
	}
	return orderResponse{
		ID:            order.ID,
		Number:        order.Number,
		AddressID:     order.AddressID,
		Subtotal:      domain.FormatAmount(order.Subtotal),
		ShippingFee:   domain.FormatAmount(order.ShippingFee),
		Total:         domain.FormatAmount(order.Total),
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Notes:         order.Notes,
		Items:         items,
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *OrderHandlers) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "order lookup failed", http.StatusInternalServerError))
	}
}
