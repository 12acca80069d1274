package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/platform/auth"
	"github.com/silverline-jewels/storefront-api/internal/platform/httpx"
	"github.com/silverline-jewels/storefront-api/internal/services"
)

const maxCheckoutRequestBody = 32 * 1024

// CheckoutHandlers exposes the checkout and payment endpoints for
// authenticated users.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers guarded by bearer authentication.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
	}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireAuth())
	}
	group.Post("/checkout/create-order", h.createOrder)
	group.Post("/checkout/gateway/create", h.createGatewaySession)
	group.Post("/checkout/gateway/verify", h.verifyGatewayPayment)
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items         []createOrderItemRequest `json:"items"`
	AddressID     string                   `json:"address_id"`
	PaymentMethod string                   `json:"payment_method"`
	Notes         string                   `json:"notes"`
}

type createOrderResponse struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Total       string `json:"total"`
	Status      string `json:"status"`
}

type gatewayCreateRequest struct {
	OrderID string `json:"order_id"`
}

type gatewayCreateResponse struct {
	ProviderOrderID string `json:"provider_order_id"`
	Provider        string `json:"provider"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type gatewayVerifyRequest struct {
	OrderID           string `json:"order_id"`
	ProviderOrderID   string `json:"provider_order_id"`
	ProviderPaymentID string `json:"provider_payment_id"`
	ProviderSignature string `json:"provider_signature"`
}

func (h *CheckoutHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeJSONBody(w, r, &req, maxCheckoutRequestBody) {
		return
	}

	items := make([]services.CartItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.CartItemInput{
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.checkout.CreateOrder(ctx, services.CreateOrderCommand{
		UserID:        identity.UserID,
		AddressID:     req.AddressID,
		PaymentMethod: domain.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
		Notes:         req.Notes,
		Items:         items,
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Total:       domain.FormatAmount(order.Total),
		Status:      string(order.Status),
	})
}

func (h *CheckoutHandlers) createGatewaySession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req gatewayCreateRequest
	if !decodeJSONBody(w, r, &req, maxCheckoutRequestBody) {
		return
	}

	session, err := h.checkout.OpenGatewaySession(ctx, identity.UserID, req.OrderID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, gatewayCreateResponse{
		ProviderOrderID: session.ProviderOrderID,
		Provider:        session.Provider,
		Amount:          session.Amount,
		Currency:        session.Currency,
	})
}

func (h *CheckoutHandlers) verifyGatewayPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req gatewayVerifyRequest
	if !decodeJSONBody(w, r, &req, maxCheckoutRequestBody) {
		return
	}

	_, err := h.checkout.CompletePayment(ctx, services.CompletePaymentCommand{
		UserID:            identity.UserID,
		OrderID:           req.OrderID,
		ProviderOrderID:   req.ProviderOrderID,
		ProviderPaymentID: req.ProviderPaymentID,
		ProviderSignature: req.ProviderSignature,
	})
	if err != nil {
		if errors.Is(err, services.ErrCheckoutSignatureMismatch) {
			httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"status": "failed",
				"detail": "signature verification failed",
			})
			return
		}
		h.writeCheckoutError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (h *CheckoutHandlers) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutUpstream):
		httpx.WriteError(ctx, w, httpx.NewError("gateway_unavailable", "payment gateway is unavailable, retry shortly", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "checkout failed", http.StatusInternalServerError))
	}
}
