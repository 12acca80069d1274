package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/silverline-jewels/storefront-api/internal/platform/auth"
	"github.com/silverline-jewels/storefront-api/internal/platform/httpx"
	"github.com/silverline-jewels/storefront-api/internal/services"
)

const maxAddressRequestBody = 8 * 1024

// AddressHandlers exposes the shipping address endpoints.
type AddressHandlers struct {
	authn     *auth.Authenticator
	addresses services.AddressService
}

// NewAddressHandlers constructs the address handlers.
func NewAddressHandlers(authn *auth.Authenticator, addresses services.AddressService) *AddressHandlers {
	return &AddressHandlers{
		authn:     authn,
		addresses: addresses,
	}
}

// Routes registers the address endpoints.
func (h *AddressHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireAuth())
	}
	group.Get("/addresses", h.list)
	group.Post("/addresses", h.create)
	group.Put("/addresses/{addressID}", h.update)
	group.Delete("/addresses/{addressID}", h.remove)
}

type addressRequest struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}

type addressResponse struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}

func (h *AddressHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	addresses, err := h.addresses.ListAddresses(ctx, identity.UserID)
	if err != nil {
		h.writeAddressError(w, r, err)
		return
	}

	out := make([]addressResponse, 0, len(addresses))
	for _, address := range addresses {
		out = append(out, toAddressResponse(address))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AddressHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req addressRequest
	if !decodeJSONBody(w, r, &req, maxAddressRequestBody) {
		return
	}

	address, err := h.addresses.CreateAddress(ctx, toUpsertCommand(identity.UserID, "", req))
	if err != nil {
		h.writeAddressError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAddressResponse(address))
}

func (h *AddressHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	var req addressRequest
	if !decodeJSONBody(w, r, &req, maxAddressRequestBody) {
		return
	}

	address, err := h.addresses.UpdateAddress(ctx, toUpsertCommand(identity.UserID, addressID, req))
	if err != nil {
		h.writeAddressError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAddressResponse(address))
}

func (h *AddressHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if err := h.addresses.DeleteAddress(ctx, identity.UserID, addressID); err != nil {
		h.writeAddressError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toUpsertCommand(userID, addressID string, req addressRequest) services.UpsertAddressCommand {
	return services.UpsertAddressCommand{
		UserID:     userID,
		AddressID:  addressID,
		FullName:   req.FullName,
		Phone:      req.Phone,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	}
}

func toAddressResponse(address services.Address) addressResponse {
	return addressResponse{
		ID:         address.ID,
		FullName:   address.FullName,
		Phone:      address.Phone,
		Line1:      address.Line1,
		Line2:      address.Line2,
		City:       address.City,
		State:      address.State,
		PostalCode: address.PostalCode,
		Country:    address.Country,
		IsDefault:  address.IsDefault,
	}
}

func (h *AddressHandlers) writeAddressError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrAddressInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAddressNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "address not found", http.StatusNotFound))
	case errors.Is(err, services.ErrAddressInUse):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "address is referenced by an order", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "address operation failed", http.StatusInternalServerError))
	}
}
