package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/silverline-jewels/storefront-api/internal/platform/auth"
	"github.com/silverline-jewels/storefront-api/internal/platform/httpx"
	"github.com/silverline-jewels/storefront-api/internal/services"
)

const maxAuthRequestBody = 8 * 1024

// AuthHandlers exposes registration and token endpoints.
type AuthHandlers struct {
	users  services.UserService
	issuer *auth.TokenIssuer
}

// NewAuthHandlers constructs the authentication handlers.
func NewAuthHandlers(users services.UserService, issuer *auth.TokenIssuer) *AuthHandlers {
	return &AuthHandlers{
		users:  users,
		issuer: issuer,
	}
}

// Routes registers the public authentication endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/auth/register", h.register)
	r.Post("/auth/token", h.issueToken)
	r.Post("/auth/token/refresh", h.refreshToken)
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if !decodeJSONBody(w, r, &req, maxAuthRequestBody) {
		return
	}

	user, err := h.users.Register(ctx, services.RegisterUserCommand{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		case errors.Is(err, services.ErrUserDuplicate):
			httpx.WriteError(ctx, w, httpx.NewError("username_taken", "username is already taken", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("internal_error", "registration failed", http.StatusInternalServerError))
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *AuthHandlers) issueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenRequest
	if !decodeJSONBody(w, r, &req, maxAuthRequestBody) {
		return
	}

	user, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserInvalidCredentials) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "username or password is incorrect", http.StatusUnauthorized))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "authentication failed", http.StatusInternalServerError))
		return
	}

	pair, err := h.issuer.IssuePair(user.ID, user.Username)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "token issuance failed", http.StatusInternalServerError))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (h *AuthHandlers) refreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if !decodeJSONBody(w, r, &req, maxAuthRequestBody) {
		return
	}

	pair, err := h.issuer.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			httpx.WriteError(ctx, w, httpx.NewError("token_expired", "refresh token has expired", http.StatusUnauthorized))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "refresh token is invalid", http.StatusUnauthorized))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

func toUserResponse(user services.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
	}
}

func toTokenResponse(pair auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
