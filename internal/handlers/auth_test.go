package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/silverline-jewels/storefront-api/internal/platform/auth"
	"github.com/silverline-jewels/storefront-api/internal/services"
)

type stubUserService struct {
	registerFunc      func(ctx context.Context, cmd services.RegisterUserCommand) (services.User, error)
	authenticateFunc  func(ctx context.Context, username, password string) (services.User, error)
	getProfileFunc    func(ctx context.Context, userID string) (services.User, error)
	updateProfileFunc func(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error)
}

func (s *stubUserService) Register(ctx context.Context, cmd services.RegisterUserCommand) (services.User, error) {
	return s.registerFunc(ctx, cmd)
}

func (s *stubUserService) Authenticate(ctx context.Context, username, password string) (services.User, error) {
	return s.authenticateFunc(ctx, username, password)
}

func (s *stubUserService) GetProfile(ctx context.Context, userID string) (services.User, error) {
	return s.getProfileFunc(ctx, userID)
}

func (s *stubUserService) UpdateProfile(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
	return s.updateProfileFunc(ctx, cmd)
}

func newAuthTestRouter(t *testing.T, users services.UserService) http.Handler {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Secret:     "test-secret",
		Issuer:     "storefront-api",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 168 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	handlers := NewAuthHandlers(users, issuer)
	return NewRouter(WithAuthRoutes(handlers.Routes))
}

func TestRegisterEndpoint(t *testing.T) {
	users := &stubUserService{
		registerFunc: func(ctx context.Context, cmd services.RegisterUserCommand) (services.User, error) {
			return services.User{ID: "usr_1", Username: "asha", Email: "asha@example.com"}, nil
		},
	}
	router := newAuthTestRouter(t, users)

	body := `{"username":"asha","email":"asha@example.com","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "usr_1" || resp.Username != "asha" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRegisterEndpointDuplicateUsername(t *testing.T) {
	users := &stubUserService{
		registerFunc: func(ctx context.Context, cmd services.RegisterUserCommand) (services.User, error) {
			return services.User{}, services.ErrUserDuplicate
		},
	}
	router := newAuthTestRouter(t, users)

	body := `{"username":"asha","email":"asha@example.com","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTokenEndpointIssuesPair(t *testing.T) {
	users := &stubUserService{
		authenticateFunc: func(ctx context.Context, username, password string) (services.User, error) {
			if username != "asha" || password != "correct-horse" {
				return services.User{}, services.ErrUserInvalidCredentials
			}
			return services.User{ID: "usr_1", Username: "asha"}, nil
		},
	}
	router := newAuthTestRouter(t, users)

	body := `{"username":"asha","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected a token pair, got %+v", resp)
	}

	// The refresh endpoint accepts the refresh token it just issued.
	refreshBody, err := json.Marshal(refreshRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("marshal refresh request: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/auth/token/refresh", strings.NewReader(string(refreshBody)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from refresh, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTokenEndpointRejectsBadCredentials(t *testing.T) {
	users := &stubUserService{
		authenticateFunc: func(ctx context.Context, username, password string) (services.User, error) {
			return services.User{}, services.ErrUserInvalidCredentials
		},
	}
	router := newAuthTestRouter(t, users)

	body := `{"username":"asha","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
