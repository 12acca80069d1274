package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubVerifier struct {
	claims *Claims
	err    error

	gotToken string
	gotType  string
}

func (s *stubVerifier) Verify(tokenStr string, expectedType string) (*Claims, error) {
	s.gotToken = tokenStr
	s.gotType = expectedType
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func TestRequireAuthMissingHeader(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be invoked")
	}))

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	verifier := &stubVerifier{err: ErrTokenInvalid}
	authn := NewAuthenticator(verifier)
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be invoked")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if verifier.gotToken != "bad-token" || verifier.gotType != TokenTypeAccess {
		t.Fatalf("unexpected verify call: token=%q type=%q", verifier.gotToken, verifier.gotType)
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{err: ErrTokenExpired})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be invoked")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthPopulatesIdentity(t *testing.T) {
	verifier := &stubVerifier{claims: &Claims{Username: "asha", TokenType: TokenTypeAccess}}
	verifier.claims.Subject = "usr_01"
	authn := NewAuthenticator(verifier)

	var seen *Identity
	handler := authn.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if seen == nil {
		t.Fatal("expected identity on request context")
	}
	if seen.UserID != "usr_01" || seen.Username != "asha" {
		t.Fatalf("unexpected identity: %+v", seen)
	}
}
