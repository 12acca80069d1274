package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"API_FIRESTORE_PROJECT_ID": "demo-project",
		"API_AUTH_TOKEN_SECRET":    "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(baseEnv()),
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080 got %s", cfg.Server.Port)
	}
	if cfg.Gateway.Provider != "razorpay" {
		t.Fatalf("expected default provider razorpay got %s", cfg.Gateway.Provider)
	}
	if cfg.Gateway.Currency != "INR" {
		t.Fatalf("expected default currency INR got %s", cfg.Gateway.Currency)
	}
	if cfg.Gateway.RazorpayKeyID != "" || cfg.Gateway.RazorpayKeySecret != "" {
		t.Fatalf("expected empty gateway credentials by default")
	}
	if cfg.Auth.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("unexpected access token ttl %s", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Events.ProjectID != "demo-project" {
		t.Fatalf("events project should default to firestore project, got %s", cfg.Events.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{"API_FIRESTORE_PROJECT_ID": "demo-project"}),
	)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError got %v", err)
	}
	found := false
	for _, field := range validation.Fields() {
		if field == "Auth.TokenSecret" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Auth.TokenSecret in %v", validation.Fields())
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	env := baseEnv()
	env["API_GATEWAY_RAZORPAY_KEY_SECRET"] = "sm://projects/demo/secrets/rzp-secret"

	var requested string
	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(env),
		WithSecretResolver(SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
			requested = ref
			return "resolved-secret", nil
		})),
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if requested != "secret://projects/demo/secrets/rzp-secret" {
		t.Fatalf("expected normalised secret ref, got %q", requested)
	}
	if cfg.Gateway.RazorpayKeySecret != "resolved-secret" {
		t.Fatalf("expected resolved secret, got %q", cfg.Gateway.RazorpayKeySecret)
	}
}

func TestLoadSecretResolverFailure(t *testing.T) {
	env := baseEnv()
	env["API_AUTH_TOKEN_SECRET"] = "secret://projects/demo/secrets/jwt"

	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(env),
		WithSecretResolver(SecretResolverFunc(func(context.Context, string) (string, error) {
			return "", errors.New("backend unavailable")
		})),
	)
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError got %v", err)
	}
}
