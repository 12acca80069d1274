package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubSecretClient struct {
	values map[string]string
	err    error
	calls  int
}

func (s *stubSecretClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret version not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (s *stubSecretClient) Close() error { return nil }

func TestResolveRemote(t *testing.T) {
	client := &stubSecretClient{values: map[string]string{
		"projects/demo/secrets/razorpay-key/versions/latest": "rzp-secret",
	}}
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(client),
		WithDefaultProject("demo"),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	value, err := fetcher.Resolve(context.Background(), "secret://razorpay-key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "rzp-secret" {
		t.Fatalf("expected rzp-secret, got %q", value)
	}
}

func TestResolveCachesValues(t *testing.T) {
	client := &stubSecretClient{values: map[string]string{
		"projects/demo/secrets/token/versions/latest": "abc",
	}}
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(client),
		WithDefaultProject("demo"),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := fetcher.Resolve(context.Background(), "secret://token"); err != nil {
			t.Fatalf("Resolve %d returned error: %v", i, err)
		}
	}
	if client.calls != 1 {
		t.Fatalf("expected a single remote call, got %d", client.calls)
	}

	fetcher.Invalidate("secret://token")
	if _, err := fetcher.Resolve(context.Background(), "secret://token"); err != nil {
		t.Fatalf("Resolve after invalidate returned error: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected remote refetch after invalidate, got %d calls", client.calls)
	}
}

func TestResolveFallbackFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".secrets.local")
	content := "# local only\nsecret://razorpay-key=local-value\nsm://stripe-key=sk_test_123\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	client := &stubSecretClient{err: status.Error(codes.PermissionDenied, "denied")}
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(client),
		WithDefaultProject("demo"),
		WithFallbackFile(path),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	value, err := fetcher.Resolve(context.Background(), "secret://razorpay-key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "local-value" {
		t.Fatalf("expected local-value, got %q", value)
	}

	value, err = fetcher.Resolve(context.Background(), "secret://stripe-key")
	if err != nil {
		t.Fatalf("Resolve sm:// alias returned error: %v", err)
	}
	if value != "sk_test_123" {
		t.Fatalf("expected sk_test_123, got %q", value)
	}
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(&stubSecretClient{}),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	if _, err := fetcher.Resolve(context.Background(), "vault://foo"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestResolveNotFoundIsTerminal(t *testing.T) {
	client := &stubSecretClient{values: map[string]string{}}
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(client),
		WithDefaultProject("demo"),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	if _, err := fetcher.Resolve(context.Background(), "secret://missing"); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if client.calls != 1 {
		t.Fatalf("expected one remote call, got %d", client.calls)
	}
}
