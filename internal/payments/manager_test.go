package payments

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	name     string
	order    GatewayOrder
	err      error
	verified bool

	createCalls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	s.createCalls++
	if s.err != nil {
		return GatewayOrder{}, s.err
	}
	return s.order, nil
}

func (s *stubProvider) VerifySignature(providerOrderID, providerPaymentID, signature string) bool {
	return s.verified
}

func TestManagerResolvePreferredProvider(t *testing.T) {
	razorpay := &stubProvider{name: ProviderRazorpay}
	stripe := &stubProvider{name: ProviderStripe}

	manager, err := NewManager(map[string]Provider{
		ProviderRazorpay: razorpay,
		ProviderStripe:   stripe,
	})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	provider, err := manager.Resolve(PaymentContext{PreferredProvider: "Stripe"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if provider.Name() != ProviderStripe {
		t.Fatalf("expected stripe, got %s", provider.Name())
	}

	if _, err := manager.Resolve(PaymentContext{PreferredProvider: "paypal"}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestManagerDefaultsToRazorpay(t *testing.T) {
	razorpay := &stubProvider{name: ProviderRazorpay}
	stripe := &stubProvider{name: ProviderStripe}

	manager, err := NewManager(map[string]Provider{
		ProviderRazorpay: razorpay,
		ProviderStripe:   stripe,
	})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	provider, err := manager.Resolve(PaymentContext{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if provider.Name() != ProviderRazorpay {
		t.Fatalf("expected razorpay default, got %s", provider.Name())
	}
}

func TestManagerCurrencyRouting(t *testing.T) {
	razorpay := &stubProvider{name: ProviderRazorpay}
	stripe := &stubProvider{name: ProviderStripe, order: GatewayOrder{ProviderOrderID: "pi_1"}}

	manager, err := NewManager(map[string]Provider{
		ProviderRazorpay: razorpay,
		ProviderStripe:   stripe,
	}, WithCurrencyRoutes(map[string]string{"usd": ProviderStripe}))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	order, err := manager.CreateOrder(context.Background(), PaymentContext{Currency: "USD"}, CreateOrderRequest{Amount: 100})
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if order.ProviderOrderID != "pi_1" {
		t.Fatalf("expected routed order, got %+v", order)
	}
	if stripe.createCalls != 1 || razorpay.createCalls != 0 {
		t.Fatalf("expected stripe to handle USD, calls stripe=%d razorpay=%d", stripe.createCalls, razorpay.createCalls)
	}
}
