package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// CreateOrderRequest captures the payload required to open a gateway payment session.
type CreateOrderRequest struct {
	// OrderID is the internal order identifier, forwarded to the gateway as
	// a reconciliation reference.
	OrderID string
	// Receipt is the human-readable order number.
	Receipt string
	// Amount is the total in the currency's minor unit (paise for INR).
	Amount int64
	// Currency is the ISO 4217 code.
	Currency string
	Notes    map[string]string
}

// GatewayOrder represents the session created on the gateway side.
type GatewayOrder struct {
	ProviderOrderID string
	Provider        string
	Amount          int64
	Currency        string
	CreatedAt       time.Time
	Raw             map[string]any
}

// Provider defines the contract for gateway adapters to implement.
type Provider interface {
	// Name returns the provider key used for routing and persistence.
	Name() string
	// CreateOrder opens a payment session for the given amount.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error)
	// VerifySignature checks the gateway callback signature over the
	// provider order and payment identifiers. Implementations fail closed:
	// a missing secret never verifies.
	VerifySignature(providerOrderID, providerPaymentID, signature string) bool
}

// Manager coordinates provider selection and exposes the aggregated interface.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the default provider for currencies without explicit routing.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = strings.TrimSpace(strings.ToLower(provider))
	}
}

// WithCurrencyRoutes configures static currency to provider mappings.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for k, v := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	copyMap := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := strings.TrimSpace(strings.ToLower(k))
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{providers: copyMap}
	if _, ok := copyMap["razorpay"]; ok {
		m.defaultProvider = "razorpay"
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// PaymentContext defines the hints available when selecting a provider.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
}

// Resolve picks the provider for the given context: explicit preference,
// then currency routing, then the default.
func (m *Manager) Resolve(ctx PaymentContext) (Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return nil, errors.New("payments: no providers registered")
	}
	if preferred := strings.TrimSpace(strings.ToLower(ctx.PreferredProvider)); preferred != "" {
		if p, ok := m.providers[preferred]; ok {
			return p, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, preferred)
	}
	currency := strings.ToUpper(strings.TrimSpace(ctx.Currency))
	if currency != "" && m.currencyRoutes != nil {
		if key, ok := m.currencyRoutes[currency]; ok {
			if p, ok := m.providers[strings.TrimSpace(strings.ToLower(key))]; ok {
				return p, nil
			}
		}
	}
	if def := m.defaultProvider; def != "" {
		if p, ok := m.providers[def]; ok {
			return p, nil
		}
	}
	return nil, ErrUnsupportedProvider
}

// CreateOrder resolves a provider for the context and opens the session.
func (m *Manager) CreateOrder(ctx context.Context, pctx PaymentContext, req CreateOrderRequest) (GatewayOrder, error) {
	provider, err := m.Resolve(pctx)
	if err != nil {
		return GatewayOrder{}, err
	}
	return provider.CreateOrder(ctx, req)
}

// VerifySignature resolves the named provider and checks the callback signature.
func (m *Manager) VerifySignature(providerName, providerOrderID, providerPaymentID, signature string) (bool, error) {
	provider, err := m.Resolve(PaymentContext{PreferredProvider: providerName})
	if err != nil {
		return false, err
	}
	return provider.VerifySignature(providerOrderID, providerPaymentID, signature), nil
}
