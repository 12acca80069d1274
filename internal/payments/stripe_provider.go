package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// ProviderStripe is the provider key for the Stripe gateway.
const ProviderStripe = "stripe"

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey string
	// WebhookSecret signs settlement callbacks; an empty secret fails closed.
	WebhookSecret string
	Clock         func() time.Time
	// Intents overrides the payment intent API, primarily for tests.
	Intents stripePaymentIntentAPI
}

// StripeProvider implements the Provider interface using Stripe payment intents.
type StripeProvider struct {
	intents       stripePaymentIntentAPI
	webhookSecret string
	clock         func() time.Time
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, nil)
		intents = sc.PaymentIntents
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &StripeProvider{
		intents:       intents,
		webhookSecret: cfg.WebhookSecret,
		clock:         clock,
	}, nil
}

// Name returns the provider key.
func (p *StripeProvider) Name() string { return ProviderStripe }

// CreateOrder opens a Stripe payment intent for the given amount in minor units.
func (p *StripeProvider) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	if p == nil || p.intents == nil {
		return GatewayOrder{}, errors.New("stripe: provider not initialised")
	}
	if req.Amount <= 0 {
		return GatewayOrder{}, errors.New("stripe: amount must be positive")
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "inr"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	if receipt := strings.TrimSpace(req.Receipt); receipt != "" {
		params.AddMetadata("receipt", receipt)
	}
	if orderID := strings.TrimSpace(req.OrderID); orderID != "" {
		params.AddMetadata("order_id", orderID)
	}
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	intent, err := p.intents.New(params)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if intent == nil || strings.TrimSpace(intent.ID) == "" {
		return GatewayOrder{}, errors.New("stripe: payment intent response missing id")
	}

	return GatewayOrder{
		ProviderOrderID: intent.ID,
		Provider:        ProviderStripe,
		Amount:          intent.Amount,
		Currency:        strings.ToUpper(string(intent.Currency)),
		CreatedAt:       p.clock().UTC(),
		Raw: map[string]any{
			"id":            intent.ID,
			"client_secret": intent.ClientSecret,
			"status":        string(intent.Status),
		},
	}, nil
}

// VerifySignature checks the callback HMAC with the webhook secret. An empty
// secret fails closed.
func (p *StripeProvider) VerifySignature(providerOrderID, providerPaymentID, signature string) bool {
	if p == nil {
		return false
	}
	return VerifyCallbackSignature(p.webhookSecret, providerOrderID, providerPaymentID, signature)
}
