package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

const (
	// ProviderRazorpay is the provider key for the Razorpay gateway.
	ProviderRazorpay = "razorpay"

	defaultGatewayTimeout = 10 * time.Second
)

// ErrGatewayUnavailable wraps transport failures and timeouts talking to the gateway.
var ErrGatewayUnavailable = errors.New("payments: gateway unavailable")

type razorpayOrderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProviderConfig configures the RazorpayProvider.
type RazorpayProviderConfig struct {
	KeyID     string
	KeySecret string
	// Timeout bounds the gateway session call. Defaults to ten seconds.
	Timeout time.Duration
	Clock   func() time.Time
	// Orders overrides the order API, primarily for tests.
	Orders razorpayOrderAPI
}

// RazorpayProvider implements the Provider interface against the Razorpay Orders API.
type RazorpayProvider struct {
	orders    razorpayOrderAPI
	keySecret string
	timeout   time.Duration
	clock     func() time.Time
}

// NewRazorpayProvider constructs a Razorpay Provider using the given
// configuration. Absent credentials are not an error: the service still
// boots, order creation fails upstream, and with an empty secret every
// signature check fails closed.
func NewRazorpayProvider(cfg RazorpayProviderConfig) (*RazorpayProvider, error) {
	keyID := strings.TrimSpace(cfg.KeyID)

	orders := cfg.Orders
	if orders == nil {
		client := razorpay.NewClient(keyID, cfg.KeySecret)
		orders = client.Order
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &RazorpayProvider{
		orders:    orders,
		keySecret: cfg.KeySecret,
		timeout:   timeout,
		clock:     clock,
	}, nil
}

// Name returns the provider key.
func (p *RazorpayProvider) Name() string { return ProviderRazorpay }

// CreateOrder opens a Razorpay order for the given amount in minor units.
// The gateway call runs under a bounded timeout; failures surface as
// ErrGatewayUnavailable rather than being retried here.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	if p == nil || p.orders == nil {
		return GatewayOrder{}, errors.New("razorpay: provider not initialised")
	}
	if req.Amount <= 0 {
		return GatewayOrder{}, errors.New("razorpay: amount must be positive")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "INR"
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": currency,
	}
	if receipt := strings.TrimSpace(req.Receipt); receipt != "" {
		data["receipt"] = receipt
	}
	notes := map[string]interface{}{}
	if orderID := strings.TrimSpace(req.OrderID); orderID != "" {
		notes["order_id"] = orderID
	}
	for k, v := range req.Notes {
		notes[k] = v
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	type createResult struct {
		body map[string]interface{}
		err  error
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resultCh := make(chan createResult, 1)
	go func() {
		body, err := p.orders.Create(data, nil)
		resultCh <- createResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return GatewayOrder{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
	case result := <-resultCh:
		if result.err != nil {
			return GatewayOrder{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, result.err)
		}
		return p.decodeOrder(result.body, currency)
	}
}

// VerifySignature checks the callback HMAC with the key secret. An empty
// secret fails closed.
func (p *RazorpayProvider) VerifySignature(providerOrderID, providerPaymentID, signature string) bool {
	if p == nil {
		return false
	}
	return VerifyCallbackSignature(p.keySecret, providerOrderID, providerPaymentID, signature)
}

func (p *RazorpayProvider) decodeOrder(body map[string]interface{}, fallbackCurrency string) (GatewayOrder, error) {
	orderID, _ := body["id"].(string)
	if strings.TrimSpace(orderID) == "" {
		return GatewayOrder{}, errors.New("razorpay: order response missing id")
	}

	amount, err := decodeAmount(body["amount"])
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("razorpay: order response amount: %w", err)
	}

	currency, _ := body["currency"].(string)
	if strings.TrimSpace(currency) == "" {
		currency = fallbackCurrency
	}

	return GatewayOrder{
		ProviderOrderID: orderID,
		Provider:        ProviderRazorpay,
		Amount:          amount,
		Currency:        strings.ToUpper(currency),
		CreatedAt:       p.clock().UTC(),
		Raw:             body,
	}, nil
}

func decodeAmount(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case nil:
		return 0, errors.New("missing")
	default:
		return 0, fmt.Errorf("unexpected type %T", value)
	}
}
