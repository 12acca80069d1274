package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/payments"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

const (
	orderIDPrefix   = "ord_"
	paymentIDPrefix = "pay_"

	orderCounterID    = "orders"
	orderNumberFormat = "SL-%d-%06d"

	// Gateway sessions are always opened in INR; the storefront does not
	// price in other currencies.
	orderCurrency = "INR"

	maxOrderNotesLength = 500
)

var (
	// ErrCheckoutInvalidInput indicates a malformed cart or payload.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutNotFound indicates the order or address does not exist for the caller.
	ErrCheckoutNotFound = errors.New("checkout: not found")
	// ErrCheckoutConflict indicates the order state does not permit the operation.
	ErrCheckoutConflict = errors.New("checkout: conflict")
	// ErrCheckoutUpstream indicates the gateway call failed; the caller may retry.
	ErrCheckoutUpstream = errors.New("checkout: gateway upstream failure")
	// ErrCheckoutSignatureMismatch indicates the callback signature did not verify.
	ErrCheckoutSignatureMismatch = errors.New("checkout: signature mismatch")
	// ErrCheckoutUnavailable indicates checkout dependencies are unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// checkoutGatewayManager abstracts payments.Manager for easier testing.
type checkoutGatewayManager interface {
	CreateOrder(ctx context.Context, pctx payments.PaymentContext, req payments.CreateOrderRequest) (payments.GatewayOrder, error)
	VerifySignature(providerName, providerOrderID, providerPaymentID, signature string) (bool, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Orders    repositories.OrderRepository
	Addresses repositories.AddressRepository
	Counters  repositories.CounterRepository
	Payments  checkoutGatewayManager
	Events    OrderEventPublisher
	Clock     func() time.Time
	// IDGenerator overrides entity id generation, primarily for tests.
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	orders    repositories.OrderRepository
	addresses repositories.AddressRepository
	counters  repositories.CounterRepository
	payments  checkoutGatewayManager
	events    OrderEventPublisher
	now       func() time.Time
	newID     func() string
	logger    func(ctx context.Context, event string, fields map[string]any)
	sanitizer *bluemonday.Policy
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Addresses == nil {
		return nil, errors.New("checkout service: address repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("checkout service: counter repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		orders:    deps.Orders,
		addresses: deps.Addresses,
		counters:  deps.Counters,
		payments:  deps.Payments,
		events:    deps.Events,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:     idGen,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// CreateOrder validates the cart, computes totals with exact decimals, and
// persists the order with its items atomically.
func (s *checkoutService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	addressID := strings.TrimSpace(cmd.AddressID)
	if addressID == "" {
		return Order{}, fmt.Errorf("%w: address id is required", ErrCheckoutInvalidInput)
	}
	if !domain.ValidPaymentMethod(cmd.PaymentMethod) {
		return Order{}, fmt.Errorf("%w: unknown payment method %q", ErrCheckoutInvalidInput, cmd.PaymentMethod)
	}
	if len(cmd.Items) == 0 {
		return Order{}, fmt.Errorf("%w: cart is empty", ErrCheckoutInvalidInput)
	}

	items := make([]OrderItem, 0, len(cmd.Items))
	subtotal := decimal.Zero
	for i, line := range cmd.Items {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			return Order{}, fmt.Errorf("%w: item %d is missing a product id", ErrCheckoutInvalidInput, i)
		}
		if line.Quantity < 1 {
			return Order{}, fmt.Errorf("%w: item %d quantity must be at least 1", ErrCheckoutInvalidInput, i)
		}
		price, err := domain.ParseAmount(line.Price)
		if err != nil {
			return Order{}, fmt.Errorf("%w: item %d price: %v", ErrCheckoutInvalidInput, i, err)
		}
		item := OrderItem{ProductID: productID, Quantity: line.Quantity, Price: price}
		items = append(items, item)
		subtotal = subtotal.Add(item.LineTotal())
	}

	// Address ownership check; the snapshot itself is not copied onto the order.
	if _, err := s.addresses.Get(ctx, userID, addressID); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	// Shipping is free across the storefront.
	shippingFee := decimal.Zero
	total := subtotal.Add(shippingFee)

	number, err := s.nextOrderNumber(ctx)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	order := Order{
		ID:            orderIDPrefix + s.newID(),
		Number:        number,
		UserID:        userID,
		AddressID:     addressID,
		Subtotal:      subtotal,
		ShippingFee:   shippingFee,
		Total:         total,
		Status:        domain.InitialOrderStatus(cmd.PaymentMethod),
		PaymentMethod: cmd.PaymentMethod,
		Notes:         s.sanitizeNotes(cmd.Notes),
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	s.publishOrderEvent(ctx, OrderEventCreated, order)
	return order, nil
}

// OpenGatewaySession asks the gateway to create a payment session for the
// order total in paise and records the pending Payment row. The Payment is
// written only after the gateway call succeeds.
func (s *checkoutService) OpenGatewaySession(ctx context.Context, userID string, orderID string) (GatewaySession, error) {
	userID = strings.TrimSpace(userID)
	orderID = strings.TrimSpace(orderID)
	if userID == "" || orderID == "" {
		return GatewaySession{}, fmt.Errorf("%w: user id and order id are required", ErrCheckoutInvalidInput)
	}

	order, err := s.orders.FindByUser(ctx, userID, orderID)
	if err != nil {
		return GatewaySession{}, s.translateRepoError(err)
	}
	if order.PaymentMethod != domain.PaymentMethodGateway {
		return GatewaySession{}, fmt.Errorf("%w: order %s is not a gateway order", ErrCheckoutInvalidInput, orderID)
	}
	if order.Status != domain.OrderStatusPending {
		return GatewaySession{}, fmt.Errorf("%w: order %s is %s", ErrCheckoutConflict, orderID, order.Status)
	}

	gatewayOrder, err := s.payments.CreateOrder(ctx, payments.PaymentContext{Currency: orderCurrency}, payments.CreateOrderRequest{
		OrderID:  order.ID,
		Receipt:  order.Number,
		Amount:   domain.MinorUnits(order.Total),
		Currency: orderCurrency,
	})
	if err != nil {
		if errors.Is(err, payments.ErrUnsupportedProvider) {
			return GatewaySession{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
		}
		return GatewaySession{}, fmt.Errorf("%w: %v", ErrCheckoutUpstream, err)
	}

	now := s.now()
	payment := Payment{
		ID:              paymentIDPrefix + s.newID(),
		OrderID:         order.ID,
		Provider:        gatewayOrder.Provider,
		ProviderOrderID: gatewayOrder.ProviderOrderID,
		Amount:          order.Total,
		Currency:        gatewayOrder.Currency,
		Success:         false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.InsertPayment(ctx, payment); err != nil {
		return GatewaySession{}, s.translateRepoError(err)
	}

	return GatewaySession{
		OrderID:         order.ID,
		ProviderOrderID: gatewayOrder.ProviderOrderID,
		Provider:        gatewayOrder.Provider,
		Amount:          gatewayOrder.Amount,
		Currency:        gatewayOrder.Currency,
	}, nil
}

// CompletePayment records the callback attempt, verifies the signature, and
// settles the order. The paid transition runs as a compare-and-swap so a
// repeated or concurrent valid callback settles exactly once and still
// returns success.
func (s *checkoutService) CompletePayment(ctx context.Context, cmd CompletePaymentCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	orderID := strings.TrimSpace(cmd.OrderID)
	providerOrderID := strings.TrimSpace(cmd.ProviderOrderID)
	providerPaymentID := strings.TrimSpace(cmd.ProviderPaymentID)
	if userID == "" || orderID == "" || providerOrderID == "" || providerPaymentID == "" {
		return Order{}, fmt.Errorf("%w: callback identifiers are required", ErrCheckoutInvalidInput)
	}

	order, err := s.orders.FindByUser(ctx, userID, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}

	payment, err := s.findPaymentBySession(ctx, order.ID, providerOrderID)
	if err != nil {
		return Order{}, err
	}

	// The attempt is recorded before verification so forged callbacks stay
	// auditable.
	payment.ProviderPaymentID = providerPaymentID
	payment.ProviderSignature = cmd.ProviderSignature
	payment.UpdatedAt = s.now()
	if err := s.orders.UpdatePayment(ctx, payment); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	verified, err := s.payments.VerifySignature(payment.Provider, providerOrderID, providerPaymentID, cmd.ProviderSignature)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if !verified {
		s.logger(ctx, "checkout.payment.signature_mismatch", map[string]any{
			"order_id":          order.ID,
			"provider_order_id": providerOrderID,
		})
		return Order{}, ErrCheckoutSignatureMismatch
	}

	result, err := s.orders.MarkPaid(ctx, order.ID, payment)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !result.AlreadyPaid {
		s.publishOrderEvent(ctx, OrderEventPaid, result.Order)
	}
	return result.Order, nil
}

func (s *checkoutService) findPaymentBySession(ctx context.Context, orderID string, providerOrderID string) (Payment, error) {
	records, err := s.orders.ListPayments(ctx, orderID)
	if err != nil {
		return Payment{}, s.translateRepoError(err)
	}
	for _, record := range records {
		if record.ProviderOrderID == providerOrderID {
			return record, nil
		}
	}
	return Payment{}, fmt.Errorf("%w: no payment session %s for order %s", ErrCheckoutNotFound, providerOrderID, orderID)
}

func (s *checkoutService) nextOrderNumber(ctx context.Context) (string, error) {
	seq, err := s.counters.Next(ctx, orderCounterID)
	if err != nil {
		return "", s.translateRepoError(err)
	}
	return fmt.Sprintf(orderNumberFormat, s.now().Year(), seq), nil
}

func (s *checkoutService) sanitizeNotes(notes string) string {
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(notes))
	if len(cleaned) > maxOrderNotesLength {
		cleaned = cleaned[:maxOrderNotesLength]
	}
	return cleaned
}

// publishOrderEvent is best-effort: a publish failure never fails the
// request that produced the event.
func (s *checkoutService) publishOrderEvent(ctx context.Context, eventType string, order Order) {
	if s.events == nil {
		return
	}
	_, err := s.events.PublishOrderEvent(ctx, OrderEventMessage{
		EventType:     eventType,
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		UserID:        order.UserID,
		TotalAmount:   domain.FormatAmount(order.Total),
		Currency:      orderCurrency,
		PaymentMethod: string(order.PaymentMethod),
		OccurredAt:    s.now(),
	})
	if err != nil {
		s.logger(ctx, "checkout.event.publish_failed", map[string]any{
			"event_type": eventType,
			"order_id":   order.ID,
			"error":      err.Error(),
		})
	}
}

func (s *checkoutService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCheckoutNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCheckoutConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
}
