package services

import (
	"context"
	"time"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination    = domain.Pagination
	Category      = domain.Category
	Product       = domain.Product
	User          = domain.User
	Address       = domain.Address
	Order         = domain.Order
	OrderItem     = domain.OrderItem
	OrderStatus   = domain.OrderStatus
	Payment       = domain.Payment
	PaymentMethod = domain.PaymentMethod
)

// Order event types published to the fulfilment topic.
const (
	OrderEventCreated = "order.created"
	OrderEventPaid    = "order.paid"
)

// OrderEventMessage is the payload published for order lifecycle events.
type OrderEventMessage struct {
	EventType     string    `json:"eventType"`
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	UserID        string    `json:"userId"`
	TotalAmount   string    `json:"totalAmount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"paymentMethod"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// OrderEventPublisher publishes order lifecycle events for downstream fulfilment tooling.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// CartItemInput is one client-submitted cart line.
type CartItemInput struct {
	ProductID string
	Price     string
	Quantity  int
}

// CreateOrderCommand carries the validated checkout payload.
type CreateOrderCommand struct {
	UserID        string
	AddressID     string
	PaymentMethod PaymentMethod
	Notes         string
	Items         []CartItemInput
}

// GatewaySession is the client-facing view of an opened payment session.
type GatewaySession struct {
	OrderID         string
	ProviderOrderID string
	Provider        string
	Amount          int64
	Currency        string
}

// CompletePaymentCommand carries the gateway callback relayed by the client.
type CompletePaymentCommand struct {
	UserID            string
	OrderID           string
	ProviderOrderID   string
	ProviderPaymentID string
	ProviderSignature string
}

// CheckoutService coordinates order creation, gateway sessions, and payment settlement.
type CheckoutService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	OpenGatewaySession(ctx context.Context, userID string, orderID string) (GatewaySession, error)
	CompletePayment(ctx context.Context, cmd CompletePaymentCommand) (Order, error)
}

// OrderService serves the caller's order history.
type OrderService interface {
	ListOrders(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, userID string, orderID string) (Order, error)
	CancelOrder(ctx context.Context, userID string, orderID string) (Order, error)
}

// CategoryListFilter narrows the category listing.
type CategoryListFilter struct {
	FeaturedOnly bool
	Limit        int
}

// ProductListQuery narrows the product listing.
type ProductListQuery struct {
	CategorySlug string
	Search       string
	Ordering     string
	Pagination   Pagination
}

// CatalogService serves the public category and product read surface.
type CatalogService interface {
	ListCategories(ctx context.Context, filter CategoryListFilter) ([]Category, error)
	ListProducts(ctx context.Context, query ProductListQuery) (domain.CursorPage[Product], error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
}

// UpsertAddressCommand carries a create or update of a shipping address.
type UpsertAddressCommand struct {
	UserID     string
	AddressID  string
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

// AddressService manages the caller's shipping addresses.
type AddressService interface {
	ListAddresses(ctx context.Context, userID string) ([]Address, error)
	CreateAddress(ctx context.Context, cmd UpsertAddressCommand) (Address, error)
	UpdateAddress(ctx context.Context, cmd UpsertAddressCommand) (Address, error)
	DeleteAddress(ctx context.Context, userID string, addressID string) error
}

// RegisterUserCommand carries a new account registration.
type RegisterUserCommand struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UpdateProfileCommand carries profile field edits for the authenticated user.
type UpdateProfileCommand struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// UserService manages registration, credential checks, and profile edits.
type UserService interface {
	Register(ctx context.Context, cmd RegisterUserCommand) (User, error)
	Authenticate(ctx context.Context, username string, password string) (User, error)
	GetProfile(ctx context.Context, userID string) (User, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error)
}
