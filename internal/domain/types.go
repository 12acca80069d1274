package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pagination describes cursor-based paging input for list queries.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage is a single page of results with an opaque continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

const (
	// OrderStatusPending marks a gateway order awaiting payment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid marks an order with a verified gateway payment.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCODPending marks a cash-on-delivery order awaiting dispatch.
	OrderStatusCODPending OrderStatus = "cod_pending"
	// OrderStatusShipped marks an order handed over to the courier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered marks an order received by the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled marks an order that will not be fulfilled.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod enumerates how an order is settled.
type PaymentMethod string

const (
	// PaymentMethodGateway settles through the external payment gateway.
	PaymentMethodGateway PaymentMethod = "gateway"
	// PaymentMethodCashOnDelivery settles in cash at delivery time.
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Category groups products for storefront navigation.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	IsActive    bool
	IsFeatured  bool
	ImagePath   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Product is a catalog entry. Price fields use exact decimals; Stock is
// informational only and is not reserved or decremented at checkout.
type Product struct {
	ID          string
	CategoryID  string
	Title       string
	Slug        string
	Description string
	Material    string
	Price       decimal.Decimal
	SalePrice   *decimal.Decimal
	Stock       int
	IsActive    bool
	Highlights  []string
	Images      []ProductImage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductImage references a stored image object for a product.
type ProductImage struct {
	ID        string
	ImagePath string
	AltText   string
	IsPrimary bool
}

// User holds the account record including the profile fields exposed over
// the profile endpoints.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Address is a shipping address owned by a user. At most one address per
// user carries IsDefault.
type Address struct {
	ID         string
	UserID     string
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Order is a frozen financial record. Totals are computed once at creation
// and never recomputed; Total == Subtotal + ShippingFee holds by
// construction.
type Order struct {
	ID            string
	Number        string
	UserID        string
	AddressID     string
	Subtotal      decimal.Decimal
	ShippingFee   decimal.Decimal
	Total         decimal.Decimal
	Status        OrderStatus
	PaymentMethod PaymentMethod
	Notes         string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem captures a product reference with the unit price charged at
// order time, independent of the product's current price.
type OrderItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// LineTotal returns Price multiplied by Quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Payment is the one-to-one settlement record for a gateway order. Success
// flips to true exactly once, on a verified callback.
type Payment struct {
	ID                string
	OrderID           string
	Provider          string
	ProviderOrderID   string
	ProviderPaymentID string
	ProviderSignature string
	Amount            decimal.Decimal
	Currency          string
	Success           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
