package repositories

import (
	"context"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Users() UserRepository
	Addresses() AddressRepository
	Categories() CategoryRepository
	Products() ProductRepository
	Orders() OrderRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UserRepository stores account records keyed by user ID with unique usernames.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	UpdateProfile(ctx context.Context, user domain.User) (domain.User, error)
}

// AddressRepository stores shipping addresses per user. Mutations that touch
// the default flag run transactionally so at most one address per user is
// default at any time.
type AddressRepository interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Get(ctx context.Context, userID string, addressID string) (domain.Address, error)
	Insert(ctx context.Context, addr domain.Address) (domain.Address, error)
	Update(ctx context.Context, addr domain.Address) (domain.Address, error)
	Delete(ctx context.Context, userID string, addressID string) error
	SetDefault(ctx context.Context, userID string, addressID string) (domain.Address, error)
}

// CategoryRepository serves the catalog's category tree.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (domain.Category, error)
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	CategoryID string
	ActiveOnly bool
	Pagination domain.Pagination
}

// ProductRepository serves catalog products.
type ProductRepository interface {
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

// MarkPaidResult reports the outcome of the transactional paid transition.
type MarkPaidResult struct {
	Order       domain.Order
	AlreadyPaid bool
}

// OrderRepository persists order aggregates. Insert writes the order header
// and its items in a single transaction; MarkPaid guards the paid transition
// with a compare-and-swap so concurrent verified callbacks settle exactly
// once.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByUser(ctx context.Context, userID string, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	Transition(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error)
	MarkPaid(ctx context.Context, orderID string, payment domain.Payment) (MarkPaidResult, error)

	InsertPayment(ctx context.Context, payment domain.Payment) error
	UpdatePayment(ctx context.Context, payment domain.Payment) error
	ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string) (int64, error)
}

// HealthRepository exposes status of the persistence layer for readiness checks.
type HealthRepository interface {
	Ping(ctx context.Context) error
}
