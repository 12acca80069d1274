package services

import (
	"context"
	"errors"
	"sync"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/payments"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

type stubRepoError struct {
	message     string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string {
	if e.message != "" {
		return e.message
	}
	return "stub repository error"
}

func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

func notFoundErr() error { return &stubRepoError{notFound: true} }
func conflictErr() error { return &stubRepoError{conflict: true} }

type stubOrderRepository struct {
	insertFunc        func(ctx context.Context, order domain.Order) error
	findByIDFunc      func(ctx context.Context, orderID string) (domain.Order, error)
	findByUserFunc    func(ctx context.Context, userID, orderID string) (domain.Order, error)
	listByUserFunc    func(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	transitionFunc    func(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error)
	markPaidFunc      func(ctx context.Context, orderID string, payment domain.Payment) (repositories.MarkPaidResult, error)
	insertPaymentFunc func(ctx context.Context, payment domain.Payment) error
	updatePaymentFunc func(ctx context.Context, payment domain.Payment) error
	listPaymentsFunc  func(ctx context.Context, orderID string) ([]domain.Payment, error)
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFunc == nil {
		return errors.New("insertFunc not configured")
	}
	return s.insertFunc(ctx, order)
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFunc == nil {
		return domain.Order{}, errors.New("findByIDFunc not configured")
	}
	return s.findByIDFunc(ctx, orderID)
}

func (s *stubOrderRepository) FindByUser(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if s.findByUserFunc == nil {
		return domain.Order{}, errors.New("findByUserFunc not configured")
	}
	return s.findByUserFunc(ctx, userID, orderID)
}

func (s *stubOrderRepository) ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if s.listByUserFunc == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("listByUserFunc not configured")
	}
	return s.listByUserFunc(ctx, userID, pager)
}

func (s *stubOrderRepository) Transition(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error) {
	if s.transitionFunc == nil {
		return domain.Order{}, errors.New("transitionFunc not configured")
	}
	return s.transitionFunc(ctx, orderID, to)
}

func (s *stubOrderRepository) MarkPaid(ctx context.Context, orderID string, payment domain.Payment) (repositories.MarkPaidResult, error) {
	if s.markPaidFunc == nil {
		return repositories.MarkPaidResult{}, errors.New("markPaidFunc not configured")
	}
	return s.markPaidFunc(ctx, orderID, payment)
}

func (s *stubOrderRepository) InsertPayment(ctx context.Context, payment domain.Payment) error {
	if s.insertPaymentFunc == nil {
		return errors.New("insertPaymentFunc not configured")
	}
	return s.insertPaymentFunc(ctx, payment)
}

func (s *stubOrderRepository) UpdatePayment(ctx context.Context, payment domain.Payment) error {
	if s.updatePaymentFunc == nil {
		return errors.New("updatePaymentFunc not configured")
	}
	return s.updatePaymentFunc(ctx, payment)
}

func (s *stubOrderRepository) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	if s.listPaymentsFunc == nil {
		return nil, errors.New("listPaymentsFunc not configured")
	}
	return s.listPaymentsFunc(ctx, orderID)
}

type stubAddressRepository struct {
	listFunc       func(ctx context.Context, userID string) ([]domain.Address, error)
	getFunc        func(ctx context.Context, userID, addressID string) (domain.Address, error)
	insertFunc     func(ctx context.Context, addr domain.Address) (domain.Address, error)
	updateFunc     func(ctx context.Context, addr domain.Address) (domain.Address, error)
	deleteFunc     func(ctx context.Context, userID, addressID string) error
	setDefaultFunc func(ctx context.Context, userID, addressID string) (domain.Address, error)
}

func (s *stubAddressRepository) List(ctx context.Context, userID string) ([]domain.Address, error) {
	if s.listFunc == nil {
		return nil, errors.New("listFunc not configured")
	}
	return s.listFunc(ctx, userID)
}

func (s *stubAddressRepository) Get(ctx context.Context, userID, addressID string) (domain.Address, error) {
	if s.getFunc == nil {
		return domain.Address{}, errors.New("getFunc not configured")
	}
	return s.getFunc(ctx, userID, addressID)
}

func (s *stubAddressRepository) Insert(ctx context.Context, addr domain.Address) (domain.Address, error) {
	if s.insertFunc == nil {
		return domain.Address{}, errors.New("insertFunc not configured")
	}
	return s.insertFunc(ctx, addr)
}

func (s *stubAddressRepository) Update(ctx context.Context, addr domain.Address) (domain.Address, error) {
	if s.updateFunc == nil {
		return domain.Address{}, errors.New("updateFunc not configured")
	}
	return s.updateFunc(ctx, addr)
}

func (s *stubAddressRepository) Delete(ctx context.Context, userID, addressID string) error {
	if s.deleteFunc == nil {
		return errors.New("deleteFunc not configured")
	}
	return s.deleteFunc(ctx, userID, addressID)
}

func (s *stubAddressRepository) SetDefault(ctx context.Context, userID, addressID string) (domain.Address, error) {
	if s.setDefaultFunc == nil {
		return domain.Address{}, errors.New("setDefaultFunc not configured")
	}
	return s.setDefaultFunc(ctx, userID, addressID)
}

type stubCounterRepository struct {
	nextFunc func(ctx context.Context, counterID string) (int64, error)
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string) (int64, error) {
	if s.nextFunc == nil {
		return 0, errors.New("nextFunc not configured")
	}
	return s.nextFunc(ctx, counterID)
}

type stubUserRepository struct {
	insertFunc         func(ctx context.Context, user domain.User) error
	findByIDFunc       func(ctx context.Context, userID string) (domain.User, error)
	findByUsernameFunc func(ctx context.Context, username string) (domain.User, error)
	updateProfileFunc  func(ctx context.Context, user domain.User) (domain.User, error)
}

func (s *stubUserRepository) Insert(ctx context.Context, user domain.User) error {
	if s.insertFunc == nil {
		return errors.New("insertFunc not configured")
	}
	return s.insertFunc(ctx, user)
}

func (s *stubUserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if s.findByIDFunc == nil {
		return domain.User{}, errors.New("findByIDFunc not configured")
	}
	return s.findByIDFunc(ctx, userID)
}

func (s *stubUserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	if s.findByUsernameFunc == nil {
		return domain.User{}, errors.New("findByUsernameFunc not configured")
	}
	return s.findByUsernameFunc(ctx, username)
}

func (s *stubUserRepository) UpdateProfile(ctx context.Context, user domain.User) (domain.User, error) {
	if s.updateProfileFunc == nil {
		return domain.User{}, errors.New("updateProfileFunc not configured")
	}
	return s.updateProfileFunc(ctx, user)
}

type stubCategoryRepository struct {
	listFunc       func(ctx context.Context) ([]domain.Category, error)
	findBySlugFunc func(ctx context.Context, slug string) (domain.Category, error)
}

func (s *stubCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	if s.listFunc == nil {
		return nil, errors.New("listFunc not configured")
	}
	return s.listFunc(ctx)
}

func (s *stubCategoryRepository) FindBySlug(ctx context.Context, slug string) (domain.Category, error) {
	if s.findBySlugFunc == nil {
		return domain.Category{}, errors.New("findBySlugFunc not configured")
	}
	return s.findBySlugFunc(ctx, slug)
}

type stubProductRepository struct {
	listFunc      func(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error)
	findByIDFunc  func(ctx context.Context, productID string) (domain.Product, error)
	findBySlug    func(ctx context.Context, slug string) (domain.Product, error)
	findByIDsFunc func(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

func (s *stubProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if s.listFunc == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("listFunc not configured")
	}
	return s.listFunc(ctx, filter)
}

func (s *stubProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findByIDFunc == nil {
		return domain.Product{}, errors.New("findByIDFunc not configured")
	}
	return s.findByIDFunc(ctx, productID)
}

func (s *stubProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if s.findBySlug == nil {
		return domain.Product{}, errors.New("findBySlug not configured")
	}
	return s.findBySlug(ctx, slug)
}

func (s *stubProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if s.findByIDsFunc == nil {
		return nil, errors.New("findByIDsFunc not configured")
	}
	return s.findByIDsFunc(ctx, productIDs)
}

type stubGatewayManager struct {
	createOrderFunc     func(ctx context.Context, pctx payments.PaymentContext, req payments.CreateOrderRequest) (payments.GatewayOrder, error)
	verifySignatureFunc func(providerName, providerOrderID, providerPaymentID, signature string) (bool, error)
}

func (s *stubGatewayManager) CreateOrder(ctx context.Context, pctx payments.PaymentContext, req payments.CreateOrderRequest) (payments.GatewayOrder, error) {
	if s.createOrderFunc == nil {
		return payments.GatewayOrder{}, errors.New("createOrderFunc not configured")
	}
	return s.createOrderFunc(ctx, pctx, req)
}

func (s *stubGatewayManager) VerifySignature(providerName, providerOrderID, providerPaymentID, signature string) (bool, error) {
	if s.verifySignatureFunc == nil {
		return false, errors.New("verifySignatureFunc not configured")
	}
	return s.verifySignatureFunc(providerName, providerOrderID, providerPaymentID, signature)
}

type captureOrderEventPublisher struct {
	mu       sync.Mutex
	messages []OrderEventMessage
	err      error
}

func (c *captureOrderEventPublisher) PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.messages = append(c.messages, message)
	return "msg-1", nil
}

func (c *captureOrderEventPublisher) Messages() []OrderEventMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]OrderEventMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

type stubMediaResolver struct {
	resolveFunc func(ctx context.Context, ref string) (string, error)
}

func (s *stubMediaResolver) ResolveURL(ctx context.Context, ref string) (string, error) {
	if s.resolveFunc == nil {
		return ref, nil
	}
	return s.resolveFunc(ctx, ref)
}
