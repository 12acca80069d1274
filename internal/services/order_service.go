package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates missing or malformed parameters.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order does not exist for the caller.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates the order state does not permit the transition.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderUnavailable indicates the order store is unavailable.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

// OrderServiceDeps wires the dependencies for the order history service.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Clock  func() time.Time
}

type orderService struct {
	orders repositories.OrderRepository
	now    func() time.Time
}

// NewOrderService constructs an OrderService validating required dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &orderService{
		orders: deps.Orders,
		now: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// ListOrders returns the caller's orders newest first.
func (s *orderService) ListOrders(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Order], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	page, err := s.orders.ListByUser(ctx, userID, pager)
	if err != nil {
		return domain.CursorPage[Order]{}, s.translateRepoError(err)
	}
	return page, nil
}

// GetOrder loads a single order owned by the caller.
func (s *orderService) GetOrder(ctx context.Context, userID string, orderID string) (Order, error) {
	userID = strings.TrimSpace(userID)
	orderID = strings.TrimSpace(orderID)
	if userID == "" || orderID == "" {
		return Order{}, fmt.Errorf("%w: user id and order id are required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByUser(ctx, userID, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	return order, nil
}

// CancelOrder moves an order to cancelled when its current state allows it.
func (s *orderService) CancelOrder(ctx context.Context, userID string, orderID string) (Order, error) {
	userID = strings.TrimSpace(userID)
	orderID = strings.TrimSpace(orderID)
	if userID == "" || orderID == "" {
		return Order{}, fmt.Errorf("%w: user id and order id are required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByUser(ctx, userID, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !domain.CanTransition(order.Status, domain.OrderStatusCancelled) {
		return Order{}, fmt.Errorf("%w: order %s is %s", ErrOrderConflict, orderID, order.Status)
	}

	updated, err := s.orders.Transition(ctx, order.ID, domain.OrderStatusCancelled)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	return updated, nil
}

func (s *orderService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
}
