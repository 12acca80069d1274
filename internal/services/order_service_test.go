package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
)

func TestOrderServiceListOrders(t *testing.T) {
	var gotUser string
	var gotPager domain.Pagination
	orders := &stubOrderRepository{
		listByUserFunc: func(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
			gotUser = userID
			gotPager = pager
			return domain.CursorPage[domain.Order]{
				Items:         []domain.Order{{ID: "ord_2"}, {ID: "ord_1"}},
				NextPageToken: "next",
			}, nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{Orders: orders})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	page, err := svc.ListOrders(context.Background(), "usr_1", Pagination{PageSize: 10, PageToken: "tok"})
	if err != nil {
		t.Fatalf("ListOrders returned error: %v", err)
	}
	if gotUser != "usr_1" || gotPager.PageSize != 10 || gotPager.PageToken != "tok" {
		t.Fatalf("unexpected repository call user=%q pager=%+v", gotUser, gotPager)
	}
	if len(page.Items) != 2 || page.NextPageToken != "next" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestOrderServiceGetOrderNotFound(t *testing.T) {
	orders := &stubOrderRepository{
		findByUserFunc: func(ctx context.Context, userID, orderID string) (domain.Order, error) {
			return domain.Order{}, notFoundErr()
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{Orders: orders})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	if _, err := svc.GetOrder(context.Background(), "usr_1", "ord_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderServiceCancelPendingOrder(t *testing.T) {
	var transitionedTo domain.OrderStatus
	orders := &stubOrderRepository{
		findByUserFunc: func(ctx context.Context, userID, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: userID, Status: domain.OrderStatusPending}, nil
		},
		transitionFunc: func(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error) {
			transitionedTo = to
			return domain.Order{ID: orderID, Status: to}, nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{Orders: orders})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	order, err := svc.CancelOrder(context.Background(), "usr_1", "ord_1")
	if err != nil {
		t.Fatalf("CancelOrder returned error: %v", err)
	}
	if transitionedTo != domain.OrderStatusCancelled || order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", order.Status)
	}
}

func TestOrderServiceCancelTerminalOrderConflicts(t *testing.T) {
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusPaid,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	} {
		orders := &stubOrderRepository{
			findByUserFunc: func(ctx context.Context, userID, orderID string) (domain.Order, error) {
				return domain.Order{ID: orderID, UserID: userID, Status: status}, nil
			},
			transitionFunc: func(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error) {
				t.Fatalf("transition must not run from %s", status)
				return domain.Order{}, nil
			},
		}

		svc, err := NewOrderService(OrderServiceDeps{Orders: orders})
		if err != nil {
			t.Fatalf("NewOrderService returned error: %v", err)
		}

		if _, err := svc.CancelOrder(context.Background(), "usr_1", "ord_1"); !errors.Is(err, ErrOrderConflict) {
			t.Fatalf("expected ErrOrderConflict from %s, got %v", status, err)
		}
	}
}
