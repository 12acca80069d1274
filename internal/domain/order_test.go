package domain

import "testing"

func TestInitialOrderStatus(t *testing.T) {
	if got := InitialOrderStatus(PaymentMethodGateway); got != OrderStatusPending {
		t.Fatalf("gateway orders should start pending, got %q", got)
	}
	if got := InitialOrderStatus(PaymentMethodCashOnDelivery); got != OrderStatusCODPending {
		t.Fatalf("cod orders should start cod_pending, got %q", got)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusPaid},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusCODPending, OrderStatusShipped},
		{OrderStatusCODPending, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusDelivered},
		{OrderStatusShipped, OrderStatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusPaid, OrderStatusShipped},
		{OrderStatusPaid, OrderStatusPending},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusCODPending, OrderStatusPaid},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestIsTerminalStatus(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPaid, OrderStatusDelivered, OrderStatusCancelled} {
		if !IsTerminalStatus(status) {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusCODPending, OrderStatusShipped} {
		if IsTerminalStatus(status) {
			t.Fatalf("expected %s to be non-terminal", status)
		}
	}
}
