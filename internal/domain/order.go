package domain

// orderTransitions is the full set of allowed status moves. Gateway orders
// settle into paid; cash-on-delivery orders move through the courier path.
// Paid, delivered, and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusCODPending: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

// InitialOrderStatus returns the status a new order starts in for the given
// payment method.
func InitialOrderStatus(method PaymentMethod) OrderStatus {
	if method == PaymentMethodCashOnDelivery {
		return OrderStatusCODPending
	}
	return OrderStatusPending
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the status admits no further transitions.
func IsTerminalStatus(status OrderStatus) bool {
	return len(orderTransitions[status]) == 0
}

// ValidOrderStatus reports whether the value is a known order status.
func ValidOrderStatus(status OrderStatus) bool {
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCODPending,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ValidPaymentMethod reports whether the value is a known payment method.
func ValidPaymentMethod(method PaymentMethod) bool {
	return method == PaymentMethodGateway || method == PaymentMethodCashOnDelivery
}
