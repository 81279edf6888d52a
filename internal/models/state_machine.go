package models

// ValidOrderTransitions defines valid state transitions for OrderStatus
// Flow: PLACED → CONFIRMED → PROCESSING → SHIPPED → IN_TRANSIT → OUT_FOR_DELIVERY → DELIVERED
// CANCELLED can be reached until the parcel leaves the artisan
var ValidOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:         {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusInTransit, OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusInTransit:      {OrderStatusInTransit, OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusInTransit},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// ValidPaymentTransitions defines valid state transitions for PaymentStatus
var ValidPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:  {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:   {PaymentStatusPending, PaymentStatusPaid}, // Retry
	PaymentStatusPaid:     {PaymentStatusRefunded},
	PaymentStatusRefunded: {},
}

// IsValidOrderStatus reports whether s names a known order status
func IsValidOrderStatus(s OrderStatus) bool {
	_, ok := ValidOrderTransitions[s]
	return ok
}

// CanTransitionOrderStatus checks if a transition from one order status to another is valid
func CanTransitionOrderStatus(from, to OrderStatus) bool {
	for _, validTo := range ValidOrderTransitions[from] {
		if validTo == to {
			return true
		}
	}
	return false
}

// CanTransitionPaymentStatus checks if a transition from one payment status to another is valid
func CanTransitionPaymentStatus(from, to PaymentStatus) bool {
	for _, validTo := range ValidPaymentTransitions[from] {
		if validTo == to {
			return true
		}
	}
	return false
}

// IsCancellable reports whether the customer may still cancel
func IsCancellable(s OrderStatus) bool {
	return CanTransitionOrderStatus(s, OrderStatusCancelled)
}
