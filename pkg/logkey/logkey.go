// Package logkey centralizes the attribute keys used with slog so log
// queries stay consistent across handlers and internal packages.
package logkey

const (
	TraceID = "trace_id"
	ERROR   = "error"

	UserID    = "user_id"
	StoreID   = "store_id"
	ProductID = "product_id"
	OrderID   = "order_id"

	GatewayOrderID   = "razorpay_order_id"
	GatewayPaymentID = "razorpay_payment_id"
	EventType        = "event_type"
)
