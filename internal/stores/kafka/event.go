package kafka

import "time"

const (
	TopicOrderPaid     = `orders.order-paid`
	TopicPaymentFailed = `orders.payment-failed`
)

// OrderPaidEvent is published after a captured payment has been reconciled.
type OrderPaidEvent struct {
	OrderId           string    `json:"order_id"`
	ProductId         string    `json:"product_id"`
	Quantity          int       `json:"quantity"`
	RazorpayOrderId   string    `json:"razorpay_order_id"`
	RazorpayPaymentId string    `json:"razorpay_payment_id"`
	Amount            int64     `json:"amount"`
	CreatedAt         time.Time `json:"created_at"`
}

// PaymentFailedEvent is published after a failed payment has been recorded.
type PaymentFailedEvent struct {
	OrderId         string    `json:"order_id"`
	RazorpayOrderId string    `json:"razorpay_order_id"`
	Amount          int64     `json:"amount"`
	CreatedAt       time.Time `json:"created_at"`
}
