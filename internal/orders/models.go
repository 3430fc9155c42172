package orders

import "time"

// Order links a buyer to a product and its owning store. The paid flag is
// mutated only by webhook reconciliation; delivered only by the store owner.
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	StoreID   string    `json:"store_id"`
	Quantity  int       `json:"quantity"`
	Delivered bool      `json:"delivered"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentOutcome is an immutable record of a terminal webhook event,
// persisted to successful_payments or failed_payments.
type PaymentOutcome struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"order_id"`
	RazorpayOrderID   string    `json:"razorpay_order_id"`
	RazorpayPaymentID string    `json:"razorpay_payment_id"`
	Amount            int64     `json:"amount"` // minor currency units
	Currency          string    `json:"currency"`
	Method            string    `json:"method"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
