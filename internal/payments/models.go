package payments

import (
	"github.com/NotJalaAl00/Flint/internal/catalog"
	"github.com/NotJalaAl00/Flint/internal/orders"
)

// Webhook event types delivered by the gateway. Anything else is
// acknowledged without action.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// Party is the slice of a user identity the reconciliation flow needs for
// notification mail.
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PendingPaymentRecord is the denormalized order snapshot staged in the
// cache under the gateway order id while a payment is in flight. Staging
// the full snapshot means webhook processing needs no relational lookups
// beyond its own writes, at the cost of a 24-hour reconciliation window:
// once the entry expires, a late webhook for that gateway order can no
// longer be reconciled and is answered with not-found.
type PendingPaymentRecord struct {
	Order   orders.Order    `json:"order"`
	Product catalog.Product `json:"product"`
	Store   catalog.Store   `json:"store"`
	Buyer   Party           `json:"buyer"`
	Owner   Party           `json:"owner"`
}

// WebhookEvent is the gateway event envelope.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PaymentEntity is the payment object inside a webhook envelope.
type PaymentEntity struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}
