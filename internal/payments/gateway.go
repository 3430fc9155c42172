package payments

import (
	"fmt"
	"os"

	razorpay "github.com/razorpay/razorpay-go"
)

// GatewayOrder is the remote payment order descriptor returned to the client
// for checkout.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor currency units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway creates remote payment orders. The production implementation talks
// to Razorpay; tests substitute a fake.
type Gateway interface {
	CreateOrder(amount int64, currency, receipt string) (GatewayOrder, error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway builds the gateway from RAZORPAY_KEY_ID and
// RAZORPAY_KEY_SECRET.
func NewRazorpayGateway() (Gateway, error) {
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY_ID or RAZORPAY_KEY_SECRET is not set")
	}
	return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}, nil
}

func (g *razorpayGateway) CreateOrder(amount int64, currency, receipt string) (GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("creating razorpay order: %w", err)
	}

	order := GatewayOrder{Amount: amount, Currency: currency, Receipt: receipt}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	if order.ID == "" {
		return GatewayOrder{}, fmt.Errorf("razorpay order response missing id")
	}
	return order, nil
}
