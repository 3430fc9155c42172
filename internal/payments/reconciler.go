// Package payments implements the order/payment reconciliation flow: a
// gateway order is created and the order snapshot staged in the cache; an
// asynchronous webhook later drives the paid / failed state transition.
package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/NotJalaAl00/Flint/internal/orders"
	"github.com/NotJalaAl00/Flint/internal/stores/cache"
	"github.com/NotJalaAl00/Flint/internal/stores/kafka"
	"github.com/NotJalaAl00/Flint/pkg/logkey"

	"github.com/google/uuid"
)

const (
	stageKeyPrefix = "pending-payment:"
	stageTTL       = 24 * time.Hour

	// Currency is fixed for every gateway order.
	Currency = "INR"
)

var (
	// ErrNotReconcilable means no staged record exists for the gateway
	// order id: either it was never staged or the 24h window has passed.
	// Expected under at-least-once delivery, so it maps to not-found
	// rather than a server error.
	ErrNotReconcilable = errors.New("payment cannot be reconciled")

	// ErrAlreadyReconciled means a terminal outcome already exists for the
	// gateway order id; the duplicate delivery is acknowledged without
	// re-mutating anything.
	ErrAlreadyReconciled = errors.New("payment already reconciled")
)

// OrderStore is the slice of the order domain the reconciler writes to.
type OrderStore interface {
	MarkPaid(ctx context.Context, orderID string) error
	InsertSuccessfulPayment(ctx context.Context, p orders.PaymentOutcome) error
	InsertFailedPayment(ctx context.Context, p orders.PaymentOutcome) error
	HasOutcomeForGatewayOrder(ctx context.Context, razorpayOrderID string) (bool, error)
}

type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
}

type Mailer interface {
	Send(to, subject, body string) error
}

type Producer interface {
	ProduceMessage(topic string, key, value []byte) error
}

type Reconciler struct {
	gateway       Gateway
	store         OrderStore
	cache         Cache
	mailer        Mailer
	producer      Producer
	webhookSecret []byte
}

// NewReconciler wires the reconciliation core. producer may be nil when no
// broker is configured; event publication is then skipped.
func NewReconciler(gateway Gateway, store OrderStore, c Cache, mailer Mailer, producer Producer, webhookSecret string) (*Reconciler, error) {
	if webhookSecret == "" {
		return nil, fmt.Errorf("webhook secret is empty")
	}
	return &Reconciler{
		gateway:       gateway,
		store:         store,
		cache:         c,
		mailer:        mailer,
		producer:      producer,
		webhookSecret: []byte(webhookSecret),
	}, nil
}

// MinorUnits converts a unit price in major currency units into the total
// amount in minor units (paise) for the given quantity.
func MinorUnits(price float64, quantity int) int64 {
	return int64(math.Round(price * float64(quantity) * 100))
}

// StagePayment creates the remote gateway order for the snapshot's order and
// stages the snapshot in the cache under the gateway order id for 24 hours.
func (r *Reconciler) StagePayment(ctx context.Context, rec PendingPaymentRecord) (GatewayOrder, error) {
	amount := MinorUnits(rec.Product.Price, rec.Order.Quantity)

	gwOrder, err := r.gateway.CreateOrder(amount, Currency, rec.Order.ID)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("creating gateway order: %w", err)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("marshaling pending payment record: %w", err)
	}
	if err := r.cache.Set(ctx, stageKeyPrefix+gwOrder.ID, string(raw), stageTTL); err != nil {
		return GatewayOrder{}, fmt.Errorf("staging pending payment record: %w", err)
	}
	return gwOrder, nil
}

// VerifySignature checks the hex HMAC-SHA256 of the raw webhook payload
// against the signature header in constant time.
func (r *Reconciler) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, r.webhookSecret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleCaptured applies the payment-captured transition: mark the order
// paid, record the successful outcome, notify buyer and store owner, and
// publish the order-paid event. Duplicate deliveries are detected first via
// the durable outcome record, then via the atomic cache delete-and-check.
func (r *Reconciler) HandleCaptured(ctx context.Context, e PaymentEntity) error {
	rec, err := r.consumeStaged(ctx, e.OrderID)
	if err != nil {
		return err
	}

	if err := r.store.MarkPaid(ctx, rec.Order.ID); err != nil {
		r.restage(ctx, e.OrderID, rec)
		return fmt.Errorf("marking order paid: %w", err)
	}
	if err := r.store.InsertSuccessfulPayment(ctx, outcome(rec.Order.ID, e)); err != nil {
		r.restage(ctx, e.OrderID, rec)
		return fmt.Errorf("recording successful payment: %w", err)
	}

	r.notify(rec.Buyer.Email, "Payment received",
		fmt.Sprintf("Your payment for %s (order %s) has been received. Check the app for more details.",
			rec.Product.Name, rec.Order.ID))
	r.notify(rec.Owner.Email, "Order paid",
		fmt.Sprintf("The order for %s placed at your store %s has been paid. Check the app for more details.",
			rec.Product.Name, rec.Store.Name))

	r.publish(kafka.TopicOrderPaid, rec.Order.ID, kafka.OrderPaidEvent{
		OrderId:           rec.Order.ID,
		ProductId:         rec.Product.ID,
		Quantity:          rec.Order.Quantity,
		RazorpayOrderId:   e.OrderID,
		RazorpayPaymentId: e.ID,
		Amount:            e.Amount,
		CreatedAt:         time.Now().UTC(),
	})
	return nil
}

// HandleFailed applies the payment-failed transition: the order's paid flag
// is left untouched, the failed outcome is recorded and the buyer notified.
func (r *Reconciler) HandleFailed(ctx context.Context, e PaymentEntity) error {
	rec, err := r.consumeStaged(ctx, e.OrderID)
	if err != nil {
		return err
	}

	if err := r.store.InsertFailedPayment(ctx, outcome(rec.Order.ID, e)); err != nil {
		r.restage(ctx, e.OrderID, rec)
		return fmt.Errorf("recording failed payment: %w", err)
	}

	r.notify(rec.Buyer.Email, "Payment failed",
		fmt.Sprintf("Your payment for %s (order %s) failed. Please try again from the app.",
			rec.Product.Name, rec.Order.ID))

	r.publish(kafka.TopicPaymentFailed, rec.Order.ID, kafka.PaymentFailedEvent{
		OrderId:         rec.Order.ID,
		RazorpayOrderId: e.OrderID,
		Amount:          e.Amount,
		CreatedAt:       time.Now().UTC(),
	})
	return nil
}

// consumeStaged resolves the staged record for a gateway order id,
// enforcing idempotency. The outcome-record check is the durable guard
// (cache entries also expire); GetDel closes the race between two
// concurrent deliveries of the same event.
func (r *Reconciler) consumeStaged(ctx context.Context, gatewayOrderID string) (PendingPaymentRecord, error) {
	done, err := r.store.HasOutcomeForGatewayOrder(ctx, gatewayOrderID)
	if err != nil {
		return PendingPaymentRecord{}, fmt.Errorf("checking existing outcome: %w", err)
	}
	if done {
		return PendingPaymentRecord{}, ErrAlreadyReconciled
	}

	raw, err := r.cache.GetDel(ctx, stageKeyPrefix+gatewayOrderID)
	if errors.Is(err, cache.ErrNotFound) {
		return PendingPaymentRecord{}, ErrNotReconcilable
	}
	if err != nil {
		return PendingPaymentRecord{}, fmt.Errorf("fetching staged record: %w", err)
	}

	var rec PendingPaymentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return PendingPaymentRecord{}, fmt.Errorf("unmarshaling staged record: %w", err)
	}
	return rec, nil
}

// restage puts a consumed record back under its gateway order id so the
// gateway's retry of the same event can still reconcile after a transient
// store failure. Without this the GetDel in consumeStaged would have
// destroyed the only copy and the retry would see not-found. Best-effort:
// if the cache write also fails the record is genuinely lost.
func (r *Reconciler) restage(ctx context.Context, gatewayOrderID string, rec PendingPaymentRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		slog.Error("re-staging record failed",
			slog.String(logkey.GatewayOrderID, gatewayOrderID), slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := r.cache.Set(ctx, stageKeyPrefix+gatewayOrderID, string(raw), stageTTL); err != nil {
		slog.Error("re-staging record failed",
			slog.String(logkey.GatewayOrderID, gatewayOrderID), slog.String(logkey.ERROR, err.Error()))
	}
}

func outcome(orderID string, e PaymentEntity) orders.PaymentOutcome {
	return orders.PaymentOutcome{
		ID:                uuid.NewString(),
		OrderID:           orderID,
		RazorpayOrderID:   e.OrderID,
		RazorpayPaymentID: e.ID,
		Amount:            e.Amount,
		Currency:          e.Currency,
		Method:            e.Method,
		Status:            e.Status,
		CreatedAt:         time.Now().UTC(),
	}
}

// notify sends one mail and logs any failure. Notification is best-effort
// and never fails the webhook request.
func (r *Reconciler) notify(to, subject, body string) {
	if err := r.mailer.Send(to, subject, body); err != nil {
		slog.Error("notification mail failed", slog.String(logkey.ERROR, err.Error()))
	}
}

func (r *Reconciler) publish(topic, orderID string, event any) {
	if r.producer == nil {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshaling event failed", slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := r.producer.ProduceMessage(topic, []byte(orderID), raw); err != nil {
		slog.Error("producing event failed",
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
	}
}
