package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/NotJalaAl00/Flint/internal/catalog"
	"github.com/NotJalaAl00/Flint/internal/orders"
	"github.com/NotJalaAl00/Flint/internal/stores/cache"
	"github.com/NotJalaAl00/Flint/internal/stores/kafka"

	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	nextID string
	orders []GatewayOrder
}

func (g *fakeGateway) CreateOrder(amount int64, currency, receipt string) (GatewayOrder, error) {
	o := GatewayOrder{ID: g.nextID, Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}
	g.orders = append(g.orders, o)
	return o, nil
}

type fakeOrderStore struct {
	paid     []string
	success  []orders.PaymentOutcome
	failed   []orders.PaymentOutcome
	outcomes map[string]bool

	// counters of transient failures still to inject
	markPaidErrs int
	insertErrs   int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{outcomes: map[string]bool{}}
}

func (s *fakeOrderStore) MarkPaid(_ context.Context, orderID string) error {
	if s.markPaidErrs > 0 {
		s.markPaidErrs--
		return errors.New("connection reset by peer")
	}
	s.paid = append(s.paid, orderID)
	return nil
}

func (s *fakeOrderStore) InsertSuccessfulPayment(_ context.Context, p orders.PaymentOutcome) error {
	if s.insertErrs > 0 {
		s.insertErrs--
		return errors.New("connection reset by peer")
	}
	s.success = append(s.success, p)
	s.outcomes[p.RazorpayOrderID] = true
	return nil
}

func (s *fakeOrderStore) InsertFailedPayment(_ context.Context, p orders.PaymentOutcome) error {
	if s.insertErrs > 0 {
		s.insertErrs--
		return errors.New("connection reset by peer")
	}
	s.failed = append(s.failed, p)
	s.outcomes[p.RazorpayOrderID] = true
	return nil
}

func (s *fakeOrderStore) HasOutcomeForGatewayOrder(_ context.Context, razorpayOrderID string) (bool, error) {
	return s.outcomes[razorpayOrderID], nil
}

type fakeCache struct {
	entries map[string]string
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.entries[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) GetDel(_ context.Context, key string) (string, error) {
	v, ok := f.entries[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	delete(f.entries, key)
	return v, nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type producedMessage struct {
	topic string
	key   []byte
	value []byte
}

type fakeProducer struct {
	messages []producedMessage
}

func (p *fakeProducer) ProduceMessage(topic string, key, value []byte) error {
	p.messages = append(p.messages, producedMessage{topic: topic, key: key, value: value})
	return nil
}

type fixture struct {
	r        *Reconciler
	gateway  *fakeGateway
	store    *fakeOrderStore
	cache    *fakeCache
	mailer   *fakeMailer
	producer *fakeProducer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  &fakeGateway{nextID: "order_ABC123"},
		store:    newFakeOrderStore(),
		cache:    newFakeCache(),
		mailer:   &fakeMailer{},
		producer: &fakeProducer{},
	}
	r, err := NewReconciler(f.gateway, f.store, f.cache, f.mailer, f.producer, "whsec_test")
	require.NoError(t, err)
	f.r = r
	return f
}

func testRecord() PendingPaymentRecord {
	return PendingPaymentRecord{
		Order:   orders.Order{ID: "ord-1", UserID: "usr-buyer", ProductID: "prd-1", StoreID: "str-1", Quantity: 3},
		Product: catalog.Product{ID: "prd-1", StoreID: "str-1", Name: "Clay Mug", Price: 149.50, Stock: 10},
		Store:   catalog.Store{ID: "str-1", OwnerID: "usr-owner", Name: "Mug Works"},
		Buyer:   Party{ID: "usr-buyer", Name: "Alice", Email: "alice@example.com"},
		Owner:   Party{ID: "usr-owner", Name: "Bob", Email: "bob@example.com"},
	}
}

func captured(gatewayOrderID string) PaymentEntity {
	return PaymentEntity{
		ID:       "pay_XYZ",
		OrderID:  gatewayOrderID,
		Amount:   44850,
		Status:   "captured",
		Currency: Currency,
		Method:   "upi",
	}
}

func TestMinorUnits(t *testing.T) {
	require.Equal(t, int64(44850), MinorUnits(149.50, 3))
	require.Equal(t, int64(30), MinorUnits(0.10, 3))
	require.Equal(t, int64(3099), MinorUnits(10.33, 3))
	require.Equal(t, int64(100), MinorUnits(1, 1))
}

func TestStagePayment(t *testing.T) {
	f := newFixture(t)

	gwOrder, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)

	require.Equal(t, "order_ABC123", gwOrder.ID)
	require.Equal(t, int64(44850), gwOrder.Amount)
	require.Equal(t, Currency, gwOrder.Currency)
	require.Equal(t, "ord-1", gwOrder.Receipt)

	require.Contains(t, f.cache.entries, "pending-payment:order_ABC123")
	require.Equal(t, 24*time.Hour, f.cache.ttls["pending-payment:order_ABC123"])
}

func TestVerifySignature(t *testing.T) {
	f := newFixture(t)
	payload := []byte(`{"event":"payment.captured"}`)

	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(payload)
	good := hex.EncodeToString(mac.Sum(nil))

	require.True(t, f.r.VerifySignature(payload, good))
	require.False(t, f.r.VerifySignature([]byte(`{"event":"payment.captured" }`), good))
	require.False(t, f.r.VerifySignature(payload, good[:len(good)-1]+"0"))
	require.False(t, f.r.VerifySignature(payload, ""))
}

func TestHandleCaptured(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)

	require.NoError(t, f.r.HandleCaptured(context.Background(), captured("order_ABC123")))

	require.Equal(t, []string{"ord-1"}, f.store.paid)
	require.Len(t, f.store.success, 1)
	out := f.store.success[0]
	require.Equal(t, "ord-1", out.OrderID)
	require.Equal(t, "order_ABC123", out.RazorpayOrderID)
	require.Equal(t, "pay_XYZ", out.RazorpayPaymentID)
	require.Equal(t, int64(44850), out.Amount)
	require.Empty(t, f.store.failed)

	// buyer and store owner both mailed
	require.Len(t, f.mailer.sent, 2)
	require.Equal(t, "alice@example.com", f.mailer.sent[0].to)
	require.Equal(t, "bob@example.com", f.mailer.sent[1].to)

	require.Len(t, f.producer.messages, 1)
	require.Equal(t, kafka.TopicOrderPaid, f.producer.messages[0].topic)
	require.Equal(t, []byte("ord-1"), f.producer.messages[0].key)

	// staged entry consumed
	require.NotContains(t, f.cache.entries, "pending-payment:order_ABC123")
}

func TestHandleCapturedDuplicateDelivery(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)
	require.NoError(t, f.r.HandleCaptured(context.Background(), captured("order_ABC123")))

	err = f.r.HandleCaptured(context.Background(), captured("order_ABC123"))
	require.ErrorIs(t, err, ErrAlreadyReconciled)

	// nothing re-applied
	require.Equal(t, []string{"ord-1"}, f.store.paid)
	require.Len(t, f.store.success, 1)
	require.Len(t, f.mailer.sent, 2)
	require.Len(t, f.producer.messages, 1)
}

func TestHandleCapturedUnknownGatewayOrder(t *testing.T) {
	f := newFixture(t)

	err := f.r.HandleCaptured(context.Background(), captured("order_NEVER_STAGED"))
	require.ErrorIs(t, err, ErrNotReconcilable)
	require.Empty(t, f.store.paid)
	require.Empty(t, f.store.success)
	require.Empty(t, f.mailer.sent)
}

func TestHandleCapturedAfterStageExpiry(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)

	// simulate the 24h window passing
	delete(f.cache.entries, "pending-payment:order_ABC123")

	err = f.r.HandleCaptured(context.Background(), captured("order_ABC123"))
	require.ErrorIs(t, err, ErrNotReconcilable)
}

func TestHandleFailed(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)

	entity := captured("order_ABC123")
	entity.Status = "failed"
	require.NoError(t, f.r.HandleFailed(context.Background(), entity))

	// paid flag untouched, failed outcome recorded
	require.Empty(t, f.store.paid)
	require.Empty(t, f.store.success)
	require.Len(t, f.store.failed, 1)
	require.Equal(t, "failed", f.store.failed[0].Status)

	// only the buyer is notified
	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, "alice@example.com", f.mailer.sent[0].to)

	require.Len(t, f.producer.messages, 1)
	require.Equal(t, kafka.TopicPaymentFailed, f.producer.messages[0].topic)
}

func TestHandleFailedThenDuplicate(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)

	entity := captured("order_ABC123")
	entity.Status = "failed"
	require.NoError(t, f.r.HandleFailed(context.Background(), entity))
	require.ErrorIs(t, f.r.HandleFailed(context.Background(), entity), ErrAlreadyReconciled)
}

func TestHandleCapturedRetriesAfterTransientMarkPaidFailure(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)

	f.store.markPaidErrs = 1
	require.Error(t, f.r.HandleCaptured(context.Background(), captured("order_ABC123")))

	// the staged record survives the failed attempt
	require.Contains(t, f.cache.entries, "pending-payment:order_ABC123")
	require.Equal(t, 24*time.Hour, f.cache.ttls["pending-payment:order_ABC123"])

	// the gateway retries, the store is healthy again
	require.NoError(t, f.r.HandleCaptured(context.Background(), captured("order_ABC123")))
	require.Equal(t, []string{"ord-1"}, f.store.paid)
	require.Len(t, f.store.success, 1)
	require.NotContains(t, f.cache.entries, "pending-payment:order_ABC123")
}

func TestHandleCapturedRetriesAfterTransientInsertFailure(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)

	f.store.insertErrs = 1
	require.Error(t, f.r.HandleCaptured(context.Background(), captured("order_ABC123")))
	require.Contains(t, f.cache.entries, "pending-payment:order_ABC123")
	require.Empty(t, f.store.success)

	require.NoError(t, f.r.HandleCaptured(context.Background(), captured("order_ABC123")))
	require.Len(t, f.store.success, 1)
	// MarkPaid ran on both attempts; re-marking paid is idempotent
	require.Equal(t, []string{"ord-1", "ord-1"}, f.store.paid)
}

func TestHandleFailedRetriesAfterTransientInsertFailure(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)

	entity := captured("order_ABC123")
	entity.Status = "failed"

	f.store.insertErrs = 1
	require.Error(t, f.r.HandleFailed(context.Background(), entity))
	require.Contains(t, f.cache.entries, "pending-payment:order_ABC123")

	require.NoError(t, f.r.HandleFailed(context.Background(), entity))
	require.Len(t, f.store.failed, 1)
	require.Empty(t, f.store.paid)
}

func TestNilProducerSkipsPublication(t *testing.T) {
	f := newFixture(t)
	r, err := NewReconciler(f.gateway, f.store, f.cache, f.mailer, nil, "whsec_test")
	require.NoError(t, err)

	_, err = r.StagePayment(context.Background(), testRecord())
	require.NoError(t, err)
	require.NoError(t, r.HandleCaptured(context.Background(), captured("order_ABC123")))
	require.Equal(t, []string{"ord-1"}, f.store.paid)
}

func TestNewReconcilerRejectsEmptySecret(t *testing.T) {
	f := newFixture(t)
	_, err := NewReconciler(f.gateway, f.store, f.cache, f.mailer, f.producer, "")
	require.Error(t, err)
}
