package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/models"
	aws_pkg "github.com/yashrajoria/bike-store/pkg/aws"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memCarts is an in-memory CartRepo.
type memCarts struct {
	mu        sync.Mutex
	items     map[primitive.ObjectID]bson.M
	deleteErr error
	deletes   int
}

func newMemCarts() *memCarts {
	return &memCarts{items: map[primitive.ObjectID]bson.M{}}
}

func (m *memCarts) add(email string) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	m.items[id] = bson.M{"_id": id, "email": email}
	return id
}

func (m *memCarts) has(id primitive.ObjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok
}

func (m *memCarts) FindAll(ctx context.Context) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bson.M, 0, len(m.items))
	for _, doc := range m.items {
		out = append(out, doc)
	}
	return out, nil
}

func (m *memCarts) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	return nil, errors.New("not implemented")
}

func (m *memCarts) InsertOne(ctx context.Context, doc bson.M) (*models.InsertResult, error) {
	id := primitive.NewObjectID()
	m.mu.Lock()
	m.items[id] = doc
	m.mu.Unlock()
	return &models.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (m *memCarts) DeleteOne(ctx context.Context, filter bson.M) (*models.DeleteResult, error) {
	return nil, errors.New("not implemented")
}

func (m *memCarts) FindByEmail(ctx context.Context, email string) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bson.M, 0)
	for _, doc := range m.items {
		if doc["email"] == email {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memCarts) DeleteByIDAndEmail(ctx context.Context, id primitive.ObjectID, email string) (*models.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.items[id]; ok && doc["email"] == email {
		delete(m.items, id)
		return &models.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
	}
	return &models.DeleteResult{Acknowledged: true}, nil
}

func (m *memCarts) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (*models.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.items[id]; ok {
			delete(m.items, id)
			n++
		}
	}
	return &models.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

// memPayments is an in-memory PaymentRepo.
type memPayments struct {
	mu        sync.Mutex
	records   []bson.M
	insertErr error
	findErr   error
}

func (m *memPayments) byID(id primitive.ObjectID) bson.M {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r[models.FieldID] == id {
			return r
		}
	}
	return nil
}

func (m *memPayments) FindAll(ctx context.Context) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return append(make([]bson.M, 0, len(m.records)), m.records...), nil
}

func (m *memPayments) FindByEmail(ctx context.Context, email string) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make([]bson.M, 0)
	for _, r := range m.records {
		if r[models.FieldEmail] == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memPayments) InsertPending(ctx context.Context, payload bson.M, now time.Time) (*models.InsertResult, primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, primitive.NilObjectID, m.insertErr
	}
	doc := bson.M{}
	for k, v := range payload {
		doc[k] = v
	}
	id := primitive.NewObjectID()
	doc[models.FieldID] = id
	doc[models.FieldSettlement] = models.SettlementPending
	doc[models.FieldCreatedAt] = now.UTC()
	m.records = append(m.records, doc)
	return &models.InsertResult{Acknowledged: true, InsertedID: id}, id, nil
}

func (m *memPayments) MarkSettled(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r[models.FieldID] == id {
			r[models.FieldSettlement] = models.SettlementSettled
		}
	}
	return nil
}

func (m *memPayments) UpdateStatus(ctx context.Context, id primitive.ObjectID, ownerEmail, status string, now time.Time) (*models.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &models.UpdateResult{Acknowledged: true}
	for _, r := range m.records {
		if r[models.FieldID] != id {
			continue
		}
		if ownerEmail != "" && r[models.FieldEmail] != ownerEmail {
			continue
		}
		res.MatchedCount++
		if r[models.FieldStatus] != status {
			res.ModifiedCount++
		}
		r[models.FieldStatus] = status
		r[models.FieldUpdatedAt] = now
	}
	return res, nil
}

func (m *memPayments) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int64) ([]models.PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PendingPayment
	for _, r := range m.records {
		if r[models.FieldSettlement] != models.SettlementPending {
			continue
		}
		created := r[models.FieldCreatedAt].(time.Time)
		if !created.Before(cutoff) {
			continue
		}
		p := models.PendingPayment{ID: r[models.FieldID].(primitive.ObjectID), CreatedAt: created}
		if ids, ok := r[models.FieldCartIDs].(bson.A); ok {
			for _, id := range ids {
				s, _ := id.(string)
				p.CartIDs = append(p.CartIDs, s)
			}
		}
		out = append(out, p)
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

type fakeIntents struct {
	calls    int
	amount   int64
	currency string
	err      error
}

func (f *fakeIntents) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*PaymentIntent, error) {
	f.calls++
	f.amount = amount
	f.currency = currency
	if f.err != nil {
		return nil, f.err
	}
	return &PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret_x", Amount: amount, Currency: currency}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.PaymentEvent
}

func (f *fakePublisher) Publish(ctx context.Context, topicArn string, message []byte) error {
	var e models.PaymentEvent
	if err := json.Unmarshal(message, &e); err != nil {
		return err
	}
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeRecorder) RecordCount(ctx context.Context, name string, dims map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[name]++
	return nil
}

func (f *fakeRecorder) RecordLatency(ctx context.Context, name string, d time.Duration, dims map[string]string) error {
	return nil
}

func (f *fakeRecorder) RecordValue(ctx context.Context, name string, v float64, dims map[string]string) error {
	return nil
}

func (f *fakeRecorder) IsEnabled() bool { return true }

var _ aws_pkg.Recorder = (*fakeRecorder)(nil)

type paymentFixture struct {
	svc       *paymentServiceImpl
	carts     *memCarts
	payments  *memPayments
	intents   *fakeIntents
	publisher *fakePublisher
	metrics   *fakeRecorder
}

func newPaymentFixture(opts PaymentOptions) *paymentFixture {
	f := &paymentFixture{
		carts:     newMemCarts(),
		payments:  &memPayments{},
		intents:   &fakeIntents{},
		publisher: &fakePublisher{},
		metrics:   &fakeRecorder{},
	}
	if opts.TopicArn == "" {
		opts.TopicArn = "arn:aws:sns:us-east-1:000000000000:payments"
	}
	f.svc = NewPaymentService(f.carts, f.payments, f.intents, f.publisher, f.metrics, opts, zap.NewNop()).(*paymentServiceImpl)
	return f
}

func paymentPayload(email string, amount interface{}, ids ...primitive.ObjectID) bson.M {
	arr := bson.A{}
	for _, id := range ids {
		arr = append(arr, id.Hex())
	}
	return bson.M{"email": email, "amount": amount, "cartIds": arr}
}

func TestCreateIntent_RoundsToCents(t *testing.T) {
	cases := []struct {
		price interface{}
		cents int64
	}{
		{10.5, 1050},
		{19.999, 2000},
		{0.01, 1},
		{int64(25), 2500},
		{"12.34", 1234},
		{json.Number("7.5"), 750},
	}

	for _, tc := range cases {
		f := newPaymentFixture(PaymentOptions{})
		resp, err := f.svc.CreateIntent(context.Background(), tc.price)
		require.NoError(t, err, "price %v", tc.price)
		assert.Equal(t, "pi_1_secret_x", resp.ClientSecret)
		assert.Equal(t, tc.cents, f.intents.amount, "price %v", tc.price)
		assert.Equal(t, "usd", f.intents.currency)
	}
}

func TestCreateIntent_InvalidPriceSkipsProvider(t *testing.T) {
	for _, price := range []interface{}{nil, 0.0, -5.0, "abc", "", true, bson.M{}} {
		f := newPaymentFixture(PaymentOptions{})
		_, err := f.svc.CreateIntent(context.Background(), price)
		require.Error(t, err, "price %v", price)
		assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
		assert.Equal(t, msgInvalidPrice, err.(*apperrors.AppError).Message)
		assert.Zero(t, f.intents.calls, "provider called for %v", price)
	}
}

func TestCreateIntent_ProviderFailure(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{})
	f.intents.err = errors.New("card_declined")

	_, err := f.svc.CreateIntent(context.Background(), 10.0)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
	assert.Equal(t, 1, f.intents.calls)
	assert.Equal(t, 1, f.metrics.counts[aws_pkg.MetricPaymentIntentsFailed])
}

func TestRecordPayment_RemovesCartItems(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{})
	a := f.carts.add("rider@example.com")
	b := f.carts.add("rider@example.com")
	other := f.carts.add("other@example.com")

	res, err := f.svc.RecordPayment(context.Background(), paymentPayload("rider@example.com", 250.0, a, b))
	require.NoError(t, err)

	assert.True(t, res.PaymentResult.Acknowledged)
	assert.Equal(t, int64(2), res.DeleteResult.DeletedCount)
	assert.False(t, f.carts.has(a))
	assert.False(t, f.carts.has(b))
	assert.True(t, f.carts.has(other))

	require.Len(t, f.payments.records, 1)
	rec := f.payments.records[0]
	assert.Equal(t, res.PaymentResult.InsertedID, rec[models.FieldID])
	assert.Equal(t, models.SettlementSettled, rec[models.FieldSettlement])
	assert.Equal(t, 250.0, rec["amount"])
	_, hasStatus := rec[models.FieldStatus]
	assert.False(t, hasStatus)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "payment_recorded", f.publisher.events[0].Type)
	assert.Equal(t, []string{a.Hex(), b.Hex()}, f.publisher.events[0].CartIDs)
}

func TestRecordPayment_MissingCartItemsStillRecorded(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{})

	res, err := f.svc.RecordPayment(context.Background(), paymentPayload("rider@example.com", 10.0, primitive.NewObjectID()))
	require.NoError(t, err)
	assert.Zero(t, res.DeleteResult.DeletedCount)
	assert.Len(t, f.payments.records, 1)
}

func TestRecordPayment_InvalidPayloadWritesNothing(t *testing.T) {
	valid := primitive.NewObjectID()
	cases := map[string]bson.M{
		"missing email":     {"amount": 10.0, "cartIds": bson.A{valid.Hex()}},
		"missing amount":    {"email": "a@b.c", "cartIds": bson.A{valid.Hex()}},
		"missing cartIds":   {"email": "a@b.c", "amount": 10.0},
		"empty cartIds":     {"email": "a@b.c", "amount": 10.0, "cartIds": bson.A{}},
		"cartIds object":    {"email": "a@b.c", "amount": 10.0, "cartIds": bson.M{"0": valid.Hex()}},
		"malformed id":      {"email": "a@b.c", "amount": 10.0, "cartIds": bson.A{valid.Hex(), "not-an-id"}},
		"numeric id":        {"email": "a@b.c", "amount": 10.0, "cartIds": bson.A{int64(7)}},
		"client _id":        {"_id": "p-1", "email": "a@b.c", "amount": 10.0, "cartIds": bson.A{valid.Hex()}},
		"client settlement": {"settlement": models.SettlementSettled, "email": "a@b.c", "amount": 10.0, "cartIds": bson.A{valid.Hex()}},
		"client created_at": {"created_at": "2020-01-01", "email": "a@b.c", "amount": 10.0, "cartIds": bson.A{valid.Hex()}},
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			f := newPaymentFixture(PaymentOptions{})
			f.carts.items[valid] = bson.M{"_id": valid, "email": "a@b.c"}

			_, err := f.svc.RecordPayment(context.Background(), payload)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
			assert.Empty(t, f.payments.records)
			assert.Zero(t, f.carts.deletes)
			assert.True(t, f.carts.has(valid))
		})
	}
}

func TestRecordPayment_InsertFailure(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{})
	id := f.carts.add("a@b.c")
	f.payments.insertErr = errors.New("write concern")

	_, err := f.svc.RecordPayment(context.Background(), paymentPayload("a@b.c", 10.0, id))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
	assert.True(t, f.carts.has(id))
	assert.Zero(t, f.carts.deletes)
}

func TestRecordPayment_CartFailureLeavesPending(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{PendingTimeout: time.Minute})
	id := f.carts.add("a@b.c")
	f.carts.deleteErr = errors.New("connection reset")

	_, err := f.svc.RecordPayment(context.Background(), paymentPayload("a@b.c", 10.0, id))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
	require.Len(t, f.payments.records, 1)
	assert.Equal(t, models.SettlementPending, f.payments.records[0][models.FieldSettlement])
	assert.Empty(t, f.publisher.events)

	// Nothing is stale yet.
	f.carts.deleteErr = nil
	settled, err := f.svc.RecoverPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, settled)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	settled, err = f.svc.RecoverPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.False(t, f.carts.has(id))
	assert.Equal(t, models.SettlementSettled, f.payments.records[0][models.FieldSettlement])
}

func TestRecordPayment_CancelledRequestStillReconciles(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{})
	id := f.carts.add("a@b.c")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.RecordPayment(ctx, paymentPayload("a@b.c", 10.0, id))
	require.NoError(t, err)
	assert.False(t, f.carts.has(id))
}

func TestConfirmPayment(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{})
	id := f.carts.add("a@b.c")
	res, err := f.svc.RecordPayment(context.Background(), paymentPayload("a@b.c", 10.0, id))
	require.NoError(t, err)
	paymentID := res.PaymentResult.InsertedID.(primitive.ObjectID)

	up, err := f.svc.ConfirmPayment(context.Background(), paymentID.Hex(), "a@b.c", "succeeded")
	require.NoError(t, err)
	assert.Equal(t, int64(1), up.MatchedCount)
	assert.Equal(t, int64(1), up.ModifiedCount)
	assert.Equal(t, "succeeded", f.payments.byID(paymentID)[models.FieldStatus])

	t.Run("idempotent", func(t *testing.T) {
		up, err := f.svc.ConfirmPayment(context.Background(), paymentID.Hex(), "a@b.c", "succeeded")
		require.NoError(t, err)
		assert.Equal(t, int64(1), up.MatchedCount)
		assert.Zero(t, up.ModifiedCount)
		assert.Equal(t, "succeeded", f.payments.byID(paymentID)[models.FieldStatus])
	})

	t.Run("unknown id", func(t *testing.T) {
		before := len(f.payments.records)
		up, err := f.svc.ConfirmPayment(context.Background(), primitive.NewObjectID().Hex(), "a@b.c", "succeeded")
		require.NoError(t, err)
		assert.Zero(t, up.MatchedCount)
		assert.Len(t, f.payments.records, before)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := f.svc.ConfirmPayment(context.Background(), "xyz", "a@b.c", "succeeded")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	})

	t.Run("email ignored by default", func(t *testing.T) {
		up, err := f.svc.ConfirmPayment(context.Background(), paymentID.Hex(), "someone@else.com", "refunded")
		require.NoError(t, err)
		assert.Equal(t, int64(1), up.MatchedCount)
	})
}

func TestConfirmPayment_RequireOwner(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{RequireOwner: true})
	id := f.carts.add("a@b.c")
	res, err := f.svc.RecordPayment(context.Background(), paymentPayload("a@b.c", 10.0, id))
	require.NoError(t, err)
	paymentID := res.PaymentResult.InsertedID.(primitive.ObjectID).Hex()

	up, err := f.svc.ConfirmPayment(context.Background(), paymentID, "intruder@example.com", "succeeded")
	require.NoError(t, err)
	assert.Zero(t, up.MatchedCount)

	up, err = f.svc.ConfirmPayment(context.Background(), paymentID, "a@b.c", "succeeded")
	require.NoError(t, err)
	assert.Equal(t, int64(1), up.MatchedCount)
}

func TestPaymentsByEmail(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{})
	id := f.carts.add("a@b.c")
	_, err := f.svc.RecordPayment(context.Background(), paymentPayload("a@b.c", 10.0, id))
	require.NoError(t, err)

	docs, err := f.svc.PaymentsByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = f.svc.PaymentsByEmail(context.Background(), "nobody@b.c")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))

	_, err = f.svc.PaymentsByEmail(context.Background(), "  ")
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

	f.payments.findErr = errors.New("timeout")
	_, err = f.svc.PaymentsByEmail(context.Background(), "a@b.c")
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
}

func TestCheckoutScenario(t *testing.T) {
	f := newPaymentFixture(PaymentOptions{})
	ctx := context.Background()
	c1 := f.carts.add("u@x.com")
	c2 := f.carts.add("u@x.com")

	intent, err := f.svc.CreateIntent(ctx, 100.0)
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.Equal(t, int64(10000), f.intents.amount)

	rec, err := f.svc.RecordPayment(ctx, paymentPayload("u@x.com", 100.0, c1, c2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.DeleteResult.DeletedCount)

	remaining, err := f.carts.FindByEmail(ctx, "u@x.com")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	paymentID := rec.PaymentResult.InsertedID.(primitive.ObjectID).Hex()
	up, err := f.svc.ConfirmPayment(ctx, paymentID, "u@x.com", "succeeded")
	require.NoError(t, err)
	assert.Equal(t, int64(1), up.ModifiedCount)

	docs, err := f.svc.PaymentsByEmail(ctx, "u@x.com")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "succeeded", docs[0][models.FieldStatus])

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, "payment_confirmed", f.publisher.events[1].Type)
	assert.Equal(t, 1, f.metrics.counts[aws_pkg.MetricPaymentConfirmed])
}
