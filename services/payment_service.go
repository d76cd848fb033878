package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/models"
	aws_pkg "github.com/yashrajoria/bike-store/pkg/aws"
	"github.com/yashrajoria/bike-store/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	msgInvalidPrice   = "Invalid price value. Price must be a positive number."
	msgInvalidPayment = "Invalid payment: email, amount and a non-empty cartIds list of ObjectIds are required"
	msgInvalidEmail   = "Invalid email address"
	msgInvalidID      = "Invalid payment id"
	msgReservedField  = "Invalid payment: field %q is set by the server"
)

const (
	// reconcileTimeout bounds the cart cleanup that follows a recorded payment.
	// It runs detached from the request so a dropped client does not strand it.
	reconcileTimeout = 10 * time.Second
	sweepBatchSize   = 100
	maxIntentAmount  = 1 << 53
)

// PaymentService is the checkout workflow: intent creation, payment recording
// with cart reconciliation, and confirmation.
type PaymentService interface {
	CreateIntent(ctx context.Context, price interface{}) (*models.IntentResponse, error)
	RecordPayment(ctx context.Context, payload bson.M) (*models.PaymentResult, error)
	ConfirmPayment(ctx context.Context, id, email, confirmation string) (*models.UpdateResult, error)
	ListPayments(ctx context.Context) ([]bson.M, error)
	PaymentsByEmail(ctx context.Context, email string) ([]bson.M, error)
	RecoverPending(ctx context.Context) (int, error)
}

// PaymentOptions tunes the workflow.
type PaymentOptions struct {
	Currency string
	// RequireOwner makes confirmation match the email in the path as well as the id.
	RequireOwner bool
	// PendingTimeout is how long a record may stay pending before the sweep settles it.
	PendingTimeout time.Duration
	TopicArn       string
}

type paymentServiceImpl struct {
	carts     repository.CartRepo
	payments  repository.PaymentRepo
	intents   PaymentIntentCreator
	publisher aws_pkg.SNSPublisher
	metrics   aws_pkg.Recorder
	validate  *validator.Validate
	opts      PaymentOptions
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService wires the workflow. publisher and metrics may be nil.
func NewPaymentService(
	carts repository.CartRepo,
	payments repository.PaymentRepo,
	intents PaymentIntentCreator,
	publisher aws_pkg.SNSPublisher,
	metrics aws_pkg.Recorder,
	opts PaymentOptions,
	logger *zap.Logger,
) PaymentService {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &paymentServiceImpl{
		carts:     carts,
		payments:  payments,
		intents:   intents,
		publisher: publisher,
		metrics:   metrics,
		validate:  validator.New(),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateIntent converts price (major units) to cents and opens a card intent.
// Invalid prices are rejected before the provider is called.
func (s *paymentServiceImpl) CreateIntent(ctx context.Context, price interface{}) (*models.IntentResponse, error) {
	p, ok := models.Number(price)
	if !ok || p <= 0 {
		return nil, apperrors.BadRequest(msgInvalidPrice, nil)
	}
	amount := math.Round(p * 100)
	if amount > maxIntentAmount {
		return nil, apperrors.BadRequest(msgInvalidPrice, nil)
	}

	pi, err := s.intents.CreatePaymentIntent(ctx, int64(amount), s.opts.Currency)
	if err != nil {
		s.logger.Error("Error creating payment intent", zap.Int64("amount", int64(amount)), zap.Error(err))
		s.count(ctx, aws_pkg.MetricPaymentIntentsFailed)
		return nil, apperrors.Internal("Internal Server Error", err)
	}

	s.count(ctx, aws_pkg.MetricPaymentIntentsCreated)
	return &models.IntentResponse{ClientSecret: pi.ClientSecret}, nil
}

// RecordPayment stores the payload as a payment record, then removes the cart
// items it settles. The record is inserted pending and only marked settled
// once the cart is clean; RecoverPending finishes records left pending.
func (s *paymentServiceImpl) RecordPayment(ctx context.Context, payload bson.M) (*models.PaymentResult, error) {
	if field, ok := models.ServerManagedField(payload); ok {
		return nil, apperrors.BadRequest(fmt.Sprintf(msgReservedField, field), nil)
	}
	sub := models.NewPaymentSubmission(payload)
	if err := s.validate.Struct(sub); err != nil {
		return nil, apperrors.BadRequest(msgInvalidPayment, err)
	}
	cartIDs, err := sub.ObjectIDs()
	if err != nil {
		return nil, apperrors.BadRequest(msgInvalidPayment, err)
	}

	inserted, paymentID, err := s.payments.InsertPending(ctx, payload, s.now())
	if err != nil {
		s.logger.Error("Failed to insert payment", zap.String("email", sub.Email), zap.Error(err))
		return nil, apperrors.Internal("Failed to record payment", err)
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()

	deleted, err := s.carts.DeleteByIDs(rctx, cartIDs)
	if err != nil {
		s.logger.Error("Payment recorded but cart reconciliation failed; left pending",
			zap.String("payment_id", paymentID.Hex()),
			zap.Strings("cart_ids", sub.CartIDs),
			zap.Error(err),
		)
		return nil, apperrors.Internal("Payment recorded but cart cleanup failed", err)
	}

	if err := s.payments.MarkSettled(rctx, paymentID); err != nil {
		// The cart is already clean; the sweep will flip the flag.
		s.logger.Warn("Failed to mark payment settled", zap.String("payment_id", paymentID.Hex()), zap.Error(err))
	}

	if deleted.DeletedCount != int64(len(cartIDs)) {
		s.logger.Warn("Cart reconciliation removed fewer items than settled",
			zap.String("payment_id", paymentID.Hex()),
			zap.Int("settled", len(cartIDs)),
			zap.Int64("removed", deleted.DeletedCount),
		)
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_id", paymentID.Hex()),
		zap.String("email", sub.Email),
		zap.Int64("cart_items_removed", deleted.DeletedCount),
	)
	s.count(ctx, aws_pkg.MetricPaymentRecorded)
	s.value(ctx, aws_pkg.MetricCartItemsReconciled, float64(deleted.DeletedCount))
	s.publish(rctx, models.PaymentEvent{
		Type:      "payment_recorded",
		PaymentID: paymentID.Hex(),
		Email:     sub.Email,
		Amount:    *sub.Amount,
		CartIDs:   sub.CartIDs,
		Timestamp: s.now().UTC(),
	})

	return &models.PaymentResult{PaymentResult: *inserted, DeleteResult: *deleted}, nil
}

// ConfirmPayment overwrites the record's status with confirmation. Confirming
// an unknown id matches nothing and is not an error.
func (s *paymentServiceImpl) ConfirmPayment(ctx context.Context, id, email, confirmation string) (*models.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.BadRequest(msgInvalidID, err)
	}

	owner := ""
	if s.opts.RequireOwner {
		owner = email
	}

	res, err := s.payments.UpdateStatus(ctx, oid, owner, confirmation, s.now())
	if err != nil {
		s.logger.Error("Failed to confirm payment", zap.String("payment_id", id), zap.Error(err))
		return nil, apperrors.Internal("Failed to confirm payment", err)
	}

	s.logger.Info("Payment confirmation applied",
		zap.String("payment_id", id),
		zap.String("email", email),
		zap.String("confirmation", confirmation),
		zap.Int64("matched", res.MatchedCount),
	)
	if res.MatchedCount > 0 {
		s.count(ctx, aws_pkg.MetricPaymentConfirmed)
		s.publish(ctx, models.PaymentEvent{
			Type:         "payment_confirmed",
			PaymentID:    id,
			Email:        email,
			Confirmation: confirmation,
			Timestamp:    s.now().UTC(),
		})
	}
	return res, nil
}

func (s *paymentServiceImpl) ListPayments(ctx context.Context) ([]bson.M, error) {
	docs, err := s.payments.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list payments", err)
	}
	return docs, nil
}

// PaymentsByEmail answers 404 rather than an empty list when nothing matches.
func (s *paymentServiceImpl) PaymentsByEmail(ctx context.Context, email string) ([]bson.M, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.BadRequest(msgInvalidEmail, nil)
	}

	docs, err := s.payments.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Error fetching payments", zap.String("email", email), zap.Error(err))
		return nil, apperrors.Internal("An error occurred while fetching payments", err)
	}
	if len(docs) == 0 {
		return nil, apperrors.NotFound("No payments found for this email")
	}
	return docs, nil
}

// RecoverPending settles records left pending longer than PendingTimeout by
// repeating their cart deletion. It returns how many records it settled.
func (s *paymentServiceImpl) RecoverPending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.opts.PendingTimeout)
	pending, err := s.payments.FindPendingBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, p := range pending {
		ids, err := models.PaymentSubmission{CartIDs: p.CartIDs}.ObjectIDs()
		if err != nil {
			// Nothing in the cart can match a malformed id.
			s.logger.Warn("Pending payment has malformed cart ids", zap.String("payment_id", p.ID.Hex()), zap.Error(err))
			ids = nil
		}

		if _, err := s.carts.DeleteByIDs(ctx, ids); err != nil {
			s.logger.Error("Settlement retry failed", zap.String("payment_id", p.ID.Hex()), zap.Error(err))
			continue
		}
		if err := s.payments.MarkSettled(ctx, p.ID); err != nil {
			s.logger.Error("Failed to mark recovered payment settled", zap.String("payment_id", p.ID.Hex()), zap.Error(err))
			continue
		}
		settled++
	}

	if settled > 0 {
		s.logger.Info("Recovered pending payments", zap.Int("settled", settled))
		s.value(ctx, aws_pkg.MetricSettlementsRecovered, float64(settled))
	}
	return settled, nil
}

func (s *paymentServiceImpl) publish(ctx context.Context, event models.PaymentEvent) {
	if s.publisher == nil || s.opts.TopicArn == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal payment event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, s.opts.TopicArn, payload); err != nil {
		s.logger.Error("Failed to publish payment event to SNS",
			zap.String("event_type", event.Type),
			zap.String("payment_id", event.PaymentID),
			zap.Error(err),
		)
	}
}

func (s *paymentServiceImpl) count(ctx context.Context, metric string) {
	if s.metrics == nil || !s.metrics.IsEnabled() {
		return
	}
	_ = s.metrics.RecordCount(ctx, metric, map[string]string{"Service": "bike-store"})
}

func (s *paymentServiceImpl) value(ctx context.Context, metric string, v float64) {
	if s.metrics == nil || !s.metrics.IsEnabled() {
		return
	}
	_ = s.metrics.RecordValue(ctx, metric, v, map[string]string{"Service": "bike-store"})
}
