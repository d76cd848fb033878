package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment document fields written or read by the server. Everything else in
// a payment document is the client payload, stored untouched.
const (
	FieldID         = "_id"
	FieldEmail      = "email"
	FieldAmount     = "amount"
	FieldCartIDs    = "cartIds"
	FieldStatus     = "status"
	FieldSettlement = "settlement"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
)

// ServerManagedFields are set by the server on insert; a submission carrying
// any of them is rejected.
var ServerManagedFields = []string{FieldID, FieldSettlement, FieldCreatedAt}

// ServerManagedField returns the first server-managed key present in doc.
func ServerManagedField(doc bson.M) (string, bool) {
	for _, f := range ServerManagedFields {
		if _, ok := doc[f]; ok {
			return f, true
		}
	}
	return "", false
}

// Settlement states of a payment record. A record is pending from insertion
// until the cart items it pays for have been removed.
const (
	SettlementPending = "pending"
	SettlementSettled = "settled"
)

// PaymentSubmission is the validated view of a POST /payments body.
type PaymentSubmission struct {
	Email   string   `validate:"required"`
	Amount  *float64 `validate:"required"`
	CartIDs []string `validate:"required,min=1,dive,required,len=24,hexadecimal"`
}

// NewPaymentSubmission extracts the fields the workflow depends on from a
// decoded payload. Fields of the wrong type are left zero so validation
// reports them as missing.
func NewPaymentSubmission(doc bson.M) PaymentSubmission {
	var sub PaymentSubmission

	if email, ok := doc[FieldEmail].(string); ok {
		sub.Email = email
	}
	if amount, ok := Number(doc[FieldAmount]); ok {
		sub.Amount = &amount
	}
	if ids, ok := doc[FieldCartIDs].(bson.A); ok {
		sub.CartIDs = make([]string, 0, len(ids))
		for _, id := range ids {
			s, _ := id.(string)
			sub.CartIDs = append(sub.CartIDs, s)
		}
	}
	return sub
}

// ObjectIDs parses CartIDs. It fails on the first malformed entry.
func (s PaymentSubmission) ObjectIDs() ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(s.CartIDs))
	for _, raw := range s.CartIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// PendingPayment is the slice of a stored payment the settlement sweep reads.
type PendingPayment struct {
	ID        primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email"`
	CartIDs   []string           `bson:"cartIds"`
	CreatedAt time.Time          `bson:"created_at"`
}

// PaymentEvent is published to SNS when a payment is recorded or confirmed.
type PaymentEvent struct {
	Type         string    `json:"type"` // payment_recorded, payment_confirmed
	PaymentID    string    `json:"payment_id"`
	Email        string    `json:"email"`
	Amount       float64   `json:"amount,omitempty"`
	CartIDs      []string  `json:"cart_ids,omitempty"`
	Confirmation string    `json:"confirmation,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// IntentRequest is the POST /create-payment-intent body. Price stays untyped
// so numeric strings and wrong types can be told apart from absent values.
type IntentRequest struct {
	Price interface{} `json:"price"`
}

// IntentResponse carries the client secret used by the browser payment form.
type IntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}
