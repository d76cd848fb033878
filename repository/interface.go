package repository

import (
	"context"
	"time"

	"github.com/yashrajoria/bike-store/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentRepo is schema-free access to one collection. Documents are stored
// and returned verbatim.
type DocumentRepo interface {
	FindAll(ctx context.Context) ([]bson.M, error)
	Find(ctx context.Context, filter bson.M) ([]bson.M, error)
	InsertOne(ctx context.Context, doc bson.M) (*models.InsertResult, error)
	DeleteOne(ctx context.Context, filter bson.M) (*models.DeleteResult, error)
}

// CartRepo adds the cart lookups and the bulk removal used by reconciliation.
type CartRepo interface {
	DocumentRepo
	FindByEmail(ctx context.Context, email string) ([]bson.M, error)
	DeleteByIDAndEmail(ctx context.Context, id primitive.ObjectID, email string) (*models.DeleteResult, error)
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (*models.DeleteResult, error)
}

// PaymentRepo holds payment records and their settlement state.
type PaymentRepo interface {
	FindAll(ctx context.Context) ([]bson.M, error)
	FindByEmail(ctx context.Context, email string) ([]bson.M, error)
	InsertPending(ctx context.Context, payload bson.M, now time.Time) (*models.InsertResult, primitive.ObjectID, error)
	MarkSettled(ctx context.Context, id primitive.ObjectID) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, ownerEmail, status string, now time.Time) (*models.UpdateResult, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int64) ([]models.PendingPayment, error)
}
