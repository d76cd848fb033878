package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yashrajoria/bike-store/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoPaymentRepository struct {
	docs       *MongoDocumentRepository
	collection *mongo.Collection
}

func NewMongoPaymentRepository(collection *mongo.Collection) *MongoPaymentRepository {
	return &MongoPaymentRepository{
		docs:       NewMongoDocumentRepository(collection),
		collection: collection,
	}
}

func (r *MongoPaymentRepository) FindAll(ctx context.Context) ([]bson.M, error) {
	return r.docs.FindAll(ctx)
}

func (r *MongoPaymentRepository) FindByEmail(ctx context.Context, email string) ([]bson.M, error) {
	return r.docs.Find(ctx, bson.M{models.FieldEmail: email})
}

// InsertPending stores payload as a new payment record in the pending
// settlement state under a server generated _id. The payload map is copied,
// never mutated.
func (r *MongoPaymentRepository) InsertPending(ctx context.Context, payload bson.M, now time.Time) (*models.InsertResult, primitive.ObjectID, error) {
	doc := make(bson.M, len(payload)+3)
	for k, v := range payload {
		doc[k] = v
	}

	id := primitive.NewObjectID()
	doc[models.FieldID] = id
	doc[models.FieldSettlement] = models.SettlementPending
	doc[models.FieldCreatedAt] = now.UTC()

	res, err := r.docs.InsertOne(ctx, doc)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	return res, id, nil
}

func (r *MongoPaymentRepository) MarkSettled(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{models.FieldID: id},
		bson.M{"$set": bson.M{models.FieldSettlement: models.SettlementSettled}},
	)
	if err != nil {
		return fmt.Errorf("mark payment %s settled: %w", id.Hex(), err)
	}
	return nil
}

// UpdateStatus sets the confirmation value. When ownerEmail is non-empty the
// record must also belong to that email.
func (r *MongoPaymentRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, ownerEmail, status string, now time.Time) (*models.UpdateResult, error) {
	filter := bson.M{models.FieldID: id}
	if ownerEmail != "" {
		filter[models.FieldEmail] = ownerEmail
	}
	update := bson.M{"$set": bson.M{
		models.FieldStatus:    status,
		models.FieldUpdatedAt: now.UTC(),
	}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("update payment %s status: %w", id.Hex(), err)
	}
	return &models.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

// FindPendingBefore returns up to limit records still pending that were
// created before cutoff, oldest first.
func (r *MongoPaymentRepository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int64) ([]models.PendingPayment, error) {
	filter := bson.M{
		models.FieldSettlement: models.SettlementPending,
		models.FieldCreatedAt:  bson.M{"$lt": cutoff.UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: models.FieldCreatedAt, Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find pending payments: %w", err)
	}
	defer cursor.Close(ctx)

	var pending []models.PendingPayment
	if err := cursor.All(ctx, &pending); err != nil {
		return nil, fmt.Errorf("read pending payments: %w", err)
	}
	return pending, nil
}
