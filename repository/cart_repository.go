package repository

import (
	"context"
	"fmt"

	"github.com/yashrajoria/bike-store/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoCartRepository struct {
	*MongoDocumentRepository
}

func NewMongoCartRepository(collection *mongo.Collection) *MongoCartRepository {
	return &MongoCartRepository{MongoDocumentRepository: NewMongoDocumentRepository(collection)}
}

func (r *MongoCartRepository) FindByEmail(ctx context.Context, email string) ([]bson.M, error) {
	return r.Find(ctx, bson.M{models.FieldEmail: email})
}

// DeleteByIDAndEmail removes one item only when both the id and the owner match.
func (r *MongoCartRepository) DeleteByIDAndEmail(ctx context.Context, id primitive.ObjectID, email string) (*models.DeleteResult, error) {
	return r.DeleteOne(ctx, bson.M{models.FieldID: id, models.FieldEmail: email})
}

// DeleteByIDs removes every cart item whose _id is in ids. Deleting ids that
// are already gone is a no-op, so the call is safe to repeat.
func (r *MongoCartRepository) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (*models.DeleteResult, error) {
	if len(ids) == 0 {
		return &models.DeleteResult{Acknowledged: true}, nil
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{models.FieldID: bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("delete cart items: %w", err)
	}
	return &models.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}
