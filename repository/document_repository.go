package repository

import (
	"context"
	"fmt"

	"github.com/yashrajoria/bike-store/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDocumentRepository implements DocumentRepo over a single collection.
type MongoDocumentRepository struct {
	collection *mongo.Collection
}

func NewMongoDocumentRepository(collection *mongo.Collection) *MongoDocumentRepository {
	return &MongoDocumentRepository{collection: collection}
}

func (r *MongoDocumentRepository) FindAll(ctx context.Context) ([]bson.M, error) {
	return r.Find(ctx, bson.M{})
}

// Find returns every matching document; never nil.
func (r *MongoDocumentRepository) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", r.collection.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := make([]bson.M, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read %s cursor: %w", r.collection.Name(), err)
	}
	if docs == nil {
		docs = []bson.M{}
	}
	return docs, nil
}

func (r *MongoDocumentRepository) InsertOne(ctx context.Context, doc bson.M) (*models.InsertResult, error) {
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", r.collection.Name(), err)
	}
	return &models.InsertResult{Acknowledged: true, InsertedID: res.InsertedID}, nil
}

func (r *MongoDocumentRepository) DeleteOne(ctx context.Context, filter bson.M) (*models.DeleteResult, error) {
	res, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("delete from %s: %w", r.collection.Name(), err)
	}
	return &models.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}
