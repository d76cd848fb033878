package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the lookup indexes the routes rely on: cart and
// payment lookups by email, and the settlement sweep's pending scan.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	byEmail := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}}

	if _, err := db.Collection(CollectionCarts).Indexes().CreateOne(ctx, byEmail); err != nil {
		return fmt.Errorf("create carts email index: %w", err)
	}

	paymentIndexes := []mongo.IndexModel{
		byEmail,
		{
			Keys:    bson.D{{Key: "settlement", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{"settlement": "pending"}),
		},
	}
	if _, err := db.Collection(CollectionPayments).Indexes().CreateMany(ctx, paymentIndexes); err != nil {
		return fmt.Errorf("create payments indexes: %w", err)
	}
	return nil
}
