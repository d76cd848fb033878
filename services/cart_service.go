package services

import (
	"context"

	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/models"
	"github.com/yashrajoria/bike-store/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CartService manages cart items. Items leave the cart either here or through
// payment reconciliation.
type CartService interface {
	ListAll(ctx context.Context) ([]bson.M, error)
	ListByEmail(ctx context.Context, email string) ([]bson.M, error)
	AddItem(ctx context.Context, doc bson.M) (*models.InsertResult, error)
	RemoveItem(ctx context.Context, id, email string) (*models.DeleteResult, error)
}

type cartServiceImpl struct {
	carts  repository.CartRepo
	logger *zap.Logger
}

func NewCartService(carts repository.CartRepo, logger *zap.Logger) CartService {
	return &cartServiceImpl{carts: carts, logger: logger}
}

func (s *cartServiceImpl) ListAll(ctx context.Context) ([]bson.M, error) {
	docs, err := s.carts.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list cart items", zap.Error(err))
		return nil, apperrors.Internal("Failed to list cart items", err)
	}
	return docs, nil
}

func (s *cartServiceImpl) ListByEmail(ctx context.Context, email string) ([]bson.M, error) {
	docs, err := s.carts.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to list cart items", zap.String("email", email), zap.Error(err))
		return nil, apperrors.Internal("Failed to list cart items", err)
	}
	return docs, nil
}

func (s *cartServiceImpl) AddItem(ctx context.Context, doc bson.M) (*models.InsertResult, error) {
	res, err := s.carts.InsertOne(ctx, doc)
	if err != nil {
		s.logger.Error("Failed to add cart item", zap.Error(err))
		return nil, apperrors.Internal("Failed to add cart item", err)
	}
	return res, nil
}

// RemoveItem deletes the item only if it belongs to email.
func (s *cartServiceImpl) RemoveItem(ctx context.Context, id, email string) (*models.DeleteResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid cart item id", err)
	}
	res, err := s.carts.DeleteByIDAndEmail(ctx, oid, email)
	if err != nil {
		s.logger.Error("Failed to remove cart item", zap.String("cart_id", id), zap.Error(err))
		return nil, apperrors.Internal("Failed to remove cart item", err)
	}
	s.logger.Info("Cart item removed", zap.String("cart_id", id), zap.String("email", email), zap.Int64("deleted", res.DeletedCount))
	return res, nil
}
