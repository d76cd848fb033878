package services

import (
	"context"

	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/models"
	"github.com/yashrajoria/bike-store/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// CollectionService lists and appends to a collection with no server-side
// semantics (reviews, blogs, users).
type CollectionService struct {
	name   string
	repo   repository.DocumentRepo
	logger *zap.Logger
}

func NewCollectionService(name string, repo repository.DocumentRepo, logger *zap.Logger) *CollectionService {
	return &CollectionService{name: name, repo: repo, logger: logger}
}

func (s *CollectionService) List(ctx context.Context) ([]bson.M, error) {
	docs, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list documents", zap.String("collection", s.name), zap.Error(err))
		return nil, apperrors.Internal("Failed to list "+s.name, err)
	}
	return docs, nil
}

func (s *CollectionService) Insert(ctx context.Context, doc bson.M) (*models.InsertResult, error) {
	res, err := s.repo.InsertOne(ctx, doc)
	if err != nil {
		s.logger.Error("Failed to insert document", zap.String("collection", s.name), zap.Error(err))
		return nil, apperrors.Internal("Failed to insert into "+s.name, err)
	}
	return res, nil
}
