package services

import (
	"context"

	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/models"
	aws_pkg "github.com/yashrajoria/bike-store/pkg/aws"
	"github.com/yashrajoria/bike-store/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CatalogService serves the bikes collection.
type CatalogService interface {
	ListBikes(ctx context.Context) ([]bson.M, error)
	BikeDetails(ctx context.Context, id string) ([]bson.M, error)
	AddBike(ctx context.Context, doc bson.M) (*models.InsertResult, error)
	DeleteBike(ctx context.Context, id string) (*models.DeleteResult, error)
}

type catalogServiceImpl struct {
	bikes   repository.DocumentRepo
	cache   CatalogCache
	metrics aws_pkg.Recorder
	logger  *zap.Logger
}

// NewCatalogService wires the bike catalog. cache and metrics may be nil.
func NewCatalogService(bikes repository.DocumentRepo, cache CatalogCache, metrics aws_pkg.Recorder, logger *zap.Logger) CatalogService {
	return &catalogServiceImpl{bikes: bikes, cache: cache, metrics: metrics, logger: logger}
}

func (s *catalogServiceImpl) ListBikes(ctx context.Context) ([]bson.M, error) {
	var cacheKey string
	if s.cache != nil {
		docs, key, ok := s.cache.Get(ctx)
		if ok {
			s.recordCache(ctx, aws_pkg.MetricCacheHits)
			return docs, nil
		}
		cacheKey = key
		s.recordCache(ctx, aws_pkg.MetricCacheMisses)
	}

	docs, err := s.bikes.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list bikes", zap.Error(err))
		return nil, apperrors.Internal("Failed to list bikes", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, docs)
	}
	return docs, nil
}

func (s *catalogServiceImpl) BikeDetails(ctx context.Context, id string) ([]bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid bike id", err)
	}
	docs, err := s.bikes.Find(ctx, bson.M{models.FieldID: oid})
	if err != nil {
		s.logger.Error("Failed to fetch bike", zap.String("bike_id", id), zap.Error(err))
		return nil, apperrors.Internal("Failed to fetch bike", err)
	}
	return docs, nil
}

func (s *catalogServiceImpl) AddBike(ctx context.Context, doc bson.M) (*models.InsertResult, error) {
	res, err := s.bikes.InsertOne(ctx, doc)
	if err != nil {
		s.logger.Error("Failed to add bike", zap.Error(err))
		return nil, apperrors.Internal("Failed to add bike", err)
	}
	s.invalidate(ctx)
	return res, nil
}

func (s *catalogServiceImpl) DeleteBike(ctx context.Context, id string) (*models.DeleteResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid bike id", err)
	}
	res, err := s.bikes.DeleteOne(ctx, bson.M{models.FieldID: oid})
	if err != nil {
		s.logger.Error("Failed to delete bike", zap.String("bike_id", id), zap.Error(err))
		return nil, apperrors.Internal("Failed to delete bike", err)
	}
	if res.DeletedCount > 0 {
		s.invalidate(ctx)
	}
	return res, nil
}

func (s *catalogServiceImpl) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *catalogServiceImpl) recordCache(ctx context.Context, metric string) {
	if s.metrics == nil || !s.metrics.IsEnabled() {
		return
	}
	_ = s.metrics.RecordCount(ctx, metric, map[string]string{"Service": "bike-store", "Cache": "catalog"})
}
