package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	catalogVersionKey = "catalog:bikes:version"
	catalogListPrefix = "catalog:bikes:v"
)

// CatalogCache holds the full bike listing. Get reports the versioned key it
// looked under; a listing loaded after a miss is stored with Set under that
// same key, so an invalidation racing the load orphans the snapshot instead
// of publishing it.
type CatalogCache interface {
	Get(ctx context.Context) (docs []bson.M, key string, ok bool)
	Set(ctx context.Context, key string, docs []bson.M)
	Invalidate(ctx context.Context)
}

// RedisCatalogCache stores the listing BSON-encoded so ObjectIDs, dates and
// integers come back with their stored types. Invalidation bumps a version
// counter instead of deleting keys; stale versions expire with the TTL.
type RedisCatalogCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCatalogCache {
	return &RedisCatalogCache{redis: client, ttl: ttl, logger: logger}
}

type cachedListing struct {
	Docs []bson.M `bson:"docs"`
}

// Get returns the cached listing for the current version. key is empty when
// the version could not be read, in which case nothing should be stored.
func (c *RedisCatalogCache) Get(ctx context.Context) ([]bson.M, string, bool) {
	key, err := c.listKey(ctx)
	if err != nil {
		return nil, "", false
	}

	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Catalog cache read failed", zap.Error(err))
		}
		return nil, key, false
	}

	var listing cachedListing
	if err := bson.Unmarshal(raw, &listing); err != nil {
		c.logger.Warn("Failed to decode cached catalog", zap.Error(err))
		return nil, key, false
	}
	if listing.Docs == nil {
		listing.Docs = []bson.M{}
	}
	return listing.Docs, key, true
}

func (c *RedisCatalogCache) Set(ctx context.Context, key string, docs []bson.M) {
	if key == "" {
		return
	}

	raw, err := bson.Marshal(cachedListing{Docs: docs})
	if err != nil {
		c.logger.Warn("Failed to encode catalog for cache", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache catalog", zap.Error(err))
	}
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) {
	if err := c.redis.Incr(ctx, catalogVersionKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}

func (c *RedisCatalogCache) listKey(ctx context.Context) (string, error) {
	version, err := c.redis.Get(ctx, catalogVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("Catalog cache version read failed", zap.Error(err))
		return "", err
	}
	return fmt.Sprintf("%s%d:all", catalogListPrefix, version), nil
}
