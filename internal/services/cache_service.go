package services

import (
	"context"
	"time"

	"lifeline/pkg/cache"
	"lifeline/pkg/logger"
)

// CacheService is the slice of Redis this system exercises: an entity
// cache side-car for the repositories and the pub/sub leg of the
// broadcast channel.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, message interface{}) error
	Ping(ctx context.Context) error
}

type cacheService struct {
	redis      *cache.RedisCache
	logger     *logger.Logger
	keyPrefix  string
	defaultTTL time.Duration
}

func NewCacheService(redis *cache.RedisCache, log *logger.Logger) CacheService {
	return &cacheService{
		redis:      redis,
		logger:     log,
		keyPrefix:  "lifeline:",
		defaultTTL: 15 * time.Minute,
	}
}

func (s *cacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.redis.Get(ctx, s.keyPrefix+key, dest)
}

func (s *cacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration == 0 {
		expiration = s.defaultTTL
	}
	return s.redis.Set(ctx, s.keyPrefix+key, value, expiration)
}

func (s *cacheService) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.keyPrefix + k
	}
	return s.redis.Delete(ctx, prefixed...)
}

func (s *cacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	return s.redis.Publish(ctx, s.keyPrefix+channel, message)
}

func (s *cacheService) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx)
}
