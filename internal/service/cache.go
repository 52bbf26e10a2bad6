package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/posbindu-risk-engine/internal/domain"
)

const (
	defaultCacheItems = 1000
	defaultCacheTTL   = 15 * time.Minute
	redisKeyPrefix    = "posbindu:assessment:"
)

// AssessmentCache is a two-tier cache of visit assessments: an in-process
// expiring LRU in front of an optional Redis.
type AssessmentCache struct {
	memory *expirable.LRU[string, *domain.VisitAssessment]
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger

	memoryHits  int64
	redisHits   int64
	misses      int64
	redisErrors int64
}

var _ domain.AssessmentCache = (*AssessmentCache)(nil)

// CacheStats reports hit counters.
type CacheStats struct {
	MemoryHits  int64 `json:"memory_hits"`
	RedisHits   int64 `json:"redis_hits"`
	Misses      int64 `json:"misses"`
	RedisErrors int64 `json:"redis_errors"`
	MemoryItems int   `json:"memory_items"`
}

// NewAssessmentCache builds the cache. redisClient may be nil.
func NewAssessmentCache(cfg domain.CacheConfig, redisClient *redis.Client, logger *logrus.Logger) *AssessmentCache {
	size := cfg.MaxItems
	if size <= 0 {
		size = defaultCacheItems
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &AssessmentCache{
		memory: expirable.NewLRU[string, *domain.VisitAssessment](size, nil, ttl),
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// NewRedisClient creates a go-redis client from the cache config, or returns
// nil when no Redis URL is configured.
func NewRedisClient(cfg domain.CacheConfig) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	return redis.NewClient(opts), nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Get returns a cached assessment. A Redis hit is promoted to memory.
func (c *AssessmentCache) Get(ctx context.Context, id string) (*domain.VisitAssessment, bool) {
	if a, ok := c.memory.Get(id); ok {
		atomic.AddInt64(&c.memoryHits, 1)
		return a, true
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, redisKey(id)).Bytes()
		switch {
		case err == nil:
			var a domain.VisitAssessment
			if err := json.Unmarshal(data, &a); err != nil {
				c.logger.WithError(err).WithField("assessment_id", id).Warn("Discarding undecodable cached assessment")
				c.redis.Del(ctx, redisKey(id))
				break
			}
			c.memory.Add(id, &a)
			atomic.AddInt64(&c.redisHits, 1)
			return &a, true
		case err != redis.Nil:
			atomic.AddInt64(&c.redisErrors, 1)
			c.logger.WithError(err).WithField("assessment_id", id).Debug("Redis cache lookup failed")
		}
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, false
}

// Set stores an assessment in both tiers. Redis failures are logged and
// otherwise ignored.
func (c *AssessmentCache) Set(ctx context.Context, a *domain.VisitAssessment) {
	if a == nil || a.ID == "" {
		return
	}
	c.memory.Add(a.ID, a)

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		c.logger.WithError(err).WithField("assessment_id", a.ID).Warn("Failed to encode assessment for cache")
		return
	}
	if err := c.redis.Set(ctx, redisKey(a.ID), data, c.ttl).Err(); err != nil {
		atomic.AddInt64(&c.redisErrors, 1)
		c.logger.WithError(err).WithField("assessment_id", a.ID).Debug("Redis cache write failed")
	}
}

// Stats returns a snapshot of the hit counters.
func (c *AssessmentCache) Stats() CacheStats {
	return CacheStats{
		MemoryHits:  atomic.LoadInt64(&c.memoryHits),
		RedisHits:   atomic.LoadInt64(&c.redisHits),
		Misses:      atomic.LoadInt64(&c.misses),
		RedisErrors: atomic.LoadInt64(&c.redisErrors),
		MemoryItems: c.memory.Len(),
	}
}

// IsHealthy pings Redis when configured.
func (c *AssessmentCache) IsHealthy(ctx context.Context) bool {
	if c.redis == nil {
		return true
	}
	return c.redis.Ping(ctx).Err() == nil
}
