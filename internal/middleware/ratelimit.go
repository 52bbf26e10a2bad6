package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/posbindu-risk-engine/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter hands out one token bucket per client IP. Buckets of idle
// clients expire.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	logger   *logrus.Logger
}

// NewRateLimiter creates a limiter from cfg.
func NewRateLimiter(cfg domain.RateLimitConfig, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
		logger:   logger,
	}
}

// Allow reports whether a request from clientIP may proceed.
func (l *RateLimiter) Allow(clientIP string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(clientIP)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(clientIP, limiter)
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Middleware rejects requests over the limit with 429 and an APIError body.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		correlationID := c.GetString("correlation_id")
		l.logger.WithFields(logrus.Fields{
			"client_ip":      c.ClientIP(),
			"correlation_id": correlationID,
		}).Warn("Rate limit exceeded")

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrCodeRateLimit,
			"Too many requests",
			"",
			correlationID,
		))
	}
}

// RateLimit returns the rate limiting middleware, or a pass-through when
// cfg is disabled.
func RateLimit(cfg domain.RateLimitConfig, logger *logrus.Logger) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return NewRateLimiter(cfg, logger).Middleware()
}
