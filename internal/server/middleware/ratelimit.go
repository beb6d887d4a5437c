package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nulzo/concierge-bot/pkg/api"
)

// RateLimiter hands each client IP its own token bucket. Buckets are
// created on first sight and kept for the life of the process.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
	logger  *zap.Logger
}

func NewRateLimiter(rps float64, burst int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		logger:  logger,
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	bucket, ok := rl.buckets[ip]
	if !ok {
		bucket = rate.NewLimiter(rl.rps, rl.burst)
		rl.buckets[ip] = bucket
	}
	rl.mu.Unlock()
	return bucket.Allow()
}

// Middleware rejects over-limit requests with a problem response.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if rl.allow(ip) {
			c.Next()
			return
		}
		rl.logger.Warn("rate limit exceeded",
			zap.String("ip", ip),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusTooManyRequests,
			api.NewError(http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded"))
	}
}
