package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/johncarlocos/topx-betting-mern/pkg/ratelimit"
)

// RateLimitConfig holds rate limit configuration for the HTTP surface.
// This is separate from the upstream provider gate: it protects this
// service from abusive clients, not the provider from this service.
type RateLimitConfig struct {
	Capacity   int64                     // burst size
	RefillRate int64                     // requests per second
	KeyFunc    func(*gin.Context) string // extracts the rate limit key
}

// IPKeyFunc keys buckets by client IP (public endpoints).
func IPKeyFunc(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// RateLimit creates a token-bucket rate limiting middleware.
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	limiter := ratelimit.NewKeyedLimiter(config.Capacity, config.RefillRate)

	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}

	return func(c *gin.Context) {
		if !limiter.Allow(config.KeyFunc(c)) {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(config.Capacity, 10))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(config.Capacity, 10))
		c.Next()
	}
}

// PublicAPIRateLimit - 100 request burst, 10/s refill per IP
func PublicAPIRateLimit() gin.HandlerFunc {
	return RateLimit(RateLimitConfig{
		Capacity:   100,
		RefillRate: 10,
		KeyFunc:    IPKeyFunc,
	})
}
