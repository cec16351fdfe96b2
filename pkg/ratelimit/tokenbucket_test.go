package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_Allow(t *testing.T) {
	t.Run("allows up to capacity", func(t *testing.T) {
		bucket := NewTokenBucket(3, 1)

		for i := 0; i < 3; i++ {
			assert.True(t, bucket.Allow(), "Request %d should be allowed", i+1)
		}
		assert.False(t, bucket.Allow(), "Request over capacity should be denied")
	})

	t.Run("refills over time", func(t *testing.T) {
		bucket := NewTokenBucket(1, 1)

		assert.True(t, bucket.Allow())
		assert.False(t, bucket.Allow())

		time.Sleep(1100 * time.Millisecond)

		assert.True(t, bucket.Allow(), "Should be allowed after refill")
	})

	t.Run("refill never exceeds capacity", func(t *testing.T) {
		bucket := NewTokenBucket(2, 100)

		time.Sleep(1100 * time.Millisecond)

		assert.True(t, bucket.Allow())
		assert.True(t, bucket.Allow())
		assert.False(t, bucket.Allow())
	})
}

func TestKeyedLimiter(t *testing.T) {
	t.Run("keys get independent buckets", func(t *testing.T) {
		limiter := NewKeyedLimiter(1, 1)

		assert.True(t, limiter.Allow("10.0.0.1"))
		assert.False(t, limiter.Allow("10.0.0.1"))
		assert.True(t, limiter.Allow("10.0.0.2"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewKeyedLimiter(1000, 1)

		var wg sync.WaitGroup
		allowed := make([]bool, 100)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				allowed[i] = limiter.Allow("shared")
			}(i)
		}
		wg.Wait()

		for i, ok := range allowed {
			assert.True(t, ok, "Request %d should be allowed", i)
		}
	})

	t.Run("cleanup drops idle buckets even when drained", func(t *testing.T) {
		limiter := NewKeyedLimiter(1, 1)
		limiter.cleanupInterval = 10 * time.Millisecond

		limiter.Allow("idle") // leaves the bucket at zero tokens
		time.Sleep(1100 * time.Millisecond)
		limiter.Allow("active")
		limiter.cleanup()

		limiter.mu.RLock()
		_, idleExists := limiter.buckets["idle"]
		_, activeExists := limiter.buckets["active"]
		limiter.mu.RUnlock()
		assert.False(t, idleExists, "idle bucket should be reclaimed")
		assert.True(t, activeExists, "recently used bucket should survive")
	})
}
