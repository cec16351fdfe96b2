package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm. It guards the HTTP
// surface of this service itself; the upstream provider is protected by
// the Redis FixedWindowLimiter instead.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int64
	tokens     int64
	refillRate int64 // tokens added per second
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	tokensToAdd := int64(elapsed.Seconds()) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// KeyedLimiter manages one bucket per key (client IP for public routes).
type KeyedLimiter struct {
	mu              sync.RWMutex
	buckets         map[string]*TokenBucket
	capacity        int64
	refillRate      int64
	cleanupInterval time.Duration
}

func NewKeyedLimiter(capacity, refillRate int64) *KeyedLimiter {
	kl := &KeyedLimiter{
		buckets:         make(map[string]*TokenBucket),
		capacity:        capacity,
		refillRate:      refillRate,
		cleanupInterval: 10 * time.Minute,
	}

	go kl.cleanupLoop()

	return kl
}

// Allow checks whether a request from the given key is allowed.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.getBucket(key).Allow()
}

func (kl *KeyedLimiter) getBucket(key string) *TokenBucket {
	kl.mu.RLock()
	bucket, exists := kl.buckets[key]
	kl.mu.RUnlock()

	if exists {
		return bucket
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	// double-check after acquiring write lock
	if bucket, exists = kl.buckets[key]; exists {
		return bucket
	}

	bucket = NewTokenBucket(kl.capacity, kl.refillRate)
	kl.buckets[key] = bucket
	return bucket
}

// cleanupLoop drops idle full buckets so the map does not grow unbounded.
func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		kl.cleanup()
	}
}

func (kl *KeyedLimiter) cleanup() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	now := time.Now()
	for key, bucket := range kl.buckets {
		bucket.mu.Lock()
		// refill first: an abandoned bucket only regains tokens inside
		// Allow, which by definition nobody is calling anymore. The idle
		// time is measured before the refill moves lastRefill forward.
		idle := now.Sub(bucket.lastRefill)
		bucket.refill()
		if bucket.tokens == bucket.capacity &&
			idle > kl.cleanupInterval {
			delete(kl.buckets, key)
		}
		bucket.mu.Unlock()
	}
}
