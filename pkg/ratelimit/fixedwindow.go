package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

// FixedWindowLimiter is a Redis-backed fixed-window counter. The window
// state lives in Redis so every process instance observes one consistent
// count. It fails closed: when Redis is unreachable the check denies,
// unless FailOpen is explicitly set by an operator.
type FixedWindowLimiter struct {
	client    *redis.Client
	keyPrefix string
	failOpen  bool
}

type FixedWindowConfig struct {
	KeyPrefix string // defaults to "ratelimit:"
	FailOpen  bool   // operator override: allow when Redis is down
}

func NewFixedWindowLimiter(client *redis.Client, cfg FixedWindowConfig) *FixedWindowLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit:"
	}
	return &FixedWindowLimiter{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		failOpen:  cfg.FailOpen,
	}
}

// INCR and PEXPIRE run in one script so that two concurrent checks can
// never both observe "under limit" and jointly exceed it. The first hit
// in a window sets the expiry; later hits ride the same TTL.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return {count, ttl}
`)

// Check increments the window counter for key and decides whether the
// call is allowed under limit requests per window. When denied, the
// Decision carries the time remaining until the window resets.
func (l *FixedWindowLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	result, err := fixedWindowScript.Run(ctx, l.client, []string{l.keyPrefix + key}, window.Milliseconds()).Result()
	if err != nil {
		return Decision{Allowed: l.failOpen}, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return Decision{Allowed: l.failOpen}, fmt.Errorf("invalid rate limit script result")
	}

	count, _ := values[0].(int64)
	ttlMillis, _ := values[1].(int64)

	decision := Decision{Count: int(count)}
	if decision.Count <= limit {
		decision.Allowed = true
		return decision, nil
	}

	if ttlMillis > 0 {
		decision.RetryAfter = time.Duration(ttlMillis) * time.Millisecond
	} else {
		decision.RetryAfter = window
	}
	return decision, nil
}

// Reset clears the window for a key.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (l *FixedWindowLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// ClientLimiter binds a FixedWindowLimiter to one logical client identity
// and policy. The whole service shares a single window — the intent is to
// protect the one upstream provider account, not per-caller fairness.
type ClientLimiter struct {
	limiter  *FixedWindowLimiter
	clientID string
	limit    int
	window   time.Duration
}

func NewClientLimiter(limiter *FixedWindowLimiter, clientID string, limit int, window time.Duration) *ClientLimiter {
	if clientID == "" {
		clientID = "global"
	}
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &ClientLimiter{
		limiter:  limiter,
		clientID: clientID,
		limit:    limit,
		window:   window,
	}
}

// CheckRateLimit checks the shared upstream window.
func (c *ClientLimiter) CheckRateLimit(ctx context.Context) (Decision, error) {
	return c.limiter.Check(ctx, c.clientID, c.limit, c.window)
}

// Limit returns the configured per-window limit.
func (c *ClientLimiter) Limit() int {
	return c.limit
}
