package cache

import (
	"context"
	"sync"
	"time"

	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
)

// TieredCache layers a fast volatile store over a durable authoritative
// one. Every read/write error from either tier is absorbed and treated as
// a miss (reads) or no-op (writes): a cache outage degrades the service
// to always-fetch-fresh, never to a hard failure.
type TieredCache struct {
	fast    Store
	durable Store

	// tracks background fast-tier repopulations so tests can await them
	wg sync.WaitGroup
}

func NewTieredCache(fast, durable Store) *TieredCache {
	return &TieredCache{fast: fast, durable: durable}
}

// Get reads through the tiers: fast first, then durable. On a durable hit
// the fast tier is repopulated with repopulateTTL in the background; the
// read never blocks on that write.
func (c *TieredCache) Get(ctx context.Context, key string, repopulateTTL time.Duration) ([]byte, bool) {
	value, found, err := c.fast.Get(ctx, key)
	if err != nil {
		logger.Warn("Fast cache read failed", "key", key, "error", err)
	} else if found {
		return value, true
	}

	value, found, err = c.durable.Get(ctx, key)
	if err != nil {
		logger.Warn("Durable cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.fast.Set(writeCtx, key, value, repopulateTTL); err != nil {
			logger.Warn("Fast cache repopulate failed", "key", key, "error", err)
		}
	}()

	return value, true
}

// Set writes both tiers with independent TTLs. A fast-tier failure still
// leaves the durable copy; a durable failure still leaves the fast copy.
// Returns whether at least one tier accepted the write.
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, fastTTL, durableTTL time.Duration) bool {
	stored := false

	if err := c.fast.Set(ctx, key, value, fastTTL); err != nil {
		logger.Warn("Fast cache write failed", "key", key, "error", err)
	} else {
		stored = true
	}

	if err := c.durable.Set(ctx, key, value, durableTTL); err != nil {
		logger.Warn("Durable cache write failed", "key", key, "error", err)
	} else {
		stored = true
	}

	return stored
}

// SetVolatile writes the fast tier only. Used for the match list, which
// is cheap to rebuild and not worth a durable copy.
func (c *TieredCache) SetVolatile(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if err := c.fast.Set(ctx, key, value, ttl); err != nil {
		logger.Warn("Fast cache write failed", "key", key, "error", err)
		return false
	}
	return true
}

// Wait blocks until in-flight background repopulations finish.
func (c *TieredCache) Wait() {
	c.wg.Wait()
}
