package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/johncarlocos/topx-betting-mern/internal/models"
	"github.com/johncarlocos/topx-betting-mern/pkg/cache"
	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
	"github.com/johncarlocos/topx-betting-mern/pkg/ratelimit"
)

const resultKeyPrefix = "match:result:"

// ResultCacheKey is the cache key convention for one fixture's result.
func ResultCacheKey(id string) string {
	return resultKeyPrefix + id
}

// UpstreamGate bounds calls to the odds provider across all processes.
type UpstreamGate interface {
	CheckRateLimit(ctx context.Context) (ratelimit.Decision, error)
}

// MatchService serves single-match results through the two-tier cache,
// gated by the shared upstream rate limiter.
type MatchService struct {
	resolver *ResultResolver
	cache    *cache.TieredCache
	gate     UpstreamGate

	fastTTL    time.Duration
	durableTTL time.Duration

	persistWG sync.WaitGroup
}

type MatchServiceConfig struct {
	FastTTL    time.Duration // fast-tier result TTL (default 3300s)
	DurableTTL time.Duration // durable-tier result TTL (default 3600s)
}

func NewMatchService(resolver *ResultResolver, tiered *cache.TieredCache, gate UpstreamGate, cfg MatchServiceConfig) *MatchService {
	if cfg.FastTTL <= 0 {
		cfg.FastTTL = 3300 * time.Second
	}
	if cfg.DurableTTL <= 0 {
		cfg.DurableTTL = 3600 * time.Second
	}
	return &MatchService{
		resolver:   resolver,
		cache:      tiered,
		gate:       gate,
		fastTTL:    cfg.FastTTL,
		durableTTL: cfg.DurableTTL,
	}
}

// ResolveCached returns the cached result when present, otherwise
// resolves fresh behind the rate limiter. Complete results are written to
// both tiers; partial results are returned but never cached, so the next
// request retries the upstream.
func (s *MatchService) ResolveCached(ctx context.Context, id string) (*models.MatchResult, error) {
	key := ResultCacheKey(id)

	if data, found := s.cache.Get(ctx, key, s.fastTTL); found {
		var result models.MatchResult
		if err := json.Unmarshal(data, &result); err == nil && result.Complete() {
			logger.Debug("Result cache hit", "fixtureId", id)
			return &result, nil
		}
		// an entry without the full metric set (schema migration, bad
		// write) is a miss: recompute rather than serve incomplete data
		logger.Warn("Cached result incomplete, recomputing", "fixtureId", id)
	}

	if err := s.checkGate(ctx, id); err != nil {
		return nil, err
	}

	result, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if result.Complete() {
		s.writeCache(ctx, key, result)
	}

	return result, nil
}

// checkGate consults the shared upstream window. The limiter itself
// decides the outage policy: it fails closed unless the operator opted
// into fail-open, so its Decision is honored even alongside an error.
func (s *MatchService) checkGate(ctx context.Context, id string) error {
	decision, err := s.gate.CheckRateLimit(ctx)
	if err != nil {
		logger.Error("Rate limit check failed", "fixtureId", id, "error", err)
	}
	if !decision.Allowed {
		logger.Warn("Rate limit exceeded",
			"fixtureId", id,
			"count", decision.Count,
			"retryAfter", decision.RetryAfter,
		)
		return &RateLimitError{RetryAfter: decision.RetryAfter, Count: decision.Count}
	}
	return nil
}

// GetMatchResult skips the cache read and resolves fresh, still behind
// the upstream gate, persists a complete result to both tiers in the
// background, and returns the fresh value regardless of whether the
// persist succeeds.
func (s *MatchService) GetMatchResult(ctx context.Context, id string) (*models.MatchResult, error) {
	if err := s.checkGate(ctx, id); err != nil {
		return nil, err
	}

	result, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if result.Complete() {
		s.persistWG.Add(1)
		go func() {
			defer s.persistWG.Done()
			writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.writeCache(writeCtx, ResultCacheKey(id), result)
		}()
	}

	return result, nil
}

// WaitPersist blocks until in-flight background persists finish. Tests
// use it to observe the detached write deterministically.
func (s *MatchService) WaitPersist() {
	s.persistWG.Wait()
}

func (s *MatchService) writeCache(ctx context.Context, key string, result *models.MatchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Error("Failed to marshal match result", "key", key, "error", err)
		return
	}
	if !s.cache.Set(ctx, key, data, s.fastTTL, s.durableTTL) {
		logger.Warn("Match result not cached in any tier", "key", key)
	}
}
