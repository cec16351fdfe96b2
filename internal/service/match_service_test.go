package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johncarlocos/topx-betting-mern/internal/models"
	"github.com/johncarlocos/topx-betting-mern/pkg/cache"
	"github.com/johncarlocos/topx-betting-mern/pkg/ratelimit"
)

type matchServiceFixture struct {
	feed     *fakeFeed
	provider *fakeProvider
	gate     *fakeGate
	fast     *memStore
	durable  *memStore
	tiered   *cache.TieredCache
	service  *MatchService
}

func newMatchServiceFixture(fixtures ...models.Fixture) *matchServiceFixture {
	f := &matchServiceFixture{
		feed: &fakeFeed{fixtures: fixtures},
		provider: &fakeProvider{
			quote: &models.OddsQuote{HomeOdds: 1.5, AwayOdds: 2.5},
			logos: &models.TeamLogos{HomeLogo: "h.png", AwayLogo: "a.png"},
		},
		gate:    allowAllGate(),
		fast:    newMemStore(),
		durable: newMemStore(),
	}
	f.tiered = cache.NewTieredCache(f.fast, f.durable)
	resolver := NewResultResolver(f.feed, f.provider, NewOddsCalculator())
	f.service = NewMatchService(resolver, f.tiered, f.gate, MatchServiceConfig{
		FastTTL:    time.Minute,
		DurableTTL: 2 * time.Minute,
	})
	return f
}

func TestMatchService_ResolveCached(t *testing.T) {
	ctx := context.Background()

	t.Run("miss resolves fresh and caches both tiers", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2001"))

		result, err := f.service.ResolveCached(ctx, "FB2001")
		require.NoError(t, err)
		require.True(t, result.Complete())

		key := ResultCacheKey("FB2001")
		assert.True(t, f.fast.has(key))
		assert.True(t, f.durable.has(key))
		assert.Equal(t, 1, f.gate.calls)
	})

	t.Run("second call is a cache hit with no upstream traffic", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2002"))

		first, err := f.service.ResolveCached(ctx, "FB2002")
		require.NoError(t, err)

		second, err := f.service.ResolveCached(ctx, "FB2002")
		require.NoError(t, err)

		// unchanged upstream data resolves to identical values
		assert.Equal(t, first, second)
		assert.Equal(t, 1, f.gate.calls)
		assert.Equal(t, 1, f.provider.oddsCalls)
		assert.Equal(t, 1, f.feed.getCalls)
	})

	t.Run("rate limited miss returns retryable error", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2003"))
		f.gate.decision = ratelimit.Decision{Allowed: false, Count: 11, RetryAfter: 42 * time.Second}

		result, err := f.service.ResolveCached(ctx, "FB2003")
		assert.Nil(t, result)

		var rateErr *RateLimitError
		require.True(t, errors.As(err, &rateErr))
		assert.Equal(t, 42*time.Second, rateErr.RetryAfter)
		assert.Equal(t, 0, f.provider.oddsCalls, "denied check must not reach the provider")
	})

	t.Run("limiter store failure denies", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2004"))
		f.gate.decision = ratelimit.Decision{}
		f.gate.err = errors.New("redis unreachable")

		_, err := f.service.ResolveCached(ctx, "FB2004")
		var rateErr *RateLimitError
		require.True(t, errors.As(err, &rateErr))
		assert.Equal(t, 0, f.provider.oddsCalls)
	})

	t.Run("partial result is returned but never cached", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2005"))
		f.provider.quote = nil // no odds anywhere

		result, err := f.service.ResolveCached(ctx, "FB2005")
		require.NoError(t, err)
		require.False(t, result.Complete())

		key := ResultCacheKey("FB2005")
		assert.False(t, f.fast.has(key))
		assert.False(t, f.durable.has(key))

		// next request retries the upstream
		_, err = f.service.ResolveCached(ctx, "FB2005")
		require.NoError(t, err)
		assert.Equal(t, 2, f.gate.calls)
	})

	t.Run("incomplete cached entry is treated as a miss", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2006"))

		// a partial entry, as a schema migration could leave behind
		stale, err := json.Marshal(&models.MatchResult{HomeTeamName: "曼聯"})
		require.NoError(t, err)
		require.NoError(t, f.fast.Set(ctx, ResultCacheKey("FB2006"), stale, time.Minute))

		result, err := f.service.ResolveCached(ctx, "FB2006")
		require.NoError(t, err)
		assert.True(t, result.Complete(), "must recompute instead of serving incomplete data")
		assert.Equal(t, 1, f.provider.oddsCalls)
	})

	t.Run("fast tier outage still serves the durable copy", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2007"))

		_, err := f.service.ResolveCached(ctx, "FB2007")
		require.NoError(t, err)

		f.fast.fail = true

		result, err := f.service.ResolveCached(ctx, "FB2007")
		require.NoError(t, err)
		assert.True(t, result.Complete())
		assert.Equal(t, 1, f.provider.oddsCalls, "durable hit must not re-fetch")
	})
}

func TestMatchService_GetMatchResult(t *testing.T) {
	ctx := context.Background()

	t.Run("returns fresh value and persists in background", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2101"))

		result, err := f.service.GetMatchResult(ctx, "FB2101")
		require.NoError(t, err)
		require.True(t, result.Complete())

		f.service.WaitPersist()

		key := ResultCacheKey("FB2101")
		assert.True(t, f.fast.has(key))
		assert.True(t, f.durable.has(key))
	})

	t.Run("persist failure does not affect the response", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2102"))
		f.fast.fail = true
		f.durable.fail = true

		result, err := f.service.GetMatchResult(ctx, "FB2102")
		require.NoError(t, err)
		assert.True(t, result.Complete())

		f.service.WaitPersist()
	})

	t.Run("partial result skips the persist", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2103"))
		f.provider.quote = nil

		result, err := f.service.GetMatchResult(ctx, "FB2103")
		require.NoError(t, err)
		require.False(t, result.Complete())

		f.service.WaitPersist()
		assert.False(t, f.durable.has(ResultCacheKey("FB2103")))
	})

	t.Run("rate limited resolve returns retryable error", func(t *testing.T) {
		f := newMatchServiceFixture(upcomingFixture("FB2104"))
		f.gate.decision = ratelimit.Decision{Allowed: false, Count: 11, RetryAfter: 30 * time.Second}

		result, err := f.service.GetMatchResult(ctx, "FB2104")
		assert.Nil(t, result)

		var rateErr *RateLimitError
		require.True(t, errors.As(err, &rateErr))
		assert.Equal(t, 30*time.Second, rateErr.RetryAfter)
		assert.Equal(t, 0, f.provider.oddsCalls, "denied check must not reach the provider")
	})

	t.Run("unknown fixture surfaces not-found", func(t *testing.T) {
		f := newMatchServiceFixture()

		_, err := f.service.GetMatchResult(ctx, "FB0000")
		assert.True(t, errors.Is(err, ErrFixtureNotFound))
	})
}
