package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/johncarlocos/topx-betting-mern/internal/models"
	"github.com/johncarlocos/topx-betting-mern/pkg/cache"
	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
)

// ListCacheKey is the singleton key for the assembled match list.
const ListCacheKey = "match:list"

// DurableBatch is the batch read the durable cache tier offers: one
// query for all keys instead of N per-fixture lookups.
type DurableBatch interface {
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
}

// MatchListService assembles the public upcoming-match list: batch cache
// check, per-fixture resolution for misses, past-kickoff filtering.
type MatchListService struct {
	feed    FixtureFeed
	matches *MatchService
	durable DurableBatch
	cache   *cache.TieredCache
	listTTL time.Duration
}

func NewMatchListService(feed FixtureFeed, matches *MatchService, durable DurableBatch, tiered *cache.TieredCache, listTTL time.Duration) *MatchListService {
	if listTTL <= 0 {
		listTTL = 300 * time.Second
	}
	return &MatchListService{
		feed:    feed,
		matches: matches,
		durable: durable,
		cache:   tiered,
		listTTL: listTTL,
	}
}

// ListLiveMatches returns one summary per upcoming fixture. Fixtures with
// unresolvable odds still appear, with nil win rates: list completeness
// wins over metric completeness.
func (s *MatchListService) ListLiveMatches(ctx context.Context) ([]models.MatchSummary, error) {
	// serve the cached list when present; kickoffs may have passed since
	// it was written, so filter again before serving
	if data, found := s.cache.Get(ctx, ListCacheKey, s.listTTL); found {
		var cached []models.MatchSummary
		if err := json.Unmarshal(data, &cached); err == nil {
			return filterUpcoming(cached, time.Now()), nil
		}
		logger.Warn("Cached match list unreadable, rebuilding")
	}

	fixtures, err := s.feed.ListFixtures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures: %w", err)
	}

	// one batch query for every fixture's durable entry, completed
	// before any per-fixture resolution starts
	keys := make([]string, len(fixtures))
	for i, fixture := range fixtures {
		keys[i] = ResultCacheKey(fixture.ID)
	}
	cached, err := s.durable.GetMany(ctx, keys)
	if err != nil {
		logger.Warn("Batch cache check failed", "error", err)
		cached = map[string][]byte{}
	}

	summaries := make([]models.MatchSummary, len(fixtures))
	var wg sync.WaitGroup
	for i, fixture := range fixtures {
		summary := models.MatchSummary{
			ID:           fixture.ID,
			Time:         fixture.KickOffTime,
			HomeTeamName: fixture.HomeTeam.Name,
			AwayTeamName: fixture.AwayTeam.Name,
		}

		if data, found := cached[ResultCacheKey(fixture.ID)]; found {
			var result models.MatchResult
			if err := json.Unmarshal(data, &result); err == nil && result.Complete() {
				summary.HomeWinRate = result.HomeWinRate
				summary.AwayWinRate = result.AwayWinRate
				summaries[i] = summary
				continue
			}
		}

		wg.Add(1)
		go func(i int, id string, summary models.MatchSummary) {
			defer wg.Done()
			result, err := s.matches.ResolveCached(ctx, id)
			if err != nil {
				logger.Error("Failed to resolve match for list", "fixtureId", id, "error", err)
				summaries[i] = summary
				return
			}
			summary.HomeWinRate = result.HomeWinRate
			summary.AwayWinRate = result.AwayWinRate
			summaries[i] = summary
		}(i, fixture.ID, summary)
	}
	wg.Wait()

	live := filterUpcoming(summaries, time.Now())

	if data, err := json.Marshal(live); err == nil {
		// the list is cheap to rebuild; fast tier only
		s.cache.SetVolatile(ctx, ListCacheKey, data, s.listTTL)
	}

	return live, nil
}

// filterUpcoming drops fixtures whose kickoff time has passed or is
// unknown.
func filterUpcoming(summaries []models.MatchSummary, now time.Time) []models.MatchSummary {
	live := make([]models.MatchSummary, 0, len(summaries))
	for _, summary := range summaries {
		if summary.Time.IsZero() || summary.Time.Before(now) {
			continue
		}
		live = append(live, summary)
	}
	return live
}
