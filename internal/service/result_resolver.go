package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/johncarlocos/topx-betting-mern/internal/models"
	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
)

// FixtureFeed lists upcoming fixtures and resolves single fixtures.
// GetFixture returns (nil, nil) when the feed does not know the id.
type FixtureFeed interface {
	ListFixtures(ctx context.Context) ([]models.Fixture, error)
	GetFixture(ctx context.Context, id string) (*models.Fixture, error)
}

// OddsProvider is the upstream odds/logo source. GetOdds returns
// (nil, nil) when no usable market is listed. Odds and logos fail
// independently.
type OddsProvider interface {
	GetOdds(ctx context.Context, ref models.FixtureRef) (*models.OddsQuote, error)
	GetLogos(ctx context.Context, ref models.FixtureRef) (*models.TeamLogos, error)
}

// ResultResolver builds the MatchResult for one fixture: provider odds
// and logos (each optional), team names from the fixture feed (required),
// metrics from the calculator when odds are available.
type ResultResolver struct {
	feed     FixtureFeed
	provider OddsProvider
	calc     *OddsCalculator
}

func NewResultResolver(feed FixtureFeed, provider OddsProvider, calc *OddsCalculator) *ResultResolver {
	return &ResultResolver{
		feed:     feed,
		provider: provider,
		calc:     calc,
	}
}

// Resolve returns a complete result when odds can be derived, a partial
// result (team info only, nil metrics) when they cannot, and an error
// only for total failures such as an unknown fixture id.
func (r *ResultResolver) Resolve(ctx context.Context, id string) (*models.MatchResult, error) {
	// fixture-name resolution comes first: the odds-pool fallback below
	// needs the fixture's own embedded pools
	fixture, err := r.feed.GetFixture(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fixture lookup failed: %w", err)
	}
	if fixture == nil {
		return nil, fmt.Errorf("%w: %s", ErrFixtureNotFound, id)
	}

	ref := models.FixtureRef{
		FixtureID: fixture.ID,
		HomeTeam:  fixture.HomeTeam.Name,
		AwayTeam:  fixture.AwayTeam.Name,
		KickOff:   fixture.KickOffTime,
	}

	// odds and logos are independent upstream calls; run them
	// concurrently and let either fail without losing the other
	var (
		quote *models.OddsQuote
		logos *models.TeamLogos
		wg    sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		q, err := r.provider.GetOdds(ctx, ref)
		if err != nil {
			logger.Warn("Could not fetch provider odds", "fixtureId", id, "error", err)
			return
		}
		quote = q
	}()
	go func() {
		defer wg.Done()
		l, err := r.provider.GetLogos(ctx, ref)
		if err != nil {
			logger.Warn("Could not fetch team logos", "fixtureId", id, "error", err)
			return
		}
		logos = l
	}()
	wg.Wait()

	if logos == nil {
		logos = &models.TeamLogos{}
	}

	result := &models.MatchResult{
		HomeTeamName: fixture.HomeTeam.Name,
		HomeTeamLogo: logos.HomeLogo,
		AwayTeamName: fixture.AwayTeam.Name,
		AwayTeamLogo: logos.AwayLogo,
	}

	homeOdd, awayOdd := r.deriveOdds(fixture, quote)

	metrics := r.calc.ComputeMetrics(homeOdd, awayOdd)
	if metrics == nil {
		logger.Warn("Missing or invalid odds, returning partial result",
			"fixtureId", id,
			"homeOdd", homeOdd,
			"awayOdd", awayOdd,
			"poolCount", len(fixture.Pools),
		)
		return result, nil
	}

	result.HomeWinRate = &metrics.HomeWinRate
	result.AwayWinRate = &metrics.AwayWinRate
	result.OverRound = &metrics.OverRound
	result.EVHome = &metrics.EVHome
	result.EVAway = &metrics.EVAway
	result.PBRHome = &metrics.PBRHome
	result.PBRAway = &metrics.PBRAway
	result.KellyHome = &metrics.KellyHome
	result.KellyAway = &metrics.KellyAway

	return result, nil
}

// deriveOdds prefers the provider's Home/Away quote, then the fixture's
// three-way pool with legs matched by outcome label, then — as a last
// resort — the first pool's first two combinations.
func (r *ResultResolver) deriveOdds(fixture *models.Fixture, quote *models.OddsQuote) (float64, float64) {
	if quote != nil && quote.HomeOdds != 0 && quote.AwayOdds != 0 {
		return quote.HomeOdds, quote.AwayOdds
	}

	var homeOdd, awayOdd float64

	for _, pool := range fixture.Pools {
		if pool.Type != models.PoolTypeHAD {
			continue
		}
		for _, combo := range pool.Combinations {
			switch combo.Outcome {
			case models.OutcomeHome:
				homeOdd = combo.CurrentOdds
			case models.OutcomeAway:
				awayOdd = combo.CurrentOdds
			}
		}
		break
	}

	if (homeOdd == 0 || awayOdd == 0) && len(fixture.Pools) > 0 {
		combos := fixture.Pools[0].Combinations
		if len(combos) >= 2 {
			// positional heuristic: nothing validates that these two
			// legs really are home and away
			logger.Warn("Falling back to positional odds extraction",
				"fixtureId", fixture.ID,
				"pool", fixture.Pools[0].Type,
			)
			if homeOdd == 0 {
				homeOdd = combos[0].CurrentOdds
			}
			if awayOdd == 0 {
				awayOdd = combos[1].CurrentOdds
			}
		}
	}

	return homeOdd, awayOdd
}
