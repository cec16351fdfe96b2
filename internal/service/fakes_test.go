package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/johncarlocos/topx-betting-mern/internal/models"
	"github.com/johncarlocos/topx-betting-mern/pkg/ratelimit"
)

// In-memory doubles for the external collaborators. Counters let tests
// assert how often each upstream was actually consulted.

type fakeFeed struct {
	mu       sync.Mutex
	fixtures []models.Fixture
	err      error
	getCalls int
}

func (f *fakeFeed) ListFixtures(ctx context.Context) ([]models.Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.fixtures, nil
}

func (f *fakeFeed) GetFixture(ctx context.Context, id string) (*models.Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.fixtures {
		if f.fixtures[i].ID == id {
			fixture := f.fixtures[i]
			return &fixture, nil
		}
	}
	return nil, nil
}

type fakeProvider struct {
	mu        sync.Mutex
	quote     *models.OddsQuote
	quoteErr  error
	logos     *models.TeamLogos
	logosErr  error
	oddsCalls int
	logoCalls int
}

func (p *fakeProvider) GetOdds(ctx context.Context, ref models.FixtureRef) (*models.OddsQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.oddsCalls++
	return p.quote, p.quoteErr
}

func (p *fakeProvider) GetLogos(ctx context.Context, ref models.FixtureRef) (*models.TeamLogos, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logoCalls++
	return p.logos, p.logosErr
}

type fakeGate struct {
	mu       sync.Mutex
	decision ratelimit.Decision
	err      error
	calls    int
}

func allowAllGate() *fakeGate {
	return &fakeGate{decision: ratelimit.Decision{Allowed: true, Count: 1}}
}

func (g *fakeGate) CheckRateLimit(ctx context.Context) (ratelimit.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.decision, g.err
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// memStore implements cache.Store and the DurableBatch interface.
type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	fail    bool
	sets    int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]memEntry)}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, false, errors.New("store unavailable")
	}
	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store unavailable")
	}
	s.sets++
	s.entries[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("store unavailable")
	}
	found := make(map[string][]byte, len(keys))
	now := time.Now()
	for _, key := range keys {
		if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
			found[key] = entry.value
		}
	}
	return found, nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return ok && time.Now().Before(entry.expiresAt)
}

func upcomingFixture(id string, pools ...models.OddsPool) models.Fixture {
	return models.Fixture{
		ID:          id,
		KickOffTime: time.Now().Add(2 * time.Hour),
		HomeTeam:    models.Team{Name: "曼聯"},
		AwayTeam:    models.Team{Name: "利物浦"},
		Pools:       pools,
	}
}

func hadPool(home, draw, away float64) models.OddsPool {
	return models.OddsPool{
		Type: models.PoolTypeHAD,
		Combinations: []models.Combination{
			{Outcome: models.OutcomeHome, CurrentOdds: home},
			{Outcome: models.OutcomeDraw, CurrentOdds: draw},
			{Outcome: models.OutcomeAway, CurrentOdds: away},
		},
	}
}
