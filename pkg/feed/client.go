package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/johncarlocos/topx-betting-mern/internal/models"
	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Client reads the upcoming-fixture list from the fixture feed. The feed
// is an external collaborator: fixtures, team names and embedded odds
// pools are read-only here.
type Client struct {
	feedURL    string
	httpClient *http.Client
}

func NewClient(feedURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListFixtures fetches the full upcoming-fixture list.
func (c *Client) ListFixtures(ctx context.Context) ([]models.Fixture, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch fixtures: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}

	var raw []fixtureResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse feed response: %w", err)
	}

	fixtures := make([]models.Fixture, 0, len(raw))
	for _, f := range raw {
		fixtures = append(fixtures, f.toModel())
	}
	return fixtures, nil
}

// GetFixture returns the fixture with the given id, or nil when the feed
// does not list it.
func (c *Client) GetFixture(ctx context.Context, id string) (*models.Fixture, error) {
	fixtures, err := c.ListFixtures(ctx)
	if err != nil {
		return nil, err
	}

	for i := range fixtures {
		if fixtures[i].ID == id {
			return &fixtures[i], nil
		}
	}
	return nil, nil
}

// Wire types. The feed publishes localized team names under name_ch,
// single-letter outcome codes and decimal odds as strings.

type fixtureResponse struct {
	FrontEndID  string         `json:"frontEndId"`
	KickOffTime string         `json:"kickOffTime"`
	HomeTeam    teamResponse   `json:"homeTeam"`
	AwayTeam    teamResponse   `json:"awayTeam"`
	FoPools     []poolResponse `json:"foPools"`
}

type teamResponse struct {
	NameCh string `json:"name_ch"`
}

type poolResponse struct {
	OddsType string         `json:"oddsType"`
	Lines    []lineResponse `json:"lines"`
}

type lineResponse struct {
	Combinations []combinationResponse `json:"combinations"`
}

type combinationResponse struct {
	Str         string `json:"str"`
	CurrentOdds string `json:"currentOdds"`
}

var outcomeLabels = map[string]string{
	"H": models.OutcomeHome,
	"D": models.OutcomeDraw,
	"A": models.OutcomeAway,
}

func (f fixtureResponse) toModel() models.Fixture {
	fixture := models.Fixture{
		ID:          f.FrontEndID,
		KickOffTime: parseKickOff(f.KickOffTime),
		HomeTeam:    models.Team{Name: f.HomeTeam.NameCh},
		AwayTeam:    models.Team{Name: f.AwayTeam.NameCh},
	}

	for _, pool := range f.FoPools {
		if len(pool.Lines) == 0 {
			continue
		}
		// only the first line carries the main market combinations
		combos := make([]models.Combination, 0, len(pool.Lines[0].Combinations))
		for _, combo := range pool.Lines[0].Combinations {
			odds, err := strconv.ParseFloat(combo.CurrentOdds, 64)
			if err != nil {
				logger.Debug("Skipping combination with unparsable odds",
					"fixtureId", f.FrontEndID,
					"pool", pool.OddsType,
					"odds", combo.CurrentOdds,
				)
				continue
			}
			combos = append(combos, models.Combination{
				Outcome:     outcomeLabels[combo.Str],
				CurrentOdds: odds,
			})
		}
		fixture.Pools = append(fixture.Pools, models.OddsPool{
			Type:         pool.OddsType,
			Combinations: combos,
		})
	}

	return fixture
}

func parseKickOff(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
