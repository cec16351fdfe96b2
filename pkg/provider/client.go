package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/johncarlocos/topx-betting-mern/internal/models"
	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
)

const (
	defaultTimeout = 10 * time.Second

	// the odds extraction pins one bookmaker and its two-way market
	bet365BookmakerID = 8
	marketHomeAway    = "Home/Away"
)

// Client talks to the upstream odds/logo provider. The provider keys
// fixtures by its own ids, so each call first resolves our fixture to a
// provider fixture id (memoized per fixture).
//
// Odds and logos fail independently: a transport error from one call
// never contaminates the other.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu         sync.RWMutex
	fixtureIDs map[string]string // local fixture id -> provider fixture id
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		fixtureIDs: make(map[string]string),
	}
}

// GetOdds returns the bookmaker's Home/Away quote for the fixture, nil
// when the provider lists no such market, or an error on provider failure.
func (c *Client) GetOdds(ctx context.Context, ref models.FixtureRef) (*models.OddsQuote, error) {
	providerID, err := c.resolveFixtureID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve provider fixture: %w", err)
	}

	body, err := c.doRequest(ctx, "/odds", url.Values{"fixture": {providerID}})
	if err != nil {
		return nil, fmt.Errorf("fetch odds: %w", err)
	}

	var parsed oddsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse odds response: %w", err)
	}

	if len(parsed.Response) == 0 {
		return nil, nil
	}

	for _, bookmaker := range parsed.Response[0].Bookmakers {
		if bookmaker.ID != bet365BookmakerID {
			continue
		}
		for _, bet := range bookmaker.Bets {
			if bet.Name != marketHomeAway {
				continue
			}
			quote := &models.OddsQuote{}
			for _, v := range bet.Values {
				odd, err := strconv.ParseFloat(v.Odd, 64)
				if err != nil {
					continue
				}
				switch v.Value {
				case "Home":
					quote.HomeOdds = odd
				case "Away":
					quote.AwayOdds = odd
				}
			}
			if quote.HomeOdds != 0 && quote.AwayOdds != 0 {
				return quote, nil
			}
		}
	}

	logger.Debug("No Home/Away odds listed by provider", "fixtureId", ref.FixtureID)
	return nil, nil
}

// GetLogos returns the two team logo URLs, empty strings when the
// provider has none.
func (c *Client) GetLogos(ctx context.Context, ref models.FixtureRef) (*models.TeamLogos, error) {
	providerID, err := c.resolveFixtureID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve provider fixture: %w", err)
	}

	body, err := c.doRequest(ctx, "/predictions", url.Values{"fixture": {providerID}})
	if err != nil {
		return nil, fmt.Errorf("fetch logos: %w", err)
	}

	var parsed predictionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse predictions response: %w", err)
	}

	if len(parsed.Response) == 0 {
		return &models.TeamLogos{}, nil
	}

	return &models.TeamLogos{
		HomeLogo: parsed.Response[0].Teams.Home.Logo,
		AwayLogo: parsed.Response[0].Teams.Away.Logo,
	}, nil
}

// resolveFixtureID maps a local fixture to the provider's fixture id by
// searching the provider's fixtures for the kickoff date and matching
// team names. Resolved ids are memoized for the process lifetime.
func (c *Client) resolveFixtureID(ctx context.Context, ref models.FixtureRef) (string, error) {
	c.mu.RLock()
	id, ok := c.fixtureIDs[ref.FixtureID]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	body, err := c.doRequest(ctx, "/fixtures", url.Values{"date": {ref.KickOff.Format("2006-01-02")}})
	if err != nil {
		return "", err
	}

	var parsed fixturesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse fixtures response: %w", err)
	}

	for _, entry := range parsed.Response {
		if teamNameMatches(entry.Teams.Home.Name, ref.HomeTeam) &&
			teamNameMatches(entry.Teams.Away.Name, ref.AwayTeam) {
			id = strconv.Itoa(entry.Fixture.ID)
			c.mu.Lock()
			c.fixtureIDs[ref.FixtureID] = id
			c.mu.Unlock()
			return id, nil
		}
	}

	return "", fmt.Errorf("no provider fixture for %q vs %q on %s",
		ref.HomeTeam, ref.AwayTeam, ref.KickOff.Format("2006-01-02"))
}

func teamNameMatches(providerName, feedName string) bool {
	if providerName == "" || feedName == "" {
		return false
	}
	a := strings.ToLower(providerName)
	b := strings.ToLower(feedName)
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("provider rate limit hit (status 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Wire types for the provider's envelope format.

type oddsResponse struct {
	Response []struct {
		Bookmakers []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
			Bets []struct {
				Name   string `json:"name"`
				Values []struct {
					Value string `json:"value"`
					Odd   string `json:"odd"`
				} `json:"values"`
			} `json:"bets"`
		} `json:"bookmakers"`
	} `json:"response"`
}

type predictionsResponse struct {
	Response []struct {
		Teams struct {
			Home struct {
				Logo string `json:"logo"`
			} `json:"home"`
			Away struct {
				Logo string `json:"logo"`
			} `json:"away"`
		} `json:"teams"`
	} `json:"response"`
}

type fixturesResponse struct {
	Response []struct {
		Fixture struct {
			ID int `json:"id"`
		} `json:"fixture"`
		Teams struct {
			Home struct {
				Name string `json:"name"`
			} `json:"home"`
			Away struct {
				Name string `json:"name"`
			} `json:"away"`
		} `json:"teams"`
	} `json:"response"`
}
