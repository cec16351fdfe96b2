package models

import "time"

// Pool and outcome labels as published by the fixture feed.
const (
	PoolTypeHAD = "HAD" // three-way Home/Away/Draw moneyline

	OutcomeHome = "Home"
	OutcomeDraw = "Draw"
	OutcomeAway = "Away"
)

type Team struct {
	Name string `json:"name"`
}

// Fixture is an upcoming or live match as published by the fixture feed.
// Read-only to this service.
type Fixture struct {
	ID          string     `json:"id"`
	KickOffTime time.Time  `json:"kickOffTime"`
	HomeTeam    Team       `json:"homeTeam"`
	AwayTeam    Team       `json:"awayTeam"`
	Pools       []OddsPool `json:"pools,omitempty"`
}

// OddsPool is one named betting pool embedded in a fixture, with its
// outcome combinations in feed order.
type OddsPool struct {
	Type         string        `json:"type"`
	Combinations []Combination `json:"combinations"`
}

type Combination struct {
	Outcome     string  `json:"outcome"`
	CurrentOdds float64 `json:"currentOdds"`
}

// FixtureRef identifies a fixture to the upstream provider, which keys
// fixtures by team names and kickoff date rather than our ids.
type FixtureRef struct {
	FixtureID string    `json:"fixtureId"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	KickOff   time.Time `json:"kickOff"`
}

// OddsQuote is a two-way moneyline quote from the upstream provider.
type OddsQuote struct {
	HomeOdds float64 `json:"homeOdds"`
	AwayOdds float64 `json:"awayOdds"`
}

type TeamLogos struct {
	HomeLogo string `json:"homeLogo"`
	AwayLogo string `json:"awayLogo"`
}
