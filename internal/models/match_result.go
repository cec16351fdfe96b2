package models

import "time"

// MatchResult is the computed artifact for one fixture. A result is either
// complete (all metrics set) or partial (team info only, every numeric
// field nil) — never a mix. Partial results are served but never cached.
type MatchResult struct {
	HomeTeamName string   `json:"homeTeamName"`
	HomeTeamLogo string   `json:"homeTeamLogo"`
	AwayTeamName string   `json:"awayTeamName"`
	AwayTeamLogo string   `json:"awayTeamLogo"`
	HomeWinRate  *float64 `json:"homeWinRate"`
	AwayWinRate  *float64 `json:"awayWinRate"`
	OverRound    *float64 `json:"overRound"`
	EVHome       *float64 `json:"evHome"`
	EVAway       *float64 `json:"evAway"`
	PBRHome      *float64 `json:"pbrHome"`
	PBRAway      *float64 `json:"pbrAway"`
	KellyHome    *float64 `json:"kellyHome"`
	KellyAway    *float64 `json:"kellyAway"`
}

// Complete reports whether the result carries the full metric set.
func (r *MatchResult) Complete() bool {
	return r != nil && r.HomeWinRate != nil && r.AwayWinRate != nil
}

// MatchSummary is one row of the public match list.
type MatchSummary struct {
	ID           string    `json:"id"`
	Time         time.Time `json:"time"`
	HomeTeamName string    `json:"homeTeamName"`
	AwayTeamName string    `json:"awayTeamName"`
	HomeWinRate  *float64  `json:"homeWinRate"`
	AwayWinRate  *float64  `json:"awayWinRate"`
}
