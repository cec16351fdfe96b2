package service

import (
	"math"

	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
)

// Metrics is the full computed metric set for one fixture.
type Metrics struct {
	HomeWinRate float64
	AwayWinRate float64
	OverRound   float64
	EVHome      float64
	EVAway      float64
	PBRHome     float64
	PBRAway     float64
	KellyHome   float64
	KellyAway   float64
}

// OddsCalculator turns a pair of raw bookmaker odds into win
// probabilities and betting-value metrics.
type OddsCalculator struct{}

func NewOddsCalculator() *OddsCalculator {
	return &OddsCalculator{}
}

// ComputeMetrics returns nil when either odd is missing, NaN, zero,
// negative, or exactly 1 (Kelly divides by odd-1). Callers treat nil as
// "odds unavailable" and emit a partial result.
func (c *OddsCalculator) ComputeMetrics(homeOdd, awayOdd float64) *Metrics {
	if !validOdd(homeOdd) || !validOdd(awayOdd) {
		return nil
	}

	// implied probabilities in percentage points, not yet normalized
	homeWinProb := round1(100 / homeOdd)
	awayWinProb := round1(100 / awayOdd)

	// reported win rates normalize the bookmaker margin away. EV and
	// Kelly below keep the raw implied probabilities: they measure the
	// bettor's edge against the market price, not the normalized one.
	homeWinRate := homeWinProb * 100 / (homeWinProb + awayWinProb)
	awayWinRate := awayWinProb * 100 / (homeWinProb + awayWinProb)

	overRound := round1(homeWinProb + awayWinProb - 100)
	if overRound < 0 {
		// real bookmaker pricing always carries a margin; a negative
		// overround means the upstream data is suspect
		logger.Warn("Negative overround from upstream odds",
			"homeOdd", homeOdd,
			"awayOdd", awayOdd,
			"overRound", overRound,
		)
	}

	const betFunds = 100.0
	evHome := round2((homeWinProb/100)*homeOdd*betFunds - (awayWinProb/100)*betFunds)
	evAway := round2((awayWinProb/100)*awayOdd*betFunds - (homeWinProb/100)*betFunds)

	pbrHome := round2(homeOdd / homeWinProb)
	pbrAway := round2(awayOdd / awayWinProb)

	kellyHome := round2(kelly(homeWinProb/100, homeOdd))
	kellyAway := round2(kelly(awayWinProb/100, awayOdd))

	return &Metrics{
		HomeWinRate: homeWinRate,
		AwayWinRate: awayWinRate,
		OverRound:   overRound,
		EVHome:      evHome,
		EVAway:      evAway,
		PBRHome:     pbrHome,
		PBRAway:     pbrAway,
		KellyHome:   kellyHome,
		KellyAway:   kellyAway,
	}
}

// kelly is the classic fractional Kelly criterion: p is the win
// probability as a fraction, odd the decimal price.
func kelly(p, odd float64) float64 {
	b := odd - 1
	return (p*b - (1 - p)) / b
}

func validOdd(odd float64) bool {
	return !math.IsNaN(odd) && odd > 0 && odd != 1
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
