package analytics

import (
	"math"

	"github.com/rewired-gh/gescout/internal/models"
)

// Manipulation risk levels.
const (
	RiskHigh    = "High"
	RiskMedium  = "Medium"
	RiskLow     = "Low"
	RiskNormal  = "Normal"
	RiskUnknown = "Unknown"
)

// Manipulation flags.
const (
	FlagNoData           = "No data"
	FlagError            = "Error"
	FlagVolumeSpike      = "High volume spike"
	FlagWideSpread       = "Wide price spread"
	FlagUnbalancedFlow   = "Unbalanced order flow"
	FlagVolumeInconsist  = "Volume/price inconsistency"
	maxManipulationScore = 10
)

// ManipulationResult is a 0-10 heuristic estimate of artificial price movement.
type ManipulationResult struct {
	Score     int      `json:"score"`
	Flags     []string `json:"flags"`
	RiskLevel string   `json:"risk_level"`
}

func errorManipulation() ManipulationResult {
	return ManipulationResult{Score: 0, Flags: []string{FlagError}, RiskLevel: RiskUnknown}
}

// ScoreManipulation applies the additive manipulation heuristics. Every
// comparison is strict.
func ScoreManipulation(currentPrice int64, hourly *models.HourlyAggregate) ManipulationResult {
	if hourly.IsEmpty() {
		return ManipulationResult{Score: 0, Flags: []string{FlagNoData}, RiskLevel: RiskUnknown}
	}

	score := 0
	flags := []string{}

	highVol := hourly.HighPriceVolume
	lowVol := hourly.LowPriceVolume
	totalVol := highVol + lowVol

	if totalVol > 10000 {
		score += 2
		flags = append(flags, FlagVolumeSpike)
	}

	if hourly.AvgHighPrice != nil && hourly.AvgLowPrice != nil && *hourly.AvgLowPrice != 0 {
		spread := float64(*hourly.AvgHighPrice-*hourly.AvgLowPrice) / float64(*hourly.AvgLowPrice)
		if spread > 0.10 {
			score += 3
			flags = append(flags, FlagWideSpread)
		}
	}

	if highVol > 0 && lowVol > 0 {
		ratio := float64(max(highVol, lowVol)) / float64(min(highVol, lowVol))
		if ratio > 10 {
			score += 2
			flags = append(flags, FlagUnbalancedFlow)
		}
	}

	if currentPrice > 1000 {
		expected := math.Max(100, 50000/float64(currentPrice))
		if float64(totalVol) > 5*expected {
			score += 2
			flags = append(flags, FlagVolumeInconsist)
		}
	}

	if score > maxManipulationScore {
		score = maxManipulationScore
	}

	return ManipulationResult{Score: score, Flags: flags, RiskLevel: riskLevel(score)}
}

func riskLevel(score int) string {
	switch {
	case score >= 7:
		return RiskHigh
	case score >= 4:
		return RiskMedium
	case score >= 2:
		return RiskLow
	default:
		return RiskNormal
	}
}
