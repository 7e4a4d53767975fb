package analytics

import "github.com/rewired-gh/gescout/internal/models"

// Volatility levels.
const (
	VolatilityVeryLow  = "Very Low"
	VolatilityLow      = "Low"
	VolatilityMedium   = "Medium"
	VolatilityHigh     = "High"
	VolatilityVeryHigh = "Very High"
	VolatilityUnknown  = "Unknown"
)

// VolatilityResult buckets the hourly high/low spread coefficient.
type VolatilityResult struct {
	Score       int     `json:"score"`
	Level       string  `json:"level"`
	Coefficient float64 `json:"coefficient"`
}

func unknownVolatility() VolatilityResult {
	return VolatilityResult{Score: 5, Level: VolatilityUnknown, Coefficient: 0}
}

// ScoreVolatility computes (avgHigh - avgLow) / avgLow and buckets it.
func ScoreVolatility(hourly *models.HourlyAggregate) VolatilityResult {
	if hourly == nil || hourly.AvgHighPrice == nil || hourly.AvgLowPrice == nil || *hourly.AvgLowPrice <= 0 {
		return unknownVolatility()
	}

	coefficient := float64(*hourly.AvgHighPrice-*hourly.AvgLowPrice) / float64(*hourly.AvgLowPrice)

	var score int
	var level string
	switch {
	case coefficient < 0.02:
		score, level = 1, VolatilityVeryLow
	case coefficient < 0.05:
		score, level = 2, VolatilityLow
	case coefficient < 0.10:
		score, level = 4, VolatilityMedium
	case coefficient < 0.20:
		score, level = 6, VolatilityHigh
	default:
		score, level = 8, VolatilityVeryHigh
	}

	return VolatilityResult{Score: score, Level: level, Coefficient: coefficient}
}
