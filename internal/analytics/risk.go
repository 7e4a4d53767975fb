package analytics

import "math"

// CapitalAtRisk sizes a position and estimates its downside.
type CapitalAtRisk struct {
	CapitalRequired float64 `json:"capital_required"`
	PotentialLoss   float64 `json:"potential_loss"`
	RiskRatio       float64 `json:"risk_ratio"`
}

// CalculateCapitalAtRisk sizes the position at min(volume, geLimit), or
// volume when geLimit is not positive, and scales the expected loss with
// volatility. Non-finite results collapse to zero.
func CalculateCapitalAtRisk(buyPrice, volume, geLimit int64, volatilityScore int) CapitalAtRisk {
	maxPosition := volume
	if geLimit > 0 && geLimit < volume {
		maxPosition = geLimit
	}

	capitalRequired := float64(buyPrice) * float64(maxPosition)
	vol := float64(volatilityScore) / 10
	riskMultiplier := 1 + vol*0.5
	lossPct := 0.05 + vol*0.1
	potentialLoss := capitalRequired * lossPct * riskMultiplier

	var riskRatio float64
	if capitalRequired != 0 {
		riskRatio = potentialLoss / capitalRequired
	}

	if !finite(capitalRequired) || !finite(potentialLoss) || !finite(riskRatio) {
		return CapitalAtRisk{}
	}

	return CapitalAtRisk{
		CapitalRequired: capitalRequired,
		PotentialLoss:   potentialLoss,
		RiskRatio:       riskRatio,
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
