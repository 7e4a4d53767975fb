package models

import (
	"time"
)

// ItemRecord is one scored row of the pipeline output. Records are rebuilt
// from the current snapshots on every run and never mutated afterwards.
type ItemRecord struct {
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Category string `json:"category"`

	BuyPrice  int64   `json:"buy_price"`
	SellPrice int64   `json:"sell_price"`
	Tax       int64   `json:"tax"`
	NetMargin int64   `json:"net_margin"`
	ROI       float64 `json:"roi"`
	BuyLimit  int64   `json:"buy_limit"`

	HourlyVolume   int64   `json:"hourly_volume"`
	LiquidityScore float64 `json:"liquidity_score"`
	Utility        float64 `json:"utility"`
	Momentum       float64 `json:"momentum"`
	SeasonRatio    float64 `json:"season_ratio"`

	ManipulationScore   int      `json:"manipulation_score"`
	ManipulationFlags   []string `json:"manipulation_flags"`
	ManipulationRisk    string   `json:"manipulation_risk"`
	VolatilityScore     int      `json:"volatility_score"`
	VolatilityLevel     string   `json:"volatility_level"`
	RiskAdjustedUtility float64  `json:"risk_adjusted_utility"`
	PersistenceScore    float64  `json:"persistence_score"`
	CapitalRequired     float64  `json:"capital_required"`
	PotentialLoss       float64  `json:"potential_loss"`
	RiskRatio           float64  `json:"risk_ratio"`

	HighAgeMinutes float64 `json:"high_age_minutes"`
	LowAgeMinutes  float64 `json:"low_age_minutes"`
	DataAgeMinutes float64 `json:"data_age_minutes"`
}

// AlertRecord is one alert attempt kept in the process-lifetime log.
type AlertRecord struct {
	ID          string    `json:"id"`
	ItemName    string    `json:"item_name"`
	BuyPrice    int64     `json:"buy_price"`
	SellPrice   int64     `json:"sell_price"`
	Margin      int64     `json:"margin"`
	Sent        bool      `json:"sent"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// ScanRun summarises one pipeline run.
type ScanRun struct {
	ID         string        `json:"id"`
	Mode       string        `json:"mode"`
	ShowAll    bool          `json:"show_all"`
	Candidates int           `json:"candidates"`
	Results    int           `json:"results"`
	AlertsSent int           `json:"alerts_sent"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}
