// Package analytics scores items for manipulation risk, volatility and the
// capital put at risk by a flip. Every detector is memoized in the shared
// TTL cache and never lets a failure escape to the caller.
package analytics

import (
	"time"

	"github.com/rewired-gh/gescout/internal/cache"
	"github.com/rewired-gh/gescout/internal/logger"
	"github.com/rewired-gh/gescout/internal/models"
)

// Cache function names, usable as Clear patterns.
const (
	FuncManipulation  = "detect_manipulation"
	FuncVolatility    = "volatility_score"
	FuncCapitalAtRisk = "capital_at_risk"
)

// Config holds memoization windows.
type Config struct {
	ManipulationTTL  time.Duration
	VolatilityTTL    time.Duration
	CapitalAtRiskTTL time.Duration
}

// DefaultConfig returns five-minute windows for every detector.
func DefaultConfig() Config {
	return Config{
		ManipulationTTL:  5 * time.Minute,
		VolatilityTTL:    5 * time.Minute,
		CapitalAtRiskTTL: 5 * time.Minute,
	}
}

// Engine runs the detectors through a shared cache.
type Engine struct {
	cache  *cache.Cache
	config Config

	scoreManipulation func(currentPrice int64, hourly *models.HourlyAggregate) ManipulationResult
	scoreVolatility   func(hourly *models.HourlyAggregate) VolatilityResult
	capitalAtRisk     func(buyPrice, volume, geLimit int64, volatilityScore int) CapitalAtRisk
}

// NewEngine creates an engine memoizing into c.
func NewEngine(c *cache.Cache, config Config) *Engine {
	return &Engine{
		cache:             c,
		config:            config,
		scoreManipulation: ScoreManipulation,
		scoreVolatility:   ScoreVolatility,
		capitalAtRisk:     CalculateCapitalAtRisk,
	}
}

// DetectManipulation scores itemID at currentPrice. The memo key is
// (itemID, currentPrice) only, so a cached result is returned even if the
// hourly aggregate changed since it was computed.
func (e *Engine) DetectManipulation(itemID, currentPrice int64, hourly *models.HourlyAggregate) ManipulationResult {
	return cache.Cached(e.cache, FuncManipulation, e.config.ManipulationTTL, func() ManipulationResult {
		return e.safeManipulation(itemID, currentPrice, hourly)
	}, itemID, currentPrice)
}

// CalculateVolatilityScore scores itemID. The memo key is itemID only;
// currentPrice does not participate.
func (e *Engine) CalculateVolatilityScore(itemID, currentPrice int64, hourly *models.HourlyAggregate) VolatilityResult {
	return cache.Cached(e.cache, FuncVolatility, e.config.VolatilityTTL, func() VolatilityResult {
		return e.safeVolatility(itemID, hourly)
	}, itemID)
}

// CalculateCapitalAtRisk memoizes CalculateCapitalAtRisk on all of its inputs.
func (e *Engine) CalculateCapitalAtRisk(buyPrice, volume, geLimit int64, volatilityScore int) CapitalAtRisk {
	return cache.Cached(e.cache, FuncCapitalAtRisk, e.config.CapitalAtRiskTTL, func() (res CapitalAtRisk) {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("Capital-at-risk calculation failed: %v", r)
				res = CapitalAtRisk{}
			}
		}()
		return e.capitalAtRisk(buyPrice, volume, geLimit, volatilityScore)
	}, buyPrice, volume, geLimit, volatilityScore)
}

func (e *Engine) safeManipulation(itemID, currentPrice int64, hourly *models.HourlyAggregate) (res ManipulationResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Manipulation scoring failed for item %d: %v", itemID, r)
			res = errorManipulation()
		}
	}()
	return e.scoreManipulation(currentPrice, hourly)
}

func (e *Engine) safeVolatility(itemID int64, hourly *models.HourlyAggregate) (res VolatilityResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Volatility scoring failed for item %d: %v", itemID, r)
			res = unknownVolatility()
		}
	}()
	return e.scoreVolatility(hourly)
}
