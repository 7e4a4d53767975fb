// Package pipeline joins price snapshots, hourly aggregates and analytics
// signals into scored item records and reduces them to a ranked shortlist.
package pipeline

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/rewired-gh/gescout/internal/analytics"
	"github.com/rewired-gh/gescout/internal/ge"
	"github.com/rewired-gh/gescout/internal/logger"
	"github.com/rewired-gh/gescout/internal/models"
)

// SeasonRatio is the constant seasonal signal; no seasonal model exists.
const SeasonRatio = 1.0

// SkipReason explains why an item produced no record. The empty reason
// means the record was built.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipUnknownName  SkipReason = "unknown name"
	SkipExcluded     SkipReason = "excluded"
	SkipMissingPrice SkipReason = "missing price"
	SkipNoSpread     SkipReason = "no spread"
	SkipFailed       SkipReason = "processing failed"
)

// Options controls one run.
type Options struct {
	Mode       Mode
	ShowAll    bool
	Thresholds Thresholds
}

// Result is the output of one run.
type Result struct {
	Records    []models.ItemRecord
	Candidates int
	Built      int
	Skipped    map[SkipReason]int
}

// Pipeline is stateless between runs apart from the analytics cache.
type Pipeline struct {
	engine     *analytics.Engine
	limits     *ge.BuyLimits
	exclusions *ge.Exclusions
	now        func() time.Time
}

// New creates a pipeline using the wall clock.
func New(engine *analytics.Engine, limits *ge.BuyLimits, exclusions *ge.Exclusions) *Pipeline {
	return NewWithClock(engine, limits, exclusions, time.Now)
}

// NewWithClock creates a pipeline reading the current time from now.
func NewWithClock(engine *analytics.Engine, limits *ge.BuyLimits, exclusions *ge.Exclusions, now func() time.Time) *Pipeline {
	return &Pipeline{
		engine:     engine,
		limits:     limits,
		exclusions: exclusions,
		now:        now,
	}
}

// FilterItems returns the ranked records for one run.
func (p *Pipeline) FilterItems(
	prices map[int64]models.PriceSnapshot,
	hourly map[int64]models.HourlyAggregate,
	names map[int64]string,
	opts Options,
) []models.ItemRecord {
	return p.Run(prices, hourly, names, opts).Records
}

// Run builds a record per item, then reduces the list according to the
// mode. Items are visited in ascending id order so that stable sorts break
// ties deterministically. An empty name mapping or price snapshot yields an
// empty result.
func (p *Pipeline) Run(
	prices map[int64]models.PriceSnapshot,
	hourly map[int64]models.HourlyAggregate,
	names map[int64]string,
	opts Options,
) Result {
	result := Result{
		Records: []models.ItemRecord{},
		Skipped: make(map[SkipReason]int),
	}
	if len(names) == 0 || len(prices) == 0 {
		logger.Warn("No mapping or price data available, returning empty result")
		return result
	}

	ids := make([]int64, 0, len(prices))
	for id := range prices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	nowUnix := p.now().Unix()
	records := make([]models.ItemRecord, 0, len(ids))
	for _, id := range ids {
		var agg *models.HourlyAggregate
		if h, ok := hourly[id]; ok {
			agg = &h
		}
		record, reason := p.buildRecord(id, prices[id], agg, names, nowUnix)
		if reason != SkipNone {
			result.Skipped[reason]++
			continue
		}
		records = append(records, record)
	}
	result.Candidates = len(ids)
	result.Built = len(records)

	switch {
	case opts.Mode == ModeHighVolume:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].HourlyVolume != records[j].HourlyVolume {
				return records[i].HourlyVolume > records[j].HourlyVolume
			}
			return records[i].NetMargin > records[j].NetMargin
		})
		if len(records) > HighVolumeLimit {
			records = records[:HighVolumeLimit]
		}
	case opts.ShowAll:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Utility > records[j].Utility
		})
	default:
		records = applyThresholds(records, opts.Thresholds)
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].RiskAdjustedUtility > records[j].RiskAdjustedUtility
		})
	}

	result.Records = records
	logger.Debug("Pipeline run (mode=%s, show_all=%v): %d items, %d records built, %d returned, skipped=%v",
		opts.Mode, opts.ShowAll, result.Candidates, result.Built, len(records), result.Skipped)
	return result
}

func applyThresholds(records []models.ItemRecord, t Thresholds) []models.ItemRecord {
	filtered := records[:0]
	for _, r := range records {
		if Passes(r, t) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Passes reports whether r clears every threshold. Risk ceilings are
// inclusive.
func Passes(r models.ItemRecord, t Thresholds) bool {
	return r.NetMargin >= t.MinMargin &&
		r.HourlyVolume >= t.MinVolume &&
		r.Utility >= t.MinUtility &&
		r.SeasonRatio >= t.SeasonThreshold &&
		r.ManipulationScore <= t.ManipulationThreshold &&
		r.VolatilityScore <= t.VolatilityThreshold
}

// Utility weighs margin by volume, discounted by how far the sell price
// sits from the hourly average low. Zero when nothing traded.
func Utility(netMargin, volume, high, avgLow int64) float64 {
	if volume == 0 {
		return 0
	}
	return round2(float64(netMargin) * float64(volume) / (math.Abs(float64(high-avgLow)) + 1))
}

// ROI is the net margin as a percentage of the buy price.
func ROI(netMargin, low int64) float64 {
	if low == 0 {
		return 0
	}
	return round2(float64(netMargin) / float64(low) * 100)
}

func (p *Pipeline) buildRecord(
	id int64,
	snap models.PriceSnapshot,
	hourly *models.HourlyAggregate,
	names map[int64]string,
	nowUnix int64,
) (record models.ItemRecord, reason SkipReason) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("Skipping item %d: %v", id, r)
			record, reason = models.ItemRecord{}, SkipFailed
		}
	}()

	name, ok := names[id]
	if !ok || name == "" {
		return record, SkipUnknownName
	}
	if p.exclusions.Excluded(name) {
		return record, SkipExcluded
	}
	if !snap.HasPrices() {
		return record, SkipMissingPrice
	}
	high, low := *snap.High, *snap.Low
	if high <= low {
		return record, SkipNoSpread
	}

	tax := ge.Tax(high)
	netMargin := high - low - tax

	volume := hourly.TotalVolume()
	avgLow := hourly.AvgLow()

	utility := Utility(netMargin, volume, high, avgLow)

	var momentum float64
	if avgLow > 0 {
		momentum = round2(float64(low-avgLow) / float64(avgLow) * 100)
	}

	roi := ROI(netMargin, low)

	buyLimit := p.limits.Lookup(name)

	manipulation := p.engine.DetectManipulation(id, high, hourly)
	volatility := p.engine.CalculateVolatilityScore(id, high, hourly)
	capital := p.engine.CalculateCapitalAtRisk(low, volume, buyLimit, volatility.Score)

	ms := float64(manipulation.Score)
	vs := float64(volatility.Score)
	riskFactor := 1 + vs/10 + ms/20
	persistence := math.Min(10, math.Max(0, 10-ms-vs/2))
	liquidity := math.Min(10, float64(volume)/100)

	highAge := ageMinutes(nowUnix, snap.HighTime, snap.Timestamp)
	lowAge := ageMinutes(nowUnix, snap.LowTime, snap.Timestamp)

	record = models.ItemRecord{
		ItemID:              id,
		Name:                name,
		Category:            ge.Categorize(name),
		BuyPrice:            low,
		SellPrice:           high,
		Tax:                 tax,
		NetMargin:           netMargin,
		ROI:                 roi,
		BuyLimit:            buyLimit,
		HourlyVolume:        volume,
		LiquidityScore:      liquidity,
		Utility:             utility,
		Momentum:            momentum,
		SeasonRatio:         SeasonRatio,
		ManipulationScore:   manipulation.Score,
		ManipulationFlags:   slices.Clone(manipulation.Flags),
		ManipulationRisk:    manipulation.RiskLevel,
		VolatilityScore:     volatility.Score,
		VolatilityLevel:     volatility.Level,
		RiskAdjustedUtility: round2(utility / riskFactor),
		PersistenceScore:    persistence,
		CapitalRequired:     capital.CapitalRequired,
		PotentialLoss:       capital.PotentialLoss,
		RiskRatio:           capital.RiskRatio,
		HighAgeMinutes:      highAge,
		LowAgeMinutes:       lowAge,
		DataAgeMinutes:      math.Max(highAge, lowAge),
	}
	if err := validateRecord(record); err != nil {
		logger.Debug("Skipping item %d: %v", id, err)
		return models.ItemRecord{}, SkipFailed
	}
	return record, SkipNone
}

func validateRecord(r models.ItemRecord) error {
	for name, v := range map[string]float64{
		"utility":               r.Utility,
		"risk_adjusted_utility": r.RiskAdjustedUtility,
		"roi":                   r.ROI,
		"momentum":              r.Momentum,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
	}
	return nil
}

// ageMinutes measures from the per-side trade time, falling back to the
// snapshot fetch time. Zero when neither is known.
func ageMinutes(nowUnix int64, sideTime *int64, fallback int64) float64 {
	ts := fallback
	if sideTime != nil && *sideTime > 0 {
		ts = *sideTime
	}
	if ts <= 0 {
		return 0
	}
	return float64(nowUnix-ts) / 60
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
