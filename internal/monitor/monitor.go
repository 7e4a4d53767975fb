// Package monitor orchestrates price feed fetches, the scoring pipeline and
// alert dispatch for one scan or one poll cycle.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rewired-gh/gescout/internal/alerts"
	"github.com/rewired-gh/gescout/internal/cache"
	"github.com/rewired-gh/gescout/internal/ge"
	"github.com/rewired-gh/gescout/internal/logger"
	"github.com/rewired-gh/gescout/internal/models"
	"github.com/rewired-gh/gescout/internal/pipeline"
	"github.com/rewired-gh/gescout/internal/storage"
)

// Cache function names for fetched data.
const (
	FuncMapping    = "fetch_mapping"
	FuncHourly     = "fetch_hourly"
	FuncTimeseries = "fetch_timeseries"
)

// Feed is the price data source.
type Feed interface {
	FetchMapping(ctx context.Context) ([]models.MappingItem, error)
	FetchLatest(ctx context.Context) (map[int64]models.PriceSnapshot, error)
	FetchHourly(ctx context.Context) (map[int64]models.HourlyAggregate, error)
	FetchTimeseries(ctx context.Context, itemID int64, step string) ([]models.TimeseriesPoint, error)
}

// StatusNotifier is told when poll cycles start failing and when they recover.
type StatusNotifier interface {
	SendError(ctx context.Context, cycleErr error) error
	SendRecovery(ctx context.Context, failureCount int) error
}

type Config struct {
	Mode       pipeline.Mode
	ShowAll    bool
	Thresholds pipeline.Thresholds

	MappingTTL    time.Duration
	HourlyTTL     time.Duration
	TimeseriesTTL time.Duration

	// Alerts are only attempted when a cycle returns at most
	// MaxResultsForAlerts records, for records whose margin exceeds
	// MarginMultiplier times the minimum margin.
	MaxResultsForAlerts int
	MaxAlertsPerCycle   int
	MarginMultiplier    float64
}

func DefaultConfig() Config {
	return Config{
		Mode:                pipeline.ModeCustom,
		Thresholds:          pipeline.Presets[pipeline.ModeCustom],
		MappingTTL:          60 * time.Minute,
		HourlyTTL:           5 * time.Minute,
		TimeseriesTTL:       5 * time.Minute,
		MaxResultsForAlerts: 5,
		MaxAlertsPerCycle:   3,
		MarginMultiplier:    2,
	}
}

type Monitor struct {
	feed       Feed
	cache      *cache.Cache
	pipeline   *pipeline.Pipeline
	limits     *ge.BuyLimits
	dispatcher *alerts.Dispatcher
	storage    *storage.Storage
	status     StatusNotifier
	config     Config
	now        func() time.Time

	mu                  sync.Mutex
	consecutiveFailures int
}

// New wires a monitor. dispatcher, store and status may be nil.
func New(
	feed Feed,
	c *cache.Cache,
	p *pipeline.Pipeline,
	limits *ge.BuyLimits,
	dispatcher *alerts.Dispatcher,
	store *storage.Storage,
	status StatusNotifier,
	config Config,
) *Monitor {
	return &Monitor{
		feed:       feed,
		cache:      c,
		pipeline:   p,
		limits:     limits,
		dispatcher: dispatcher,
		storage:    store,
		status:     status,
		config:     config,
		now:        time.Now,
	}
}

// Options returns the configured pipeline options.
func (m *Monitor) Options() pipeline.Options {
	return pipeline.Options{
		Mode:       m.config.Mode,
		ShowAll:    m.config.ShowAll,
		Thresholds: pipeline.ThresholdsFor(m.config.Mode, m.config.Thresholds),
	}
}

// CustomThresholds returns the configured thresholds used by Custom mode,
// whatever mode is active.
func (m *Monitor) CustomThresholds() pipeline.Thresholds {
	return m.config.Thresholds
}

// Names returns the item id to name mapping, cached for MappingTTL. Buy
// limits reported by the mapping are merged into the limit table.
func (m *Monitor) Names(ctx context.Context) (map[int64]string, error) {
	if v, ok := m.cache.Get(FuncMapping); ok {
		if names, ok := v.(map[int64]string); ok {
			return names, nil
		}
	}

	items, err := m.feed.FetchMapping(ctx)
	if err != nil {
		return map[int64]string{}, fmt.Errorf("failed to fetch mapping: %w", err)
	}

	names := make(map[int64]string, len(items))
	limits := make(map[string]int64)
	for _, item := range items {
		names[item.ID] = item.Name
		if item.Limit > 0 {
			limits[item.Name] = item.Limit
		}
	}
	m.limits.Merge(limits)

	if len(names) > 0 {
		m.cache.Set(FuncMapping, m.config.MappingTTL, names)
	}
	logger.Debug("Loaded mapping for %d items (%d with buy limits)", len(names), len(limits))
	return names, nil
}

// Hourly returns the hourly aggregates, cached for HourlyTTL. A failed
// fetch degrades to an empty map.
func (m *Monitor) Hourly(ctx context.Context) map[int64]models.HourlyAggregate {
	if v, ok := m.cache.Get(FuncHourly); ok {
		if hourly, ok := v.(map[int64]models.HourlyAggregate); ok {
			return hourly
		}
	}

	hourly, err := m.feed.FetchHourly(ctx)
	if err != nil {
		logger.Warn("Continuing without hourly data: %v", err)
		return map[int64]models.HourlyAggregate{}
	}
	if len(hourly) > 0 {
		m.cache.Set(FuncHourly, m.config.HourlyTTL, hourly)
	}
	return hourly
}

// Timeseries returns an item's price history, cached per item and step.
func (m *Monitor) Timeseries(ctx context.Context, itemID int64, step string) ([]models.TimeseriesPoint, error) {
	if v, ok := m.cache.Get(FuncTimeseries, itemID, step); ok {
		if points, ok := v.([]models.TimeseriesPoint); ok {
			return points, nil
		}
	}

	points, err := m.feed.FetchTimeseries(ctx, itemID, step)
	if err != nil {
		return points, err
	}
	if len(points) > 0 {
		m.cache.Set(FuncTimeseries, m.config.TimeseriesTTL, points, itemID, step)
	}
	return points, nil
}

// Scan runs one fetch and filter pass. Latest prices are always fetched
// live. A missing mapping or price snapshot yields an empty result and an
// error.
func (m *Monitor) Scan(ctx context.Context, opts pipeline.Options) (pipeline.Result, error) {
	empty := pipeline.Result{Records: []models.ItemRecord{}, Skipped: map[pipeline.SkipReason]int{}}

	names, err := m.Names(ctx)
	if err != nil {
		return empty, err
	}
	if len(names) == 0 {
		return empty, fmt.Errorf("item mapping is empty")
	}

	latest, err := m.feed.FetchLatest(ctx)
	if err != nil {
		return empty, fmt.Errorf("failed to fetch latest prices: %w", err)
	}
	if len(latest) == 0 {
		return empty, fmt.Errorf("no latest prices available")
	}

	hourly := m.Hourly(ctx)
	return m.pipeline.Run(latest, hourly, names, opts), nil
}

// RunCycle scans with the configured options and dispatches alerts for a
// small result set. Failures are reported to the status notifier on the
// first failure of a streak and again on recovery.
func (m *Monitor) RunCycle(ctx context.Context) error {
	start := m.now()
	opts := m.Options()
	logger.Info("Starting scan cycle (mode=%s)", opts.Mode)

	result, err := m.Scan(ctx, opts)
	m.handleCycleResult(ctx, err)
	if err != nil {
		return err
	}

	sent := m.dispatchAlerts(ctx, result.Records, opts)

	duration := m.now().Sub(start)
	if m.storage != nil {
		run := &models.ScanRun{
			Mode:       string(opts.Mode),
			ShowAll:    opts.ShowAll,
			Candidates: result.Candidates,
			Results:    len(result.Records),
			AlertsSent: sent,
			StartedAt:  start,
			Duration:   duration,
		}
		if err := m.storage.RecordRun(run); err != nil {
			logger.Warn("Failed to record scan run: %v", err)
		}
	}
	logger.Info("Scan cycle completed in %v: %d results, %d alerts sent", duration, len(result.Records), sent)
	return nil
}

func (m *Monitor) dispatchAlerts(ctx context.Context, records []models.ItemRecord, opts pipeline.Options) int {
	if m.dispatcher == nil || opts.ShowAll || len(records) > m.config.MaxResultsForAlerts {
		return 0
	}

	// High Volume runs carry no thresholds, so the gate reads the configured minimum.
	minMargin := m.config.MarginMultiplier * float64(m.config.Thresholds.MinMargin)
	attempted, sent := 0, 0
	for _, r := range records {
		if attempted >= m.config.MaxAlertsPerCycle {
			break
		}
		if float64(r.NetMargin) <= minMargin {
			continue
		}

		outcome := m.dispatcher.Dispatch(ctx, r.Name, r.BuyPrice, r.SellPrice, r.NetMargin)
		if outcome == alerts.Suppressed {
			continue
		}
		attempted++
		if outcome == alerts.Sent {
			sent++
		}

		if m.storage != nil {
			rec := &models.AlertRecord{
				ItemName:    r.Name,
				BuyPrice:    r.BuyPrice,
				SellPrice:   r.SellPrice,
				Margin:      r.NetMargin,
				Sent:        outcome == alerts.Sent,
				AttemptedAt: m.now(),
			}
			if err := m.storage.RecordAlert(rec); err != nil {
				logger.Warn("Failed to record alert for %s: %v", r.Name, err)
			}
		}
	}
	return sent
}

func (m *Monitor) handleCycleResult(ctx context.Context, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.consecutiveFailures++
		logger.Error("Scan cycle failed: %v", err)
		if m.consecutiveFailures == 1 && m.status != nil {
			if sendErr := m.status.SendError(ctx, err); sendErr != nil {
				logger.Warn("Failed to send error notification: %v", sendErr)
			}
		}
		return
	}

	if m.consecutiveFailures > 0 && m.status != nil {
		if sendErr := m.status.SendRecovery(ctx, m.consecutiveFailures); sendErr != nil {
			logger.Warn("Failed to send recovery notification: %v", sendErr)
		}
	}
	m.consecutiveFailures = 0
}

// ConsecutiveFailures reports the length of the current failure streak.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutiveFailures
}
