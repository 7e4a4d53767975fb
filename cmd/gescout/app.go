package main

import (
	"fmt"

	"github.com/rewired-gh/gescout/internal/alerts"
	"github.com/rewired-gh/gescout/internal/analytics"
	"github.com/rewired-gh/gescout/internal/cache"
	"github.com/rewired-gh/gescout/internal/config"
	"github.com/rewired-gh/gescout/internal/ge"
	"github.com/rewired-gh/gescout/internal/logger"
	"github.com/rewired-gh/gescout/internal/monitor"
	"github.com/rewired-gh/gescout/internal/pipeline"
	"github.com/rewired-gh/gescout/internal/pricefeed"
	"github.com/rewired-gh/gescout/internal/storage"
)

// app holds the wired components shared by every command.
type app struct {
	cache    *cache.Cache
	limits   *ge.BuyLimits
	feed     *pricefeed.Client
	monitor  *monitor.Monitor
	store    *storage.Storage
	telegram *alerts.TelegramNotifier
}

// newApp wires the components. Notification channels are only built when
// withNotifiers is set.
func newApp(cfg *config.Config, withNotifiers bool) (*app, error) {
	limits, err := ge.LoadBuyLimits(cfg.Filter.BuyLimitsFile)
	if err != nil {
		logger.Warn("Using fallback buy limits: %v", err)
	}

	c := cache.New()
	engine := analytics.NewEngine(c, analytics.Config{
		ManipulationTTL:  cfg.Analytics.ManipulationTTL,
		VolatilityTTL:    cfg.Analytics.VolatilityTTL,
		CapitalAtRiskTTL: cfg.Analytics.CapitalAtRiskTTL,
	})
	p := pipeline.New(engine, limits, ge.NewExclusions(cfg.Filter.Exclusions...))
	feed := pricefeed.NewClient(cfg.Feed.BaseURL, cfg.Feed.UserAgent, cfg.Feed.Retries)

	store, err := storage.New(cfg.Storage.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &app{
		cache:  c,
		limits: limits,
		feed:   feed,
		store:  store,
	}

	var dispatcher *alerts.Dispatcher
	var status monitor.StatusNotifier
	if withNotifiers {
		var notifiers alerts.MultiNotifier
		if cfg.Telegram.Enabled {
			a.telegram, err = alerts.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase, cfg.Alerts.Timeout)
			if err != nil {
				store.Close()
				return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
			}
			status = a.telegram
			notifiers = append(notifiers, a.telegram)
			logger.Info("Telegram client initialized successfully")
		}
		if cfg.Alerts.WebhookURL != "" {
			notifiers = append(notifiers, alerts.NewWebhookNotifier(cfg.Alerts.WebhookURL))
		}
		if cfg.Alerts.Enabled && len(notifiers) > 0 {
			var notifier alerts.Notifier = notifiers
			if len(notifiers) == 1 {
				notifier = notifiers[0]
			}
			dispatcher = alerts.NewDispatcher(notifier, alerts.NewTracker(cfg.Alerts.Cooldown), cfg.Alerts.Timeout)
		} else {
			logger.Debug("Alert notifications disabled")
		}
	}

	a.monitor = monitor.New(feed, c, p, limits, dispatcher, store, status, monitor.Config{
		Mode:                cfg.Mode(),
		ShowAll:             cfg.Filter.ShowAll,
		Thresholds:          cfg.Filter.Thresholds,
		MappingTTL:          cfg.Feed.MappingTTL,
		HourlyTTL:           cfg.Feed.HourlyTTL,
		TimeseriesTTL:       cfg.Feed.HourlyTTL,
		MaxResultsForAlerts: cfg.Alerts.MaxResults,
		MaxAlertsPerCycle:   cfg.Alerts.MaxPerCycle,
		MarginMultiplier:    cfg.Alerts.MarginMultiplier,
	})
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}
