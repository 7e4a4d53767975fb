package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/gescout/internal/api"
	"github.com/rewired-gh/gescout/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the price feed, send alerts and serve the JSON API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if a.telegram != nil {
		a.telegram.ListenForCommands(ctx)
	}

	if cfg.Server.Enabled {
		server := api.NewServer(a.monitor, a.cache, a.store, a.limits, a.monitor.Options(), a.monitor.CustomThresholds(), cfg.Logging.Level == "debug")
		go func() {
			if err := server.Start(ctx, cfg.Server.Addr); err != nil {
				logger.Error("API server stopped: %v", err)
				cancel()
			}
		}()
	}

	opts := a.monitor.Options()
	logger.Info("Starting scanner (interval: %v, mode: %s, min_margin: %d)",
		cfg.Feed.PollInterval, opts.Mode, opts.Thresholds.MinMargin)

	ticker := time.NewTicker(cfg.Feed.PollInterval)
	defer ticker.Stop()

	logger.Debug("Running initial scan cycle")
	_ = a.monitor.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return nil
		case <-ticker.C:
			logger.Debug("Starting scheduled scan cycle")
			_ = a.monitor.RunCycle(ctx)
		}
	}
}
