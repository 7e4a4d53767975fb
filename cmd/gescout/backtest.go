package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/gescout/internal/backtest"
	"github.com/rewired-gh/gescout/internal/models"
	"github.com/spf13/cobra"
)

var (
	flagTimestep string
	flagHold     int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest <item-id>",
	Short: "Replay the configured filter over an item's price history",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&flagTimestep, "timestep", "1h", "history granularity (5m, 1h, 6h, 24h)")
	backtestCmd.Flags().IntVar(&flagHold, "hold", backtest.DefaultHoldPeriods, "points to hold each position")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || itemID <= 0 {
		return fmt.Errorf("invalid item id %q", args[0])
	}
	if !models.IsValidTimestep(flagTimestep) {
		return fmt.Errorf("timestep must be one of %v", models.ValidTimesteps)
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	names, err := a.monitor.Names(ctx)
	if err != nil {
		return err
	}
	name, ok := names[itemID]
	if !ok {
		return fmt.Errorf("unknown item id %d", itemID)
	}

	points, err := a.monitor.Timeseries(ctx, itemID, flagTimestep)
	if err != nil {
		return err
	}

	result := backtest.Replay(points, backtest.ReplayOptions{
		Thresholds:  a.monitor.Options().Thresholds,
		HoldPeriods: flagHold,
		BuyLimit:    a.limits.Lookup(name),
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%d), %d points at %s\n", name, itemID, len(points), flagTimestep)
	fmt.Fprintf(out, "Trades:       %d (%d wins, %d losses, %.2f%% win rate)\n", result.TotalTrades, result.Wins, result.Losses, result.WinRate)
	fmt.Fprintf(out, "Total profit: %s gp\n", humanize.Comma(result.TotalProfit))
	fmt.Fprintf(out, "Avg profit:   %s gp (std dev %s)\n", humanize.CommafWithDigits(result.AvgProfit, 2), humanize.CommafWithDigits(result.ProfitStdDev, 2))
	fmt.Fprintf(out, "Max drawdown: %s gp\n", humanize.Comma(result.MaxDrawdown))
	return nil
}
