// Package backtest replays the flip filter over historical price series and
// measures how item prices move together.
package backtest

import (
	"math"

	"github.com/rewired-gh/gescout/internal/ge"
	"github.com/rewired-gh/gescout/internal/models"
	"github.com/rewired-gh/gescout/internal/pipeline"
)

// DefaultHoldPeriods is how many points a simulated position is held.
const DefaultHoldPeriods = 1

// ReplayOptions configures a replay.
type ReplayOptions struct {
	Thresholds  pipeline.Thresholds
	HoldPeriods int
	BuyLimit    int64
}

// Trade is one simulated flip.
type Trade struct {
	EntryTimestamp int64 `json:"entry_timestamp"`
	ExitTimestamp  int64 `json:"exit_timestamp"`
	BuyPrice       int64 `json:"buy_price"`
	SellPrice      int64 `json:"sell_price"`
	Quantity       int64 `json:"quantity"`
	Profit         int64 `json:"profit"`
}

// Result summarises a replay. Profits are in gp; WinRate is a percentage.
type Result struct {
	Trades       []Trade `json:"trades"`
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	TotalProfit  int64   `json:"total_profit"`
	AvgProfit    float64 `json:"avg_profit"`
	ProfitStdDev float64 `json:"profit_std_dev"`
	MaxDrawdown  int64   `json:"max_drawdown"`
}

// Replay walks series oldest first. Each point is treated as a snapshot
// whose sell side is the average high and buy side the average low. When
// the point passes the thresholds a position is opened at that low and
// closed at the average high HoldPeriods points later, net of tax. Positions
// do not overlap.
func Replay(series []models.TimeseriesPoint, opts ReplayOptions) Result {
	hold := opts.HoldPeriods
	if hold <= 0 {
		hold = DefaultHoldPeriods
	}

	result := Result{Trades: []Trade{}}
	var stats RunningStats
	var equity, peak int64

	for i := 0; i+hold < len(series); i++ {
		entry := series[i]
		if !signal(entry, opts) {
			continue
		}
		exit := series[i+hold]
		if exit.AvgHighPrice == nil {
			continue
		}

		qty := entry.HighPriceVolume + entry.LowPriceVolume
		if opts.BuyLimit > 0 && opts.BuyLimit < qty {
			qty = opts.BuyLimit
		}
		if qty <= 0 {
			continue
		}

		buy, sell := *entry.AvgLowPrice, *exit.AvgHighPrice
		trade := Trade{
			EntryTimestamp: entry.Timestamp,
			ExitTimestamp:  exit.Timestamp,
			BuyPrice:       buy,
			SellPrice:      sell,
			Quantity:       qty,
			Profit:         ge.NetMargin(sell, buy) * qty,
		}
		result.Trades = append(result.Trades, trade)
		stats.Add(float64(trade.Profit))

		if trade.Profit > 0 {
			result.Wins++
		} else {
			result.Losses++
		}
		result.TotalProfit += trade.Profit

		equity += trade.Profit
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > result.MaxDrawdown {
			result.MaxDrawdown = dd
		}

		i += hold - 1
	}

	result.TotalTrades = len(result.Trades)
	if result.TotalTrades > 0 {
		result.WinRate = round2(float64(result.Wins) / float64(result.TotalTrades) * 100)
		result.AvgProfit = round2(stats.Mean())
		result.ProfitStdDev = round2(stats.StdDev())
	}
	return result
}

// signal applies the margin, volume and utility thresholds to one point.
// Historical points carry no manipulation or volatility signal.
func signal(p models.TimeseriesPoint, opts ReplayOptions) bool {
	if p.AvgHighPrice == nil || p.AvgLowPrice == nil {
		return false
	}
	high, low := *p.AvgHighPrice, *p.AvgLowPrice
	if high <= low {
		return false
	}

	netMargin := ge.NetMargin(high, low)
	volume := p.HighPriceVolume + p.LowPriceVolume
	record := models.ItemRecord{
		NetMargin:    netMargin,
		HourlyVolume: volume,
		Utility:      pipeline.Utility(netMargin, volume, high, low),
		ROI:          pipeline.ROI(netMargin, low),
		SeasonRatio:  pipeline.SeasonRatio,
	}
	t := opts.Thresholds
	t.ManipulationThreshold = max(t.ManipulationThreshold, 0)
	t.VolatilityThreshold = max(t.VolatilityThreshold, 0)
	return pipeline.Passes(record, t)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
