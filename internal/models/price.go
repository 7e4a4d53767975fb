// Package models defines the core domain entities: price snapshots, hourly
// aggregates, timeseries points and the scored item records built from them.
package models

import (
	"errors"
	"fmt"
)

// ValidTimesteps are the timeseries granularities the price feed serves.
var ValidTimesteps = []string{"5m", "1h", "6h", "24h"}

// IsValidTimestep reports whether step is a supported timeseries granularity.
func IsValidTimestep(step string) bool {
	for _, s := range ValidTimesteps {
		if s == step {
			return true
		}
	}
	return false
}

// MappingItem is one entry of the item id <-> name mapping.
type MappingItem struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Limit   int64  `json:"limit,omitempty"`
	Members bool   `json:"members"`
	Value   int64  `json:"value,omitempty"`
}

// PriceSnapshot is the latest instant-trade high/low for one item.
// Nil fields mean the side has not traded. HighTime and LowTime are Unix
// seconds of the last trade; Timestamp is when the snapshot was fetched.
type PriceSnapshot struct {
	ItemID    int64  `json:"-"`
	High      *int64 `json:"high"`
	HighTime  *int64 `json:"highTime"`
	Low       *int64 `json:"low"`
	LowTime   *int64 `json:"lowTime"`
	Timestamp int64  `json:"-"`
}

// HasPrices reports whether both sides of the snapshot are present.
func (p PriceSnapshot) HasPrices() bool {
	return p.High != nil && p.Low != nil
}

// Validate checks that the snapshot describes an actionable spread.
func (p PriceSnapshot) Validate() error {
	if !p.HasPrices() {
		return errors.New("snapshot is missing a price side")
	}
	if *p.High <= *p.Low {
		return fmt.Errorf("high price %d must exceed low price %d", *p.High, *p.Low)
	}
	return nil
}

// HourlyAggregate is the trailing one-hour average and volume for one item.
type HourlyAggregate struct {
	AvgHighPrice    *int64 `json:"avgHighPrice"`
	HighPriceVolume int64  `json:"highPriceVolume"`
	AvgLowPrice     *int64 `json:"avgLowPrice"`
	LowPriceVolume  int64  `json:"lowPriceVolume"`
}

// IsEmpty reports whether the aggregate carries no usable data.
func (h *HourlyAggregate) IsEmpty() bool {
	return h == nil || (h.AvgHighPrice == nil && h.AvgLowPrice == nil &&
		h.HighPriceVolume == 0 && h.LowPriceVolume == 0)
}

// TotalVolume is the combined traded volume on both sides.
func (h *HourlyAggregate) TotalVolume() int64 {
	if h == nil {
		return 0
	}
	return h.HighPriceVolume + h.LowPriceVolume
}

// AvgLow returns the average low price, or 0 when absent.
func (h *HourlyAggregate) AvgLow() int64 {
	if h == nil || h.AvgLowPrice == nil {
		return 0
	}
	return *h.AvgLowPrice
}

// TimeseriesPoint is one bucket of an item's price history.
type TimeseriesPoint struct {
	Timestamp       int64  `json:"timestamp"`
	AvgHighPrice    *int64 `json:"avgHighPrice"`
	AvgLowPrice     *int64 `json:"avgLowPrice"`
	HighPriceVolume int64  `json:"highPriceVolume"`
	LowPriceVolume  int64  `json:"lowPriceVolume"`
}

// Mid returns the midpoint of the average prices and whether both were present.
func (p TimeseriesPoint) Mid() (float64, bool) {
	if p.AvgHighPrice == nil || p.AvgLowPrice == nil {
		return 0, false
	}
	return float64(*p.AvgHighPrice+*p.AvgLowPrice) / 2, true
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
