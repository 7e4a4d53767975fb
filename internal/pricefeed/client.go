// Package pricefeed is a client for the Grand Exchange real-time price API.
package pricefeed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rewired-gh/gescout/internal/logger"
	"github.com/rewired-gh/gescout/internal/models"
)

// DefaultBaseURL is the public OSRS wiki prices API.
const DefaultBaseURL = "https://prices.runescape.wiki/api/v1/osrs"

// DefaultUserAgent identifies the client to the API operators, who ask for
// a descriptive agent.
const DefaultUserAgent = "gescout - GE flip scanner"

// Request timeouts per endpoint.
const (
	BulkTimeout   = 15 * time.Second
	LatestTimeout = 10 * time.Second
)

// Client fetches mapping, latest prices, hourly aggregates and timeseries.
// Every method degrades to an empty, non-nil result on failure and also
// returns the error so callers can track upstream health.
type Client struct {
	client  *resty.Client
	baseURL string
	now     func() time.Time
}

// NewClient creates a client for baseURL.
func NewClient(baseURL, userAgent string, retries int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if retries < 0 {
		retries = 0
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= 500
		})

	return &Client{
		client:  client,
		baseURL: baseURL,
		now:     time.Now,
	}
}

type latestResponse struct {
	Data map[string]models.PriceSnapshot `json:"data"`
}

type hourlyResponse struct {
	Data      map[string]models.HourlyAggregate `json:"data"`
	Timestamp int64                             `json:"timestamp"`
}

type timeseriesResponse struct {
	Data []models.TimeseriesPoint `json:"data"`
}

// FetchMapping returns the item id <-> name mapping.
func (c *Client) FetchMapping(ctx context.Context) ([]models.MappingItem, error) {
	var items []models.MappingItem
	if err := c.get(ctx, BulkTimeout, "/mapping", nil, &items); err != nil {
		logger.Warn("Failed to fetch item mapping: %v", err)
		return []models.MappingItem{}, err
	}
	if items == nil {
		items = []models.MappingItem{}
	}
	return items, nil
}

// FetchLatest returns the latest instant-trade snapshot keyed by item id.
func (c *Client) FetchLatest(ctx context.Context) (map[int64]models.PriceSnapshot, error) {
	var body latestResponse
	if err := c.get(ctx, LatestTimeout, "/latest", nil, &body); err != nil {
		logger.Warn("Failed to fetch latest prices: %v", err)
		return map[int64]models.PriceSnapshot{}, err
	}

	fetchedAt := c.now().Unix()
	out := make(map[int64]models.PriceSnapshot, len(body.Data))
	for key, snap := range body.Data {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		snap.ItemID = id
		snap.Timestamp = fetchedAt
		out[id] = snap
	}
	return out, nil
}

// FetchHourly returns the trailing one-hour aggregate keyed by item id.
func (c *Client) FetchHourly(ctx context.Context) (map[int64]models.HourlyAggregate, error) {
	var body hourlyResponse
	if err := c.get(ctx, BulkTimeout, "/1h", nil, &body); err != nil {
		logger.Warn("Failed to fetch hourly aggregates: %v", err)
		return map[int64]models.HourlyAggregate{}, err
	}

	out := make(map[int64]models.HourlyAggregate, len(body.Data))
	for key, agg := range body.Data {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[id] = agg
	}
	return out, nil
}

// FetchTimeseries returns the price history of one item at step
// granularity, oldest first.
func (c *Client) FetchTimeseries(ctx context.Context, itemID int64, step string) ([]models.TimeseriesPoint, error) {
	if !models.IsValidTimestep(step) {
		return []models.TimeseriesPoint{}, fmt.Errorf("invalid timestep %q", step)
	}

	params := map[string]string{
		"timestep": step,
		"id":       strconv.FormatInt(itemID, 10),
	}
	var body timeseriesResponse
	if err := c.get(ctx, BulkTimeout, "/timeseries", params, &body); err != nil {
		logger.Warn("Failed to fetch timeseries for item %d: %v", itemID, err)
		return []models.TimeseriesPoint{}, err
	}
	if body.Data == nil {
		body.Data = []models.TimeseriesPoint{}
	}
	return body.Data, nil
}

func (c *Client) get(ctx context.Context, timeout time.Duration, path string, params map[string]string, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("request %s returned status %d", path, resp.StatusCode())
	}
	return nil
}
