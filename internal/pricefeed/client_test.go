package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/mapping", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "gescout-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":4151,"name":"Abyssal whip","limit":70,"members":true},{"id":385,"name":"Shark","limit":10000}]`))
	})
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"4151":{"high":1550000,"highTime":1700000000,"low":1500000,"lowTime":1699999000},"385":{"high":900,"highTime":1700000000,"low":null,"lowTime":null},"bogus":{"high":1}}}`))
	})
	mux.HandleFunc("/1h", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"4151":{"avgHighPrice":1540000,"highPriceVolume":120,"avgLowPrice":1510000,"lowPriceVolume":95}},"timestamp":1699996400}`))
	})
	mux.HandleFunc("/timeseries", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("timestep") != "1h" || r.URL.Query().Get("id") != "4151" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"timestamp":1699992800,"avgHighPrice":1540000,"avgLowPrice":null,"highPriceVolume":10,"lowPriceVolume":0},{"timestamp":1699996400,"avgHighPrice":1545000,"avgLowPrice":1512000,"highPriceVolume":12,"lowPriceVolume":9}],"itemId":4151}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchMapping(t *testing.T) {
	server := newFeedServer(t)
	c := NewClient(server.URL, "gescout-test", 0)

	items, err := c.FetchMapping(context.Background())
	if err != nil {
		t.Fatalf("FetchMapping() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != 4151 || items[0].Name != "Abyssal whip" || items[0].Limit != 70 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
}

func TestFetchLatest(t *testing.T) {
	server := newFeedServer(t)
	c := NewClient(server.URL, "gescout-test", 0)
	c.now = func() time.Time { return time.Unix(1_700_000_100, 0) }

	prices, err := c.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("got %d snapshots, want 2 (non-numeric keys dropped)", len(prices))
	}
	whip := prices[4151]
	if whip.ItemID != 4151 || *whip.High != 1550000 || *whip.Low != 1500000 {
		t.Errorf("unexpected whip snapshot: %+v", whip)
	}
	if whip.Timestamp != 1_700_000_100 {
		t.Errorf("Timestamp = %d, want fetch time", whip.Timestamp)
	}
	if shark := prices[385]; shark.Low != nil || shark.HasPrices() {
		t.Errorf("shark should have no low side: %+v", shark)
	}
}

func TestFetchHourly(t *testing.T) {
	server := newFeedServer(t)
	c := NewClient(server.URL, "gescout-test", 0)

	hourly, err := c.FetchHourly(context.Background())
	if err != nil {
		t.Fatalf("FetchHourly() error = %v", err)
	}
	agg, ok := hourly[4151]
	if !ok {
		t.Fatal("missing aggregate for 4151")
	}
	if agg.TotalVolume() != 215 || agg.AvgLow() != 1510000 {
		t.Errorf("unexpected aggregate: %+v", agg)
	}
}

func TestFetchTimeseries(t *testing.T) {
	server := newFeedServer(t)
	c := NewClient(server.URL, "gescout-test", 0)

	points, err := c.FetchTimeseries(context.Background(), 4151, "1h")
	if err != nil {
		t.Fatalf("FetchTimeseries() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].AvgLowPrice != nil {
		t.Error("null avgLowPrice should decode as nil")
	}

	if _, err := c.FetchTimeseries(context.Background(), 4151, "1d"); err == nil {
		t.Error("expected error for invalid timestep")
	}
}

func TestFetchDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	c := NewClient(server.URL, "", 0)
	ctx := context.Background()

	mapping, err := c.FetchMapping(ctx)
	if err == nil || mapping == nil || len(mapping) != 0 {
		t.Errorf("FetchMapping() = %v, %v; want empty slice and error", mapping, err)
	}
	latest, err := c.FetchLatest(ctx)
	if err == nil || latest == nil || len(latest) != 0 {
		t.Errorf("FetchLatest() = %v, %v; want empty map and error", latest, err)
	}
	hourly, err := c.FetchHourly(ctx)
	if err == nil || hourly == nil || len(hourly) != 0 {
		t.Errorf("FetchHourly() = %v, %v; want empty map and error", hourly, err)
	}
	series, err := c.FetchTimeseries(ctx, 1, "5m")
	if err == nil || series == nil || len(series) != 0 {
		t.Errorf("FetchTimeseries() = %v, %v; want empty slice and error", series, err)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"Tinderbox"}]`))
	}))
	defer server.Close()

	items, err := NewClient(server.URL, "", 1).FetchMapping(context.Background())
	if err != nil {
		t.Fatalf("FetchMapping() error = %v", err)
	}
	if len(items) != 1 || atomic.LoadInt32(&calls) != 2 {
		t.Errorf("items = %d, calls = %d; want 1 item after 2 calls", len(items), calls)
	}
}
