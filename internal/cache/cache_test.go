package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestKeyDeterministic(t *testing.T) {
	a := Key("detect_manipulation", int64(2), int64(1000))
	b := Key("detect_manipulation", int64(2), int64(1000))
	if a != b {
		t.Errorf("same inputs gave different keys: %s vs %s", a, b)
	}
	if a == Key("detect_manipulation", int64(2), int64(1001)) {
		t.Error("different args should give different keys")
	}
	if a == Key("volatility", int64(2), int64(1000)) {
		t.Error("different functions should give different keys")
	}
	m1 := Key("f", map[string]int{"a": 1, "b": 2})
	m2 := Key("f", map[string]int{"b": 2, "a": 1})
	if m1 != m2 {
		t.Error("map argument order should not affect the key")
	}
}

func TestGetAfterSet(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.Now)

	c.Set("fetch", 10*time.Minute, "value", 1)
	got, ok := c.Get("fetch", 1)
	if !ok || got != "value" {
		t.Fatalf("Get() = %v, %v; want value, true", got, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 0 || stats.TotalRequests != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestExpiryEvictsOnRead(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.Now)

	c.Set("fetch", 10*time.Minute, "value", 1)
	c.Set("fetch", 10*time.Minute, "other", 2)
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	clock.Advance(10*time.Minute + time.Second)

	if _, ok := c.Get("fetch", 1); ok {
		t.Fatal("expected expired entry to be absent")
	}
	if c.Len() != 1 {
		t.Errorf("Len() after expired read = %d, want 1", c.Len())
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 0 || stats.TotalRequests != 1 {
		t.Errorf("unexpected stats after expiry: %+v", stats)
	}
}

func TestExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.Now)
	c.Set("f", time.Minute, 1)

	clock.Advance(time.Minute - time.Nanosecond)
	if _, ok := c.Get("f"); !ok {
		t.Error("entry should be live just before expiry")
	}
	clock.Advance(time.Nanosecond)
	if _, ok := c.Get("f"); ok {
		t.Error("entry should be expired at its expiry instant")
	}
}

func TestMissCountsUnknownKey(t *testing.T) {
	c := New()
	if _, ok := c.Get("nothing"); ok {
		t.Error("expected miss")
	}
	stats := c.Stats()
	if stats.Misses != 1 || stats.TotalRequests != 1 || stats.HitRate != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("detect_manipulation", time.Hour, 1, 1)
	c.Set("detect_manipulation", time.Hour, 2, 2)
	c.Set("volatility_score", time.Hour, 3, 1)
	c.Set("fetch_mapping", time.Hour, 4)

	if n := c.Clear("manipulation"); n != 2 {
		t.Errorf("Clear(manipulation) = %d, want 2", n)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if n := c.Clear("nope"); n != 0 {
		t.Errorf("Clear(nope) = %d, want 0", n)
	}
	if n := c.Clear(""); n != 2 {
		t.Errorf("Clear(\"\") = %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after clear all = %d, want 0", c.Len())
	}
}

func TestStatsPerFunctionAndHitRate(t *testing.T) {
	c := New()
	c.Set("a", time.Hour, 1, 1)
	c.Set("a", time.Hour, 2, 2)
	c.Set("b", time.Hour, 3)

	c.Get("a", 1)
	c.Get("a", 2)
	c.Get("b")
	c.Get("c")

	stats := c.Stats()
	if stats.PerFunction["a"] != 2 || stats.PerFunction["b"] != 1 {
		t.Errorf("unexpected per-function counts: %v", stats.PerFunction)
	}
	if stats.Size != 3 {
		t.Errorf("Size = %d, want 3", stats.Size)
	}
	if stats.HitRate != 75 {
		t.Errorf("HitRate = %v, want 75", stats.HitRate)
	}
}

func TestCachedComputesOncePerKey(t *testing.T) {
	c := New()
	var calls int
	compute := func() int {
		calls++
		return 42
	}

	for i := 0; i < 3; i++ {
		if got := Cached(c, "answer", time.Minute, compute, "x"); got != 42 {
			t.Fatalf("Cached() = %d, want 42", got)
		}
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}

	Cached(c, "answer", time.Minute, compute, "y")
	if calls != 2 {
		t.Errorf("compute called %d times after new key, want 2", calls)
	}
}

func TestCachedRecomputesAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.Now)
	var calls int
	compute := func() string {
		calls++
		return "v"
	}

	Cached(c, "f", time.Minute, compute)
	clock.Advance(2 * time.Minute)
	Cached(c, "f", time.Minute, compute)
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}
}

func TestCachedConcurrentMisses(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() int {
		calls.Add(1)
		<-release
		return 7
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Cached(c, "slow", time.Minute, compute)
		}(i)
	}

	// Let the goroutines pile up on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != 7 {
			t.Errorf("results[%d] = %d, want 7", i, r)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("compute called %d times, want 1", n)
	}
}
