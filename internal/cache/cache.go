// Package cache provides an in-process TTL memoization layer keyed by
// function name and arguments, with hit/miss accounting.
package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

// Entry is one memoized value.
type Entry struct {
	Key            string
	Value          any
	CreatedAt      time.Time
	ExpiresAt      time.Time
	SourceFunction string
}

// Stats is a point-in-time view of cache usage. HitRate is a percentage.
type Stats struct {
	HitRate       float64        `json:"hit_rate"`
	TotalRequests int64          `json:"total_requests"`
	Hits          int64          `json:"hits"`
	Misses        int64          `json:"misses"`
	Size          int            `json:"size"`
	PerFunction   map[string]int `json:"per_function"`
}

// Cache is safe for concurrent use. Expired entries are evicted lazily by
// the read that finds them.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
	group   singleflight.Group

	totalRequests int64
	hits          int64
	misses        int64
}

// New creates an empty cache using the wall clock.
func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty cache reading time from now.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		now:     now,
	}
}

// Key derives the deterministic cache key for a function and its arguments.
func Key(function string, args ...any) string {
	if args == nil {
		args = []any{}
	}
	payload, err := json.Marshal([]any{function, args})
	if err != nil {
		// Unserialisable args still need a stable key.
		payload = []byte(fmt.Sprintf("%s|%#v", function, args))
	}
	return strconv.FormatUint(xxhash.Sum64(payload), 16)
}

// Get returns the live value stored for function and args.
func (c *Cache) Get(function string, args ...any) (any, bool) {
	key := Key(function, args...)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.Value, true
}

// peek reads a live entry without touching the counters.
func (c *Cache) peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores value for function and args, replacing any previous entry.
func (c *Cache) Set(function string, ttl time.Duration, value any, args ...any) {
	key := Key(function, args...)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		SourceFunction: function,
	}
}

// Clear removes entries whose source function contains pattern and returns
// how many were removed. An empty pattern removes everything.
func (c *Cache) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		c.entries = make(map[string]*Entry)
		return n
	}

	removed := 0
	for key, entry := range c.entries {
		if strings.Contains(entry.SourceFunction, pattern) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len is the number of stored entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns request counters and per-function entry counts.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	perFunction := make(map[string]int)
	for _, entry := range c.entries {
		perFunction[entry.SourceFunction]++
	}

	var hitRate float64
	if c.totalRequests > 0 {
		hitRate = float64(c.hits) / float64(c.totalRequests) * 100
	}

	return Stats{
		HitRate:       hitRate,
		TotalRequests: c.totalRequests,
		Hits:          c.hits,
		Misses:        c.misses,
		Size:          len(c.entries),
		PerFunction:   perFunction,
	}
}

// Cached returns the memoized result of compute for function and args,
// calling compute on a miss. Concurrent misses on one key share a single
// compute call.
func Cached[T any](c *Cache, function string, ttl time.Duration, compute func() T, args ...any) T {
	if v, ok := c.Get(function, args...); ok {
		if typed, ok := v.(T); ok {
			return typed
		}
	}

	key := Key(function, args...)
	v, _, _ := c.group.Do(key, func() (any, error) {
		// A caller that missed just before another finished must not recompute.
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		result := compute()
		c.Set(function, ttl, result, args...)
		return result, nil
	})
	typed, _ := v.(T)
	return typed
}
