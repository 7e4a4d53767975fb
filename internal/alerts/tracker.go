package alerts

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum time between alerts for one item.
const DefaultCooldown = 180 * time.Second

// Tracker holds the per-item cooldown state. Items are independent.
type Tracker struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewTracker creates a tracker using the wall clock.
func NewTracker(cooldown time.Duration) *Tracker {
	return NewTrackerWithClock(cooldown, time.Now)
}

// NewTrackerWithClock creates a tracker reading time from now.
func NewTrackerWithClock(cooldown time.Duration, now func() time.Time) *Tracker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Tracker{
		lastSent: make(map[string]time.Time),
		cooldown: cooldown,
		now:      now,
	}
}

// Acquire records an attempt for item and reports whether it is allowed.
// A suppressed attempt leaves the recorded time untouched.
func (t *Tracker) Acquire(item string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.lastSent[item]; ok && now.Sub(last) < t.cooldown {
		return false
	}
	t.lastSent[item] = now
	return true
}

// InCooldown reports whether item would currently be suppressed.
func (t *Tracker) InCooldown(item string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.lastSent[item]
	return ok && t.now().Sub(last) < t.cooldown
}

// LastSent returns the recorded attempt time for item.
func (t *Tracker) LastSent(item string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.lastSent[item]
	return last, ok
}

// Clear forgets every item.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}
