// Package alerts dispatches rate-limited flip alerts to notification
// channels.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/gescout/internal/logger"
)

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 5 * time.Second

// Notifier delivers a text payload.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Outcome is the result of one dispatch attempt.
type Outcome int

const (
	// Suppressed means the item was in cooldown and nothing was sent.
	Suppressed Outcome = iota
	// Sent means the notifier reported success.
	Sent
	// Failed means delivery was attempted and failed. The cooldown still applies.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case Failed:
		return "failed"
	default:
		return "suppressed"
	}
}

// Dispatcher sends alerts subject to the per-item cooldown.
type Dispatcher struct {
	notifier Notifier
	tracker  *Tracker
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher. A nil notifier disables sending.
func NewDispatcher(notifier Notifier, tracker *Tracker, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		notifier: notifier,
		tracker:  tracker,
		timeout:  timeout,
	}
}

// Tracker exposes the cooldown state.
func (d *Dispatcher) Tracker() *Tracker {
	return d.tracker
}

// SendAlert reports whether an alert for itemName was delivered.
func (d *Dispatcher) SendAlert(ctx context.Context, itemName string, buyPrice, sellPrice, margin int64) bool {
	return d.Dispatch(ctx, itemName, buyPrice, sellPrice, margin) == Sent
}

// Dispatch attempts delivery. The cooldown timestamp is recorded before
// the outbound call, so a failed delivery also starts the cooldown.
func (d *Dispatcher) Dispatch(ctx context.Context, itemName string, buyPrice, sellPrice, margin int64) Outcome {
	if d.notifier == nil {
		return Suppressed
	}
	if !d.tracker.Acquire(itemName) {
		logger.Debug("Alert for %s suppressed by cooldown", itemName)
		return Suppressed
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, FormatAlert(itemName, buyPrice, sellPrice, margin)); err != nil {
		logger.Warn("Failed to deliver alert for %s: %v", itemName, err)
		return Failed
	}
	logger.Info("Sent alert for %s (margin %d)", itemName, margin)
	return Sent
}

// FormatAlert renders the alert text.
func FormatAlert(itemName string, buyPrice, sellPrice, margin int64) string {
	return fmt.Sprintf("💰 Flip opportunity: %s\nBuy: %s gp\nSell: %s gp\nMargin: %s gp",
		itemName,
		humanize.Comma(buyPrice),
		humanize.Comma(sellPrice),
		humanize.Comma(margin),
	)
}

// MultiNotifier fans out to several notifiers and succeeds if any does.
type MultiNotifier []Notifier

// Notify delivers to every child notifier.
func (m MultiNotifier) Notify(ctx context.Context, text string) error {
	if len(m) == 0 {
		return fmt.Errorf("no notifiers configured")
	}
	var lastErr error
	delivered := false
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			lastErr = err
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return fmt.Errorf("all notifiers failed: %w", lastErr)
}
