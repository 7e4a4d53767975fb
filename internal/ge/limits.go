package ge

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultBuyLimit applies to items missing from every source.
const DefaultBuyLimit int64 = 1000

// fallbackBuyLimits covers common items when no limits file is configured.
var fallbackBuyLimits = map[string]int64{
	"Abyssal whip":      70,
	"Amulet of fury":    8,
	"Anglerfish":        13000,
	"Armadyl godsword":  8,
	"Bandos chestplate": 8,
	"Bandos tassets":    8,
	"Blood rune":        25000,
	"Cannonball":        11000,
	"Chaos rune":        25000,
	"Coal":              13000,
	"Cosmic rune":       25000,
	"Death rune":        25000,
	"Dragon bones":      7500,
	"Dragon claws":      8,
	"Feather":           30000,
	"Fire rune":         25000,
	"Iron ore":          25000,
	"Karambwan":         13000,
	"Law rune":          25000,
	"Magic logs":        12000,
	"Manta ray":         10000,
	"Nature rune":       25000,
	"Prayer potion(4)":  2000,
	"Pure essence":      25000,
	"Ranarr weed":       13000,
	"Rune platebody":    70,
	"Saradomin brew(4)": 2000,
	"Shark":             10000,
	"Snapdragon":        13000,
	"Super restore(4)":  2000,
	"Toxic blowpipe":    8,
	"Twisted bow":       8,
	"Yew logs":          25000,
	"Zulrah's scales":   30000,
}

// BuyLimits is a name -> limit lookup. It is filled once per process and
// read concurrently afterwards.
type BuyLimits struct {
	mu     sync.RWMutex
	limits map[string]int64
	pinned map[string]bool
}

// NewBuyLimits returns a table seeded with the fallback limits.
func NewBuyLimits() *BuyLimits {
	b := &BuyLimits{
		limits: make(map[string]int64, len(fallbackBuyLimits)),
		pinned: make(map[string]bool),
	}
	for name, limit := range fallbackBuyLimits {
		b.limits[strings.ToLower(name)] = limit
	}
	return b
}

// LoadBuyLimits returns the fallback table overlaid with the YAML file at
// path, a flat mapping of item name to limit. An empty path skips the file.
func LoadBuyLimits(path string) (*BuyLimits, error) {
	b := NewBuyLimits()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("failed to read buy limits file: %w", err)
	}
	var fromFile map[string]int64
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return b, fmt.Errorf("failed to parse buy limits file: %w", err)
	}
	b.mu.Lock()
	for name, limit := range fromFile {
		if limit <= 0 {
			continue
		}
		key := strings.ToLower(name)
		b.limits[key] = limit
		b.pinned[key] = true
	}
	b.mu.Unlock()
	return b, nil
}

// Merge adds limits reported by the price feed. Entries loaded from the
// limits file win; non-positive limits are ignored.
func (b *BuyLimits) Merge(limits map[string]int64) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, limit := range limits {
		if limit <= 0 {
			continue
		}
		key := strings.ToLower(name)
		if b.pinned[key] {
			continue
		}
		b.limits[key] = limit
	}
}

// Lookup returns the buy limit for name, or DefaultBuyLimit when unlisted.
func (b *BuyLimits) Lookup(name string) int64 {
	if b == nil {
		return DefaultBuyLimit
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if limit, ok := b.limits[strings.ToLower(name)]; ok {
		return limit
	}
	return DefaultBuyLimit
}

// Len is the number of listed items.
func (b *BuyLimits) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.limits)
}
