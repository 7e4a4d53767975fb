package ge

import "strings"

// DefaultExclusions are never scored regardless of filters.
var DefaultExclusions = []string{
	"Old school bond",
	"Coins",
	"Platinum token",
	"Bounty crate",
	"Clue scroll",
	"Casket",
	"Mystery box",
}

// Exclusions matches item names against a fixed list, case-insensitively and
// by substring.
type Exclusions struct {
	terms []string
}

// NewExclusions builds a matcher over DefaultExclusions plus extra.
func NewExclusions(extra ...string) *Exclusions {
	terms := make([]string, 0, len(DefaultExclusions)+len(extra))
	for _, t := range append(append([]string{}, DefaultExclusions...), extra...) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &Exclusions{terms: terms}
}

// Excluded reports whether name contains any excluded term.
func (e *Exclusions) Excluded(name string) bool {
	if e == nil {
		return false
	}
	lower := strings.ToLower(name)
	for _, t := range e.terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
