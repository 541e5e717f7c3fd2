package model

import (
	"strings"
	"time"
)

// DedupMode selects how airdrop names are compared when collapsing duplicates.
type DedupMode string

const (
	// DedupExact compares names byte for byte.
	DedupExact DedupMode = "exact"
	// DedupNormalized compares names case-insensitively with whitespace collapsed.
	DedupNormalized DedupMode = "normalized"
)

// Airdrop represents a single candidate listing scraped from any source.
type Airdrop struct {
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	Status       string    `json:"status,omitempty"`
	Value        string    `json:"value,omitempty"`
	Link         string    `json:"link,omitempty"`
	DiscoveredAt time.Time `json:"timestamp"`
}

// Key returns the deduplication key for this airdrop under the given mode.
// Unknown modes fall back to exact comparison.
func (a Airdrop) Key(mode DedupMode) string {
	if mode == DedupNormalized {
		return NormalizeName(a.Name)
	}
	return a.Name
}

// NormalizeName lowercases s and collapses runs of whitespace into single spaces.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// IsFree reports whether the value text advertises a zero-cost airdrop.
func (a Airdrop) IsFree() bool {
	v := strings.ToLower(a.Value)
	return strings.Contains(v, "free") || strings.Contains(v, "$0")
}
