package filter

import (
	"strings"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

// DefaultBlocklist holds the scam indicators rejected out of the box.
var DefaultBlocklist = []string{
	"send eth", "send bnb", "private key", "seed phrase",
	"double your", "guaranteed", "elon musk", "giveaway",
}

// Blocklist rejects airdrops whose name contains any of its terms.
type Blocklist struct {
	terms []string
}

// NewBlocklist lowercases and trims terms, dropping empty ones.
func NewBlocklist(terms []string) *Blocklist {
	b := &Blocklist{terms: make([]string, 0, len(terms))}
	for _, term := range terms {
		term = strings.TrimSpace(strings.ToLower(term))
		if term != "" {
			b.terms = append(b.terms, term)
		}
	}
	return b
}

// Terms returns the normalized blocklist terms.
func (b *Blocklist) Terms() []string {
	return append([]string(nil), b.terms...)
}

// Accept reports whether the airdrop passes the legitimacy check.
func (b *Blocklist) Accept(a model.Airdrop) bool {
	return b.Match(a.Name) == ""
}

// Match returns the first term found in name, or "" when none is.
func (b *Blocklist) Match(name string) string {
	name = strings.ToLower(name)
	for _, term := range b.terms {
		if strings.Contains(name, term) {
			return term
		}
	}
	return ""
}

// Apply keeps the airdrops that pass Accept, preserving order.
func (b *Blocklist) Apply(airdrops []model.Airdrop) (kept []model.Airdrop, rejected int) {
	for _, a := range airdrops {
		if b.Accept(a) {
			kept = append(kept, a)
			continue
		}
		rejected++
	}
	return kept, rejected
}
