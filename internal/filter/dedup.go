package filter

import "github.com/rsilvagit/go-airdrop/internal/model"

// Dedup keeps the first airdrop for each key and preserves input order.
// Callers concatenate sources in priority order so the higher-priority
// record wins.
func Dedup(airdrops []model.Airdrop, mode model.DedupMode) (unique []model.Airdrop, dropped int) {
	seen := make(map[string]struct{}, len(airdrops))
	for _, a := range airdrops {
		key := a.Key(mode)
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, a)
	}
	return unique, dropped
}
