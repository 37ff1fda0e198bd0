// ==============================================
// File: internal/feed/filter.go
// ==============================================
package feed

import "time"

// Filter decides which launch events are worth sniping.
type Filter struct {
	// MaxAge is the staleness budget from creation to evaluation.
	MaxAge time.Duration
	// RequireSocials demands twitter, telegram and website links that
	// are all present and pairwise distinct. Copy-pasted links are the
	// signature of low-effort launches.
	RequireSocials bool
}

// Eligible reports whether the coin passes the filter at time now.
func (f Filter) Eligible(coin *NewCoin, now time.Time) bool {
	age := now.UnixMilli() - coin.CreatedTimestamp
	if age > f.MaxAge.Milliseconds() {
		return false
	}

	if !f.RequireSocials {
		return true
	}

	socials := []*string{coin.Twitter, coin.Telegram, coin.Website}
	seen := make(map[string]bool, len(socials))
	for _, s := range socials {
		if s == nil || *s == "" {
			return false
		}
		if seen[*s] {
			return false
		}
		seen[*s] = true
	}
	return true
}
