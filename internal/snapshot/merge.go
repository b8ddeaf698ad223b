// Package snapshot maintains the canonical listing snapshot: one record per
// listing URL, carrying the most recently advertised state.
package snapshot

import (
	"github.com/sells-group/listing-etl/internal/model"
)

// Merge combines the prior snapshot with a new batch, keeping one listing per
// URL. The listing with the latest posting date wins; a missing date loses to
// any dated listing. On a tie the later listing in prior-then-batch order
// wins, so a fresh scrape replaces an equally dated stored record.
//
// Output follows the order in which each URL first appeared, which makes
// Merge(s, nil) return s unchanged when s is already unique.
func Merge(prior, batch []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(prior)+len(batch))
	pos := make(map[string]int, len(prior)+len(batch))

	add := func(l model.Listing) {
		i, seen := pos[l.URL]
		if !seen {
			pos[l.URL] = len(out)
			out = append(out, l)
			return
		}
		if !postedBefore(l, out[i]) {
			out[i] = l
		}
	}

	for _, l := range prior {
		add(l)
	}
	for _, l := range batch {
		add(l)
	}
	return out
}

// postedBefore reports whether a was posted strictly before b.
func postedBefore(a, b model.Listing) bool {
	switch {
	case a.PostedOn == nil && b.PostedOn == nil:
		return false
	case a.PostedOn == nil:
		return true
	case b.PostedOn == nil:
		return false
	default:
		return a.PostedOn.Before(*b.PostedOn)
	}
}
