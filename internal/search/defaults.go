// defaults.go builds the list shown for an empty query.
//
// Provider defaults are sorted by score, but an item used within the last
// day is allowed to jump ahead of one that scores less than 15 points
// higher. The top of the list then mixes plugin and application results so
// neither source crowds out the other.

package search

import (
	"math"
	"sort"
	"time"
)

const (
	recentWindow   = 24 * time.Hour
	recencyMargin  = 15
	leadExtensions = 3
	leadApps       = 2
	poolPerSource  = 5
)

// Recent reports whether lastUsed falls within the recency window before now.
func Recent(lastUsed, now time.Time) bool {
	return !lastUsed.IsZero() && now.Sub(lastUsed) < recentWindow
}

// SortDefaults orders default results by score, preferring recently used
// items when scores are within the recency margin.
func SortDefaults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if math.Abs(b.Score-a.Score) < recencyMargin && a.RecentlyUsed != b.RecentlyUsed {
			return a.RecentlyUsed
		}
		return a.Score > b.Score
	})
}

// Interleave picks the lead plugin and application results from an already
// sorted list, then fills up to limit with the remaining top items, skipping
// any source and title pair already taken.
func Interleave(sorted []Result, limit int) []Result {
	var exts, apps []Result
	for _, r := range sorted {
		switch r.Source {
		case SourceExtension:
			if len(exts) < poolPerSource {
				exts = append(exts, r)
			}
		case SourceApplication:
			if len(apps) < poolPerSource {
				apps = append(apps, r)
			}
		}
	}

	out := make([]Result, 0, limit)
	out = append(out, exts[:min(leadExtensions, len(exts))]...)
	out = append(out, apps[:min(leadApps, len(apps))]...)

	seen := make(map[string]bool, len(out))
	for _, r := range out {
		seen[r.shortKey()] = true
	}
	for _, r := range sorted {
		if len(out) >= limit {
			break
		}
		k := r.shortKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
