// rank.go implements the unified scoring applied to merged provider results.
//
// Providers score on different scales, so every score is first normalized
// onto 0-100, then adjusted for title matches and usage, then clamped. The
// final sort is by score alone and is stable: equal scores keep the order in
// which providers returned them.

package search

import (
	"math"
	"sort"
	"strings"
)

const (
	exactBonus    = 30
	prefixBonus   = 15
	maxUsageBoost = 20
	maxScore      = 100

	maxDefaultUsageBoost = 40
	recencyBonus         = 10
	defaultBase          = 60
)

// UsageSnapshot holds usage counts at the time of ranking. Applications are
// keyed by title, plugin results by plugin id.
type UsageSnapshot struct {
	Apps       map[string]int
	Extensions map[string]int
}

func (u UsageSnapshot) count(r Result) int {
	switch r.Source {
	case SourceApplication:
		return u.Apps[r.Title]
	case SourceExtension:
		if r.PluginID == "" {
			return 0
		}
		return u.Extensions[r.PluginID]
	}
	return 0
}

// Normalize maps a provider score onto 0-100. Scores of 1 or less are
// treated as fractions.
func Normalize(score float64) float64 {
	if score <= 1 {
		return score * 100
	}
	return score
}

// UsageBoost is the ranking bonus for a source used n times.
func UsageBoost(n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(maxUsageBoost, math.Log2(float64(n)+1)*5)
}

// DefaultScore is the score providers give their empty-query results:
// a base of 60, up to 40 for usage and 10 more if used in the last day.
func DefaultScore(n int, recent bool) float64 {
	s := defaultBase + math.Min(maxDefaultUsageBoost, math.Log2(float64(n)+1)*10)
	if recent {
		s += recencyBonus
	}
	return s
}

// Rank rescores results in place against query and sorts them by score,
// highest first. Title bonuses compare against query as typed, surrounding
// spaces included, matching the cache key Search uses.
func Rank(results []Result, query string, usage UsageSnapshot) {
	q := strings.ToLower(query)
	for i := range results {
		r := &results[i]
		score := Normalize(r.Score)

		title := strings.ToLower(r.Title)
		if q != "" && title == q {
			score += exactBonus
		}
		if q != "" && strings.HasPrefix(title, q) {
			score += prefixBonus
		}

		if n := usage.count(*r); n > 0 {
			score += UsageBoost(n)
			r.UsageCount = n
		}

		r.Score = math.Min(maxScore, score)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
