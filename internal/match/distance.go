// distance.go provides the approximate-string primitive behind the fuzzy
// matcher.
//
// The distance is the Levenshtein edit count between the lower-cased strings
// divided by the longer string's rune length, giving 0 for identical input
// and 1 for nothing in common. diffmatchpatch computes the edit script.

package match

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Distance returns the normalised edit distance between a and b in [0, 1].
func Distance(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 0
	}
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	d := float64(dmp.DiffLevenshtein(diffs)) / float64(n)
	if d > 1 {
		d = 1
	}
	return d
}
