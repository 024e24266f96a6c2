// Package duration provides parsing for human-readable duration strings.
//
// Users specify retention as "30d" (days), "4w" (weeks), "3m" (months) or
// "1y" (years) rather than Go's time.Duration format, which stops at hours.
// Go durations ("36h", "90m0s") are accepted too so config values and flags
// share one syntax.
package duration

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalid is returned for strings that are neither form.
var ErrInvalid = errors.New("invalid duration")

const day = 24 * time.Hour

var calendar = regexp.MustCompile(`^(\d+)([dwmy])$`)

// Parse parses "Nd", "Nw", "Nm" (30 days) or "Ny" (365 days), falling back
// to time.ParseDuration. Negative durations are rejected.
func Parse(s string) (time.Duration, error) {
	if m := calendar.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalid, s)
		}
		unit := map[string]time.Duration{"d": day, "w": 7 * day, "m": 30 * day, "y": 365 * day}[m[2]]
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (use 30d, 4w, 3m, 1y or a Go duration such as 36h)", ErrInvalid, s)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalid, s)
	}
	return d, nil
}
