// Package vacuum forgets usage counters that have gone stale and compacts
// the database. Usage counts only ever grow, so an application used daily
// a year ago would otherwise outrank today's favourites indefinitely.
//
// An unscoped vacuum also trims audit log entries older than the same
// cutoff. The audit log is optional; when it is not open only usage is
// touched.
package vacuum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/progress"
	"github.com/jpl-au/vela/internal/store"
)

// Scopes lists the usage scopes vacuum knows about.
var Scopes = []string{store.ScopeApps, store.ScopeExtensions}

// Options configures vacuum scope and safety checks.
type Options struct {
	OlderThan time.Duration // Keep counters used more recently than this
	Scope     string        // Limit to one usage scope; empty means all
	DryRun    bool          // Preview without deleting
	Now       func() time.Time
}

// Result reports what was removed, enabling confirmation and logging.
type Result struct {
	Forgotten int      `json:"forgotten"`
	Names     []string `json:"names,omitempty"` // "<scope>/<name>", populated in dry-run mode
	Audit     int      `json:"audit,omitempty"` // audit log entries pruned
	DryRun    bool     `json:"dry_run,omitempty"`
}

// Run forgets stale usage counters and then vacuums the database file. This
// is irreversible; use DryRun first to preview what will be forgotten.
func Run(ctx context.Context, w io.Writer, st *store.SQLiteStore, opts Options) (Result, error) {
	scopes := Scopes
	if opts.Scope != "" {
		scopes = []string{opts.Scope}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := now().Add(-opts.OlderThan)

	if opts.DryRun {
		return preview(ctx, w, st, scopes, cutoff, opts.Scope == "")
	}

	var result Result
	err := progress.While("Vacuuming", func() error {
		for _, scope := range scopes {
			n, err := st.Usage(scope).Prune(ctx, cutoff)
			if err != nil {
				return err
			}
			result.Forgotten += int(n)
		}
		if opts.Scope == "" {
			n, err := log.Prune(ctx, cutoff)
			if err != nil && !errors.Is(err, log.ErrClosed) {
				return fmt.Errorf("prune audit log: %w", err)
			}
			result.Audit = int(n)
		}
		return st.Vacuum(ctx)
	})
	if err != nil {
		return result, err
	}

	if result.Forgotten == 0 {
		fmt.Fprintln(w, "No stale usage to forget")
	} else {
		fmt.Fprintf(w, "Forgot %d usage counter(s)\n", result.Forgotten)
	}
	if result.Audit > 0 {
		fmt.Fprintf(w, "Pruned %d audit log entr%s\n", result.Audit, plural(result.Audit))
	}
	return result, nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// preview lists what Run would forget.
func preview(ctx context.Context, w io.Writer, st *store.SQLiteStore, scopes []string, cutoff time.Time, audit bool) (Result, error) {
	result := Result{DryRun: true}
	for _, scope := range scopes {
		entries, err := st.Usage(scope).Stale(ctx, cutoff)
		if err != nil {
			return result, err
		}
		for _, e := range entries {
			name := scope + "/" + e.Name
			fmt.Fprintf(w, "Would forget: %s (used %d time(s), last %s)\n",
				name, e.Count, e.LastUsed.Format("2006-01-02 15:04"))
			result.Names = append(result.Names, name)
		}
	}
	result.Forgotten = len(result.Names)

	if result.Forgotten == 0 {
		fmt.Fprintln(w, "No stale usage to forget")
	} else {
		fmt.Fprintf(w, "\nWould forget %d usage counter(s)\n", result.Forgotten)
	}

	if audit {
		n, err := log.Count(ctx, log.Filter{Before: cutoff})
		if err != nil && !errors.Is(err, log.ErrClosed) {
			return result, fmt.Errorf("count audit log: %w", err)
		}
		result.Audit = n
		if n > 0 {
			fmt.Fprintf(w, "Would prune %d audit log entr%s\n", n, plural(n))
		}
	}
	return result, nil
}
