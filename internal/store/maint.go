// maint.go implements maintenance of the usage counters and the database
// file: stale-counter pruning, VACUUM and WAL checkpoints.
//
// Separated from usage.go because pruning is an occasional user-driven
// operation, while the counters in usage.go are written on every launch.
//
// Design: a counter that has not been used since the cutoff is deleted
// outright rather than decayed. Ranking treats a missing counter as zero,
// so a pruned item simply ranks as if it were never used.

package store

import (
	"context"
	"fmt"
	"time"
)

// Stale returns the counters in the scope last used before cutoff, oldest
// first.
func (u *Usage) Stale(ctx context.Context, cutoff time.Time) ([]UsageEntry, error) {
	rows, err := u.db.QueryContext(ctx,
		`SELECT name, count, last_used FROM usage WHERE scope = ? AND last_used < ? ORDER BY last_used, name`,
		u.scope, cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list stale usage %s: %w", u.scope, err)
	}
	defer rows.Close()

	var out []UsageEntry
	for rows.Next() {
		var e UsageEntry
		var ms int64
		if err := rows.Scan(&e.Name, &e.Count, &ms); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		e.LastUsed = msToTime(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes the counters in the scope last used before cutoff and
// reports how many were removed.
func (u *Usage) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := u.db.ExecContext(ctx,
		`DELETE FROM usage WHERE scope = ? AND last_used < ?`, u.scope, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune usage %s: %w", u.scope, err)
	}
	return res.RowsAffected()
}

// Vacuum rebuilds the database file, returning freed pages to the
// filesystem.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// Checkpoint copies the WAL into the main file and truncates it, leaving a
// single database file after a clean shutdown.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}
