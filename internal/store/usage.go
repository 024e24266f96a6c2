// usage.go implements the usage counters that feed search ranking.
//
// Counters are scoped: applications are counted by title and plugins by id
// (plus "<id>:view" for view opens and "<plugin>.<command>" for command
// executions). Each scope is exposed as its own *Usage so consumers never
// pass scope strings around.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Usage is the set of counters in one scope.
type Usage struct {
	db    *sql.DB
	scope string
	now   func() time.Time
}

// Usage returns the counters of scope.
func (s *SQLiteStore) Usage(scope string) *Usage {
	return &Usage{db: s.db, scope: scope, now: time.Now}
}

// RecordUsage increments name's counter and stamps it as used now.
func (u *Usage) RecordUsage(ctx context.Context, name string) error {
	_, err := u.db.ExecContext(ctx, `
		INSERT INTO usage (scope, name, count, last_used) VALUES (?, ?, 1, ?)
		ON CONFLICT(scope, name) DO UPDATE SET count = count + 1, last_used = excluded.last_used`,
		u.scope, name, u.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record usage %s/%s: %w", u.scope, name, err)
	}
	return nil
}

// Touch stamps name as used now without changing its count.
func (u *Usage) Touch(ctx context.Context, name string) error {
	_, err := u.db.ExecContext(ctx, `
		INSERT INTO usage (scope, name, count, last_used) VALUES (?, ?, 0, ?)
		ON CONFLICT(scope, name) DO UPDATE SET last_used = excluded.last_used`,
		u.scope, name, u.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("touch usage %s/%s: %w", u.scope, name, err)
	}
	return nil
}

// Count returns name's counter, zero if it was never used.
func (u *Usage) Count(ctx context.Context, name string) (int, error) {
	var n int
	err := u.db.QueryRowContext(ctx, `SELECT count FROM usage WHERE scope = ? AND name = ?`, u.scope, name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage %s/%s: %w", u.scope, name, err)
	}
	return n, nil
}

// Counts returns every counter in the scope.
func (u *Usage) Counts(ctx context.Context) (map[string]int, error) {
	entries, err := u.Entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.Name] = e.Count
	}
	return out, nil
}

// LastUsed returns the last-used time of every name in the scope.
func (u *Usage) LastUsed(ctx context.Context) (map[string]time.Time, error) {
	entries, err := u.Entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		out[e.Name] = e.LastUsed
	}
	return out, nil
}

// Entries returns every counter in the scope, most used first.
func (u *Usage) Entries(ctx context.Context) ([]UsageEntry, error) {
	rows, err := u.db.QueryContext(ctx,
		`SELECT name, count, last_used FROM usage WHERE scope = ? ORDER BY count DESC, name`, u.scope)
	if err != nil {
		return nil, fmt.Errorf("list usage %s: %w", u.scope, err)
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
