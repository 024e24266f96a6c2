package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IsEnabled reports the stored flag for id. Plugins without a stored state
// are enabled.
func (s *SQLiteStore) IsEnabled(ctx context.Context, id string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, `SELECT enabled FROM plugin_state WHERE id = ?`, id).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read plugin state %s: %w", id, err)
	}
	return enabled, nil
}

// SetEnabled stores the enabled flag for id.
func (s *SQLiteStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plugin_state (id, enabled, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`,
		id, enabled, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write plugin state %s: %w", id, err)
	}
	return nil
}

// Forget drops the stored state of id. Forgetting an unknown id returns
// ErrNotFound.
func (s *SQLiteStore) Forget(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plugin_state WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("forget plugin state %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// States lists every stored plugin state.
func (s *SQLiteStore) States(ctx context.Context) ([]PluginState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, enabled, updated_at FROM plugin_state ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list plugin state: %w", err)
	}
	defer rows.Close()

	var out []PluginState
	for rows.Next() {
		var p PluginState
		if err := rows.Scan(&p.ID, &p.Enabled, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plugin state: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
