// index.go implements the external search index using SQLite's FTS5 extension.
//
// Separated from usage.go because the index has its own lifecycle: the
// extension manager diffs the registered command ids against IndexedIDs on
// every reload, and the reset action wipes it entirely.
//
// Design: every row stores an xxhash of its indexed fields. Re-indexing an
// unchanged item compares hashes and skips the write, so a full sync after
// each reload only touches rows that actually changed.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// hashItem digests the indexed fields of item.
func hashItem(item IndexItem) int64 {
	d := xxhash.New()
	for _, f := range []string{item.Category, item.Name, item.Extension, item.Keyword, item.Type, item.Path} {
		_, _ = d.WriteString(f)
		_, _ = d.Write([]byte{0})
	}
	return int64(d.Sum64())
}

// Index inserts or updates item. It reports whether a write happened.
func (s *SQLiteStore) Index(ctx context.Context, item IndexItem) (bool, error) {
	if item.ObjectID == "" || item.Name == "" {
		return false, fmt.Errorf("index item: object id and name are required")
	}
	h := hashItem(item)

	changed := false
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRowContext(ctx, `SELECT hash FROM search_items WHERE object_id = ?`, item.ObjectID).Scan(&existing)
		switch {
		case err == nil && existing == h:
			return nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO search_items (object_id, category, name, extension, keyword, type, path, hash, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(object_id) DO UPDATE SET
				category = excluded.category, name = excluded.name, extension = excluded.extension,
				keyword = excluded.keyword, type = excluded.type, path = excluded.path,
				hash = excluded.hash, indexed_at = excluded.indexed_at`,
			item.ObjectID, item.Category, item.Name, item.Extension, item.Keyword, item.Type, item.Path,
			h, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("index %s: %w", item.ObjectID, err)
	}
	return changed, nil
}

// Delete removes objectID from the index. Deleting an id that is not indexed
// returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, objectID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_items WHERE object_id = ?`, objectID)
	if err != nil {
		return fmt.Errorf("delete %s from index: %w", objectID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IndexedIDs lists indexed object ids that start with prefix, in id order.
func (s *SQLiteStore) IndexedIDs(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT object_id FROM search_items WHERE substr(object_id, 1, ?) = ? ORDER BY object_id`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list indexed ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Reset removes every indexed item.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM search_items`); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO search_items_fts(search_items_fts) VALUES ('rebuild')`); err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}
		return nil
	})
}

// Query runs a prefix search over names, keywords and plugin ids, best
// matches first. Each whitespace-separated term must match.
func (s *SQLiteStore) Query(ctx context.Context, q string, limit int) ([]IndexItem, error) {
	match := ftsQuery(q)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.object_id, i.category, i.name, i.extension, i.keyword, i.type, i.path
		FROM search_items_fts f
		JOIN search_items i ON i.rowid = f.rowid
		WHERE search_items_fts MATCH ?
		ORDER BY bm25(search_items_fts)
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var out []IndexItem
	for rows.Next() {
		var it IndexItem
		if err := rows.Scan(&it.ObjectID, &it.Category, &it.Name, &it.Extension, &it.Keyword, &it.Type, &it.Path); err != nil {
			return nil, fmt.Errorf("scan index item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ftsQuery turns free text into an FTS5 expression of quoted prefix terms,
// so operator characters typed by the user are matched literally.
func ftsQuery(q string) string {
	var terms []string
	for _, f := range strings.Fields(q) {
		f = strings.ReplaceAll(f, `"`, `""`)
		terms = append(terms, `"`+f+`"*`)
	}
	return strings.Join(terms, " ")
}
