// sqlite_ops.go opens the database and runs transactions.
//
// Separated so the driver import and the connection pragmas live in one
// place. The launcher writes one usage row per selection and reads the index
// on every keystroke, often from the CLI, the MCP server and the HTTP API at
// once, so the pragmas favour concurrent readers over write throughput.

package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists launcher state in a single SQLite file. The search
// index uses FTS5.
type SQLiteStore struct {
	db *sql.DB
}

// pragmas are applied in order on the store's only connection.
var pragmas = []struct{ stmt, what string }{
	// Readers keep working while a usage increment commits.
	{`PRAGMA journal_mode=WAL`, "WAL mode"},
	// Another vela process may hold the write lock briefly.
	{`PRAGMA busy_timeout=5000`, "busy timeout"},
	// Safe with WAL; a crash loses at most the last usage increment.
	{`PRAGMA synchronous=NORMAL`, "synchronous mode"},
}

// Open opens the database file at path. The caller must Close the store and
// should call Init before first use.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// Pragmas are per connection, and index syncs running in parallel would
	// otherwise race to upgrade read transactions.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting %s: %w", p.what, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Init applies any schema migrations the file has not seen yet.
func (s *SQLiteStore) Init() error {
	return migrateUp(s.db, schemas, "sql")
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the connection to plugins that keep tables of their own. The
// core tables are owned by this package.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Tx runs fn in a transaction, committing when fn returns nil and rolling
// back otherwise.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
