// schema.go applies the embedded schema migrations.
//
// Migrations are the files in sql/, named NNN_description.up.sql and applied
// in numeric order by golang-migrate. The applied version lives in the
// schema_migrations table, so opening an up-to-date database runs no DDL and
// a newer vela adding 004_*.up.sql upgrades an older file in place.
//
// Design: each file runs in its own transaction. A failing file rolls back
// but leaves the version marked dirty, and Init refuses to continue until
// the file is fixed, matching golang-migrate's behaviour elsewhere.

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var schemas embed.FS

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDirtySchema reports a migration that failed part way.
var ErrDirtySchema = errors.New("schema migration incomplete")

const migrationsTable = "schema_migrations"

// migrateUp applies every migration in dir newer than the recorded version.
func migrateUp(db *sql.DB, fsys fs.FS, dir string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	drv, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	// m.Close would close db, which the store still owns.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}

	err = m.Up()
	var dirty migrate.ErrDirty
	switch {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
		return nil
	case errors.As(err, &dirty):
		return fmt.Errorf("%w: version %d", ErrDirtySchema, dirty.Version)
	default:
		return fmt.Errorf("apply migrations: %w", err)
	}
}

// schemaVersion reads the recorded version without creating anything, so it
// is safe on a database vela has never initialised.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, migrationsTable).Scan(&n)
	if err != nil || n == 0 {
		return 0, err
	}

	var (
		v     int
		dirty bool
	)
	err = db.QueryRowContext(ctx, `SELECT version, dirty FROM `+migrationsTable+` LIMIT 1`).Scan(&v, &dirty)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return v, fmt.Errorf("%w: version %d", ErrDirtySchema, v)
	}
	return v, nil
}

// SchemaVersion reports the number of the last applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return schemaVersion(ctx, s.db)
}
