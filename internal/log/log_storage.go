// log_storage.go persists audit entries in their own SQLite file.
//
// Separated from log.go to isolate database concerns. log.go provides the
// fluent API and the package-level entry points; this file owns the schema,
// the connection and the SQL. The session column holds a hash of the data
// directory so entries from several vela instances can share one log
// without exposing paths.
//
// Design: the log lives apart from vela.db so a locked or corrupt audit
// file never blocks the launcher. Write failures go to stderr and are
// otherwise ignored. Timestamps are unix milliseconds.

package log

import (
	"context"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

// Logger writes audit log entries to a SQLite database.
type Logger struct {
	db      *sql.DB
	session string
}

// Filter selects entries for Query, Count and the "vela log" command. Zero
// fields match everything.
type Filter struct {
	Source string    // prefix, so "plugin:" matches every plugin event
	Plugin string    // exact plugin id
	Failed bool      // only entries that recorded an error
	Since  time.Time // started at or after
	Before time.Time // started strictly before
	Limit  int
}

//go:embed sql/*.sql
var schema embed.FS

// dsnPragmas are applied by the driver to every connection it opens. The
// CLI, the MCP server and the HTTP API may all append at once.
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func openLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, err
	}
	if err := upgrade(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit log schema: %w", err)
	}
	return &Logger{db: db}, nil
}

// upgrade brings the log file up to the newest embedded migration.
func upgrade(db *sql.DB) error {
	src, err := iofs.New(schema, "sql")
	if err != nil {
		return err
	}
	drv, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return err
	}
	// Not closed: closing the migrator closes db.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (l *Logger) write(e Entry) {
	var detail *string
	if len(e.Detail) > 0 {
		if b, err := json.Marshal(e.Detail); err == nil {
			s := string(b)
			detail = &s
		}
	}

	_, err := l.db.Exec(`
		INSERT INTO log (start, end, session, source, action, plugin, target, success, error, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Start.UnixMilli(), e.End.UnixMilli(), l.session, e.Source, e.Action,
		nullable(e.Plugin), nullable(e.Target),
		e.Success, nullable(e.Error), detail,
	)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "vela: audit log write failed: %v\n", err)
	}
}

// where renders f as a WHERE clause and its arguments.
func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Source != "" {
		conds = append(conds, `substr(source, 1, ?) = ?`)
		args = append(args, len(f.Source), f.Source)
	}
	if f.Plugin != "" {
		conds = append(conds, `plugin = ?`)
		args = append(args, f.Plugin)
	}
	if f.Failed {
		conds = append(conds, `success = 0`)
	}
	if !f.Since.IsZero() {
		conds = append(conds, `start >= ?`)
		args = append(args, f.Since.UnixMilli())
	}
	if !f.Before.IsZero() {
		conds = append(conds, `start < ?`)
		args = append(args, f.Before.UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (l *Logger) query(ctx context.Context, f Filter) ([]Entry, error) {
	where, args := f.where()
	q := `SELECT id, start, end, session, source, action, plugin, target, success, error, detail
		FROM log` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                             Entry
			start, end                    int64
			plugin, target, errMsg, extra sql.NullString
		)
		if err := rows.Scan(&e.ID, &start, &end, &e.Session, &e.Source, &e.Action,
			&plugin, &target, &e.Success, &errMsg, &extra); err != nil {
			return nil, err
		}
		e.Start, e.End = time.UnixMilli(start), time.UnixMilli(end)
		e.Plugin, e.Target, e.Error = plugin.String, target.String, errMsg.String
		if extra.Valid {
			// Entries are written by this package, so a bad detail column
			// only loses the detail.
			_ = json.Unmarshal([]byte(extra.String), &e.Detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *Logger) count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM log`+where, args...).Scan(&n)
	return n, err
}

func (l *Logger) prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM log WHERE start < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// dbPathFunc returns the database path. Tests override it to use a temp
// directory.
var dbPathFunc = defaultDBPath

// dataDir is set by SetDir and wins over VELA_DATA_DIR.
var dataDir string

// SetDir places the log under dir/log. Empty restores the default. Takes
// effect at the next Open.
func SetDir(dir string) {
	mu.Lock()
	defer mu.Unlock()
	dataDir = dir
}

func defaultDBPath() string {
	dir := dataDir
	if dir == "" {
		dir = os.Getenv("VELA_DATA_DIR")
	}
	if dir != "" {
		return filepath.Join(dir, "log", "vela-log.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".vela", "log", "vela-log.db")
	}
	return filepath.Join(home, ".vela", "log", "vela-log.db")
}

func dbPath() string {
	return dbPathFunc()
}

// DBPath returns the path to the log database.
func DBPath() string {
	return dbPath()
}

// hash returns 16 hex characters of BLAKE2b-64.
func hash(s string) string {
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic("blake2b.New failed: " + err.Error())
	}
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// nullable stores empty strings as NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
