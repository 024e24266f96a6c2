// Package log provides the audit trail for vela operations.
// Entries are stored in ~/.vela/log/vela-log.db and record command and
// action executions, view navigation, plugin state changes and index
// maintenance, whether triggered from the CLI, MCP or HTTP surfaces.
//
// Diagnostics (debug output, warnings) go through log/slog instead; this
// package is only for the durable "what happened" record, which "vela log"
// reads back and "vela vacuum" trims.
//
// # Fluent API
//
//	log.Event("command:execute", "execute").
//		Plugin(c.PluginID).
//		Target(objectID).
//		Detail("args", args).
//		Write(err)
//
// The source parameter follows the format "{area}:{operation}", for example
// "command:execute", "nav:push", "plugin:disable" or "mcp:vela_search".
package log

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by the read and prune functions before Open.
var ErrClosed = errors.New("audit log not open")

var (
	global *Logger
	mu     sync.Mutex
)

// Entry is one audited operation.
type Entry struct {
	ID      int64  `json:"id,omitempty"`
	Session string `json:"session,omitempty"`
	Source  string `json:"source"`
	Action  string `json:"action"`
	Plugin  string `json:"plugin,omitempty"`
	Target  string `json:"target,omitempty"` // object id, action id or view path

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// Duration is how long the operation took.
func (e Entry) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Builder constructs a log entry using a fluent API.
type Builder struct {
	entry Entry
}

// Event starts an entry for an operation. The clock starts now.
func Event(source, action string) *Builder {
	return &Builder{entry: Entry{Source: source, Action: action, Start: time.Now()}}
}

func (b *Builder) Plugin(id string) *Builder {
	b.entry.Plugin = id
	return b
}

func (b *Builder) Target(target string) *Builder {
	b.entry.Target = target
	return b
}

// Detail adds one key to the entry's detail map.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write stops the clock and records the entry; err decides success.
func (b *Builder) Write(err error) {
	b.entry.End = time.Now()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global logger. Safe to call multiple times. Callers
// usually only warn on error: auditing is best effort.
func Open() error {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		return nil
	}
	l, err := openLogger(dbPath())
	if err != nil {
		return err
	}
	global = l
	return nil
}

// SetSession tags subsequent entries with a hash of dir, typically the
// data directory of the running instance.
func SetSession(dir string) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.session = hash(dir)
	}
}

// current returns the open logger, or nil.
func current() *Logger {
	mu.Lock()
	defer mu.Unlock()
	return global
}

// Log writes an entry. A no-op before Open.
func Log(e Entry) {
	if l := current(); l != nil {
		l.write(e)
	}
}

// Query returns the entries matching f, newest first.
func Query(ctx context.Context, f Filter) ([]Entry, error) {
	l := current()
	if l == nil {
		return nil, ErrClosed
	}
	return l.query(ctx, f)
}

// Count reports how many entries match f. Limit is ignored.
func Count(ctx context.Context, f Filter) (int, error) {
	l := current()
	if l == nil {
		return 0, ErrClosed
	}
	return l.count(ctx, f)
}

// Prune deletes entries that started before the cutoff.
func Prune(ctx context.Context, before time.Time) (int64, error) {
	l := current()
	if l == nil {
		return 0, ErrClosed
	}
	return l.prune(ctx, before)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}
