// interfaces.go defines the storage abstraction for launcher state.
//
// Separated from the SQLite implementation so the manager and the apps
// provider can be tested against fakes. Usage counters have no interface
// here: each consumer declares the two or three methods it reads.

package store

import "context"

// PluginStates persists which plugins the user has turned off.
type PluginStates interface {
	// IsEnabled reports the stored flag. Plugins never toggled are enabled.
	IsEnabled(ctx context.Context, id string) (bool, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	// Forget removes any stored state, used when a plugin is uninstalled.
	Forget(ctx context.Context, id string) error
	States(ctx context.Context) ([]PluginState, error)
}

// Indexer maintains the external search index.
type Indexer interface {
	// Index inserts or updates item. It reports false when the stored entry
	// was already identical.
	Index(ctx context.Context, item IndexItem) (bool, error)
	Delete(ctx context.Context, objectID string) error
	// IndexedIDs lists object ids starting with prefix.
	IndexedIDs(ctx context.Context, prefix string) ([]string, error)
	Reset(ctx context.Context) error
	Query(ctx context.Context, q string, limit int) ([]IndexItem, error)
}

var (
	_ PluginStates = (*SQLiteStore)(nil)
	_ Indexer      = (*SQLiteStore)(nil)
)
