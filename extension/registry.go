// registry.go implements the built-in plugin registration system.
//
// Separated from extension.go to isolate the global registry state and
// thread-safe access patterns. Built-in plugins self-register during init(),
// before main() runs, together with their embedded manifest.
//
// Design: The registry uses panic-on-duplicate following database/sql.Register
// conventions. Registration order is preserved to ensure deterministic
// command ordering across runs, which in turn keeps FindMatch tie-breaking
// stable. The registry only holds factories: instances are created by the
// loader, so nothing here is mutated by loading.

package extension

import (
	"slices"
	"sync"
)

// Builtin is a plugin compiled into the binary.
type Builtin struct {
	ID       string
	Factory  Factory
	Manifest []byte
}

// Registry holds all registered built-in plugins.
var (
	mu       sync.RWMutex
	registry = make(map[string]Builtin)
	order    []string // preserve registration order
)

// Register adds a built-in plugin. Called from init() functions.
//
// Panics on an empty id, a nil factory or a duplicate id. Registration
// happens before main() runs, so these are programmer mistakes rather than
// runtime conditions.
func Register(id string, factory Factory, manifest []byte) {
	mu.Lock()
	defer mu.Unlock()

	if id == "" || factory == nil {
		panic("extension: Register requires an id and a factory")
	}
	if _, exists := registry[id]; exists {
		panic("extension already registered: " + id)
	}

	registry[id] = Builtin{ID: id, Factory: factory, Manifest: slices.Clone(manifest)}
	order = append(order, id)
}

// Builtins returns all registered plugins in registration order.
func Builtins() []Builtin {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]Builtin, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}

// Lookup returns the built-in registered under id.
func Lookup(id string) (Builtin, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := registry[id]
	return b, ok
}

// IsBuiltin reports whether id names a built-in plugin.
func IsBuiltin(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// IDs returns the ids of all registered built-ins.
func IDs() []string {
	mu.RLock()
	defer mu.RUnlock()

	ids := make([]string, len(order))
	copy(ids, order)
	return ids
}
