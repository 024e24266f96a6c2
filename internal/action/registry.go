// Package action holds the action registry: user-invokable operations that
// are shown according to the launcher's current context rather than matched
// against the query.
//
// The registry keeps one master table and a derived, context-filtered list.
// The filtered list is recomputed after every mutation (and after a real
// context change) and published to subscribers.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jpl-au/vela/internal/event"
	"github.com/jpl-au/vela/internal/log"
)

// Context scopes where an action is shown.
type Context string

const (
	Core          Context = "core"   // main search screen
	Global        Context = "global" // main screen and plugin views
	ExtensionView Context = "view"   // inside a plugin view
	CommandResult Context = "result" // attached to a command result
)

// Built-in action ids. These are registered at startup and never removed.
const (
	SettingsID    = "settings"
	ResetSearchID = "reset_search"
)

var (
	// ErrNotFound is returned when executing an unknown action id.
	ErrNotFound = errors.New("action not found")
	// ErrInvalid is returned when registering an action without id or Execute.
	ErrInvalid = errors.New("invalid action")
)

// ParseContext validates s as a Context.
func ParseContext(s string) (Context, error) {
	switch c := Context(s); c {
	case Core, Global, ExtensionView, CommandResult:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown context %q", ErrInvalid, s)
	}
}

// Action is an executable, context-scoped operation.
type Action struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Icon        string  `json:"icon,omitempty"`
	Description string  `json:"description,omitempty"`
	PluginID    string  `json:"plugin_id,omitempty"`
	Context     Context `json:"context"`
	BuiltIn     bool    `json:"builtin,omitempty"`

	Execute func(ctx context.Context) error `json:"-"`
}

// Registry is the master action table. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
	order   []string
	current Context
	visible []Action
	logger  *slog.Logger
	feed    event.Feed[[]Action]
}

// New creates a registry in the Core context.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		actions: make(map[string]*Action),
		current: Core,
		logger:  logger,
	}
}

// Register adds or replaces an action. An empty Context defaults to
// ExtensionView.
func (r *Registry) Register(a Action) error {
	if a.ID == "" || a.Execute == nil {
		return fmt.Errorf("%w: id and execute are required", ErrInvalid)
	}
	if a.Context == "" {
		a.Context = ExtensionView
	}

	r.mu.Lock()
	if prev, ok := r.actions[a.ID]; ok && prev.BuiltIn && !a.BuiltIn {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s is a built-in action", ErrInvalid, a.ID)
	}
	if _, ok := r.actions[a.ID]; !ok {
		r.order = append(r.order, a.ID)
	}
	cp := a
	r.actions[a.ID] = &cp
	r.recompute()
	r.mu.Unlock()

	r.logger.Debug("registered action", "action", a.ID, "plugin", a.PluginID, "context", a.Context)
	r.publish()
	return nil
}

// RegisterBuiltin registers a core action that survives Clear.
func (r *Registry) RegisterBuiltin(a Action) error {
	a.BuiltIn = true
	if a.Context == "" {
		a.Context = Core
	}
	return r.Register(a)
}

// Unregister removes an action. Unknown ids are logged and ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	if _, ok := r.actions[id]; !ok {
		r.mu.Unlock()
		r.logger.Warn("unregister of unknown action", "action", id)
		return
	}
	r.remove(id)
	r.recompute()
	r.mu.Unlock()

	r.publish()
}

// UnregisterPlugin removes every action owned by pluginID.
func (r *Registry) UnregisterPlugin(pluginID string) int {
	r.mu.Lock()
	n := 0
	for _, id := range append([]string(nil), r.order...) {
		if a := r.actions[id]; a.PluginID == pluginID && !a.BuiltIn {
			r.remove(id)
			n++
		}
	}
	if n > 0 {
		r.recompute()
	}
	r.mu.Unlock()

	if n > 0 {
		r.publish()
	}
	return n
}

// Clear removes every action except the built-ins.
func (r *Registry) Clear() {
	r.mu.Lock()
	for _, id := range append([]string(nil), r.order...) {
		if !r.actions[id].BuiltIn {
			r.remove(id)
		}
	}
	r.recompute()
	r.mu.Unlock()
	r.publish()
}

func (r *Registry) remove(id string) {
	delete(r.actions, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// SetContext switches the current context. Setting the context it already
// has does nothing.
func (r *Registry) SetContext(c Context) {
	r.mu.Lock()
	if r.current == c {
		r.mu.Unlock()
		return
	}
	r.current = c
	r.recompute()
	r.mu.Unlock()

	r.logger.Debug("action context changed", "context", c)
	r.publish()
}

// Context returns the current context.
func (r *Registry) Context() Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// All returns every registered action, regardless of context.
func (r *Registry) All() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Action, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.actions[id])
	}
	return out
}

// Visible returns the actions shown in the current context.
func (r *Registry) Visible() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Action(nil), r.visible...)
}

// Get returns the action registered under id.
func (r *Registry) Get(id string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return Action{}, false
	}
	return *a, true
}

// Subscribe registers fn to receive the visible list after each change.
func (r *Registry) Subscribe(fn func([]Action)) func() {
	return r.feed.Subscribe(fn)
}

func (r *Registry) publish() {
	r.feed.Publish(r.Visible())
}

// recompute rebuilds the visible list. Caller holds the write lock.
func (r *Registry) recompute() {
	c := r.current

	// Actions targeting the current context that are neither core nor
	// global take precedence over the generic core actions.
	specific := 0
	for _, id := range r.order {
		a := r.actions[id]
		if a.Context == c && a.Context != Core && a.Context != Global {
			specific++
		}
	}

	r.visible = r.visible[:0]
	for _, id := range r.order {
		a := r.actions[id]
		if visible(a.Context, c, specific) {
			r.visible = append(r.visible, *a)
		}
	}
}

func visible(target, current Context, specific int) bool {
	switch {
	case target == Core && current == Core:
		return specific == 0
	case target == current:
		return true
	case target == Global:
		return current == Core || current == ExtensionView
	default:
		return false
	}
}

// Execute runs the action registered under id. Errors are logged and
// returned to the caller.
func (r *Registry) Execute(ctx context.Context, id string) error {
	a, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	r.logger.Info("executing action", "action", id, "plugin", a.PluginID)
	err := a.Execute(ctx)
	log.Event("action:execute", "execute").Plugin(a.PluginID).Target(id).Write(err)
	if err != nil {
		r.logger.Error("action failed", "action", id, "plugin", a.PluginID, "error", err)
		return fmt.Errorf("action %s: %w", id, err)
	}
	return nil
}
