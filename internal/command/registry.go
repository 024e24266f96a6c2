// Package command holds the command registry: plugin command handlers keyed
// by object id, together with the matchers that decide which command a typed
// query invokes.
//
// Object ids take the form cmd_<pluginId>_<commandId>. They are stable across
// reloads and double as keys in the search index, where the "cmd_" prefix is
// reserved for reconciliation.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jpl-au/vela/internal/event"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/match"
)

// Prefix is the object id prefix reserved for commands in the search index.
const Prefix = "cmd_"

var (
	// ErrNotFound is returned when executing an unregistered object id.
	ErrNotFound = errors.New("command not found")
	// ErrInvalid is returned when registering a command without an id or handler.
	ErrInvalid = errors.New("invalid command")
)

// ObjectID derives the registry key for a plugin command.
func ObjectID(pluginID, commandID string) string {
	return Prefix + pluginID + "_" + commandID
}

// Handler runs a command with the arguments produced by its matcher.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Command is a registered command.
type Command struct {
	ObjectID    string          `json:"object_id"`
	PluginID    string          `json:"plugin_id"`
	CommandID   string          `json:"command_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Trigger     string          `json:"trigger,omitempty"`
	ResultType  string          `json:"result_type,omitempty"`
	Handler     Handler         `json:"-"`
	Matchers    []match.Matcher `json:"-"`
}

// UsageKey is the usage-statistics key for the command.
func (c Command) UsageKey() string {
	return c.PluginID + "." + c.CommandID
}

// UsageRecorder persists usage counts. Implemented by the store.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, name string) error
}

// Registry stores commands in registration order. It is safe for concurrent
// use; listeners receive a snapshot after every mutation.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Command
	order  []string
	usage  UsageRecorder
	logger *slog.Logger
	feed   event.Feed[[]Command]
}

// New creates an empty registry. usage may be nil.
func New(usage UsageRecorder, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byID:   make(map[string]*Command),
		usage:  usage,
		logger: logger,
	}
}

// Register adds or replaces a command. Replacing keeps the original
// registration position, so re-registering is idempotent with respect to
// tie-breaking order.
func (r *Registry) Register(c Command) error {
	if c.ObjectID == "" || c.Handler == nil {
		return fmt.Errorf("%w: object id and handler are required", ErrInvalid)
	}

	r.mu.Lock()
	if _, exists := r.byID[c.ObjectID]; !exists {
		r.order = append(r.order, c.ObjectID)
	}
	cp := c
	r.byID[c.ObjectID] = &cp
	r.mu.Unlock()

	r.logger.Debug("registered command", "command", c.ObjectID, "plugin", c.PluginID)
	r.publish()
	return nil
}

// Unregister removes a command. Unknown ids are logged and ignored.
func (r *Registry) Unregister(objectID string) {
	r.mu.Lock()
	if _, ok := r.byID[objectID]; !ok {
		r.mu.Unlock()
		r.logger.Warn("unregister of unknown command", "command", objectID)
		return
	}
	delete(r.byID, objectID)
	r.removeOrder(objectID)
	r.mu.Unlock()

	r.publish()
}

// UnregisterPlugin removes every command owned by pluginID and returns how
// many were removed.
func (r *Registry) UnregisterPlugin(pluginID string) int {
	r.mu.Lock()
	n := 0
	for _, id := range append([]string(nil), r.order...) {
		if r.byID[id].PluginID == pluginID {
			delete(r.byID, id)
			r.removeOrder(id)
			n++
		}
	}
	r.mu.Unlock()

	if n > 0 {
		r.publish()
	}
	return n
}

// Clear removes all commands.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.byID = make(map[string]*Command)
	r.order = nil
	r.mu.Unlock()
	r.publish()
}

func (r *Registry) removeOrder(id string) {
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Get returns the command registered under objectID.
func (r *Registry) Get(objectID string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[objectID]
	if !ok {
		return Command{}, false
	}
	return *c, true
}

// Commands returns all commands in registration order.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

func (r *Registry) snapshot() []Command {
	out := make([]Command, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Subscribe registers fn to receive the command list after each change.
func (r *Registry) Subscribe(fn func([]Command)) func() {
	return r.feed.Subscribe(fn)
}

func (r *Registry) publish() {
	r.feed.Publish(r.Commands())
}

// FindMatch evaluates every matcher of every command and returns the match
// with the highest confidence, or nil. Commands are visited in registration
// order and only a strictly higher confidence replaces the current best, so
// the earliest registered command wins ties.
func (r *Registry) FindMatch(query string) *match.CommandMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *match.CommandMatch
	for _, id := range r.order {
		c := r.byID[id]
		for _, m := range c.Matchers {
			if !m.CanHandle(query) {
				continue
			}
			got := m.Match(query)
			if got == nil {
				continue
			}
			if best == nil || got.Confidence > best.Confidence {
				got.CommandID = c.ObjectID
				best = got
			}
		}
	}
	return best
}

// Execute runs the command registered under objectID. Usage is recorded
// before dispatch; handler errors are logged and returned to the caller.
func (r *Registry) Execute(ctx context.Context, objectID string, args map[string]any) (any, error) {
	c, ok := r.Get(objectID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectID)
	}
	if args == nil {
		args = map[string]any{}
	}

	r.logger.Info("executing command", "command", objectID, "plugin", c.PluginID, "args", args)

	if r.usage != nil {
		if err := r.usage.RecordUsage(ctx, c.UsageKey()); err != nil {
			r.logger.Warn("record command usage", "command", objectID, "error", err)
		}
	}

	res, err := c.Handler(ctx, args)
	log.Event("command:execute", "execute").
		Plugin(c.PluginID).
		Target(objectID).
		Detail("args", args).
		Write(err)
	if err != nil {
		r.logger.Error("command failed", "command", objectID, "plugin", c.PluginID, "error", err)
		return nil, fmt.Errorf("command %s: %w", objectID, err)
	}
	return res, nil
}
