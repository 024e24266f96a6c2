// context.go defines the Context interface for plugin access to vela internals.
//
// Separated from extension.go to isolate dependency injection concerns.
// The Context provides a controlled surface area for plugins - they can
// register actions, run commands and drive navigation without reaching
// into the registries directly.
//
// Design: Context uses an interface to enable testing with mock
// implementations. Plugins receive it during Initialize, not at
// construction, because factories run before the registries know about the
// plugin. Each plugin gets its own Context, so ownership (the PluginID
// stamped on actions, the logger's "plugin" attribute) cannot be forged.

package extension

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/config"
)

// Context provides a plugin controlled access to vela internals.
type Context interface {
	// PluginID returns the id of the plugin this context belongs to.
	PluginID() string

	// Dir returns the plugin directory, or "" for built-ins.
	Dir() string

	// Logger returns a logger tagged with the plugin id.
	Logger() *slog.Logger

	// Config returns user configuration for respecting user preferences.
	Config() *config.Config

	// DB exposes the database for plugins needing custom tables.
	// Plugins should create their own tables, not modify core tables.
	DB() *sql.DB

	// Actions registers actions owned by the plugin.
	Actions() ActionRegistrar

	// Commands executes registered commands by object id.
	Commands() CommandExecutor

	// Navigator pushes and pops views.
	Navigator() Navigator

	// Clipboard returns the system clipboard.
	Clipboard() Clipboard

	// Publish emits an event to every subscriber and EventHandler plugin.
	Publish(e Event)
}

// ActionRegistrar adds and removes actions.
type ActionRegistrar interface {
	Register(a action.Action) error
	Unregister(id string)
}

// CommandExecutor runs registered commands.
type CommandExecutor interface {
	Execute(ctx context.Context, objectID string, args map[string]any) (any, error)
}

// Navigator drives the view stack.
type Navigator interface {
	NavigateToView(ctx context.Context, viewPath string) error
	GoBack(ctx context.Context)
}

// Clipboard reads and writes text.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Deps holds the shared services a Context exposes.
type Deps struct {
	Logger    *slog.Logger
	Config    *config.Config
	DB        *sql.DB
	Actions   ActionRegistrar
	Commands  CommandExecutor
	Navigator Navigator
	Clipboard Clipboard
	Publish   func(Event)
}

// extContext implements Context.
type extContext struct {
	id     string
	dir    string
	deps   Deps
	logger *slog.Logger
}

// NewContext creates the context of plugin id.
func NewContext(id, dir string, deps Deps) Context {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &extContext{
		id:     id,
		dir:    dir,
		deps:   deps,
		logger: logger.With("plugin", id),
	}
}

func (c *extContext) PluginID() string          { return c.id }
func (c *extContext) Dir() string               { return c.dir }
func (c *extContext) Logger() *slog.Logger      { return c.logger }
func (c *extContext) Config() *config.Config    { return c.deps.Config }
func (c *extContext) DB() *sql.DB               { return c.deps.DB }
func (c *extContext) Commands() CommandExecutor { return c.deps.Commands }
func (c *extContext) Navigator() Navigator      { return c.deps.Navigator }
func (c *extContext) Clipboard() Clipboard      { return c.deps.Clipboard }

// Actions returns a registrar that stamps every action with the plugin id.
func (c *extContext) Actions() ActionRegistrar {
	return ownedActions{id: c.id, reg: c.deps.Actions}
}

func (c *extContext) Publish(e Event) {
	if c.deps.Publish != nil {
		c.deps.Publish(e)
	}
}

type ownedActions struct {
	id  string
	reg ActionRegistrar
}

func (o ownedActions) Register(a action.Action) error {
	a.PluginID = o.id
	a.BuiltIn = false
	return o.reg.Register(a)
}

func (o ownedActions) Unregister(id string) {
	o.reg.Unregister(id)
}
