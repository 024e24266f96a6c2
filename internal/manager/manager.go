// Package manager owns the plugin lifecycle: load, register, initialize,
// activate and, on the way down, deactivate and unload. It routes search,
// selection and navigation to the plugin that owns them.
//
// Every plugin passes through the states
//
//	discovered -> loaded -> registered -> activated -> deactivated
//
// and any change to the set of enabled plugins (enable, disable, uninstall,
// a watched directory change) is applied as a full unload followed by a
// full reload, so registries never hold a mix of old and new instances.
package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/config"
	"github.com/jpl-au/vela/internal/event"
	"github.com/jpl-au/vela/internal/loader"
	"github.com/jpl-au/vela/internal/match"
	"github.com/jpl-au/vela/internal/nav"
	"github.com/jpl-au/vela/internal/store"
	"github.com/jpl-au/vela/internal/validate"
)

var (
	// ErrUnknownPlugin is returned for ids that name no loaded plugin.
	ErrUnknownPlugin = nav.ErrUnknownPlugin
	// ErrBuiltIn is returned when disabling or uninstalling a built-in.
	ErrBuiltIn = errors.New("built-in plugins cannot be disabled or uninstalled")
	// ErrInvalidID is returned for plugin ids that are unsafe as directory names.
	ErrInvalidID = validate.ErrInvalidPluginID
	// ErrInvalidView is returned for malformed view paths.
	ErrInvalidView = validate.ErrInvalidView
)

// State is a plugin's lifecycle state.
type State string

const (
	StateDiscovered  State = "discovered"
	StateLoaded      State = "loaded"
	StateRegistered  State = "registered"
	StateActivated   State = "activated"
	StateDeactivated State = "deactivated"
	StateFailed      State = "failed"
)

// Info describes a discovered plugin, enabled or not.
type Info struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Version      string   `json:"version,omitempty"`
	Description  string   `json:"description,omitempty"`
	Type         string   `json:"type,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Views        []string `json:"views,omitempty"`
	BuiltIn      bool     `json:"builtin"`
	Enabled      bool     `json:"enabled"`
	State        State    `json:"state"`
	Dir          string   `json:"dir,omitempty"`
	Error        string   `json:"error,omitempty"`
	Uninstalling bool     `json:"uninstalling,omitempty"`
}

// Active is a loaded, enabled plugin.
type Active struct {
	ID       string
	Manifest extension.Manifest
	Plugin   extension.Plugin
	Context  extension.Context
	BuiltIn  bool
}

// States persists the user's enabled flags and maintains the search index.
type States interface {
	store.PluginStates
	store.Indexer
}

// Usage records plugin usage.
type Usage interface {
	RecordUsage(ctx context.Context, name string) error
	Touch(ctx context.Context, name string) error
}

// Observer receives lifecycle counts, typically for metrics.
type Observer interface {
	PluginLoadFailed(id string)
	PluginsActive(n int)
	CommandsRegistered(n int)
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Loader    *loader.Loader
	Commands  *command.Registry
	Actions   *action.Registry
	Query     nav.QueryState
	Store     States
	Usage     Usage
	Config    *config.Config
	DB        *sql.DB
	Clipboard extension.Clipboard
	Logger    *slog.Logger
}

type entry struct {
	active Active
	state  State
}

// Manager runs plugins. Safe for concurrent use.
type Manager struct {
	deps   Deps
	logger *slog.Logger
	stack  *nav.Stack

	// life serialises Init, Reload, SetEnabled and Uninstall.
	life        sync.Mutex
	initialized bool

	mu           sync.RWMutex
	plugins      map[string]*entry
	order        []string
	infos        []Info
	uninstalling map[string]bool
	observer     Observer

	events event.Feed[extension.Event]
}

// New creates a manager. Nothing is loaded until Init.
func New(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config == nil {
		deps.Config = &config.Config{}
	}
	m := &Manager{
		deps:         deps,
		logger:       deps.Logger,
		plugins:      make(map[string]*entry),
		uninstalling: make(map[string]bool),
	}
	m.stack = nav.New(deps.Query, m.resolve, m, deps.Logger)
	return m
}

// SetObserver installs o. Pass nil to remove it.
func (m *Manager) SetObserver(o Observer) {
	m.mu.Lock()
	m.observer = o
	m.mu.Unlock()
}

// Stack returns the navigation stack.
func (m *Manager) Stack() *nav.Stack {
	return m.stack
}

// Init discovers, loads, registers, initializes and activates every
// enabled plugin, then syncs the search index. Later calls do nothing.
func (m *Manager) Init(ctx context.Context) error {
	m.life.Lock()
	defer m.life.Unlock()

	if m.initialized {
		return nil
	}
	m.initialized = true
	return m.load(ctx)
}

// Reload unloads every plugin and loads them again.
func (m *Manager) Reload(ctx context.Context) error {
	m.life.Lock()
	defer m.life.Unlock()

	m.unload(ctx)
	return m.load(ctx)
}

// Close deactivates and unloads every plugin.
func (m *Manager) Close(ctx context.Context) {
	m.life.Lock()
	defer m.life.Unlock()
	m.unload(ctx)
}

// load runs the startup sequence. Caller holds m.life.
func (m *Manager) load(ctx context.Context) error {
	sources, err := m.deps.Loader.Discover(ctx)
	if err != nil {
		// Built-ins are still usable when the directory scan fails.
		m.logger.Error("plugin discovery failed", "dir", m.deps.Loader.Dir(), "error", err)
	}

	loaded, skipped := m.deps.Loader.LoadAll(ctx, sources)

	infos := make([]Info, 0, len(loaded)+len(skipped))
	plugins := make(map[string]*entry)
	var order []string

	for _, ld := range loaded {
		info := infoFor(ld)
		info.Enabled = m.enabled(ctx, ld.Manifest.ID, ld.BuiltIn)
		if info.Enabled {
			id := ld.Manifest.ID
			plugins[id] = &entry{
				active: Active{
					ID:       id,
					Manifest: ld.Manifest,
					Plugin:   ld.Plugin,
					Context:  m.newContext(id, ld.Dir),
					BuiltIn:  ld.BuiltIn,
				},
				state: StateLoaded,
			}
			order = append(order, id)
		}
		infos = append(infos, info)
	}
	for _, s := range skipped {
		infos = append(infos, Info{ID: s.ID, State: StateFailed, Error: s.Reason})
		m.observe(func(o Observer) { o.PluginLoadFailed(s.ID) })
	}

	m.mu.Lock()
	m.plugins = plugins
	m.order = order
	m.infos = infos
	m.mu.Unlock()

	// Register everything first so initializers can already execute
	// other plugins' commands.
	for _, id := range order {
		e := plugins[id]
		if err := m.register(e.active); err != nil {
			m.fail(ctx, id, fmt.Errorf("register: %w", err))
			continue
		}
		m.setState(id, StateRegistered)
	}

	for _, id := range m.ids() {
		e, _ := m.get(id)
		if in, ok := e.Plugin.(extension.Initializer); ok {
			if err := in.Initialize(e.Context); err != nil {
				m.fail(ctx, id, fmt.Errorf("initialize: %w", err))
			}
		}
	}

	for _, id := range m.ids() {
		e, _ := m.get(id)
		if a, ok := e.Plugin.(extension.Activator); ok {
			if err := a.Activate(ctx); err != nil {
				m.fail(ctx, id, fmt.Errorf("activate: %w", err))
				continue
			}
		}
		m.setState(id, StateActivated)
		m.logger.Info("plugin activated", "plugin", id, "builtin", e.BuiltIn)
		m.emit(ctx, extension.PluginEvent{Kind: extension.EventPluginLoaded, ID: id})
	}

	active := len(m.ids())
	m.observe(func(o Observer) {
		o.PluginsActive(active)
		o.CommandsRegistered(m.deps.Commands.Len())
	})
	m.logger.Info("plugins loaded", "active", active, "skipped", len(skipped))

	if _, _, err := m.SyncIndex(ctx); err != nil {
		m.logger.Error("search index sync failed", "error", err)
	}
	return nil
}

// unload deactivates every plugin in reverse order and removes everything
// they registered. Caller holds m.life.
func (m *Manager) unload(ctx context.Context) {
	ids := m.ids()
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		e, ok := m.get(id)
		if !ok {
			continue
		}
		if a, ok := e.Plugin.(extension.Activator); ok {
			if err := a.Deactivate(ctx); err != nil {
				m.logger.Error("plugin deactivate failed", "plugin", id, "error", err)
			}
		}
		m.deps.Commands.UnregisterPlugin(id)
		m.deps.Actions.UnregisterPlugin(id)
		m.setState(id, StateDeactivated)
		m.emit(ctx, extension.PluginEvent{Kind: extension.EventPluginUnloaded, ID: id})
	}

	m.stack.Clear()
	m.deps.Actions.SetContext(action.Core)

	m.mu.Lock()
	m.plugins = make(map[string]*entry)
	m.order = nil
	m.mu.Unlock()
}

// register adds the plugin's commands and actions.
func (m *Manager) register(a Active) error {
	mp, _ := a.Plugin.(extension.MatcherProvider)

	for _, spec := range a.Manifest.Commands {
		var ms []match.Matcher
		if mp != nil {
			ms = mp.Matchers(spec.ID)
		}
		if ms == nil {
			var err error
			if ms, err = spec.BuildMatchers(); err != nil {
				return fmt.Errorf("command %s: %w", spec.ID, err)
			}
		}

		err := m.deps.Commands.Register(command.Command{
			ObjectID:    command.ObjectID(a.ID, spec.ID),
			PluginID:    a.ID,
			CommandID:   spec.ID,
			Name:        spec.Name,
			Description: spec.Description,
			Trigger:     spec.Trigger,
			ResultType:  spec.ResultType,
			Handler:     m.handler(a, spec.ID),
			Matchers:    ms,
		})
		if err != nil {
			return err
		}
	}

	if ap, ok := a.Plugin.(extension.ActionProvider); ok {
		for _, act := range ap.Actions() {
			act.PluginID = a.ID
			act.BuiltIn = false
			if err := m.deps.Actions.Register(act); err != nil {
				return fmt.Errorf("action %s: %w", act.ID, err)
			}
		}
	}
	return nil
}

// handler dispatches a command to its plugin and announces the outcome.
func (m *Manager) handler(a Active, commandID string) command.Handler {
	objectID := command.ObjectID(a.ID, commandID)
	return func(ctx context.Context, args map[string]any) (any, error) {
		res, err := a.Plugin.ExecuteCommand(ctx, commandID, args)
		ev := extension.CommandEvent{ObjectID: objectID, PluginID: a.ID}
		if err != nil {
			ev.Error = err.Error()
		}
		m.emit(ctx, ev)
		return res, err
	}
}

// fail unregisters a plugin that broke during startup. It stays listed in
// Plugins with its error.
func (m *Manager) fail(ctx context.Context, id string, err error) {
	m.logger.Error("plugin failed", "plugin", id, "error", err)
	m.deps.Commands.UnregisterPlugin(id)
	m.deps.Actions.UnregisterPlugin(id)

	m.mu.Lock()
	delete(m.plugins, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for i := range m.infos {
		if m.infos[i].ID == id {
			m.infos[i].State = StateFailed
			m.infos[i].Error = err.Error()
		}
	}
	m.mu.Unlock()

	m.observe(func(o Observer) { o.PluginLoadFailed(id) })
	m.emit(ctx, extension.PluginEvent{Kind: extension.EventPluginUnloaded, ID: id})
}

// enabled resolves whether a loaded plugin should be registered. Built-ins
// are always on; configuration can force a plugin off; otherwise the stored
// flag decides.
func (m *Manager) enabled(ctx context.Context, id string, builtIn bool) bool {
	if builtIn {
		return true
	}
	if m.deps.Config.Disabled(id) {
		return false
	}
	if m.deps.Store == nil {
		return true
	}
	on, err := m.deps.Store.IsEnabled(ctx, id)
	if err != nil {
		m.logger.Warn("reading plugin state failed, assuming enabled", "plugin", id, "error", err)
		return true
	}
	return on
}

func (m *Manager) newContext(id, dir string) extension.Context {
	return extension.NewContext(id, dir, extension.Deps{
		Logger:    m.logger,
		Config:    m.deps.Config,
		DB:        m.deps.DB,
		Actions:   m.deps.Actions,
		Commands:  m.deps.Commands,
		Navigator: m,
		Clipboard: m.deps.Clipboard,
		Publish:   func(e extension.Event) { m.emit(context.Background(), e) },
	})
}

func infoFor(ld loader.Loaded) Info {
	mf := ld.Manifest
	return Info{
		ID:          mf.ID,
		Name:        mf.Name,
		Version:     mf.Version,
		Description: mf.Description,
		Type:        mf.Type,
		Keywords:    mf.Keywords(),
		Views:       mf.Views,
		BuiltIn:     ld.BuiltIn,
		State:       StateLoaded,
		Dir:         ld.Dir,
	}
}

func (m *Manager) setState(id string, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.plugins[id]; ok {
		e.state = s
	}
	for i := range m.infos {
		if m.infos[i].ID == id && m.infos[i].State != StateFailed {
			m.infos[i].State = s
		}
	}
}

func (m *Manager) observe(fn func(Observer)) {
	m.mu.RLock()
	o := m.observer
	m.mu.RUnlock()
	if o != nil {
		fn(o)
	}
}

// ids returns the enabled plugin ids in load order.
func (m *Manager) ids() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) get(id string) (Active, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.plugins[id]
	if !ok {
		return Active{}, false
	}
	return e.active, true
}

// Plugin returns the enabled plugin id.
func (m *Manager) Plugin(id string) (Active, bool) {
	return m.get(id)
}

// ActivePlugins returns every enabled plugin in load order.
func (m *Manager) ActivePlugins() []Active {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Active, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.plugins[id].active)
	}
	return out
}

// Plugins lists every discovered plugin, including disabled and failed ones.
func (m *Manager) Plugins() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, len(m.infos))
	copy(out, m.infos)
	for i := range out {
		out[i].Uninstalling = m.uninstalling[out[i].ID]
	}
	return out
}

// Info returns the listing of id.
func (m *Manager) Info(id string) (Info, bool) {
	for _, in := range m.Plugins() {
		if in.ID == id {
			return in, true
		}
	}
	return Info{}, false
}

// ExecuteCommand runs a registered command by object id.
func (m *Manager) ExecuteCommand(ctx context.Context, objectID string, args map[string]any) (any, error) {
	return m.deps.Commands.Execute(ctx, objectID, args)
}

// Subscribe registers fn to receive every launcher event.
func (m *Manager) Subscribe(fn func(extension.Event)) func() {
	return m.events.Subscribe(fn)
}

// emit publishes e to subscribers and to every EventHandler plugin.
func (m *Manager) emit(_ context.Context, e extension.Event) {
	m.events.Publish(e)
	for _, a := range m.ActivePlugins() {
		h, ok := a.Plugin.(extension.EventHandler)
		if !ok {
			continue
		}
		if err := h.HandleEvent(a.Context, e); err != nil {
			m.logger.Warn("plugin event handler failed", "plugin", a.ID, "event", e.EventType(), "error", err)
		}
	}
}
