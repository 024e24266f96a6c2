// Package app wires the launcher together. It owns every long-lived
// component (store, registries, plugin manager, search aggregator, metrics)
// and is shared by the CLI, the MCP server and the HTTP API, so all three
// drive the same state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/clip"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/config"
	"github.com/jpl-au/vela/internal/loader"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/manager"
	"github.com/jpl-au/vela/internal/match"
	"github.com/jpl-au/vela/internal/metrics"
	"github.com/jpl-au/vela/internal/nav"
	"github.com/jpl-au/vela/internal/providers/apps"
	"github.com/jpl-au/vela/internal/providers/plugins"
	"github.com/jpl-au/vela/internal/search"
	"github.com/jpl-au/vela/internal/store"
	"github.com/jpl-au/vela/internal/watch"
)

var (
	// ErrNoMatch is returned by Run when no command matches the query.
	ErrNoMatch = errors.New("no command matches")
	// ErrNoResult is returned by Pick for an id missing from the results.
	ErrNoResult = errors.New("no such result")
)

// Options override the components New would otherwise build. The zero
// value builds everything from configuration.
type Options struct {
	Config    *config.Config
	Logger    *slog.Logger
	Builtins  []extension.Builtin
	Clipboard extension.Clipboard
	Opener    apps.Opener
	AppDirs   []string
}

// App is a running launcher core.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *store.SQLiteStore
	Commands *command.Registry
	Actions  *action.Registry
	Query    *nav.LiveQuery
	Manager  *manager.Manager
	Search   *search.Aggregator
	Plugins  *plugins.Provider
	Apps     *apps.Provider
	Metrics  *metrics.Metrics

	opener apps.Opener
	unsubs []func()

	bgMu   sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the store, loads every enabled plugin and registers the search
// providers and built-in actions.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	}
	builtins := opts.Builtins
	if builtins == nil {
		builtins = extension.Builtins()
	}
	clipboard := opts.Clipboard
	if clipboard == nil {
		clipboard = clip.Detect()
	}
	opener := opts.Opener
	if opener == nil {
		opener = apps.SystemOpener{}
	}
	dirs := opts.AppDirs
	if dirs == nil {
		dirs = cfg.AppDirs()
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	if err := st.Init(); err != nil {
		st.Close()
		return nil, fmt.Errorf("initialise database: %w", err)
	}
	log.SetSession(cfg.DataDir())

	extUsage := st.Usage(store.ScopeExtensions)
	appUsage := st.Usage(store.ScopeApps)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Commands: command.New(extUsage, logger),
		Actions:  action.New(logger),
		Query:    &nav.LiveQuery{},
		Metrics:  metrics.New(),
		opener:   opener,
	}
	a.Manager = manager.New(manager.Deps{
		Loader:    loader.New(cfg.ExtensionsDir(), builtins, logger),
		Commands:  a.Commands,
		Actions:   a.Actions,
		Query:     a.Query,
		Store:     st,
		Usage:     extUsage,
		Config:    cfg,
		DB:        st.DB(),
		Clipboard: clipboard,
		Logger:    logger,
	})
	a.Manager.SetObserver(a.Metrics)

	a.Search = search.New(search.Config{
		TTL:          cfg.CacheTTL(),
		MaxResults:   cfg.MaxResults(),
		DefaultLimit: cfg.DefaultResults(),
	}, appUsage, extUsage, logger)
	a.Search.SetObserver(a.Metrics)
	a.Search.SetIndexResetter(a)

	a.Plugins = plugins.New(a.Manager, a.Commands, extUsage, a.Query, logger)
	a.Apps = apps.New(dirs, appUsage, opener, st, logger)
	a.Search.Register(a.Plugins)
	a.Search.Register(a.Apps)

	a.unsubs = append(a.unsubs,
		a.Manager.Subscribe(a.Metrics.HandleEvent),
		a.Manager.Subscribe(a.invalidate),
	)

	if err := a.registerActions(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Manager.Init(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load plugins: %w", err)
	}
	return a, nil
}

// invalidate drops cached results whenever the set of plugins changes.
func (a *App) invalidate(e extension.Event) {
	if _, ok := e.(extension.PluginEvent); ok {
		a.Search.ClearCache()
	}
}

// Background starts the optional long-running helpers: the application
// scan, the plugin directory watcher and the metrics reporter. They stop
// on Close or when ctx is done.
func (a *App) Background(ctx context.Context) {
	a.bgMu.Lock()
	defer a.bgMu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.Apps.Refresh(ctx); err != nil && ctx.Err() == nil {
			a.Logger.Warn("application scan failed", "error", err)
		}
	}()

	if a.Config.Watch() {
		w := watch.New(a.Config.ExtensionsDir(), 0, a.Manager, a.Logger)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := w.Run(ctx); err != nil {
				a.Logger.Error("plugin watcher stopped", "error", err)
			}
		}()
	}

	if interval := a.Config.MetricsInterval(); interval > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Metrics.Report(ctx, interval, a.Logger)
		}()
	}
}

// Close stops background work, unloads plugins and closes the store.
func (a *App) Close() error {
	a.bgMu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.bgMu.Unlock()
	a.wg.Wait()

	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil

	if a.Manager != nil {
		a.Manager.Close(context.Background())
	}
	if err := a.Store.Checkpoint(context.Background()); err != nil {
		a.Logger.Debug("checkpoint failed", "error", err)
	}
	return a.Store.Close()
}

// ResetIndex implements search.IndexResetter: it rebuilds the command rows
// through the manager and then the application rows.
func (a *App) ResetIndex(ctx context.Context) error {
	if err := a.Manager.ResetIndex(ctx); err != nil {
		return err
	}
	_, err := a.Apps.Refresh(ctx)
	return err
}

// Response is what the launcher shows for one input.
type Response struct {
	Query   string             `json:"query"`
	View    *manager.ViewState `json:"view,omitempty"`
	Results []search.Result    `json:"results"`
}

// Input handles typed text the way the launcher window does: it becomes
// the live query, and goes to the open view's plugin when that view is
// searchable, or to the search aggregator otherwise.
func (a *App) Input(ctx context.Context, query string) Response {
	a.Query.SetQuery(query)
	if a.Manager.HandleViewSearch(ctx, query) {
		resp := Response{Query: query, Results: []search.Result{}}
		if vs, ok := a.Manager.CurrentView(); ok {
			resp.View = &vs
		}
		return resp
	}
	results := a.Search.Search(ctx, query)
	if results == nil {
		results = []search.Result{}
	}
	return Response{Query: query, Results: results}
}

// Select runs a result's action. A result asking for a view is navigated
// to here; commands that navigate themselves return search.None.
func (a *App) Select(ctx context.Context, r search.Result) (search.ActionResult, error) {
	ar, err := r.Run(ctx)
	if err != nil {
		return search.None, err
	}
	if ar.Type == search.ActionSetView {
		if err := a.Manager.NavigateToView(ctx, ar.View); err != nil {
			return search.None, err
		}
	}
	return ar, nil
}

// Pick searches for query and selects the result with the given id, or
// the one at a 1-based position when id is a number.
func (a *App) Pick(ctx context.Context, query, id string) (search.Result, search.ActionResult, error) {
	results := a.Search.Search(ctx, query)
	for i, r := range results {
		if r.ID == id || fmt.Sprint(i+1) == id {
			ar, err := a.Select(ctx, r)
			return r, ar, err
		}
	}
	return search.Result{}, search.None, fmt.Errorf("%w: %s", ErrNoResult, id)
}

// Run finds the best command for query and executes it.
func (a *App) Run(ctx context.Context, query string) (*match.CommandMatch, any, error) {
	m := a.Commands.FindMatch(strings.TrimSpace(query))
	if m == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrNoMatch, query)
	}
	out, err := a.Manager.ExecuteCommand(ctx, m.CommandID, m.Args)
	return m, out, err
}
