// Package loader discovers plugins and turns them into instances.
//
// Two kinds of plugin exist. Built-ins are compiled in and registered with
// extension.Register; filesystem plugins live in their own directory under
// the extensions directory, each with a manifest and a JavaScript entry
// point run by internal/script. Loading never touches the command or action
// registries: it only produces instances for the manager to register.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/script"
	"golang.org/x/sync/errgroup"
)

// ManifestGlob finds plugin manifests relative to the extensions directory.
const ManifestGlob = "*/manifest.{yaml,yml,json}"

// DefaultMain is the entry point used when a manifest names none.
const DefaultMain = "index.js"

var (
	// ErrIDMismatch is returned when a manifest id differs from the
	// discovery key (the built-in id or the plugin directory name).
	ErrIDMismatch = errors.New("manifest id does not match plugin id")
	// ErrConflict is returned for a filesystem plugin that reuses a
	// built-in id.
	ErrConflict = errors.New("plugin id conflicts with a built-in plugin")
	// ErrNoImplementation is returned when a factory yields no plugin.
	ErrNoImplementation = errors.New("plugin has no implementation")
)

// Source is one discovered plugin, not yet loaded.
type Source struct {
	ID           string `json:"id"`
	BuiltIn      bool   `json:"builtin"`
	Dir          string `json:"dir,omitempty"`
	ManifestPath string `json:"manifest,omitempty"`

	builtin extension.Builtin
}

// Loaded is a successfully loaded plugin.
type Loaded struct {
	Plugin   extension.Plugin
	Manifest extension.Manifest
	BuiltIn  bool
	Dir      string
}

// Skipped records a plugin that failed to load.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Loader discovers and loads plugins.
type Loader struct {
	dir      string
	builtins []extension.Builtin
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a loader for the extensions directory dir. builtins is
// usually extension.Builtins().
func New(dir string, builtins []extension.Builtin, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dir: dir, builtins: builtins, timeout: script.DefaultTimeout, logger: logger}
}

// Dir returns the extensions directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Discover lists built-ins in registration order followed by filesystem
// plugins sorted by id. A missing extensions directory is not an error.
func (l *Loader) Discover(ctx context.Context) ([]Source, error) {
	sources := make([]Source, 0, len(l.builtins))
	for _, b := range l.builtins {
		sources = append(sources, Source{ID: b.ID, BuiltIn: true, builtin: b})
	}

	if l.dir == "" {
		return sources, nil
	}
	if _, err := os.Stat(l.dir); errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("extensions directory does not exist", "dir", l.dir)
		return sources, nil
	}

	matches, err := doublestar.Glob(os.DirFS(l.dir), ManifestGlob)
	if err != nil {
		return sources, fmt.Errorf("discover plugins in %s: %w", l.dir, err)
	}

	// One manifest per directory; yaml wins over yml wins over json.
	byID := make(map[string]string)
	for _, m := range matches {
		id := path.Dir(m)
		if prev, ok := byID[id]; ok && manifestRank(prev) <= manifestRank(m) {
			continue
		}
		byID[id] = m
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sources, err
		}
		sources = append(sources, Source{
			ID:           id,
			Dir:          filepath.Join(l.dir, id),
			ManifestPath: filepath.Join(l.dir, filepath.FromSlash(byID[id])),
		})
	}
	return sources, nil
}

func manifestRank(p string) int {
	switch path.Ext(p) {
	case ".yaml":
		return 0
	case ".yml":
		return 1
	default:
		return 2
	}
}

// LoadAll loads every source concurrently. A failing source is logged and
// reported in the skipped list; it never prevents the others from loading.
// Loaded plugins keep discovery order.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) ([]Loaded, []Skipped) {
	builtin := make(map[string]bool)
	for _, s := range sources {
		if s.BuiltIn {
			builtin[s.ID] = true
		}
	}

	loaded := make([]*Loaded, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		if !src.BuiltIn && builtin[src.ID] {
			errs[i] = fmt.Errorf("%w: %s", ErrConflict, src.ID)
			continue
		}
		g.Go(func() error {
			ld, err := l.Load(gctx, src)
			if err != nil {
				errs[i] = err
				return nil
			}
			loaded[i] = &ld
			return nil
		})
	}
	_ = g.Wait()

	var out []Loaded
	var skipped []Skipped
	for i, src := range sources {
		if errs[i] != nil {
			l.logger.Error("plugin failed to load", "plugin", src.ID, "error", errs[i])
			skipped = append(skipped, Skipped{ID: src.ID, Reason: errs[i].Error(), Err: errs[i]})
			continue
		}
		if loaded[i] != nil {
			out = append(out, *loaded[i])
		}
	}
	return out, skipped
}

// Load loads a single source.
func (l *Loader) Load(ctx context.Context, src Source) (ld Loaded, err error) {
	if err := ctx.Err(); err != nil {
		return Loaded{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked while loading: %v", src.ID, r)
		}
	}()

	if src.BuiltIn {
		return l.loadBuiltin(src)
	}
	return l.loadScript(src)
}

func (l *Loader) loadBuiltin(src Source) (Loaded, error) {
	m, err := extension.ParseManifest(src.builtin.Manifest)
	if err != nil {
		return Loaded{}, fmt.Errorf("%s: %w", src.ID, err)
	}
	if m.ID != src.ID {
		return Loaded{}, fmt.Errorf("%w: registered as %q, manifest says %q", ErrIDMismatch, src.ID, m.ID)
	}
	p := src.builtin.Factory()
	if p == nil {
		return Loaded{}, fmt.Errorf("%w: %s", ErrNoImplementation, src.ID)
	}
	return Loaded{Plugin: p, Manifest: m, BuiltIn: true}, nil
}

func (l *Loader) loadScript(src Source) (Loaded, error) {
	data, err := os.ReadFile(src.ManifestPath)
	if err != nil {
		return Loaded{}, fmt.Errorf("read manifest: %w", err)
	}
	m, err := extension.ParseManifest(data)
	if err != nil {
		return Loaded{}, fmt.Errorf("%s: %w", src.ID, err)
	}
	if m.ID != src.ID {
		return Loaded{}, fmt.Errorf("%w: directory %q, manifest says %q", ErrIDMismatch, src.ID, m.ID)
	}

	main := m.Main
	if main == "" {
		main = DefaultMain
	}
	if !filepath.IsLocal(main) {
		return Loaded{}, fmt.Errorf("%s: main %q must stay inside the plugin directory", src.ID, main)
	}

	p, err := script.Load(m.ID, filepath.Join(src.Dir, main), l.timeout)
	if err != nil {
		return Loaded{}, fmt.Errorf("%s: %w", src.ID, err)
	}
	return Loaded{Plugin: p, Manifest: m, Dir: src.Dir}, nil
}
