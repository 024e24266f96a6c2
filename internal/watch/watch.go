// Package watch reloads plugins when the extensions directory changes.
//
// The extensions directory and each plugin directory directly below it are
// watched. Bursts of events (an editor saving, an archive being unpacked)
// are debounced into a single reload.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is the quiet period before a reload.
const DefaultDelay = 250 * time.Millisecond

// Reloader reloads every plugin.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Watcher watches one extensions directory.
type Watcher struct {
	dir      string
	delay    time.Duration
	reloader Reloader
	logger   *slog.Logger
}

// New creates a watcher for dir. A zero delay selects DefaultDelay.
func New(dir string, delay time.Duration, reloader Reloader, logger *slog.Logger) *Watcher {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, delay: delay, reloader: reloader, logger: logger}
}

// Run watches until ctx is done. The directory is created if missing so
// the first plugin installed into it is noticed.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create extensions directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				_ = fw.Add(filepath.Join(w.dir, e.Name()))
			}
		}
	}
	w.logger.Info("watching extensions directory", "dir", w.dir)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	schedule := func(reason string) {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.delay, func() {
			if ctx.Err() != nil {
				return
			}
			w.logger.Info("extensions changed, reloading", "trigger", reason)
			if err := w.reloader.Reload(ctx); err != nil {
				w.logger.Error("plugin reload failed", "error", err)
			}
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == w.dir {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = fw.Add(ev.Name)
				}
			}
			if w.relevant(ev) {
				schedule(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("extensions watcher error", "error", err)
		}
	}
}

// relevant reports whether ev can change what the loader would find.
// Plugin directories appearing or disappearing count, as do manifests and
// scripts inside them.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if filepath.Dir(ev.Name) == w.dir {
		return true
	}
	base := filepath.Base(ev.Name)
	return strings.HasPrefix(base, "manifest.") || strings.HasSuffix(base, ".js")
}
