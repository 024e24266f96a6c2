// lifecycle.go implements the user-facing plugin state changes: enable,
// disable and uninstall.
//
// Separated from manager.go so the persistence and filesystem side effects
// live apart from the load sequence they trigger. Each change is written to
// the store first and then applied with a full reload.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/store"
	"github.com/jpl-au/vela/internal/validate"
)

// known reports whether id was discovered, loaded or not.
func (m *Manager) known(id string) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, in := range m.infos {
		if in.ID == id {
			return in, true
		}
	}
	return Info{}, false
}

// SetEnabled persists the enabled flag of a filesystem plugin and reloads.
func (m *Manager) SetEnabled(ctx context.Context, id string, enabled bool) (err error) {
	m.life.Lock()
	defer m.life.Unlock()

	action := "disable"
	kind := extension.EventPluginDisabled
	if enabled {
		action = "enable"
		kind = extension.EventPluginEnabled
	}
	defer func() { log.Event("plugin:"+action, action).Plugin(id).Write(err) }()

	info, ok := m.known(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlugin, id)
	}
	if info.BuiltIn || extension.IsBuiltin(id) {
		return fmt.Errorf("%w: %s", ErrBuiltIn, id)
	}
	if m.deps.Store == nil {
		return errors.New("no plugin state store configured")
	}
	if err := m.deps.Store.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}
	if enabled && m.deps.Config.Disabled(id) {
		m.logger.Warn("plugin enabled but disabled by configuration", "plugin", id)
	}

	m.unload(ctx)
	if err := m.load(ctx); err != nil {
		return err
	}
	m.emit(ctx, extension.PluginEvent{Kind: kind, ID: id})
	return nil
}

// Uninstall disables id, removes its directory and reloads. A plugin whose
// directory is already gone is still forgotten.
func (m *Manager) Uninstall(ctx context.Context, id string) (err error) {
	defer func() { log.Event("plugin:uninstall", "uninstall").Plugin(id).Write(err) }()

	if err := validate.PluginID(id); err != nil {
		return err
	}

	m.life.Lock()
	defer m.life.Unlock()

	info, known := m.known(id)
	if info.BuiltIn || extension.IsBuiltin(id) {
		return fmt.Errorf("%w: %s", ErrBuiltIn, id)
	}

	m.mu.Lock()
	m.uninstalling[id] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.uninstalling, id)
		m.mu.Unlock()
	}()

	if m.deps.Store != nil {
		if err := m.deps.Store.SetEnabled(ctx, id, false); err != nil {
			return err
		}
	}
	m.unload(ctx)

	dir := filepath.Join(m.deps.Loader.Dir(), id)
	if _, statErr := os.Stat(dir); errors.Is(statErr, fs.ErrNotExist) {
		if !known {
			// Nothing on disk and nothing discovered: put things back.
			if m.deps.Store != nil {
				_ = m.deps.Store.Forget(ctx, id)
			}
			if err := m.load(ctx); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", ErrUnknownPlugin, id)
		}
		m.logger.Warn("plugin directory already removed", "plugin", id, "dir", dir)
	} else if err := os.RemoveAll(dir); err != nil {
		_ = m.load(ctx)
		return fmt.Errorf("remove plugin %s: %w", id, err)
	}

	if m.deps.Store != nil {
		if err := m.deps.Store.Forget(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("forgetting plugin state failed", "plugin", id, "error", err)
		}
	}

	if err := m.load(ctx); err != nil {
		return err
	}
	m.logger.Info("plugin uninstalled", "plugin", id)
	m.emit(ctx, extension.PluginEvent{Kind: extension.EventPluginUninstalled, ID: id})
	return nil
}

// Uninstalling reports whether id is being uninstalled right now.
func (m *Manager) Uninstalling(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uninstalling[id]
}

