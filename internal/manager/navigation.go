// navigation.go connects the view stack to the plugins that own the views.
//
// Separated from manager.go because navigation is driven by user input at
// any time, while the rest of the manager only runs during lifecycle
// changes. The Manager is both the stack's resolver and its hook target.
//
// Design: usage is recorded only after the owning plugin resolves, so a
// failed navigation leaves no trace in the statistics.
package manager

import (
	"context"
	"fmt"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/nav"
	"github.com/jpl-au/vela/internal/validate"
)

// ViewState is the current top view and the state its plugin reports.
type ViewState struct {
	Frame nav.Frame `json:"frame"`
	State any       `json:"state,omitempty"`
}

// resolve implements nav.Resolver.
func (m *Manager) resolve(pluginID string) (bool, bool) {
	a, ok := m.get(pluginID)
	if !ok {
		return false, false
	}
	return a.Manifest.Searchable, true
}

// NavigateToView opens viewPath ("plugin/view"). A malformed path yields
// ErrInvalidView; an unknown or disabled plugin yields ErrUnknownPlugin.
// Either way the stack is left unchanged.
func (m *Manager) NavigateToView(ctx context.Context, viewPath string) error {
	viewPath, err := validate.ViewPath(viewPath)
	if err != nil {
		return err
	}
	id := nav.PluginID(viewPath)
	if _, ok := m.get(id); !ok {
		m.logger.Error("cannot navigate: no enabled plugin", "view", viewPath, "plugin", id)
		return fmt.Errorf("%w: %s", ErrUnknownPlugin, viewPath)
	}

	if m.deps.Usage != nil {
		if err := m.deps.Usage.RecordUsage(ctx, id+":"+nav.ViewName(viewPath)); err != nil {
			m.logger.Warn("recording view usage failed", "view", viewPath, "error", err)
		}
		if err := m.deps.Usage.Touch(ctx, id); err != nil {
			m.logger.Warn("recording plugin usage failed", "plugin", id, "error", err)
		}
	}

	if err := m.stack.Push(viewPath); err != nil {
		return err
	}
	m.emit(ctx, extension.ViewEvent{ViewPath: viewPath, PluginID: id, Depth: m.stack.Depth(), Opened: true})
	return nil
}

// GoBack closes the top view. With no open view it only logs a warning.
func (m *Manager) GoBack(ctx context.Context) {
	f, ok := m.stack.Pop()
	if !ok {
		return
	}
	m.emit(ctx, extension.ViewEvent{ViewPath: f.ViewPath, PluginID: f.PluginID, Depth: m.stack.Depth()})
}

// CloseViews closes every open view, restoring the saved query.
func (m *Manager) CloseViews(ctx context.Context) {
	for m.stack.Active() {
		m.GoBack(ctx)
	}
}

// ViewActivated implements nav.Hooks.
func (m *Manager) ViewActivated(f nav.Frame) {
	m.deps.Actions.SetContext(action.ExtensionView)
	a, ok := m.get(f.PluginID)
	if !ok {
		return
	}
	if l, ok := a.Plugin.(extension.ViewListener); ok {
		l.ViewActivated(context.Background(), f.ViewPath)
	}
}

// ViewDeactivated implements nav.Hooks.
func (m *Manager) ViewDeactivated(f nav.Frame) {
	if a, ok := m.get(f.PluginID); ok {
		if l, ok := a.Plugin.(extension.ViewListener); ok {
			l.ViewDeactivated(context.Background(), f.ViewPath)
		}
	}
	if !m.stack.Active() {
		m.deps.Actions.SetContext(action.Core)
	}
}

// HandleViewSearch routes query to the plugin owning the top view. It
// reports false when no searchable view is open, in which case the caller
// runs a normal search instead.
func (m *Manager) HandleViewSearch(ctx context.Context, query string) bool {
	f, ok := m.stack.Current()
	if !ok || !f.Searchable {
		return false
	}
	a, ok := m.get(f.PluginID)
	if !ok {
		return false
	}
	vs, ok := a.Plugin.(extension.ViewSearcher)
	if !ok {
		return false
	}
	if err := vs.OnViewSearch(ctx, query); err != nil {
		m.logger.Error("view search failed", "view", f.ViewPath, "error", err)
	}
	return true
}

// CurrentView returns the top view and its plugin's state.
func (m *Manager) CurrentView() (ViewState, bool) {
	f, ok := m.stack.Current()
	if !ok {
		return ViewState{}, false
	}
	vs := ViewState{Frame: f}
	if a, ok := m.get(f.PluginID); ok {
		if s, ok := a.Plugin.(extension.ViewStater); ok {
			vs.State = s.ViewState(f.ViewPath)
		}
	}
	return vs, true
}
