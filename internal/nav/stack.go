// Package nav implements the view navigation stack.
//
// Each frame is one open plugin view. Opening the first view snapshots the
// live search query; closing the last view restores it. Views may open
// further views to any depth, and the snapshot is only ever taken and
// restored at depth zero.
package nav

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jpl-au/vela/internal/event"
	"github.com/jpl-au/vela/internal/log"
)

// ErrUnknownPlugin is returned when a view path names a plugin that is not
// loaded and enabled.
var ErrUnknownPlugin = errors.New("no enabled plugin for view")

// Frame is one open view.
type Frame struct {
	ViewPath   string `json:"view_path"`
	Searchable bool   `json:"searchable"`
	PluginID   string `json:"plugin_id"`
}

// PluginID returns the plugin part of a view path ("greeting/form" -> "greeting").
func PluginID(viewPath string) string {
	id, _, _ := strings.Cut(viewPath, "/")
	return id
}

// ViewName returns the view part of a view path ("greeting/form" -> "form").
func ViewName(viewPath string) string {
	_, name, _ := strings.Cut(viewPath, "/")
	return name
}

// QueryState is the live search query owned by the front end.
type QueryState interface {
	Query() string
	SetQuery(q string)
}

// Resolver reports whether pluginID is loaded and enabled, and whether its
// views accept search input.
type Resolver func(pluginID string) (searchable bool, ok bool)

// Hooks receives view lifecycle notifications for the owning plugin.
type Hooks interface {
	ViewActivated(f Frame)
	ViewDeactivated(f Frame)
}

// Stack is a LIFO of open views. Safe for concurrent use; hooks and
// listeners run after the stack's lock is released.
type Stack struct {
	mu      sync.Mutex
	frames  []Frame
	saved   string
	query   QueryState
	resolve Resolver
	hooks   Hooks
	logger  *slog.Logger
	feed    event.Feed[[]Frame]
}

// New creates an empty stack. hooks may be nil.
func New(query QueryState, resolve Resolver, hooks Hooks, logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stack{query: query, resolve: resolve, hooks: hooks, logger: logger}
}

// Push opens viewPath on top of the stack. If the owning plugin cannot be
// resolved the stack is left unchanged and ErrUnknownPlugin is returned.
func (s *Stack) Push(viewPath string) error {
	pluginID := PluginID(viewPath)
	searchable, ok := s.resolve(pluginID)
	if !ok {
		s.logger.Error("cannot navigate: no enabled plugin", "view", viewPath, "plugin", pluginID)
		return fmt.Errorf("%w: %s", ErrUnknownPlugin, viewPath)
	}

	f := Frame{ViewPath: viewPath, Searchable: searchable, PluginID: pluginID}

	s.mu.Lock()
	if len(s.frames) == 0 {
		s.saved = s.query.Query()
	}
	s.frames = append(s.frames, f)
	depth := len(s.frames)
	s.mu.Unlock()
	s.query.SetQuery("")

	s.logger.Info("view opened", "view", viewPath, "plugin", pluginID, "depth", depth)
	log.Event("nav:push", "push").Plugin(pluginID).Target(viewPath).Detail("depth", depth).Write(nil)

	if s.hooks != nil {
		s.hooks.ViewActivated(f)
	}
	s.publish()
	return nil
}

// Pop closes the top view and reports the removed frame. Popping an empty
// stack logs a warning and returns false.
func (s *Stack) Pop() (Frame, bool) {
	s.mu.Lock()
	if len(s.frames) == 0 {
		s.mu.Unlock()
		s.logger.Warn("go back with no open view")
		return Frame{}, false
	}

	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]

	var next Frame
	var restore string
	emptied := len(s.frames) == 0
	if emptied {
		restore = s.saved
		s.saved = ""
	} else {
		next = s.frames[len(s.frames)-1]
	}
	depth := len(s.frames)
	s.mu.Unlock()

	if emptied {
		s.query.SetQuery(restore)
	}

	s.logger.Info("view closed", "view", top.ViewPath, "depth", depth)
	log.Event("nav:pop", "pop").Plugin(top.PluginID).Target(top.ViewPath).Detail("depth", depth).Write(nil)

	if s.hooks != nil {
		if emptied {
			s.hooks.ViewDeactivated(top)
		} else {
			s.hooks.ViewActivated(next)
		}
	}
	s.publish()
	return top, true
}

// Clear drops every frame without notifying plugins and restores the
// snapshotted query. Used when all plugins are being unloaded.
func (s *Stack) Clear() {
	s.mu.Lock()
	if len(s.frames) == 0 {
		s.mu.Unlock()
		return
	}
	s.frames = nil
	restore := s.saved
	s.saved = ""
	s.mu.Unlock()

	s.query.SetQuery(restore)
	s.publish()
}

// Current returns the top frame.
func (s *Stack) Current() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Active reports whether any view is open.
func (s *Stack) Active() bool {
	return s.Depth() > 0
}

// Depth returns the number of open views.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Frames returns the open views, bottom first.
func (s *Stack) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

// Subscribe registers fn to receive the frame list after each change.
func (s *Stack) Subscribe(fn func([]Frame)) func() {
	return s.feed.Subscribe(fn)
}

func (s *Stack) publish() {
	s.feed.Publish(s.Frames())
}
