// events.go defines the event types for plugin notifications.
//
// Separated from extension.go to isolate the event system. Events let
// plugins and front ends react to launcher changes (plugins loading,
// commands running, views opening) without modifying core logic.
//
// Design: Events are fire-and-forget notifications, not approval requests.
// Plugins cannot block or veto operations via events - they observe after
// the fact. The same events are streamed to HTTP clients on /events.

package extension

// EventType identifies the kind of event.
type EventType string

const (
	EventPluginLoaded      EventType = "plugin:loaded"
	EventPluginUnloaded    EventType = "plugin:unloaded"
	EventPluginEnabled     EventType = "plugin:enabled"
	EventPluginDisabled    EventType = "plugin:disabled"
	EventPluginUninstalled EventType = "plugin:uninstalled"
	EventCommandExecuted   EventType = "command:executed"
	EventViewOpened        EventType = "view:opened"
	EventViewClosed        EventType = "view:closed"
	EventIndexSynced       EventType = "index:synced"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	EventPlugin() string
}

// PluginEvent is fired after a plugin changes lifecycle state.
type PluginEvent struct {
	Kind EventType `json:"kind"`
	ID   string    `json:"id"`
}

func (e PluginEvent) EventType() EventType { return e.Kind }
func (e PluginEvent) EventPlugin() string  { return e.ID }

// CommandEvent is fired after a command runs. Error is empty on success.
type CommandEvent struct {
	ObjectID string `json:"object_id"`
	PluginID string `json:"plugin_id"`
	Error    string `json:"error,omitempty"`
}

func (e CommandEvent) EventType() EventType { return EventCommandExecuted }
func (e CommandEvent) EventPlugin() string  { return e.PluginID }

// ViewEvent is fired after a view is pushed or popped.
type ViewEvent struct {
	ViewPath string `json:"view_path"`
	PluginID string `json:"plugin_id"`
	Depth    int    `json:"depth"`
	Opened   bool   `json:"opened"` // true=pushed, false=popped
}

func (e ViewEvent) EventType() EventType {
	if e.Opened {
		return EventViewOpened
	}
	return EventViewClosed
}
func (e ViewEvent) EventPlugin() string { return e.PluginID }

// IndexEvent is fired after the search index is reconciled.
type IndexEvent struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
}

func (e IndexEvent) EventType() EventType { return EventIndexSynced }
func (e IndexEvent) EventPlugin() string  { return "" }

// EventHandler is implemented by plugins that want to receive events.
type EventHandler interface {
	HandleEvent(ctx Context, e Event) error
}
