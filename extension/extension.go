// Package extension provides the plugin architecture for vela. A plugin
// contributes commands, actions, search results and views to the launcher.
// Built-in plugins register a factory at init time; filesystem plugins are
// discovered by the loader and backed by a script runtime. Both satisfy the
// same Plugin contract.
package extension

import (
	"context"

	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/match"
	"github.com/jpl-au/vela/internal/search"
	"github.com/spf13/cobra"
)

// Plugin is the one mandatory capability: running its declared commands.
type Plugin interface {
	// ExecuteCommand runs commandID (the manifest command id, not the object
	// id) with the arguments produced by the command's matcher.
	ExecuteCommand(ctx context.Context, commandID string, args map[string]any) (any, error)
}

// Factory creates a fresh plugin instance. It is called on every load, so a
// reload after enable/disable always starts from clean state.
type Factory func() Plugin

// Initializer plugins receive their Context once, after registration and
// before activation.
type Initializer interface {
	Initialize(ctx Context) error
}

// Activator plugins are told when they become live and when they are about
// to be unloaded.
type Activator interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// Searcher plugins contribute results to the main search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// ViewSearcher plugins receive the query typed while one of their views is
// on top of the navigation stack.
type ViewSearcher interface {
	OnViewSearch(ctx context.Context, query string) error
}

// ViewListener plugins are notified when one of their views becomes the
// top frame and when their last view is closed.
type ViewListener interface {
	ViewActivated(ctx context.Context, viewPath string)
	ViewDeactivated(ctx context.Context, viewPath string)
}

// ViewStater plugins expose the state behind a view so headless front ends
// (HTTP, MCP, the shell) can show it.
type ViewStater interface {
	ViewState(viewPath string) any
}

// MatcherProvider plugins supply matchers for a command instead of the
// ones derived from its trigger. Returning nil keeps the derived matchers.
type MatcherProvider interface {
	Matchers(commandID string) []match.Matcher
}

// ActionProvider plugins contribute actions registered with the plugin's
// commands. PluginID is filled in by the manager.
type ActionProvider interface {
	Actions() []action.Action
}

// CLIProvider plugins add subcommands to the vela CLI. Only built-in
// plugins are asked, and only once at startup.
type CLIProvider interface {
	CLICommands() []*cobra.Command
}

// InlineResult is returned by commands whose result type is "inline". The
// plugin search provider shows it directly in the result list; selecting it
// runs Action.
type InlineResult struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Value    string `json:"value,omitempty"`
	Error    string `json:"error,omitempty"`

	Action func(ctx context.Context) error `json:"-"`
}
