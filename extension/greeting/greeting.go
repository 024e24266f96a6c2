// Package greeting is the built-in example of a view plugin. It owns one
// searchable view, a form whose single field is whatever the user types
// while the view is open, and registers actions that only exist while that
// view is shown.
package greeting

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/match"
	"github.com/jpl-au/vela/internal/search"
)

// ID is the plugin id.
const ID = "greeting"

// Command and view identifiers.
const (
	CommandShowForm = "show-form"
	CommandCopy     = "greet-copy-argument"
	ViewForm        = ID + "/form"
)

// Action ids registered while the form is open.
const (
	ActionClear = "greeting-clear-form"
	ActionCopy  = "greeting-copy"
)

// ErrNoName is returned when there is nobody to greet.
var ErrNoName = errors.New("no name to greet")

//go:embed manifest.yaml
var manifest []byte

func init() {
	extension.Register(ID, func() extension.Plugin { return &Greeting{} }, manifest)
}

// Message formats the greeting for name.
func Message(name string) string {
	return "Hey " + name + " 👋"
}

// Greeting implements extension.Plugin.
type Greeting struct {
	mu      sync.Mutex
	ctx     extension.Context
	name    string
	copied  string
	showing bool
}

var (
	_ extension.Initializer  = (*Greeting)(nil)
	_ extension.Activator    = (*Greeting)(nil)
	_ extension.Searcher     = (*Greeting)(nil)
	_ extension.ViewSearcher = (*Greeting)(nil)
	_ extension.ViewListener = (*Greeting)(nil)
	_ extension.ViewStater   = (*Greeting)(nil)
)

func (g *Greeting) Initialize(ctx extension.Context) error {
	g.ctx = ctx
	return nil
}

func (g *Greeting) Activate(context.Context) error { return nil }

// Deactivate drops the view actions in case the plugin is unloaded while
// its form is open.
func (g *Greeting) Deactivate(context.Context) error {
	g.removeActions()
	return nil
}

func (g *Greeting) ExecuteCommand(ctx context.Context, commandID string, args map[string]any) (any, error) {
	switch commandID {
	case CommandShowForm:
		// Navigation calls back into ViewActivated, which takes g.mu.
		if err := g.ctx.Navigator().NavigateToView(ctx, ViewForm); err != nil {
			return nil, err
		}
		return nil, nil
	case CommandCopy:
		name, _ := args[match.ArgInput].(string)
		return g.copy(strings.TrimSpace(name))
	default:
		return nil, fmt.Errorf("greeting: unknown command %q", commandID)
	}
}

// copy puts the greeting for name on the clipboard. An empty name falls
// back to the one typed into the form.
func (g *Greeting) copy(name string) (string, error) {
	g.mu.Lock()
	if name == "" {
		name = g.name
	}
	g.mu.Unlock()
	if name == "" {
		return "", ErrNoName
	}

	msg := Message(name)
	if cb := g.ctx.Clipboard(); cb != nil {
		if err := cb.WriteAll(msg); err != nil {
			return "", fmt.Errorf("copy greeting: %w", err)
		}
	}
	g.mu.Lock()
	g.copied = msg
	g.mu.Unlock()
	return msg, nil
}

// Search offers a ready-made greeting for "hey <name>".
func (g *Greeting) Search(_ context.Context, query string) ([]search.Result, error) {
	q := strings.TrimSpace(query)
	if len(q) < 4 || !strings.EqualFold(q[:4], "hey ") {
		return nil, nil
	}
	name := strings.TrimSpace(q[4:])
	if name == "" {
		return nil, nil
	}
	objectID := command.ObjectID(ID, CommandCopy)
	return []search.Result{{
		ID:       ID + "_hey",
		Title:    "hey " + name + " 👋",
		Subtitle: "Copy greeting to clipboard",
		Type:     search.TypeResult,
		Score:    95,
		Action: func(ctx context.Context) (search.ActionResult, error) {
			_, err := g.ctx.Commands().Execute(ctx, objectID, map[string]any{match.ArgInput: name})
			return search.None, err
		},
	}}, nil
}

// OnViewSearch treats the query as the form's name field.
func (g *Greeting) OnViewSearch(_ context.Context, query string) error {
	g.mu.Lock()
	g.name = strings.TrimSpace(query)
	g.mu.Unlock()
	return nil
}

func (g *Greeting) ViewActivated(_ context.Context, viewPath string) {
	if viewPath != ViewForm {
		return
	}
	g.mu.Lock()
	already := g.showing
	g.showing = true
	g.mu.Unlock()
	if already {
		return
	}

	reg := g.ctx.Actions()
	for _, a := range g.actions() {
		if err := reg.Register(a); err != nil {
			g.ctx.Logger().Warn("registering view action failed", "action", a.ID, "error", err)
		}
	}
}

func (g *Greeting) ViewDeactivated(_ context.Context, viewPath string) {
	if viewPath == ViewForm {
		g.removeActions()
	}
}

func (g *Greeting) removeActions() {
	g.mu.Lock()
	was := g.showing
	g.showing = false
	g.mu.Unlock()
	if !was || g.ctx == nil {
		return
	}
	g.ctx.Actions().Unregister(ActionClear)
	g.ctx.Actions().Unregister(ActionCopy)
}

func (g *Greeting) actions() []action.Action {
	return []action.Action{
		{
			ID:      ActionClear,
			Label:   "Clear Form",
			Icon:    "eraser",
			Context: action.ExtensionView,
			Execute: func(context.Context) error {
				g.mu.Lock()
				g.name = ""
				g.mu.Unlock()
				return nil
			},
		},
		{
			ID:          ActionCopy,
			Label:       "Copy Greeting",
			Icon:        "copy",
			Description: "Copy the greeting for the name in the form",
			Context:     action.ExtensionView,
			Execute: func(context.Context) error {
				_, err := g.copy("")
				return err
			},
		},
	}
}

// State is what the form shows.
type State struct {
	Name     string `json:"name"`
	Greeting string `json:"greeting,omitempty"`
	Copied   string `json:"copied,omitempty"`
}

func (g *Greeting) ViewState(viewPath string) any {
	if viewPath != ViewForm {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s := State{Name: g.name, Copied: g.copied}
	if g.name != "" {
		s.Greeting = Message(g.name)
	}
	return s
}
