// Package search aggregates results from every registered provider into one
// ranked list.
//
// Providers are queried concurrently and a failing provider only loses its
// own results. Merged results are deduplicated, labelled, ranked with a
// usage-aware score and cached per query for a short TTL. An empty query
// returns a curated list of frequently and recently used items instead.
package search

import (
	"context"
	"strings"
)

// Source identifies the provider family that produced a result. Usage
// statistics are kept separately per source.
type Source string

const (
	SourceApplication Source = "application"
	SourceExtension   Source = "extension"
)

// Result types shared by the built-in providers.
const (
	TypeApplication = "application"
	TypeCommand     = "command"
	TypeResult      = "result"
	TypeView        = "view"
)

// ActionKind tells the front end what to do after a result's action ran.
type ActionKind string

const (
	ActionNone    ActionKind = "NONE"
	ActionSetView ActionKind = "SET_VIEW"
)

// ActionResult is returned by a selected result's action.
type ActionResult struct {
	Type        ActionKind `json:"type"`
	View        string     `json:"view,omitempty"`
	ExtensionID string     `json:"extension_id,omitempty"`
	ViewName    string     `json:"view_name,omitempty"`
}

// None is the ActionResult for actions that leave the UI where it is.
var None = ActionResult{Type: ActionNone}

// SetView returns the ActionResult that opens viewPath ("plugin/view").
func SetView(viewPath string) ActionResult {
	id, name, _ := strings.Cut(viewPath, "/")
	return ActionResult{Type: ActionSetView, View: viewPath, ExtensionID: id, ViewName: name}
}

// Result is one normalized search result. Score is on a 0-100 scale once the
// result has been ranked.
type Result struct {
	ID           string  `json:"id,omitempty"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle,omitempty"`
	Type         string  `json:"type"`
	Category     string  `json:"category,omitempty"`
	Icon         string  `json:"icon,omitempty"`
	Score        float64 `json:"score"`
	Source       Source  `json:"source"`
	PluginID     string  `json:"plugin_id,omitempty"`
	UsageCount   int     `json:"usage_count,omitempty"`
	RecentlyUsed bool    `json:"recently_used,omitempty"`
	View         string  `json:"view,omitempty"`

	Action func(ctx context.Context) (ActionResult, error) `json:"-"`
}

// Run invokes the result's action. Results without an action do nothing.
func (r Result) Run(ctx context.Context) (ActionResult, error) {
	if r.Action == nil {
		if r.View != "" {
			return SetView(r.View), nil
		}
		return None, nil
	}
	return r.Action(ctx)
}

// key identifies exact duplicates across providers.
func (r Result) key() string {
	return string(r.Source) + "|" + r.Title + "|" + r.Type + "|" + r.Subtitle
}

// shortKey identifies duplicates in the default list.
func (r Result) shortKey() string {
	return string(r.Source) + "|" + r.Title
}

// label fills in the source and a visible subtitle for results that lack
// them. Application results always carry the "Application" label; plugin
// results keep a substantive subtitle when they have one.
func label(r *Result) {
	if r.Source == "" {
		if r.Type == TypeApplication {
			r.Source = SourceApplication
		} else {
			r.Source = SourceExtension
		}
	}
	switch r.Source {
	case SourceApplication:
		if !strings.Contains(r.Subtitle, "Application") {
			r.Subtitle = "Application"
		}
	case SourceExtension:
		if r.Subtitle == "" {
			r.Subtitle = "Extension"
		}
	}
}

// Provider produces results for a query. Priority orders iteration only;
// it never affects ranking.
type Provider interface {
	ID() string
	Priority() int
	Search(ctx context.Context, query string) ([]Result, error)
}

// DefaultProvider is implemented by providers that contribute to the
// empty-query list.
type DefaultProvider interface {
	Defaults(ctx context.Context) ([]Result, error)
}
