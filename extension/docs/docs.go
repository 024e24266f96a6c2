// Package docs is the built-in documentation plugin. It searches the
// embedded guide pages, opens them in a searchable browse view and answers
// "doc <topic>" with the closest page.
package docs

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/guide"
	"github.com/jpl-au/vela/internal/match"
	"github.com/jpl-au/vela/internal/search"
	"github.com/sahilm/fuzzy"
)

// ID is the plugin id.
const ID = "docs"

// Command and view identifiers.
const (
	CommandBrowse = "browse"
	CommandLookup = "lookup"
	ViewBrowse    = ID + "/browse"
)

const maxResults = 5

// ErrNoTopic is returned when no page matches a topic.
var ErrNoTopic = errors.New("no documentation for topic")

//go:embed manifest.yaml
var manifest []byte

// lookup matches "doc <topic>". The "docs" trigger is a different command,
// so the topic must be separated from "doc" by whitespace.
var lookup = match.MustPattern(`(?i)^doc\s+(?P<topic>\S.*)$`, 85)

func init() {
	extension.Register(ID, func() extension.Plugin { return &Docs{} }, manifest)
}

// Docs implements extension.Plugin.
type Docs struct {
	mu       sync.Mutex
	ctx      extension.Context
	pages    []guide.Page
	query    string
	selected string
}

var (
	_ extension.Initializer     = (*Docs)(nil)
	_ extension.Searcher        = (*Docs)(nil)
	_ extension.ViewSearcher    = (*Docs)(nil)
	_ extension.ViewStater      = (*Docs)(nil)
	_ extension.MatcherProvider = (*Docs)(nil)
	_ extension.MCPProvider     = (*Docs)(nil)
	_ extension.CLIProvider     = (*Docs)(nil)
)

func (d *Docs) Initialize(ctx extension.Context) error {
	pages, err := guide.Pages()
	if err != nil {
		return fmt.Errorf("load guide pages: %w", err)
	}
	d.ctx = ctx
	d.pages = pages
	return nil
}

// Matchers replaces the name-derived matcher of the lookup command.
func (d *Docs) Matchers(commandID string) []match.Matcher {
	if commandID == CommandLookup {
		return []match.Matcher{lookup}
	}
	return nil
}

func (d *Docs) ExecuteCommand(ctx context.Context, commandID string, args map[string]any) (any, error) {
	switch commandID {
	case CommandBrowse:
		d.mu.Lock()
		d.query, d.selected = "", ""
		d.mu.Unlock()
		return nil, d.ctx.Navigator().NavigateToView(ctx, ViewBrowse)

	case CommandLookup:
		topic, _ := args["topic"].(string)
		if topic == "" {
			topic, _ = args[match.ArgInput].(string)
		}
		found := Find(d.pages, topic)
		if len(found) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoTopic, topic)
		}
		d.selectPage(found[0].Name, topic)
		if err := d.ctx.Navigator().NavigateToView(ctx, ViewBrowse); err != nil {
			return nil, err
		}
		return found[0], nil

	default:
		return nil, fmt.Errorf("docs: unknown command %q", commandID)
	}
}

func (d *Docs) selectPage(name, query string) {
	d.mu.Lock()
	d.selected, d.query = name, query
	d.mu.Unlock()
}

// Search lists pages for "docs <text>". The bare trigger is left to the
// browse command's own result.
func (d *Docs) Search(_ context.Context, query string) ([]search.Result, error) {
	q := strings.TrimSpace(query)
	if len(q) < 4 || !strings.EqualFold(q[:4], "docs") {
		return nil, nil
	}
	rest := strings.TrimSpace(q[4:])
	if rest == "" {
		return nil, nil
	}

	found := Find(d.pages, rest)
	if len(found) > maxResults {
		found = found[:maxResults]
	}
	out := make([]search.Result, 0, len(found))
	for i, p := range found {
		name := p.Name
		out = append(out, search.Result{
			ID:       ID + "_" + name,
			Title:    p.Title,
			Subtitle: clip(p.Summary, 80),
			Type:     search.TypeResult,
			Icon:     "book",
			Score:    float64(90 - 5*i),
			Action: func(context.Context) (search.ActionResult, error) {
				d.selectPage(name, rest)
				return search.SetView(ViewBrowse), nil
			},
		})
	}
	return out, nil
}

// OnViewSearch filters the page list and selects the best page.
func (d *Docs) OnViewSearch(_ context.Context, query string) error {
	q := strings.TrimSpace(query)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.query = q
	if q == "" {
		return nil
	}
	if found := Find(d.pages, q); len(found) > 0 {
		d.selected = found[0].Name
	}
	return nil
}

// Entry is one line of the page list.
type Entry struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// State is what the browse view shows.
type State struct {
	Query    string      `json:"query"`
	Pages    []Entry     `json:"pages"`
	Selected *guide.Page `json:"selected,omitempty"`
}

func (d *Docs) ViewState(viewPath string) any {
	if viewPath != ViewBrowse {
		return nil
	}
	d.mu.Lock()
	query, selected := d.query, d.selected
	d.mu.Unlock()

	s := State{Query: query, Pages: []Entry{}}
	for _, p := range Find(d.pages, query) {
		s.Pages = append(s.Pages, Entry{Name: p.Name, Title: p.Title, Summary: p.Summary})
		if p.Name == selected {
			s.Selected = &p
		}
	}
	return s
}

// Find ranks pages against query. An exact page name comes first; the
// rest are fuzzy matches over name, title and tags. An empty query returns
// every page.
func Find(pages []guide.Page, query string) []guide.Page {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return pages
	}

	var out []guide.Page
	exact := -1
	for i, p := range pages {
		if p.Name == q {
			exact = i
			out = append(out, p)
		}
	}
	for _, m := range fuzzy.FindFrom(q, corpus(pages)) {
		if m.Index != exact {
			out = append(out, pages[m.Index])
		}
	}
	return out
}

type corpus []guide.Page

func (c corpus) String(i int) string {
	p := c[i]
	return strings.ToLower(p.Name + " " + p.Title + " " + strings.Join(p.Tags, " "))
}

func (c corpus) Len() int { return len(c) }

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
