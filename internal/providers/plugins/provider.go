// Package plugins is the search provider for loaded plugins.
//
// A query produces up to three kinds of result: a direct hit when a command
// matcher fires, fuzzy hits on command and view names, and whatever the
// plugins themselves return from Search when one of their triggers starts
// the query. An empty query lists the most used and most recently used
// plugins.
package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/manager"
	"github.com/jpl-au/vela/internal/match"
	"github.com/jpl-au/vela/internal/nav"
	"github.com/jpl-au/vela/internal/search"
	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
)

// ID is the provider id.
const ID = "plugins"

const (
	priority     = 100
	directScore  = 100
	fuzzyTop     = 70
	fuzzyStep    = 3
	fuzzyFloor   = 30
	maxFuzzy     = 8
	topByUsage   = 4
	topByRecency = 3
	maxDefaults  = 6
	viewUsageSep = ":"
	usageKeySep  = "."
)

// Plugins lists the enabled plugins.
type Plugins interface {
	ActivePlugins() []manager.Active
}

// Commands is the part of the command registry the provider needs.
type Commands interface {
	FindMatch(query string) *match.CommandMatch
	Get(objectID string) (command.Command, bool)
	Commands() []command.Command
	Execute(ctx context.Context, objectID string, args map[string]any) (any, error)
}

// Usage reads and records plugin usage.
type Usage interface {
	RecordUsage(ctx context.Context, name string) error
	Counts(ctx context.Context) (map[string]int, error)
	LastUsed(ctx context.Context) (map[string]time.Time, error)
}

// Provider implements search.Provider and search.DefaultProvider.
type Provider struct {
	plugins  Plugins
	commands Commands
	usage    Usage
	query    nav.QueryState
	now      func() time.Time
	logger   *slog.Logger
}

var (
	_ search.Provider        = (*Provider)(nil)
	_ search.DefaultProvider = (*Provider)(nil)
)

// New creates the provider. query may be nil; it is used to type a plugin's
// trigger when a result-type plugin is picked from the default list.
func New(plugins Plugins, commands Commands, usage Usage, query nav.QueryState, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		plugins:  plugins,
		commands: commands,
		usage:    usage,
		query:    query,
		now:      time.Now,
		logger:   logger,
	}
}

func (p *Provider) ID() string    { return ID }
func (p *Provider) Priority() int { return priority }

// Search returns direct, fuzzy and plugin-provided results for query.
func (p *Provider) Search(ctx context.Context, query string) ([]search.Result, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}

	active := p.plugins.ActivePlugins()
	byID := make(map[string]manager.Active, len(active))
	for _, a := range active {
		byID[a.ID] = a
	}

	var out []search.Result
	seen := make(map[string]bool)

	if r, ok := p.direct(ctx, query, byID); ok {
		out = append(out, r)
		seen[r.ID] = true
	}
	for _, r := range p.fuzzy(q, active) {
		if !seen[r.ID] {
			out = append(out, r)
			seen[r.ID] = true
		}
	}
	out = append(out, p.delegate(ctx, q, active)...)
	return out, nil
}

// direct turns the best matcher hit into a result. Inline commands run now
// so their output can be shown in place.
func (p *Provider) direct(ctx context.Context, query string, byID map[string]manager.Active) (search.Result, bool) {
	m := p.commands.FindMatch(query)
	if m == nil {
		return search.Result{}, false
	}
	c, ok := p.commands.Get(m.CommandID)
	if !ok {
		return search.Result{}, false
	}

	if c.ResultType == extension.ResultTypeInline {
		out, err := c.Handler(ctx, m.Args)
		if err != nil {
			p.logger.Debug("inline command failed", "command", c.ObjectID, "error", err)
			return search.Result{}, false
		}
		return p.inline(c, m, out), true
	}

	args := m.Args
	return search.Result{
		ID:       c.ObjectID,
		Title:    "Execute: " + c.Name,
		Subtitle: c.Description,
		Type:     search.TypeCommand,
		Icon:     byID[c.PluginID].Manifest.Icon,
		Score:    directScore,
		Source:   search.SourceExtension,
		PluginID: c.PluginID,
		Action: func(ctx context.Context) (search.ActionResult, error) {
			return p.execute(ctx, c, args)
		},
	}, true
}

func (p *Provider) inline(c command.Command, m *match.CommandMatch, out any) search.Result {
	r := search.Result{
		ID:       c.ObjectID + "_inline",
		Type:     search.TypeResult,
		Score:    float64(m.Confidence),
		Source:   search.SourceExtension,
		PluginID: c.PluginID,
	}
	switch v := out.(type) {
	case extension.InlineResult:
		r.Title, r.Subtitle = v.Title, v.Subtitle
		if v.Error != "" && r.Title == "" {
			r.Title = v.Error
		}
		act := v.Action
		r.Action = func(ctx context.Context) (search.ActionResult, error) {
			p.record(ctx, c.PluginID)
			if act != nil {
				if err := act(ctx); err != nil {
					return search.None, err
				}
			}
			return search.None, nil
		}
	default:
		r.Title = fmt.Sprint(v)
		r.Action = func(ctx context.Context) (search.ActionResult, error) {
			p.record(ctx, c.PluginID)
			return search.None, nil
		}
	}
	return r
}

// execute runs a command picked from the list. Commands that navigate do
// so through their plugin's Navigator; a returned ActionResult is passed on.
func (p *Provider) execute(ctx context.Context, c command.Command, args map[string]any) (search.ActionResult, error) {
	p.record(ctx, c.PluginID)
	out, err := p.commands.Execute(ctx, c.ObjectID, args)
	if err != nil {
		return search.None, err
	}
	if ar, ok := out.(search.ActionResult); ok {
		return ar, nil
	}
	if ir, ok := out.(extension.InlineResult); ok && ir.Action != nil {
		if err := ir.Action(ctx); err != nil {
			return search.None, err
		}
	}
	return search.None, nil
}

// candidate is one fuzzy-searchable name.
type candidate struct {
	text   string
	result search.Result
}

type candidates []candidate

func (c candidates) String(i int) string { return c[i].text }
func (c candidates) Len() int           { return len(c) }

// fuzzy matches q against view names and non-inline command names. Inline
// commands need an argument and only surface through direct matches.
func (p *Provider) fuzzy(q string, active []manager.Active) []search.Result {
	var cs candidates
	for _, a := range active {
		if a.Manifest.Type == extension.TypeView && a.Manifest.DefaultView != "" {
			view := a.Manifest.ViewPath(a.Manifest.DefaultView)
			cs = append(cs, candidate{
				text:   a.Manifest.Name,
				result: p.viewResult(a, view),
			})
		}
	}
	for _, c := range p.commands.Commands() {
		if c.ResultType == extension.ResultTypeInline {
			continue
		}
		text := c.Name
		if t := strings.TrimSpace(c.Trigger); t != "" && !match.IsCharsetTrigger(t) {
			text += " " + t
		}
		cs = append(cs, candidate{
			text: text,
			result: search.Result{
				ID:       c.ObjectID,
				Title:    c.Name,
				Subtitle: c.Description,
				Type:     search.TypeCommand,
				Source:   search.SourceExtension,
				PluginID: c.PluginID,
				Action: func(ctx context.Context) (search.ActionResult, error) {
					return p.execute(ctx, c, map[string]any{match.ArgInput: ""})
				},
			},
		})
	}

	matches := fuzzy.FindFrom(q, cs)
	out := make([]search.Result, 0, min(len(matches), maxFuzzy))
	for i, m := range matches {
		if i == maxFuzzy {
			break
		}
		r := cs[m.Index].result
		r.Score = float64(max(fuzzyFloor, fuzzyTop-i*fuzzyStep))
		out = append(out, r)
	}
	return out
}

func (p *Provider) viewResult(a manager.Active, view string) search.Result {
	id := a.ID
	return search.Result{
		ID:       id + "_view",
		Title:    a.Manifest.Name,
		Subtitle: a.Manifest.Description,
		Type:     search.TypeView,
		Icon:     a.Manifest.Icon,
		Source:   search.SourceExtension,
		PluginID: id,
		View:     view,
		Action: func(ctx context.Context) (search.ActionResult, error) {
			p.record(ctx, id)
			return search.SetView(view), nil
		},
	}
}

// delegate asks every Searcher plugin whose trigger starts the query.
func (p *Provider) delegate(ctx context.Context, q string, active []manager.Active) []search.Result {
	var targets []manager.Active
	for _, a := range active {
		if _, ok := a.Plugin.(extension.Searcher); ok && triggered(a.Manifest, q) {
			targets = append(targets, a)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	results := make([][]search.Result, len(targets))
	var g errgroup.Group
	for i, a := range targets {
		g.Go(func() error {
			rs, err := a.Plugin.(extension.Searcher).Search(ctx, q)
			if err != nil {
				p.logger.Error("plugin search failed", "plugin", a.ID, "error", err)
				return nil
			}
			for j := range rs {
				rs[j] = p.own(a.ID, rs[j])
			}
			results[i] = rs
			return nil
		})
	}
	_ = g.Wait()

	var out []search.Result
	for _, rs := range results {
		out = append(out, rs...)
	}
	return out
}

// own stamps a plugin's result with its origin and records plugin usage
// when it is picked.
func (p *Provider) own(pluginID string, r search.Result) search.Result {
	r.PluginID = pluginID
	if r.Source == "" {
		r.Source = search.SourceExtension
	}
	inner := r
	r.Action = func(ctx context.Context) (search.ActionResult, error) {
		p.record(ctx, pluginID)
		return inner.Run(ctx)
	}
	return r
}

// triggered reports whether the first word of any command trigger of m
// starts q, case-insensitively.
func triggered(m extension.Manifest, q string) bool {
	q = strings.ToLower(q)
	for _, c := range m.Commands {
		fields := strings.Fields(c.Trigger)
		if len(fields) == 0 || match.IsCharsetTrigger(c.Trigger) {
			continue
		}
		if strings.HasPrefix(q, strings.ToLower(fields[0])) {
			return true
		}
	}
	return false
}

// Defaults lists the most used plugins plus a few recently used ones.
func (p *Provider) Defaults(ctx context.Context) ([]search.Result, error) {
	if p.usage == nil {
		return nil, nil
	}
	counts, err := p.usage.Counts(ctx)
	if err != nil {
		return nil, err
	}
	last, err := p.usage.LastUsed(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]manager.Active)
	for _, a := range p.plugins.ActivePlugins() {
		byID[a.ID] = a
	}

	var ids []string
	for name := range last {
		if strings.Contains(name, viewUsageSep) || strings.Contains(name, usageKeySep) {
			continue
		}
		if _, ok := byID[name]; ok {
			ids = append(ids, name)
		}
	}

	// Most used first, ties by name for a stable list.
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	now := p.now()
	picked := make(map[string]bool)
	var chosen []string
	for _, id := range ids {
		if len(chosen) == topByUsage {
			break
		}
		if counts[id] > 0 {
			chosen = append(chosen, id)
			picked[id] = true
		}
	}

	recent := append([]string(nil), ids...)
	sort.SliceStable(recent, func(i, j int) bool { return last[recent[i]].After(last[recent[j]]) })
	added := 0
	for _, id := range recent {
		if added == topByRecency || len(chosen) == maxDefaults {
			break
		}
		if picked[id] || !search.Recent(last[id], now) {
			continue
		}
		chosen = append(chosen, id)
		picked[id] = true
		added++
	}

	out := make([]search.Result, 0, len(chosen))
	for _, id := range chosen {
		n := counts[id]
		isRecent := search.Recent(last[id], now)
		r := p.defaultResult(byID[id])
		r.Score = search.DefaultScore(n, isRecent)
		r.UsageCount = n
		r.RecentlyUsed = isRecent
		out = append(out, r)
	}
	return out, nil
}

// defaultResult is the entry for a plugin in the default list. View
// plugins open their default view; other plugins type their first trigger.
func (p *Provider) defaultResult(a manager.Active) search.Result {
	if a.Manifest.Type == extension.TypeView && a.Manifest.DefaultView != "" {
		return p.viewResult(a, a.Manifest.ViewPath(a.Manifest.DefaultView))
	}
	id := a.ID
	trigger := firstTrigger(a.Manifest)
	return search.Result{
		ID:       id + "_plugin",
		Title:    a.Manifest.Name,
		Subtitle: a.Manifest.Description,
		Type:     search.TypeCommand,
		Icon:     a.Manifest.Icon,
		Source:   search.SourceExtension,
		PluginID: id,
		Action: func(ctx context.Context) (search.ActionResult, error) {
			p.record(ctx, id)
			if p.query != nil && trigger != "" {
				p.query.SetQuery(trigger + " ")
			}
			return search.None, nil
		},
	}
}

func firstTrigger(m extension.Manifest) string {
	for _, c := range m.Commands {
		t := strings.TrimSpace(c.Trigger)
		if t != "" && !match.IsCharsetTrigger(t) {
			return t
		}
	}
	return ""
}

func (p *Provider) record(ctx context.Context, pluginID string) {
	if p.usage == nil {
		return
	}
	if err := p.usage.RecordUsage(ctx, pluginID); err != nil {
		p.logger.Warn("recording plugin usage failed", "plugin", pluginID, "error", err)
	}
}
