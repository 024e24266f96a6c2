// Package apps is the search provider for installed applications.
//
// Applications are scanned from the configured directories on first use
// and on Refresh, mirrored into the external search index, and matched
// with fuzzy search. Usage is keyed by application title, the same key the
// aggregator uses when ranking application results.
package apps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/search"
	"github.com/jpl-au/vela/internal/store"
	"github.com/sahilm/fuzzy"
)

// ID is the provider id.
const ID = "apps"

const (
	priority      = 50
	fuzzyTop      = 80
	fuzzyStep     = 3
	fuzzyFloor    = 30
	maxMatches    = 20
	maxUsageBoost = 15
	topByUsage    = 5
	topByRecency  = 2
	maxDefaults   = 6
)

// ErrUnknownApp is returned by Open for ids that match no scanned app.
var ErrUnknownApp = errors.New("unknown application")

// Usage reads and records application usage, keyed by title.
type Usage interface {
	RecordUsage(ctx context.Context, name string) error
	Counts(ctx context.Context) (map[string]int, error)
	LastUsed(ctx context.Context) (map[string]time.Time, error)
}

// Provider implements search.Provider and search.DefaultProvider.
type Provider struct {
	dirs   []string
	usage  Usage
	opener Opener
	index  store.Indexer
	now    func() time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	apps    []App
	byID    map[string]App
	scanned bool
}

var (
	_ search.Provider        = (*Provider)(nil)
	_ search.DefaultProvider = (*Provider)(nil)
)

// New creates the provider. opener defaults to SystemOpener; index may be
// nil, in which case nothing is mirrored.
func New(dirs []string, usage Usage, opener Opener, index store.Indexer, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if opener == nil {
		opener = SystemOpener{}
	}
	return &Provider{
		dirs:   dirs,
		usage:  usage,
		opener: opener,
		index:  index,
		now:    time.Now,
		logger: logger,
		byID:   make(map[string]App),
	}
}

func (p *Provider) ID() string    { return ID }
func (p *Provider) Priority() int { return priority }

// Refresh rescans the application directories and syncs the index.
func (p *Provider) Refresh(ctx context.Context) ([]App, error) {
	found, err := Scan(ctx, p.dirs)
	if err != nil {
		p.logger.Warn("application scan incomplete", "error", err)
	}

	byID := make(map[string]App, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	p.mu.Lock()
	p.apps, p.byID, p.scanned = found, byID, true
	p.mu.Unlock()

	p.logger.Debug("applications scanned", "count", len(found), "dirs", p.dirs)
	if err := p.syncIndex(ctx, found); err != nil {
		p.logger.Error("application index sync failed", "error", err)
	}
	return found, err
}

func (p *Provider) syncIndex(ctx context.Context, found []App) (err error) {
	if p.index == nil {
		return nil
	}
	indexed, removed := 0, 0
	defer func() {
		log.Event("index:sync", "apps").Detail("indexed", indexed).Detail("removed", removed).Write(err)
	}()

	current := make(map[string]bool, len(found))
	for _, a := range found {
		current[a.ID] = true
		wrote, err := p.index.Index(ctx, store.IndexItem{
			ObjectID: a.ID,
			Category: store.CategoryApplication,
			Name:     a.Name,
			Type:     search.TypeApplication,
			Path:     a.Path,
		})
		if err != nil {
			return fmt.Errorf("index %s: %w", a.Name, err)
		}
		if wrote {
			indexed++
		}
	}

	ids, err := p.index.IndexedIDs(ctx, IDPrefix)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if current[id] {
			continue
		}
		if err := p.index.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		removed++
	}
	return nil
}

// Apps returns the scanned applications, scanning on first use.
func (p *Provider) Apps(ctx context.Context) []App {
	p.mu.RLock()
	scanned, apps := p.scanned, p.apps
	p.mu.RUnlock()
	if !scanned {
		apps, _ = p.Refresh(ctx)
	}
	return apps
}

type names []App

func (n names) String(i int) string { return n[i].Name }
func (n names) Len() int            { return len(n) }

// Search fuzzy-matches query against application names.
func (p *Provider) Search(ctx context.Context, query string) ([]search.Result, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	apps := p.Apps(ctx)
	if len(apps) == 0 {
		return nil, nil
	}

	counts, err := p.counts(ctx)
	if err != nil {
		return nil, err
	}

	matches := fuzzy.FindFrom(q, names(apps))
	out := make([]search.Result, 0, min(len(matches), maxMatches))
	for i, m := range matches {
		if i == maxMatches {
			break
		}
		a := apps[m.Index]
		n := counts[a.Name]
		r := p.result(a)
		r.Score = float64(max(fuzzyFloor, fuzzyTop-i*fuzzyStep)) + Boost(n)
		r.UsageCount = n
		out = append(out, r)
	}
	return out, nil
}

// Boost is the provider's own usage bonus for an app opened n times.
func Boost(n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(maxUsageBoost, math.Log2(float64(n)+1)*5)
}

// Defaults lists the most opened applications and a couple of recent ones.
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

	byName := make(map[string]App)
	for _, a := range p.Apps(ctx) {
		if _, dup := byName[a.Name]; !dup {
			byName[a.Name] = a
		}
	}

	var used []string
	for name := range last {
		if _, ok := byName[name]; ok {
			used = append(used, name)
		}
	}
	sort.Slice(used, func(i, j int) bool {
		if counts[used[i]] != counts[used[j]] {
			return counts[used[i]] > counts[used[j]]
		}
		return used[i] < used[j]
	})

	now := p.now()
	picked := make(map[string]bool)
	var chosen []string
	for _, name := range used {
		if len(chosen) == topByUsage {
			break
		}
		if counts[name] > 0 {
			chosen = append(chosen, name)
			picked[name] = true
		}
	}

	recent := append([]string(nil), used...)
	sort.SliceStable(recent, func(i, j int) bool { return last[recent[i]].After(last[recent[j]]) })
	added := 0
	for _, name := range recent {
		if added == topByRecency || len(chosen) == maxDefaults {
			break
		}
		if picked[name] || !search.Recent(last[name], now) {
			continue
		}
		chosen = append(chosen, name)
		picked[name] = true
		added++
	}

	out := make([]search.Result, 0, len(chosen))
	for _, name := range chosen {
		n := counts[name]
		isRecent := search.Recent(last[name], now)
		r := p.result(byName[name])
		r.Score = search.DefaultScore(n, isRecent)
		r.UsageCount = n
		r.RecentlyUsed = isRecent
		out = append(out, r)
	}
	return out, nil
}

func (p *Provider) result(a App) search.Result {
	id := a.ID
	return search.Result{
		ID:       id,
		Title:    a.Name,
		Subtitle: "Application",
		Type:     search.TypeApplication,
		Icon:     a.Icon,
		Source:   search.SourceApplication,
		Action: func(ctx context.Context) (search.ActionResult, error) {
			return search.None, p.Open(ctx, id)
		},
	}
}

// Open records usage of the application and launches it.
func (p *Provider) Open(ctx context.Context, id string) (err error) {
	p.mu.RLock()
	a, ok := p.byID[id]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownApp, id)
	}
	defer func() { log.Event("app:open", "open").Target(a.Name).Detail("path", a.Path).Write(err) }()

	if p.usage != nil {
		if err := p.usage.RecordUsage(ctx, a.Name); err != nil {
			p.logger.Warn("recording application usage failed", "app", a.Name, "error", err)
		}
	}
	p.logger.Info("opening application", "app", a.Name, "path", a.Path)
	return p.opener.Open(ctx, a)
}

func (p *Provider) counts(ctx context.Context) (map[string]int, error) {
	if p.usage == nil {
		return nil, nil
	}
	return p.usage.Counts(ctx)
}
