// aggregator.go implements the provider fan-out behind every query.
//
// Design: providers run concurrently and never fail the search as a whole.
// A provider error or panic is logged and counted, and that provider simply
// contributes nothing. Searches are not cancelled by newer searches; callers
// must accept results arriving out of order.

package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultTTL          = 30 * time.Second
	DefaultMaxResults   = 100
	DefaultDefaultLimit = 10
)

// Config tunes the aggregator.
type Config struct {
	TTL          time.Duration    // result cache lifetime
	MaxResults   int              // cap on ranked results
	DefaultLimit int              // cap on the empty-query list
	Now          func() time.Time // clock, replaced in tests
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultDefaultLimit
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Usage reads the usage statistics of one source.
type Usage interface {
	Counts(ctx context.Context) (map[string]int, error)
	LastUsed(ctx context.Context) (map[string]time.Time, error)
}

// Observer receives search instrumentation.
type Observer interface {
	ObserveSearch(d time.Duration, cached bool)
	ProviderFailed(provider string)
}

// IndexResetter rebuilds the external search index.
type IndexResetter interface {
	ResetIndex(ctx context.Context) error
}

// Aggregator fans queries out to providers and merges their results.
type Aggregator struct {
	mu        sync.RWMutex
	providers []Provider
	observer  Observer
	resetter  IndexResetter

	cfg    Config
	cache  *resultCache
	apps   Usage
	exts   Usage
	logger *slog.Logger
}

// New creates an aggregator. apps and exts may be nil, in which case usage
// plays no part in ranking for that source.
func New(cfg Config, apps, exts Usage, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Aggregator{
		cfg:    cfg,
		cache:  newResultCache(cfg.TTL),
		apps:   apps,
		exts:   exts,
		logger: logger,
	}
}

// Register adds p, replacing any provider with the same id. Providers are
// kept in descending priority order.
func (a *Aggregator) Register(p Provider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.providers {
		if existing.ID() == p.ID() {
			a.providers = append(a.providers[:i], a.providers[i+1:]...)
			break
		}
	}
	a.providers = append(a.providers, p)
	sort.SliceStable(a.providers, func(i, j int) bool {
		return a.providers[i].Priority() > a.providers[j].Priority()
	})
	a.logger.Debug("registered search provider", "provider", p.ID(), "priority", p.Priority())
}

// Unregister removes the provider with the given id.
func (a *Aggregator) Unregister(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, p := range a.providers {
		if p.ID() == id {
			a.providers = append(a.providers[:i], a.providers[i+1:]...)
			a.logger.Debug("unregistered search provider", "provider", id)
			return
		}
	}
}

// Providers returns the registered providers in iteration order.
func (a *Aggregator) Providers() []Provider {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Provider(nil), a.providers...)
}

func (a *Aggregator) SetObserver(o Observer) {
	a.mu.Lock()
	a.observer = o
	a.mu.Unlock()
}

func (a *Aggregator) SetIndexResetter(r IndexResetter) {
	a.mu.Lock()
	a.resetter = r
	a.mu.Unlock()
}

// Search returns ranked results for query. A blank query returns Defaults.
func (a *Aggregator) Search(ctx context.Context, query string) []Result {
	if strings.TrimSpace(query) == "" {
		return a.Defaults(ctx)
	}

	began := time.Now()
	key := strings.ToLower(query)
	if cached, ok := a.cache.get(key, a.cfg.Now()); ok {
		a.logger.Debug("using cached results", "query", query)
		a.observe(time.Since(began), true)
		return cached
	}

	providers := a.Providers()
	sets := make([][]Result, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			sets[i] = a.call(p, func() ([]Result, error) { return p.Search(ctx, query) })
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var merged []Result
	for _, set := range sets {
		for _, r := range set {
			k := r.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			label(&r)
			merged = append(merged, r)
		}
	}

	Rank(merged, query, a.snapshot(ctx))
	if len(merged) > a.cfg.MaxResults {
		merged = merged[:a.cfg.MaxResults]
	}

	a.cache.put(key, merged, a.cfg.Now())
	a.observe(time.Since(began), false)
	a.logger.Debug("search complete", "query", query, "results", len(merged), "providers", len(providers))
	return merged
}

// Defaults returns the curated empty-query list.
func (a *Aggregator) Defaults(ctx context.Context) []Result {
	providers := a.Providers()
	sets := make([][]Result, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		dp, ok := p.(DefaultProvider)
		if !ok {
			continue
		}
		g.Go(func() error {
			sets[i] = a.call(p, func() ([]Result, error) { return dp.Defaults(ctx) })
			return nil
		})
	}
	_ = g.Wait()

	var all []Result
	for _, set := range sets {
		for _, r := range set {
			label(&r)
			all = append(all, r)
		}
	}

	a.markRecent(ctx, all)
	SortDefaults(all)
	return Interleave(all, a.cfg.DefaultLimit)
}

// ClearCache drops every cached query.
func (a *Aggregator) ClearCache() {
	a.cache.clear()
	a.logger.Debug("search cache cleared")
}

// ResetIndex clears the result cache and asks the index owner to rebuild
// the external index.
func (a *Aggregator) ResetIndex(ctx context.Context) error {
	a.ClearCache()
	a.mu.RLock()
	r := a.resetter
	a.mu.RUnlock()
	if r == nil {
		return nil
	}
	if err := r.ResetIndex(ctx); err != nil {
		return fmt.Errorf("reset search index: %w", err)
	}
	return nil
}

// call runs one provider request, converting errors and panics into an
// empty result set.
func (a *Aggregator) call(p Provider, fn func() ([]Result, error)) (out []Result) {
	defer func() {
		if v := recover(); v != nil {
			a.logger.Error("search provider panicked", "provider", p.ID(), "panic", v)
			a.providerFailed(p.ID())
			out = nil
		}
	}()
	res, err := fn()
	if err != nil {
		a.logger.Error("search provider failed", "provider", p.ID(), "error", err)
		a.providerFailed(p.ID())
		return nil
	}
	return res
}

func (a *Aggregator) snapshot(ctx context.Context) UsageSnapshot {
	var u UsageSnapshot
	if a.apps != nil {
		counts, err := a.apps.Counts(ctx)
		if err != nil {
			a.logger.Warn("read application usage", "error", err)
		}
		u.Apps = counts
	}
	if a.exts != nil {
		counts, err := a.exts.Counts(ctx)
		if err != nil {
			a.logger.Warn("read extension usage", "error", err)
		}
		u.Extensions = counts
	}
	return u
}

// markRecent flags results used within the recency window that their
// provider did not already flag.
func (a *Aggregator) markRecent(ctx context.Context, results []Result) {
	var appsLast, extsLast map[string]time.Time
	if a.apps != nil {
		appsLast, _ = a.apps.LastUsed(ctx)
	}
	if a.exts != nil {
		extsLast, _ = a.exts.LastUsed(ctx)
	}
	now := a.cfg.Now()
	for i := range results {
		r := &results[i]
		if r.RecentlyUsed {
			continue
		}
		switch r.Source {
		case SourceExtension:
			if r.PluginID != "" {
				r.RecentlyUsed = Recent(extsLast[r.PluginID], now)
			}
		case SourceApplication:
			r.RecentlyUsed = Recent(appsLast[r.Title], now)
		}
	}
}

func (a *Aggregator) observe(d time.Duration, cached bool) {
	a.mu.RLock()
	o := a.observer
	a.mu.RUnlock()
	if o != nil {
		o.ObserveSearch(d, cached)
	}
}

func (a *Aggregator) providerFailed(id string) {
	a.mu.RLock()
	o := a.observer
	a.mu.RUnlock()
	if o != nil {
		o.ProviderFailed(id)
	}
}
