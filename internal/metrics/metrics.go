// Package metrics collects launcher runtime metrics in a private Prometheus
// registry and periodically logs a summary.
//
// Metrics implements the observer interfaces of the search aggregator and
// the plugin manager, and consumes manager events for command counts, so
// neither of those packages imports Prometheus.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/manager"
	"github.com/jpl-au/vela/internal/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vela"

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry

	Searches           prometheus.Counter
	CacheHits          prometheus.Counter
	SearchDuration     prometheus.Histogram
	ProviderErrors     *prometheus.CounterVec
	CommandExecutions  *prometheus.CounterVec
	CommandErrors      *prometheus.CounterVec
	PluginLoadFailures *prometheus.CounterVec
	PluginsLoaded      prometheus.Gauge
	RegisteredCommands prometheus.Gauge

	mu        sync.RWMutex
	snapshot  Snapshot
	startTime time.Time
}

// Snapshot is a point-in-time summary for logs and JSON output.
type Snapshot struct {
	Searches           int64         `json:"searches"`
	CacheHits          int64         `json:"cache_hits"`
	ProviderErrors     int64         `json:"provider_errors"`
	CommandExecutions  int64         `json:"command_executions"`
	CommandErrors      int64         `json:"command_errors"`
	PluginLoadFailures int64         `json:"plugin_load_failures"`
	PluginsLoaded      int           `json:"plugins_loaded"`
	CommandsRegistered int           `json:"commands_registered"`
	TotalSearchTime    time.Duration `json:"total_search_time"`
	Uptime             time.Duration `json:"uptime"`
}

var (
	_ search.Observer  = (*Metrics)(nil)
	_ manager.Observer = (*Metrics)(nil)
)

// New creates the collectors in a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startTime: time.Now(),

		Searches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of non-empty searches",
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_hits_total",
			Help:      "Searches answered from the result cache",
		}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds, cached searches included",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_provider_errors_total",
			Help:      "Provider failures during search, by provider",
		}, []string{"provider"}),
		CommandExecutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_executions_total",
			Help:      "Command executions, by plugin",
		}, []string{"plugin"}),
		CommandErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Failed command executions, by plugin",
		}, []string{"plugin"}),
		PluginLoadFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_load_failures_total",
			Help:      "Plugins that failed to load or start, by plugin",
		}, []string{"plugin"}),
		PluginsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plugins_loaded",
			Help:      "Enabled plugins currently active",
		}),
		RegisteredCommands: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "commands_registered",
			Help:      "Commands currently registered",
		}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSearch implements search.Observer.
func (m *Metrics) ObserveSearch(d time.Duration, cached bool) {
	m.Searches.Inc()
	m.SearchDuration.Observe(d.Seconds())
	if cached {
		m.CacheHits.Inc()
	}
	m.update(func(s *Snapshot) {
		s.Searches++
		s.TotalSearchTime += d
		if cached {
			s.CacheHits++
		}
	})
}

// ProviderFailed implements search.Observer.
func (m *Metrics) ProviderFailed(provider string) {
	m.ProviderErrors.WithLabelValues(provider).Inc()
	m.update(func(s *Snapshot) { s.ProviderErrors++ })
}

// PluginLoadFailed implements manager.Observer.
func (m *Metrics) PluginLoadFailed(id string) {
	m.PluginLoadFailures.WithLabelValues(id).Inc()
	m.update(func(s *Snapshot) { s.PluginLoadFailures++ })
}

// PluginsActive implements manager.Observer.
func (m *Metrics) PluginsActive(n int) {
	m.PluginsLoaded.Set(float64(n))
	m.update(func(s *Snapshot) { s.PluginsLoaded = n })
}

// CommandsRegistered implements manager.Observer.
func (m *Metrics) CommandsRegistered(n int) {
	m.RegisteredCommands.Set(float64(n))
	m.update(func(s *Snapshot) { s.CommandsRegistered = n })
}

// HandleEvent counts command executions. Subscribe it to the manager's
// event feed.
func (m *Metrics) HandleEvent(e extension.Event) {
	ce, ok := e.(extension.CommandEvent)
	if !ok {
		return
	}
	m.CommandExecutions.WithLabelValues(ce.PluginID).Inc()
	failed := ce.Error != ""
	if failed {
		m.CommandErrors.WithLabelValues(ce.PluginID).Inc()
	}
	m.update(func(s *Snapshot) {
		s.CommandExecutions++
		if failed {
			s.CommandErrors++
		}
	})
}

// Snapshot returns the current summary.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.Uptime = time.Since(m.startTime)
	return s
}

func (m *Metrics) update(fn func(*Snapshot)) {
	m.mu.Lock()
	fn(&m.snapshot)
	m.mu.Unlock()
}

// Report logs a snapshot every interval until ctx is done.
func (m *Metrics) Report(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := m.Snapshot()
			logger.Info("runtime metrics",
				"searches", s.Searches,
				"cache_hits", s.CacheHits,
				"provider_errors", s.ProviderErrors,
				"commands", s.CommandExecutions,
				"command_errors", s.CommandErrors,
				"plugins", s.PluginsLoaded,
				"uptime", s.Uptime.Round(time.Second),
			)
		}
	}
}
