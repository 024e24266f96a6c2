package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservers(t *testing.T) {
	m := metrics.New()

	m.ObserveSearch(10*time.Millisecond, false)
	m.ObserveSearch(time.Millisecond, true)
	m.ProviderFailed("apps")
	m.PluginLoadFailed("broken")
	m.PluginsActive(3)
	m.CommandsRegistered(7)

	m.HandleEvent(extension.CommandEvent{ObjectID: "cmd_calc_eval", PluginID: "calc"})
	m.HandleEvent(extension.CommandEvent{ObjectID: "cmd_calc_eval", PluginID: "calc", Error: "bad input"})
	m.HandleEvent(extension.PluginEvent{Kind: extension.EventPluginLoaded, ID: "calc"})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Searches))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderErrors.WithLabelValues("apps")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CommandExecutions.WithLabelValues("calc")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CommandErrors.WithLabelValues("calc")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PluginsLoaded))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.RegisteredCommands))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Searches)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(2), s.CommandExecutions)
	assert.Equal(t, int64(1), s.CommandErrors)
	assert.Equal(t, int64(1), s.PluginLoadFailures)
	assert.Equal(t, 11*time.Millisecond, s.TotalSearchTime)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveSearch(time.Millisecond, false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "vela_searches_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestReport_StopsWithContext(t *testing.T) {
	m := metrics.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Report(ctx, time.Millisecond, nil)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop")
	}
}
