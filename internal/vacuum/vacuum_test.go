package vacuum

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "vela.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Usage(store.ScopeApps).RecordUsage(ctx, "Firefox"))
	require.NoError(t, st.Usage(store.ScopeExtensions).RecordUsage(ctx, "calculator"))
	return st
}

// later pretends the vacuum runs a day from now.
func later() time.Time { return time.Now().Add(24 * time.Hour) }

func TestRun_NothingStale(t *testing.T) {
	st := setup(t)
	var buf bytes.Buffer

	res, err := Run(context.Background(), &buf, st, Options{OlderThan: 90 * 24 * time.Hour})
	require.NoError(t, err)
	assert.Zero(t, res.Forgotten)
	assert.Contains(t, buf.String(), "No stale usage to forget")
}

func TestRun_DryRun(t *testing.T) {
	st := setup(t)
	var buf bytes.Buffer

	res, err := Run(context.Background(), &buf, st, Options{OlderThan: time.Hour, DryRun: true, Now: later})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Forgotten)
	assert.ElementsMatch(t, []string{"app/Firefox", "ext/calculator"}, res.Names)
	assert.Contains(t, buf.String(), "Would forget: app/Firefox")

	n, err := st.Usage(store.ScopeApps).Count(context.Background(), "Firefox")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "dry run must not delete")
}

func TestRun_Scope(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	var buf bytes.Buffer

	res, err := Run(ctx, &buf, st, Options{OlderThan: time.Hour, Scope: store.ScopeApps, Now: later})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Forgotten)
	assert.Contains(t, buf.String(), "Forgot 1 usage counter(s)")

	n, err := st.Usage(store.ScopeApps).Count(ctx, "Firefox")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = st.Usage(store.ScopeExtensions).Count(ctx, "calculator")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_PrunesAuditLog(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	t.Setenv("VELA_DATA_DIR", t.TempDir())
	require.NoError(t, log.Open())
	t.Cleanup(log.Close)
	log.Event("cli:search", "select").Target("Firefox").Write(nil)

	var buf bytes.Buffer
	res, err := Run(ctx, &buf, st, Options{OlderThan: time.Hour, Scope: store.ScopeApps, Now: later})
	require.NoError(t, err)
	assert.Zero(t, res.Audit, "a scoped vacuum leaves the audit log alone")

	buf.Reset()
	res, err = Run(ctx, &buf, st, Options{OlderThan: time.Hour, DryRun: true, Now: later})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Audit)
	assert.Contains(t, buf.String(), "Would prune 1 audit log entry")

	buf.Reset()
	res, err = Run(ctx, &buf, st, Options{OlderThan: time.Hour, Now: later})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Audit)
	assert.Contains(t, buf.String(), "Pruned 1 audit log entry")

	n, err := log.Count(ctx, log.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
