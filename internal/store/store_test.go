package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jpl-au/vela/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStore creates a temporary SQLite store for testing.
func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return s
}

func cmd(id, name, ext, keyword string) store.IndexItem {
	return store.IndexItem{
		ObjectID:  id,
		Category:  store.CategoryCommand,
		Name:      name,
		Extension: ext,
		Keyword:   keyword,
		Type:      "result",
	}
}

// --- Usage ---

func TestUsage_RecordAndCount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	apps := s.Usage(store.ScopeApps)

	before := time.Now().Add(-time.Second)
	for range 3 {
		require.NoError(t, apps.RecordUsage(ctx, "Mail"))
	}
	require.NoError(t, apps.RecordUsage(ctx, "Safari"))

	n, err := apps.Count(ctx, "Mail")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = apps.Count(ctx, "Never Used")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	counts, err := apps.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Mail": 3, "Safari": 1}, counts)

	last, err := apps.LastUsed(ctx)
	require.NoError(t, err)
	assert.True(t, last["Mail"].After(before))

	entries, err := apps.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Mail", entries[0].Name, "most used first")
}

func TestUsage_ScopesAreSeparate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Usage(store.ScopeApps).RecordUsage(ctx, "calculator"))
	require.NoError(t, s.Usage(store.ScopeExtensions).RecordUsage(ctx, "calculator"))
	require.NoError(t, s.Usage(store.ScopeExtensions).RecordUsage(ctx, "calculator"))

	n, err := s.Usage(store.ScopeApps).Count(ctx, "calculator")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Usage(store.ScopeExtensions).Count(ctx, "calculator")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUsage_Touch(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	exts := s.Usage(store.ScopeExtensions)

	require.NoError(t, exts.Touch(ctx, "greeting"))
	n, err := exts.Count(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	last, err := exts.LastUsed(ctx)
	require.NoError(t, err)
	assert.False(t, last["greeting"].IsZero())
}

// --- Plugin state ---

func TestPluginState(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	on, err := s.IsEnabled(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, on, "untouched plugins are enabled")

	require.NoError(t, s.SetEnabled(ctx, "greeting", false))
	on, err = s.IsEnabled(ctx, "greeting")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, s.SetEnabled(ctx, "greeting", true))
	states, err := s.States(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.True(t, states[0].Enabled)

	require.NoError(t, s.Forget(ctx, "greeting"))
	assert.ErrorIs(t, s.Forget(ctx, "greeting"), store.ErrNotFound)
}

// --- Search index ---

func TestIndex_InsertSkipUpdate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	item := cmd("cmd_calculator_evaluate", "Calculate", "calculator", "0123456789+-*/")
	changed, err := s.Index(ctx, item)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Index(ctx, item)
	require.NoError(t, err)
	assert.False(t, changed, "identical item is skipped")

	item.Name = "Calculator"
	changed, err = s.Index(ctx, item)
	require.NoError(t, err)
	assert.True(t, changed)

	hits, err := s.Query(ctx, "calculator", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Calculator", hits[0].Name)
}

func TestIndex_IndexedIDsByPrefix(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, it := range []store.IndexItem{
		cmd("cmd_greeting_hello", "Say Hello", "greeting", "hello"),
		cmd("cmd_docs_lookup", "Look Up Docs", "docs", "doc"),
		{ObjectID: "app_1234", Category: store.CategoryApplication, Name: "Mail", Path: "/Applications/Mail.app"},
	} {
		_, err := s.Index(ctx, it)
		require.NoError(t, err)
	}

	ids, err := s.IndexedIDs(ctx, "cmd_")
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd_docs_lookup", "cmd_greeting_hello"}, ids)

	all, err := s.IndexedIDs(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIndex_DeleteAndReset(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Index(ctx, cmd("cmd_a_one", "Alpha", "a", "alpha"))
	require.NoError(t, err)
	_, err = s.Index(ctx, cmd("cmd_b_two", "Beta", "b", "beta"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "cmd_a_one"))
	assert.ErrorIs(t, s.Delete(ctx, "cmd_a_one"), store.ErrNotFound)

	hits, err := s.Query(ctx, "alpha", 0)
	require.NoError(t, err)
	assert.Empty(t, hits, "deleted rows leave the fts index")

	require.NoError(t, s.Reset(ctx))
	ids, err := s.IndexedIDs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, ids)

	hits, err = s.Query(ctx, "beta", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_QueryOperatorsAreLiteral(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	_, err := s.Index(ctx, cmd("cmd_docs_lookup", "Look Up Docs", "docs", "doc"))
	require.NoError(t, err)

	hits, err := s.Query(ctx, `look "up`, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Query(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// --- Transactions ---

func TestTx_RollbackOnError(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO plugin_state (id, enabled, updated_at) VALUES ('x', 0, 0)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	on, err := s.IsEnabled(ctx, "x")
	require.NoError(t, err)
	assert.True(t, on, "rolled back insert left no row")
}

func TestCheckpoint(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.Usage(store.ScopeApps).RecordUsage(context.Background(), "Mail"))
	assert.NoError(t, s.Checkpoint(context.Background()))
}

// --- Maintenance ---

func TestUsage_StaleAndPrune(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	apps := s.Usage(store.ScopeApps)
	exts := s.Usage(store.ScopeExtensions)

	require.NoError(t, apps.RecordUsage(ctx, "Mail"))
	require.NoError(t, apps.RecordUsage(ctx, "Safari"))
	require.NoError(t, exts.RecordUsage(ctx, "calculator"))

	past := time.Now().Add(-time.Hour)
	stale, err := apps.Stale(ctx, past)
	require.NoError(t, err)
	assert.Empty(t, stale)

	future := time.Now().Add(time.Hour)
	stale, err = apps.Stale(ctx, future)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, 1, stale[0].Count)

	n, err := apps.Prune(ctx, future)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := apps.Counts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	// Other scopes are untouched.
	c, err := exts.Count(ctx, "calculator")
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	require.NoError(t, s.Vacuum(ctx))
}
