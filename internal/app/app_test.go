package app_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	_ "github.com/jpl-au/vela/extension/all"
	"github.com/jpl-au/vela/extension/greeting"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/app"
	"github.com/jpl-au/vela/internal/clip"
	"github.com/jpl-au/vela/internal/config"
	"github.com/jpl-au/vela/internal/providers/apps"
	"github.com/jpl-au/vela/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app  *app.App
	clip *clip.Memory

	mu     sync.Mutex
	opened []string
}

func (f *fixture) open(_ context.Context, a apps.App) error {
	f.mu.Lock()
	f.opened = append(f.opened, a.Name)
	f.mu.Unlock()
	return nil
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	appDir := filepath.Join(dir, "applications")
	require.NoError(t, os.MkdirAll(appDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "mail.desktop"),
		[]byte("[Desktop Entry]\nType=Application\nName=Mail\nExec=mail\n"), 0644))

	cfg := &config.Config{}
	cfg.SetDataDir(filepath.Join(dir, "data"))

	f := &fixture{clip: &clip.Memory{}}
	a, err := app.New(context.Background(), app.Options{
		Config:    cfg,
		Clipboard: f.clip,
		Opener:    apps.OpenerFunc(f.open),
		AppDirs:   []string{appDir},
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	f.app = a
	return f
}

func find(rs []search.Result, title string) (search.Result, bool) {
	for _, r := range rs {
		if r.Title == title {
			return r, true
		}
	}
	return search.Result{}, false
}

func TestNew_LoadsBuiltins(t *testing.T) {
	f := setup(t)

	var ids []string
	for _, p := range f.app.Manager.Plugins() {
		ids = append(ids, p.ID)
		assert.True(t, p.BuiltIn)
		assert.True(t, p.Enabled)
	}
	assert.Contains(t, ids, "calculator")
	assert.Contains(t, ids, "greeting")
	assert.Contains(t, ids, "docs")

	_, ok := f.app.Actions.Get(action.SettingsID)
	assert.True(t, ok)
	assert.Equal(t, len(ids), f.app.Metrics.Snapshot().PluginsLoaded)
}

func TestInput_InlineCalculator(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	resp := f.app.Input(ctx, "2+3")
	assert.Nil(t, resp.View)
	r, ok := find(resp.Results, "2+3 = 5")
	require.True(t, ok, "inline result shown: %+v", resp.Results)

	ar, err := f.app.Select(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, search.None, ar)
	text, _ := f.clip.ReadAll()
	assert.Equal(t, "5", text)
}

func TestRun_NavigatesAndRestoresQuery(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.app.Input(ctx, "gre")
	m, _, err := f.app.Run(ctx, "greet")
	require.NoError(t, err)
	assert.Equal(t, "cmd_greeting_show-form", m.CommandID)

	cur, ok := f.app.Manager.CurrentView()
	require.True(t, ok)
	assert.Equal(t, greeting.ViewForm, cur.Frame.ViewPath)
	assert.Equal(t, action.ExtensionView, f.app.Actions.Context())
	assert.Equal(t, "", f.app.Query.Query(), "the query is cleared for the view")

	resp := f.app.Input(ctx, "Ada")
	require.NotNil(t, resp.View)
	assert.Equal(t, greeting.State{Name: "Ada", Greeting: "Hey Ada 👋"}, resp.View.State)

	require.NoError(t, f.app.Actions.Execute(ctx, greeting.ActionCopy))
	text, _ := f.clip.ReadAll()
	assert.Equal(t, "Hey Ada 👋", text)

	f.app.Manager.GoBack(ctx)
	assert.False(t, f.app.Manager.Stack().Active())
	assert.Equal(t, "gre", f.app.Query.Query())
	assert.Equal(t, action.Core, f.app.Actions.Context())
	_, ok = f.app.Actions.Get(greeting.ActionCopy)
	assert.False(t, ok, "view actions go with the view")

	_, _, err = f.app.Run(ctx, "xyzzy")
	assert.ErrorIs(t, err, app.ErrNoMatch)
}

func TestPick_OpensView(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r, ar, err := f.app.Pick(ctx, "docs actions", "docs_actions")
	require.NoError(t, err)
	assert.Equal(t, "Actions", r.Title)
	assert.Equal(t, search.ActionSetView, ar.Type)

	cur, ok := f.app.Manager.CurrentView()
	require.True(t, ok)
	assert.Equal(t, "docs/browse", cur.Frame.ViewPath)

	_, _, err = f.app.Pick(ctx, "docs actions", "nope")
	assert.ErrorIs(t, err, app.ErrNoResult)
}

func TestApplications(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("desktop entries are a unix concept")
	}
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.app.Pick(ctx, "mail", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mail"}, f.opened)

	n, err := f.app.Store.Usage("app").Count(ctx, "Mail")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResetSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.app.Search.Search(ctx, "docs")
	require.NoError(t, f.app.Actions.Execute(ctx, action.ResetSearchID))

	ids, err := f.app.Store.IndexedIDs(ctx, "cmd_")
	require.NoError(t, err)
	assert.Contains(t, ids, "cmd_docs_browse")
	ids, err = f.app.Store.IndexedIDs(ctx, apps.IDPrefix)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestReload_InvalidatesCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rs := f.app.Search.Search(ctx, "hey bob")
	_, ok := find(rs, "hey bob 👋")
	require.True(t, ok)
	f.app.Search.Search(ctx, "hey bob")
	require.Equal(t, int64(1), f.app.Metrics.Snapshot().CacheHits)

	require.NoError(t, f.app.Manager.Reload(ctx))
	rs = f.app.Search.Search(ctx, "hey bob")
	_, ok = find(rs, "hey bob 👋")
	assert.True(t, ok)
	assert.Equal(t, int64(1), f.app.Metrics.Snapshot().CacheHits, "results from unloaded plugins are not reused")
}
