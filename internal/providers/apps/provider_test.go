package apps_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jpl-au/vela/internal/providers/apps"
	"github.com/jpl-au/vela/internal/search"
	"github.com/jpl-au/vela/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsage struct {
	mu     sync.Mutex
	counts map[string]int
	last   map[string]time.Time
}

func newUsage() *memUsage {
	return &memUsage{counts: map[string]int{}, last: map[string]time.Time{}}
}

func (u *memUsage) RecordUsage(_ context.Context, name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.counts[name]++
	u.last[name] = time.Now()
	return nil
}

func (u *memUsage) set(name string, n int, at time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.counts[name] = n
	u.last[name] = at
}

func (u *memUsage) Counts(context.Context) (map[string]int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]int, len(u.counts))
	for k, v := range u.counts {
		out[k] = v
	}
	return out, nil
}

func (u *memUsage) LastUsed(context.Context) (map[string]time.Time, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]time.Time, len(u.last))
	for k, v := range u.last {
		out[k] = v
	}
	return out, nil
}

func write(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

// appDir lays out one of each recognised shape plus some noise.
func appDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "mail.desktop"), "[Desktop Entry]\nType=Application\nName=Mail\nExec=mail %u\nIcon=mail\n\n[Desktop Action New]\nName=New Message\n", 0644)
	write(t, filepath.Join(dir, "hidden.desktop"), "[Desktop Entry]\nType=Application\nName=Hidden\nNoDisplay=true\n", 0644)
	write(t, filepath.Join(dir, "link.desktop"), "[Desktop Entry]\nType=Link\nName=Website\n", 0644)
	write(t, filepath.Join(dir, "Calendar.app", "Contents", "MacOS", "Calendar"), "#!/bin/sh\n", 0755)
	write(t, filepath.Join(dir, "bin", "mailsync"), "#!/bin/sh\n", 0755)
	write(t, filepath.Join(dir, "bin", "README"), "not an app", 0644)
	return dir
}

func TestScan(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bits are not meaningful on windows")
	}
	dir := appDir(t)

	found, err := apps.Scan(context.Background(), []string{dir, filepath.Join(dir, "missing")})
	require.NoError(t, err)

	var got []string
	for _, a := range found {
		got = append(got, a.Name+":"+a.Kind)
	}
	assert.Equal(t, []string{"Calendar:bundle", "Mail:desktop", "mailsync:executable"}, got)
	assert.Equal(t, "mail %u", found[1].Exec)
	assert.Equal(t, "mail", found[1].Icon)
	assert.Equal(t, apps.AppID(filepath.Join(dir, "mail.desktop")), found[1].ID)
	assert.Regexp(t, `^app_[0-9a-f]{16}$`, found[1].ID)
}

type fixture struct {
	provider *apps.Provider
	usage    *memUsage
	opened   []string
	st       *store.SQLiteStore
}

func setup(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("executable bits are not meaningful on windows")
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "vela.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })

	f := &fixture{usage: newUsage(), st: st}
	opener := apps.OpenerFunc(func(_ context.Context, a apps.App) error {
		f.opened = append(f.opened, a.Name)
		return nil
	})
	f.provider = apps.New([]string{appDir(t)}, f.usage, opener, st, nil)
	return f
}

func TestSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rs, err := f.provider.Search(ctx, "mail")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "Mail", rs[0].Title)
	assert.Equal(t, search.SourceApplication, rs[0].Source)
	assert.Equal(t, search.TypeApplication, rs[0].Type)
	assert.Equal(t, float64(80), rs[0].Score)

	f.usage.set("mailsync", 7, time.Now())
	rs, err = f.provider.Search(ctx, "mail")
	require.NoError(t, err)
	assert.Equal(t, "mailsync", rs[1].Title)
	assert.Equal(t, 77+apps.Boost(7), rs[1].Score)
	assert.Equal(t, 7, rs[1].UsageCount)
}

func TestBoost(t *testing.T) {
	assert.Zero(t, apps.Boost(0))
	assert.Equal(t, float64(5), apps.Boost(1))
	assert.Equal(t, float64(15), apps.Boost(1000), "capped")
}

func TestOpen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rs, err := f.provider.Search(ctx, "calendar")
	require.NoError(t, err)
	require.NotEmpty(t, rs)

	ar, err := rs[0].Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, search.None, ar)
	assert.Equal(t, []string{"Calendar"}, f.opened)
	assert.Equal(t, 1, f.usage.counts["Calendar"], "usage is keyed by title")

	assert.ErrorIs(t, f.provider.Open(ctx, "app_nope"), apps.ErrUnknownApp)
}

func TestDefaults(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.usage.set("Mail", 3, time.Now().Add(-48*time.Hour))
	f.usage.set("Calendar", 0, time.Now())
	f.usage.set("Removed App", 9, time.Now())

	rs, err := f.provider.Defaults(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "Mail", rs[0].Title)
	assert.Equal(t, search.DefaultScore(3, false), rs[0].Score)
	assert.Equal(t, "Calendar", rs[1].Title)
	assert.True(t, rs[1].RecentlyUsed)
}

func TestRefresh_SyncsIndex(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.st.Index(ctx, store.IndexItem{ObjectID: "app_stale", Category: store.CategoryApplication, Name: "Stale"})
	require.NoError(t, err)

	found, err := f.provider.Refresh(ctx)
	require.NoError(t, err)

	ids, err := f.st.IndexedIDs(ctx, apps.IDPrefix)
	require.NoError(t, err)
	want := make([]string, 0, len(found))
	for _, a := range found {
		want = append(want, a.ID)
	}
	assert.ElementsMatch(t, want, ids)

	items, err := f.st.Query(ctx, "Calendar", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, store.CategoryApplication, items[0].Category)
}
