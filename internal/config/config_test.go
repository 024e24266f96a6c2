package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := &Config{}
	assert.Equal(t, DefaultCacheTTL, c.CacheTTL())
	assert.Equal(t, DefaultMaxResults, c.MaxResults())
	assert.Equal(t, DefaultDefaultResults, c.DefaultResults())
	assert.Equal(t, DefaultMetricsInterval, c.MetricsInterval())
	assert.Equal(t, DefaultHTTPAddr, c.HTTPAddr())
	assert.False(t, c.Watch())
	assert.NotEmpty(t, c.AppDirs())
}

func TestDataDirOverride(t *testing.T) {
	dir := t.TempDir()
	c := &Config{}
	c.SetDataDir(dir)
	assert.Equal(t, dir, c.DataDir())
	assert.Equal(t, filepath.Join(dir, "vela.db"), c.DBPath())
	assert.Equal(t, filepath.Join(dir, "extensions"), c.ExtensionsDir())

	c.Extensions.Dir = "/opt/vela/plugins"
	assert.Equal(t, "/opt/vela/plugins", c.ExtensionsDir())
}

func TestSetGet(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"search.cache_ttl", "45s", "45s"},
		{"search.max_results", "50", "50"},
		{"search.default_results", "8", "8"},
		{"extensions.watch", "TRUE", "true"},
		{"extensions.disabled", "greeting, docs,", "greeting,docs"},
		{"apps.dirs", "/a,/b", "/a,/b"},
		{"metrics.interval", "2m", "2m0s"},
		{"http.addr", ":9000", ":9000"},
		{"log.level", "DEBUG", "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c := &Config{}
			require.NoError(t, c.Set(tt.key, tt.value))
			got, err := c.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, c.IsSet(tt.key))
		})
	}
}

func TestSetInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"search.cache_ttl", "soon"},
		{"search.cache_ttl", "2h"},
		{"search.max_results", "0"},
		{"search.default_results", "500"},
		{"extensions.watch", "yes"},
		{"metrics.interval", "10ms"},
		{"log.level", "chatty"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			c := &Config{}
			assert.ErrorIs(t, c.Set(tt.key, tt.value), ErrInvalidValue)
		})
	}
}

func TestUnknownKey(t *testing.T) {
	c := &Config{}
	_, err := c.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.ErrorIs(t, c.Set("nope", "x"), ErrUnknownKey)
	assert.False(t, IsValidKey("nope"))
	assert.True(t, IsValidKey("search.cache_ttl"))
	assert.Len(t, c.All(), len(ValidKeys()))
}

func TestDisabled(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.Set("extensions.disabled", "greeting"))
	assert.True(t, c.Disabled("greeting"))
	assert.False(t, c.Disabled("calculator"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c, err := LoadFile(path, ScopeGlobal)
	require.NoError(t, err)
	require.NoError(t, c.Set("search.cache_ttl", "10s"))
	require.NoError(t, c.Set("extensions.disabled", "docs"))
	require.NoError(t, c.Save())

	loaded, err := LoadFile(path, ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, loaded.CacheTTL())
	assert.Equal(t, []string{"docs"}, loaded.Extensions.Disabled)
	assert.False(t, loaded.IsSet("search.max_results"))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0644))
	_, err := LoadFile(path, ScopeGlobal)
	assert.ErrorContains(t, err, "malformed config file")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  max_results: -1\n"), 0644))
	_, err := LoadFile(path, ScopeGlobal)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VELA_DATA_DIR", dir)
	t.Setenv("VELA_EXTENSIONS_DIR", filepath.Join(dir, "plugins"))
	t.Setenv("VELA_CACHE_TTL", "5s")
	t.Setenv("VELA_LOG_LEVEL", "warn")

	c := &Config{}
	require.NoError(t, c.ApplyEnv())
	assert.Equal(t, dir, c.DataDir())
	assert.Equal(t, filepath.Join(dir, "plugins"), c.ExtensionsDir())
	assert.Equal(t, 5*time.Second, c.CacheTTL())
	assert.Equal(t, "warn", c.Log.Level)
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("VELA_CACHE_TTL", "whenever")
	c := &Config{}
	assert.ErrorIs(t, c.ApplyEnv(), ErrInvalidValue)
}
