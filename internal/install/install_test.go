package install

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpl-au/vela/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `id: weather
name: Weather
version: 1.2.0
commands:
  - id: now
    trigger: weather
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// source builds a plugin directory with a nested asset and a hidden file.
func source(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "manifest.yaml"), manifest)
	writeFile(t, filepath.Join(src, "index.js"), `exports.executeCommand = function () { return "sunny"; };`)
	writeFile(t, filepath.Join(src, "assets", "icon.svg"), "<svg/>")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref: main")
	return src
}

func TestRun(t *testing.T) {
	src := source(t)
	extDir := filepath.Join(t.TempDir(), "extensions")
	var buf bytes.Buffer

	res, err := Run(context.Background(), &buf, src, extDir, Options{})
	require.NoError(t, err)

	assert.Equal(t, "weather", res.ID)
	assert.Equal(t, "1.2.0", res.Version)
	assert.ElementsMatch(t, []string{"assets/icon.svg", "index.js", "manifest.yaml"}, res.Files)
	assert.Contains(t, buf.String(), "Installed weather (3 file(s))")

	data, err := os.ReadFile(filepath.Join(extDir, "weather", "assets", "icon.svg"))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))

	_, err = os.Stat(filepath.Join(extDir, "weather", ".git"))
	assert.True(t, os.IsNotExist(err), "hidden files skipped")

	entries, err := os.ReadDir(extDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directory cleaned up")
}

func TestRun_Exists(t *testing.T) {
	src := source(t)
	extDir := t.TempDir()
	writeFile(t, filepath.Join(extDir, "weather", "stale.js"), "old")
	var buf bytes.Buffer

	_, err := Run(context.Background(), &buf, src, extDir, Options{})
	assert.ErrorIs(t, err, ErrExists)

	res, err := Run(context.Background(), &buf, src, extDir, Options{Force: true})
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	_, err = os.Stat(filepath.Join(extDir, "weather", "stale.js"))
	assert.True(t, os.IsNotExist(err), "previous install replaced")
}

func TestRun_DryRun(t *testing.T) {
	src := source(t)
	extDir := filepath.Join(t.TempDir(), "extensions")
	var buf bytes.Buffer

	res, err := Run(context.Background(), &buf, src, extDir, Options{DryRun: true, Hidden: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Len(t, res.Files, 4)
	assert.Contains(t, buf.String(), "Would install: ")

	_, err = os.Stat(extDir)
	assert.True(t, os.IsNotExist(err), "dry run writes nothing")
}

func TestRun_BadSource(t *testing.T) {
	var buf bytes.Buffer
	extDir := t.TempDir()

	_, err := Run(context.Background(), &buf, t.TempDir(), extDir, Options{})
	assert.ErrorIs(t, err, ErrNoManifest)

	bad := t.TempDir()
	writeFile(t, filepath.Join(bad, "manifest.yaml"), "id: Not Valid\nname: x\n")
	_, err = Run(context.Background(), &buf, bad, extDir, Options{})
	assert.Error(t, err)

	_, err = Run(context.Background(), &buf, filepath.Join(bad, "missing"), extDir, Options{})
	assert.Error(t, err)
}

func TestRun_ManifestJSON(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "manifest.json"), `{"id": "clock", "name": "Clock"}`)
	var buf bytes.Buffer

	res, err := Run(context.Background(), &buf, src, t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "clock", res.ID)
	assert.NoError(t, validate.PluginID(res.ID))
}
