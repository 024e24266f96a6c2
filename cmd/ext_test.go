package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtList(t *testing.T) {
	env := newTestEnv(t)

	out := env.run("ext", "list")
	for _, id := range []string{"calculator", "docs", "greeting", "weather"} {
		env.contains(out, id)
	}
	env.contains(out, "built-in")

	out = env.run("plugins", "list", "-o", "json")
	env.contains(out, `"id":"weather"`)
}

func TestExtInfo(t *testing.T) {
	env := newTestEnv(t)

	out := env.run("ext", "info", "calculator", "--raw")
	env.contains(out, "# Calculator")
	env.contains(out, "Evaluate Expression")
	env.contains(out, "| Source | built-in |")

	_, err := env.runErr("ext", "info", "nope")
	if err == nil {
		t.Error("ext info(nope) = nil, want error")
	}
}

func TestExtEnableDisable(t *testing.T) {
	env := newTestEnv(t)

	env.contains(env.run("ext", "disable", "weather"), "Disabled weather")

	out := env.run("ext", "list")
	assert.NotContains(t, out, "weather")
	out = env.run("ext", "list", "--all")
	env.contains(out, "disabled")

	_, err := env.runErr("run", "weather")
	if err == nil {
		t.Error("run(disabled plugin) = nil, want error")
	}

	env.contains(env.run("ext", "enable", "weather"), "Enabled weather")
	env.equals(env.run("run", "weather"), "sunny")
}

func TestExtBuiltInRefused(t *testing.T) {
	env := newTestEnv(t)

	for _, args := range [][]string{
		{"ext", "disable", "calculator"},
		{"ext", "uninstall", "calculator"},
	} {
		out, err := env.runErr(args...)
		if err == nil {
			t.Errorf("vela %s = nil, want error", strings.Join(args, " "))
		}
		env.contains(out, "built-in")
	}
}

func TestExtUninstall(t *testing.T) {
	env := newTestEnv(t)

	env.contains(env.run("ext", "uninstall", "weather"), "Uninstalled weather")

	_, err := os.Stat(filepath.Join(env.dataDir(), "extensions", "weather"))
	assert.True(t, os.IsNotExist(err), "plugin directory removed")
	assert.NotContains(t, env.run("ext", "list", "--all"), "weather")
}

func TestExtInstall(t *testing.T) {
	env := newTestEnv(t)

	src := filepath.Join(env.dir, "clock")
	assert.NoError(t, os.MkdirAll(src, 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(src, "manifest.yaml"), []byte(`id: clock
name: Clock
commands:
  - id: time
    trigger: clock
`), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(src, "index.js"),
		[]byte(`exports.executeCommand = function () { return "noon"; };`), 0644))

	out := env.run("ext", "install", src, "--dry-run")
	env.contains(out, "Would install: ")
	assert.NotContains(t, env.run("ext", "list"), "clock")

	env.contains(env.run("ext", "install", src), "Installed clock")
	env.contains(env.run("ext", "list"), "clock")
	env.equals(env.run("run", "clock"), "noon")

	out, err := env.runErr("ext", "install", src)
	if err == nil {
		t.Error("second install without --force = nil, want error")
	}
	env.contains(out, "already installed")
	env.contains(env.run("ext", "install", src, "--force"), "Installed clock")
}
