// Testing Strategy Design Decision:
//
// The cmd/ package contains CLI integration tests that exercise the full stack:
// command parsing -> app -> plugin manager and registries -> SQLite.
//
// Each test gets its own HOME and data directory, so the global config, the
// database and the audit log never leak between tests. Application discovery
// is pointed at a fixture directory with a single .desktop entry, and the
// extensions directory holds one JavaScript plugin, so every provider has
// something deterministic to return.

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// buildBinary compiles the vela binary once for all tests.
func buildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		tmpDir, err := os.MkdirTemp("", "vela-test-bin-*")
		if err != nil {
			buildErr = err
			return
		}

		binaryName := "vela"
		if os.PathSeparator == '\\' {
			binaryName = "vela.exe"
		}
		binaryPath = filepath.Join(tmpDir, binaryName)

		// Find project root (parent of cmd/)
		wd := mustGetwd()
		projectRoot := filepath.Dir(wd)

		cmd := exec.Command("go", "build", "-o", binaryPath, ".")
		cmd.Dir = projectRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = &buildError{err: err, output: string(out)}
			return
		}
	})

	if buildErr != nil {
		t.Fatalf("failed to build binary: %v", buildErr)
	}
	return binaryPath
}

type buildError struct {
	err    error
	output string
}

func (e *buildError) Error() string {
	return e.err.Error() + "\n" + e.output
}

func mustGetwd() string {
	dir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return dir
}

// testEnv holds test environment state.
type testEnv struct {
	t      *testing.T
	dir    string // working directory
	home   string
	binary string
}

const testDesktop = `[Desktop Entry]
Type=Application
Name=Firefox Web Browser
Comment=Browse the web
Exec=true %u
`

const testPluginManifest = `id: weather
name: Weather
version: 0.1.0
description: Current conditions
type: result
commands:
  - id: now
    name: Weather Now
    trigger: weather
`

const testPluginJS = `exports.executeCommand = function (id, args) { return "sunny"; };`

// newTestEnv creates a HOME with a global config, one application and one
// filesystem plugin.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	binary := buildBinary(t)
	root := t.TempDir()
	env := &testEnv{
		t:      t,
		dir:    filepath.Join(root, "work"),
		home:   filepath.Join(root, "home"),
		binary: binary,
	}

	appsDir := filepath.Join(root, "applications")
	pluginDir := filepath.Join(env.dataDir(), "extensions", "weather")
	for _, d := range []string{env.dir, appsDir, pluginDir} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(appsDir, "firefox.desktop"), []byte(testDesktop), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "manifest.yaml"), []byte(testPluginManifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "index.js"), []byte(testPluginJS), 0644))

	cfg := fmt.Sprintf("apps:\n  dirs:\n    - %s\n", appsDir)
	require.NoError(t, os.WriteFile(filepath.Join(env.dataDir(), "config.yaml"), []byte(cfg), 0644))

	return env
}

func (e *testEnv) dataDir() string {
	return filepath.Join(e.home, ".vela")
}

// run executes vela with the given args and returns its output.
func (e *testEnv) run(args ...string) string {
	e.t.Helper()
	out, err := e.runErr(args...)
	if err != nil {
		e.t.Fatalf("vela %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runErr executes vela and returns its output and any error.
func (e *testEnv) runErr(args ...string) (string, error) {
	e.t.Helper()
	return e.runStdinErr("", args...)
}

// runStdin executes vela with stdin input.
func (e *testEnv) runStdin(input string, args ...string) string {
	e.t.Helper()
	out, err := e.runStdinErr(input, args...)
	if err != nil {
		e.t.Fatalf("vela %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runStdinErr executes vela with stdin input and returns any error.
func (e *testEnv) runStdinErr(input string, args ...string) (string, error) {
	e.t.Helper()

	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.dir
	cmd.Env = append(os.Environ(),
		"HOME="+e.home,
		"VELA_DATA_DIR="+e.dataDir(),
		"VELA_EXTENSIONS_DIR=",
		"VELA_LOG_LEVEL=",
	)
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// contains checks if output contains expected string.
func (e *testEnv) contains(output, expected string) {
	e.t.Helper()
	assert.Contains(e.t, output, expected)
}

// equals checks if output equals expected string (trimmed).
func (e *testEnv) equals(output, expected string) {
	e.t.Helper()
	assert.Equal(e.t, strings.TrimSpace(expected), strings.TrimSpace(output))
}
