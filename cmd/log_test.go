package cmd

import (
	"path/filepath"
	"testing"
)

func TestLog(t *testing.T) {
	env := newTestEnv(t)
	env.contains(env.run("log"), "No log entries")

	env.run("ext", "disable", "weather")
	env.run("config")

	out := env.run("log", "--source", "plugin:")
	env.contains(out, "plugin:disable")
	env.contains(out, "weather")

	out = env.run("log", "--plugin", "weather", "-o", "json")
	env.contains(out, `"source":"plugin:disable"`)
	env.contains(out, `"success":true`)

	env.contains(env.run("log", "-n", "1"), "cli:config")
	env.contains(env.run("log", "--failed"), "No log entries")
	env.equals(env.run("log", "--failed", "-o", "json"), "[]")

	_, err := env.runErr("log", "--since", "soon")
	if err == nil {
		t.Fatal("expected an invalid --since to fail")
	}
}

func TestLog_FollowsDirFlag(t *testing.T) {
	env := newTestEnv(t)
	other := filepath.Join(t.TempDir(), "elsewhere")

	env.run("--dir", other, "config")
	env.contains(env.run("--dir", other, "log"), "cli:config")
	env.contains(env.run("log"), "No log entries")
}
