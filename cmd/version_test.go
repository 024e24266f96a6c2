package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	out := env.run("version")
	assert.NotContains(t, out, "Schema:", "no database yet")

	env.run("search", "firefox")
	out = env.run("version")
	env.contains(out, "Build Tag:")
	env.contains(out, "calculator, docs, greeting")
	env.contains(out, "Schema:       3")

	out = env.run("version", "-o", "json")
	env.contains(out, `"build_tag"`)
	env.contains(out, `"plugins"`)
	env.contains(out, `"schema":3`)
}
