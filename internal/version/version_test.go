package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromVCS(t *testing.T) {
	i := Info{GitCommit: "unknown", BuildTime: "unknown"}
	i.fromVCS([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-10-01T09:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})
	assert.Equal(t, "0123456789ab", i.GitCommit)
	assert.Equal(t, "2026-10-01T09:00:00Z", i.BuildTime)
	assert.True(t, i.Modified)
	assert.Contains(t, i.String(), "Git Commit:   0123456789ab (modified)")
}

func TestFromVCS_LdflagsWin(t *testing.T) {
	i := Info{GitCommit: "abc123", BuildTime: "2026-01-15T10:30:00Z"}
	i.fromVCS([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "ffffffffffff"},
		{Key: "vcs.time", Value: "2020-01-01T00:00:00Z"},
	})
	assert.Equal(t, "abc123", i.GitCommit)
	assert.Equal(t, "2026-01-15T10:30:00Z", i.BuildTime)
}

func TestString(t *testing.T) {
	s := Info{BuildTag: "v1.2.0", Schema: 3, Plugins: []string{"calculator", "docs"}}.String()
	assert.Contains(t, s, "Build Tag:    v1.2.0")
	assert.Contains(t, s, "Schema:       3")
	assert.Contains(t, s, "Plugins:      calculator, docs")

	assert.NotContains(t, Info{}.String(), "Schema:")
}
