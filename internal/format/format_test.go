package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/manager"
	"github.com/jpl-au/vela/internal/nav"
	"github.com/jpl-au/vela/internal/search"
	"github.com/jpl-au/vela/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Results(&buf, []search.Result{
		{Title: "Firefox", Subtitle: "Application"},
		{Title: "Calculator", RecentlyUsed: true},
	}))
	assert.Equal(t, " 1. Firefox  (Application)\n 2. Calculator *\n", buf.String())

	buf.Reset()
	require.NoError(t, Results(&buf, nil))
	assert.Equal(t, "No results\n", buf.String())
}

func TestResultsLong(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ResultsLong(&buf, []search.Result{
		{ID: "app_firefox", Title: "Firefox", Score: 87.5, Source: search.SourceApplication},
		{Title: "No Id", Score: 5, Source: search.SourceExtension},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[1], "87.5")
	assert.Contains(t, lines[1], "app_firefox")
	assert.True(t, strings.HasSuffix(lines[2], "-"), "missing id shown as dash")
}

func TestPlugins(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Plugins(&buf, []manager.Info{
		{ID: "calculator", Version: "1.0.0", Type: "result", BuiltIn: true, Enabled: true, State: manager.StateActivated},
		{ID: "weather", Enabled: false, State: manager.StateActivated},
	}))
	out := buf.String()
	assert.Contains(t, out, "built-in")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "disabled")
	assert.Contains(t, lines[2], "dir")
}

func TestActions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Actions(&buf, []action.Action{
		{ID: "reset_search", Label: "Reset Search Index", Context: action.Core, BuiltIn: true},
		{ID: "greeting-copy", Label: "Copy Greeting", Context: action.ExtensionView, PluginID: "greeting"},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], "-"))
	assert.True(t, strings.HasSuffix(lines[2], "greeting"))

	buf.Reset()
	require.NoError(t, Actions(&buf, nil))
	assert.Equal(t, "No actions\n", buf.String())
}

func TestIndexItems(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, IndexItems(&buf, []store.IndexItem{
		{ObjectID: "cmd_calculator_evaluate-math", Name: "Evaluate Expression", Category: "command"},
	}))
	assert.Contains(t, buf.String(), "cmd_calculator_evaluate-math")
}

func TestAuditEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, AuditEntries(&buf, nil))
	assert.Equal(t, "No log entries\n", buf.String())

	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)
	buf.Reset()
	require.NoError(t, AuditEntries(&buf, []log.Entry{
		{Source: "plugin:enable", Plugin: "calculator", Start: start, End: start.Add(12 * time.Millisecond), Error: "load failed"},
		{Source: "cli:config", Start: start, End: start, Success: true},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "RESULT")
	assert.Contains(t, lines[1], "2026-03-01 09:30:00")
	assert.Contains(t, lines[1], "12ms")
	assert.Contains(t, lines[1], "error: load failed")
	assert.Contains(t, lines[2], "ok")
}

func TestStack(t *testing.T) {
	var buf bytes.Buffer
	Stack(&buf, []nav.Frame{
		{ViewPath: "greeting/form", Searchable: true},
		{ViewPath: "docs/browse"},
		{ViewPath: "docs/page"},
	})
	assert.Equal(t, "greeting/form  (searchable)\n└── docs/browse\n    └── docs/page\n", buf.String())

	buf.Reset()
	Stack(&buf, nil)
	assert.Equal(t, "No open views\n", buf.String())
}

func TestView(t *testing.T) {
	var buf bytes.Buffer
	View(&buf, manager.ViewState{Frame: nav.Frame{ViewPath: "greeting/form"}, State: struct{ Name string }{"Ada"}}, 1)
	assert.Equal(t, "View: greeting/form (depth 1)\n  {Name:Ada}\n", buf.String())
}

func TestPluginPage(t *testing.T) {
	page := PluginPage(
		manager.Info{ID: "greeting", Name: "Greeting", Description: "Greets people.", BuiltIn: true, Enabled: true, Views: []string{"form"}},
		[]command.Command{{Name: "Show Greeting Form", Trigger: "greet", Description: "Open the greeting form"}},
	)
	assert.Contains(t, page, "# Greeting\n\nGreets people.")
	assert.Contains(t, page, "| Source | built-in |")
	assert.Contains(t, page, "| Views | form |")
	assert.Contains(t, page, "- **Show Greeting Form** (`greet`): Open the greeting form")
}
