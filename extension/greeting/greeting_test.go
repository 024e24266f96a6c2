package greeting_test

import (
	"context"
	"testing"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/extension/greeting"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/clip"
	"github.com/jpl-au/vela/internal/match"
	"github.com/jpl-au/vela/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// navigator pushes straight into the plugin's listener, the way the
// manager's stack hooks do.
type navigator struct {
	g     *greeting.Greeting
	views []string
}

func (n *navigator) NavigateToView(ctx context.Context, viewPath string) error {
	n.views = append(n.views, viewPath)
	n.g.ViewActivated(ctx, viewPath)
	return nil
}

func (n *navigator) GoBack(ctx context.Context) {
	if len(n.views) == 0 {
		return
	}
	top := n.views[len(n.views)-1]
	n.views = n.views[:len(n.views)-1]
	n.g.ViewDeactivated(ctx, top)
}

type executor struct {
	g     *greeting.Greeting
	calls []string
}

func (e *executor) Execute(ctx context.Context, objectID string, args map[string]any) (any, error) {
	e.calls = append(e.calls, objectID)
	return e.g.ExecuteCommand(ctx, greeting.CommandCopy, args)
}

type fixture struct {
	g       *greeting.Greeting
	nav     *navigator
	exec    *executor
	actions *action.Registry
	clip    *clip.Memory
}

func setup(t *testing.T) *fixture {
	t.Helper()
	g := &greeting.Greeting{}
	f := &fixture{
		g:       g,
		nav:     &navigator{g: g},
		exec:    &executor{g: g},
		actions: action.New(nil),
		clip:    &clip.Memory{},
	}
	ctx := extension.NewContext(greeting.ID, "", extension.Deps{
		Actions:   f.actions,
		Commands:  f.exec,
		Navigator: f.nav,
		Clipboard: f.clip,
	})
	require.NoError(t, g.Initialize(ctx))
	return f
}

func TestShowForm_RegistersViewActions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.g.ExecuteCommand(ctx, greeting.CommandShowForm, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{greeting.ViewForm}, f.nav.views)

	a, ok := f.actions.Get(greeting.ActionCopy)
	require.True(t, ok)
	assert.Equal(t, greeting.ID, a.PluginID)
	assert.Equal(t, action.ExtensionView, a.Context)
	_, ok = f.actions.Get(greeting.ActionClear)
	assert.True(t, ok)

	f.nav.GoBack(ctx)
	assert.Empty(t, f.actions.All())
}

func TestForm(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.g.ExecuteCommand(ctx, greeting.CommandShowForm, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, f.actions.Execute(ctx, greeting.ActionCopy), greeting.ErrNoName)

	require.NoError(t, f.g.OnViewSearch(ctx, "  Ada "))
	assert.Equal(t, greeting.State{Name: "Ada", Greeting: "Hey Ada 👋"}, f.g.ViewState(greeting.ViewForm))

	require.NoError(t, f.actions.Execute(ctx, greeting.ActionCopy))
	text, _ := f.clip.ReadAll()
	assert.Equal(t, "Hey Ada 👋", text)

	require.NoError(t, f.actions.Execute(ctx, greeting.ActionClear))
	assert.Equal(t, greeting.State{Copied: "Hey Ada 👋"}, f.g.ViewState(greeting.ViewForm))
	assert.Nil(t, f.g.ViewState("greeting/other"))
}

func TestCopyArgument(t *testing.T) {
	f := setup(t)

	out, err := f.g.ExecuteCommand(context.Background(), greeting.CommandCopy, map[string]any{match.ArgInput: "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "Hey Grace 👋", out)
	text, _ := f.clip.ReadAll()
	assert.Equal(t, "Hey Grace 👋", text)

	_, err = f.g.ExecuteCommand(context.Background(), greeting.CommandCopy, map[string]any{match.ArgInput: ""})
	assert.ErrorIs(t, err, greeting.ErrNoName)
}

func TestSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, q := range []string{"", "hey", "hey ", "hello bob"} {
		rs, err := f.g.Search(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, rs, q)
	}

	rs, err := f.g.Search(ctx, "Hey Linus")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "hey Linus 👋", rs[0].Title)

	ar, err := rs[0].Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, search.None, ar)
	assert.Equal(t, []string{"cmd_greeting_greet-copy-argument"}, f.exec.calls)
	text, _ := f.clip.ReadAll()
	assert.Equal(t, "Hey Linus 👋", text)
}

func TestManifest(t *testing.T) {
	b, ok := extension.Lookup(greeting.ID)
	require.True(t, ok)
	m, err := extension.ParseManifest(b.Manifest)
	require.NoError(t, err)
	assert.Equal(t, extension.TypeView, m.Type)
	assert.True(t, m.Searchable)
	assert.Equal(t, greeting.ViewForm, m.ViewPath(m.DefaultView))
	assert.Equal(t, []string{"greet", "hey"}, m.Keywords())
}
