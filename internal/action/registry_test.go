package action_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jpl-au/vela/internal/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *action.Registry {
	t.Helper()
	r := action.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, r.RegisterBuiltin(action.Action{ID: action.SettingsID, Label: "Settings", Execute: nop}))
	require.NoError(t, r.RegisterBuiltin(action.Action{ID: action.ResetSearchID, Label: "Reset Search Index", Execute: nop}))
	return r
}

func nop(context.Context) error { return nil }

func ids(as []action.Action) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func TestRegistry_ContextFilter(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Register(action.Action{ID: "copy", PluginID: "greeting", Context: action.ExtensionView, Execute: nop}))
	require.NoError(t, r.Register(action.Action{ID: "help", Context: action.Global, Execute: nop}))
	require.NoError(t, r.Register(action.Action{ID: "pin", PluginID: "calc", Context: action.CommandResult, Execute: nop}))

	tests := []struct {
		ctx  action.Context
		want []string
	}{
		{action.Core, []string{action.SettingsID, action.ResetSearchID, "help"}},
		{action.ExtensionView, []string{"copy", "help"}},
		{action.CommandResult, []string{"pin"}},
		{action.Global, []string{"help"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.ctx), func(t *testing.T) {
			r.SetContext(tt.ctx)
			assert.Equal(t, tt.want, ids(r.Visible()))
		})
	}
}

func TestRegistry_DefaultContextIsExtensionView(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Register(action.Action{ID: "x", Execute: nop}))

	a, ok := r.Get("x")
	require.True(t, ok)
	assert.Equal(t, action.ExtensionView, a.Context)
}

func TestRegistry_SetContextIsIdempotent(t *testing.T) {
	r := newRegistry(t)
	publishes := 0
	r.Subscribe(func([]action.Action) { publishes++ })

	r.SetContext(action.ExtensionView)
	r.SetContext(action.ExtensionView)
	r.SetContext(action.ExtensionView)

	assert.Equal(t, 1, publishes)
	assert.Equal(t, action.ExtensionView, r.Context())
}

func TestRegistry_ClearKeepsBuiltins(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Register(action.Action{ID: "copy", PluginID: "greeting", Execute: nop}))

	r.Clear()
	assert.Equal(t, []string{action.SettingsID, action.ResetSearchID}, ids(r.All()))
}

func TestRegistry_BuiltinCannotBeReplaced(t *testing.T) {
	r := newRegistry(t)
	err := r.Register(action.Action{ID: action.SettingsID, Execute: nop})
	assert.ErrorIs(t, err, action.ErrInvalid)
}

func TestRegistry_UnregisterPlugin(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Register(action.Action{ID: "a", PluginID: "p", Execute: nop}))
	require.NoError(t, r.Register(action.Action{ID: "b", PluginID: "p", Execute: nop}))
	require.NoError(t, r.Register(action.Action{ID: "c", PluginID: "q", Execute: nop}))

	assert.Equal(t, 2, r.UnregisterPlugin("p"))
	assert.Equal(t, []string{action.SettingsID, action.ResetSearchID, "c"}, ids(r.All()))

	r.Unregister("does-not-exist") // warning only
	assert.Len(t, r.All(), 3)
}

func TestRegistry_Execute(t *testing.T) {
	r := newRegistry(t)
	boom := errors.New("boom")
	ran := false
	require.NoError(t, r.Register(action.Action{ID: "ok", Execute: func(context.Context) error { ran = true; return nil }}))
	require.NoError(t, r.Register(action.Action{ID: "bad", Execute: func(context.Context) error { return boom }}))

	require.NoError(t, r.Execute(context.Background(), "ok"))
	assert.True(t, ran)
	assert.ErrorIs(t, r.Execute(context.Background(), "bad"), boom)
	assert.ErrorIs(t, r.Execute(context.Background(), "missing"), action.ErrNotFound)
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := newRegistry(t)
	assert.ErrorIs(t, r.Register(action.Action{ID: "x"}), action.ErrInvalid)
	assert.ErrorIs(t, r.Register(action.Action{Execute: nop}), action.ErrInvalid)
}

func TestParseContext(t *testing.T) {
	c, err := action.ParseContext("view")
	require.NoError(t, err)
	assert.Equal(t, action.ExtensionView, c)

	_, err = action.ParseContext("nowhere")
	assert.ErrorIs(t, err, action.ErrInvalid)
}
