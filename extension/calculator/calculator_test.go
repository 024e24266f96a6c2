package calculator_test

import (
	"context"
	"testing"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/extension/calculator"
	"github.com/jpl-au/vela/internal/clip"
	"github.com/jpl-au/vela/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2+2", "4"},
		{"12*(3+4)", "84"},
		{"0.1+0.2", "0.3"},
		{"10/4", "2.5"},
		{"17 % 5", "2"},
		{"-3*-3", "9"},
		{"1/3", "0.3333333333"},
		{"0*-1", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := calculator.Evaluate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := calculator.Evaluate("42")
	assert.ErrorIs(t, err, calculator.ErrNotExpression)
	_, err = calculator.Evaluate("-42")
	assert.ErrorIs(t, err, calculator.ErrNotExpression)

	for _, expr := range []string{"2+", "1/0", "(1+2", "alert(1)+1"} {
		_, err := calculator.Evaluate(expr)
		assert.ErrorIs(t, err, calculator.ErrInvalidExpression, expr)
	}
}

func newCalculator(t *testing.T) (*calculator.Calculator, *clip.Memory) {
	t.Helper()
	cb := &clip.Memory{}
	c := &calculator.Calculator{}
	require.NoError(t, c.Initialize(extension.NewContext(calculator.ID, "", extension.Deps{Clipboard: cb})))
	return c, cb
}

func TestExecuteCommand_CopiesResult(t *testing.T) {
	c, cb := newCalculator(t)
	ctx := context.Background()

	out, err := c.ExecuteCommand(ctx, "evaluate-math", map[string]any{match.ArgInput: "6*7"})
	require.NoError(t, err)
	ir, ok := out.(extension.InlineResult)
	require.True(t, ok)
	assert.Equal(t, "6*7 = 42", ir.Title)
	assert.Equal(t, "Press Enter to copy result", ir.Subtitle)
	assert.Equal(t, "42", ir.Value)

	require.NotNil(t, ir.Action)
	require.NoError(t, ir.Action(ctx))
	text, _ := cb.ReadAll()
	assert.Equal(t, "42", text)
}

func TestExecuteCommand_ShowsFailure(t *testing.T) {
	c, _ := newCalculator(t)

	out, err := c.ExecuteCommand(context.Background(), "evaluate-math", map[string]any{match.ArgInput: "2*"})
	require.NoError(t, err)
	ir := out.(extension.InlineResult)
	assert.Equal(t, "Could not evaluate: 2*", ir.Title)
	assert.NotEmpty(t, ir.Error)
	assert.Nil(t, ir.Action)

	_, err = c.ExecuteCommand(context.Background(), "evaluate-math", map[string]any{match.ArgInput: "2026"})
	assert.ErrorIs(t, err, calculator.ErrNotExpression)

	_, err = c.ExecuteCommand(context.Background(), "nope", nil)
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	b, ok := extension.Lookup(calculator.ID)
	require.True(t, ok)
	m, err := extension.ParseManifest(b.Manifest)
	require.NoError(t, err)

	spec, ok := m.Command("evaluate-math")
	require.True(t, ok)
	assert.Equal(t, extension.ResultTypeInline, spec.ResultType)

	ms, err := spec.BuildMatchers()
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.True(t, ms[0].CanHandle("(1 + 2) * 3"))
	assert.False(t, ms[0].CanHandle("greet bob"))
}
