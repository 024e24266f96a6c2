// Package calculator is the built-in arithmetic plugin. Typing an
// expression such as "12*(3+4)" shows the result inline; selecting it copies
// the result to the clipboard.
//
// Expressions are evaluated by a fresh goja runtime under an interrupt
// timer, after a character check that admits nothing but numbers and
// arithmetic operators.
package calculator

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/match"
)

// ID is the plugin id.
const ID = "calculator"

const commandEvaluate = "evaluate-math"

// timeout bounds a single evaluation.
const timeout = 100 * time.Millisecond

//go:embed manifest.yaml
var manifest []byte

var (
	// ErrNotExpression is returned for input without an operator; a bare
	// number is not worth an inline result.
	ErrNotExpression = errors.New("not an arithmetic expression")
	// ErrInvalidExpression is returned for input that fails to evaluate to
	// a finite number.
	ErrInvalidExpression = errors.New("invalid expression")
)

const allowed = "0123456789+-*/().% \t"

func init() {
	extension.Register(ID, func() extension.Plugin { return &Calculator{} }, manifest)
}

// Calculator implements extension.Plugin.
type Calculator struct {
	ctx extension.Context
}

var (
	_ extension.Initializer = (*Calculator)(nil)
	_ extension.CLIProvider = (*Calculator)(nil)
)

func (c *Calculator) Initialize(ctx extension.Context) error {
	c.ctx = ctx
	return nil
}

// ExecuteCommand evaluates the "input" argument. Expressions that fail to
// evaluate still produce an InlineResult so the user sees why.
func (c *Calculator) ExecuteCommand(_ context.Context, commandID string, args map[string]any) (any, error) {
	if commandID != commandEvaluate {
		return nil, fmt.Errorf("calculator: unknown command %q", commandID)
	}
	expr, _ := args[match.ArgInput].(string)
	expr = strings.TrimSpace(expr)

	res, err := Evaluate(expr)
	if errors.Is(err, ErrNotExpression) {
		return nil, err
	}
	if err != nil {
		return extension.InlineResult{
			Title: "Could not evaluate: " + expr,
			Error: err.Error(),
		}, nil
	}
	return extension.InlineResult{
		Title:    expr + " = " + res,
		Subtitle: "Press Enter to copy result",
		Value:    res,
		Action:   func(context.Context) error { return c.copy(res) },
	}, nil
}

func (c *Calculator) copy(text string) error {
	if c.ctx == nil || c.ctx.Clipboard() == nil {
		return errors.New("calculator: no clipboard")
	}
	if err := c.ctx.Clipboard().WriteAll(text); err != nil {
		return fmt.Errorf("copy result: %w", err)
	}
	c.ctx.Logger().Debug("copied result", "value", text)
	return nil
}

// Evaluate computes expr and formats the result. Results are rounded to ten
// decimal places so 0.1+0.2 reads as 0.3.
func Evaluate(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", ErrNotExpression
	}
	for _, r := range expr {
		if !strings.ContainsRune(allowed, r) {
			return "", fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, r)
		}
	}
	if !strings.ContainsAny(strings.TrimLeft(expr, "+-"), "+-*/%") {
		return "", ErrNotExpression
	}

	vm := goja.New()
	timer := time.AfterFunc(timeout, func() { vm.Interrupt("evaluation timed out") })
	defer timer.Stop()

	v, err := vm.RunString("(" + expr + ")")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: result is not a finite number", ErrInvalidExpression)
	}
	return format(f), nil
}

func format(f float64) string {
	if math.Abs(f) >= 1e15 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	f = math.Round(f*1e10) / 1e10
	if f == 0 {
		f = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
