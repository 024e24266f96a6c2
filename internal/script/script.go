// Package script runs filesystem plugins written in JavaScript on the goja
// runtime. A script exports its hooks through module.exports (or exports):
//
//	module.exports = {
//	  initialize(api) { api.log("ready") },
//	  executeCommand(commandId, args) { return { type: "inline", title: "hi" } },
//	  search(query) { return [{ title: "Result", command: "run", args: {} }] },
//	  onViewSearch(query) {},
//	  viewActivated(path) {}, viewDeactivated(path) {},
//	  viewState(path) { return {} },
//	  activate() {}, deactivate() {},
//	}
//
// Only executeCommand is required. A goja runtime is not safe for
// concurrent use, so every call into the script holds the plugin's mutex
// and is interrupted after a timeout. Host calls that could re-enter the
// plugin (api.navigate, api.back, api.execute) are queued and run after the
// script call returns.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/search"
)

// DefaultTimeout bounds a single call into a script.
const DefaultTimeout = 2 * time.Second

// ErrNoExecuteCommand is returned for scripts that do not export an
// executeCommand function.
var ErrNoExecuteCommand = errors.New("script exports no executeCommand function")

// Plugin is a script-backed extension.Plugin.
type Plugin struct {
	id      string
	name    string
	timeout time.Duration

	mu      sync.Mutex
	vm      *goja.Runtime
	exports *goja.Object
	ext     extension.Context
	logger  *slog.Logger
	pending []func(context.Context)
}

// Compile-time interface compliance.
var (
	_ extension.Plugin       = (*Plugin)(nil)
	_ extension.Initializer  = (*Plugin)(nil)
	_ extension.Activator    = (*Plugin)(nil)
	_ extension.Searcher     = (*Plugin)(nil)
	_ extension.ViewSearcher = (*Plugin)(nil)
	_ extension.ViewListener = (*Plugin)(nil)
	_ extension.ViewStater   = (*Plugin)(nil)
)

// Load reads and evaluates the script at path for plugin id.
func Load(id, path string, timeout time.Duration) (*Plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return New(id, path, string(src), timeout)
}

// New evaluates src. name is used in stack traces.
func New(id, name, src string, timeout time.Duration) (*Plugin, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Plugin{
		id:      id,
		name:    name,
		timeout: timeout,
		vm:      goja.New(),
		logger:  slog.Default().With("plugin", id),
	}
	p.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	exports := p.vm.NewObject()
	module := p.vm.NewObject()
	_ = module.Set("exports", exports)
	_ = p.vm.Set("module", module)
	_ = p.vm.Set("exports", exports)
	_ = p.vm.Set("require", goja.Undefined())

	console := p.vm.NewObject()
	_ = console.Set("log", p.consoleFunc(slog.LevelInfo))
	_ = console.Set("info", p.consoleFunc(slog.LevelInfo))
	_ = console.Set("warn", p.consoleFunc(slog.LevelWarn))
	_ = console.Set("error", p.consoleFunc(slog.LevelError))
	_ = p.vm.Set("console", console)

	if _, err := p.run(func() (goja.Value, error) {
		return p.vm.RunScript(name, src)
	}); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", name, err)
	}

	exp := module.Get("exports")
	if exp == nil || goja.IsUndefined(exp) || goja.IsNull(exp) {
		return nil, ErrNoExecuteCommand
	}
	p.exports = exp.ToObject(p.vm)
	if p.fn("executeCommand") == nil {
		return nil, ErrNoExecuteCommand
	}
	return p, nil
}

// fn returns the exported function name, or nil.
func (p *Plugin) fn(name string) goja.Callable {
	v := p.exports.Get(name)
	if v == nil {
		return nil
	}
	f, ok := goja.AssertFunction(v)
	if !ok {
		return nil
	}
	return f
}

// Has reports whether the script exports name as a function.
func (p *Plugin) Has(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fn(name) != nil
}

// run executes f under a timeout. Caller holds p.mu or is the constructor.
func (p *Plugin) run(f func() (goja.Value, error)) (goja.Value, error) {
	timer := time.AfterFunc(p.timeout, func() {
		p.vm.Interrupt("execution timeout exceeded")
	})
	defer func() {
		timer.Stop()
		p.vm.ClearInterrupt()
	}()
	return f()
}

// call invokes the exported function name. A missing function yields
// (nil, nil). Queued host calls run after the lock is released.
func (p *Plugin) call(ctx context.Context, name string, args ...any) (any, error) {
	p.mu.Lock()
	f := p.fn(name)
	if f == nil {
		p.mu.Unlock()
		return nil, nil
	}
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = p.vm.ToValue(a)
	}
	v, err := p.run(func() (goja.Value, error) {
		return f(goja.Undefined(), vals...)
	})
	var out any
	if err == nil && v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		out = v.Export()
	}
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, fn := range pending {
		fn(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", p.id, name, err)
	}
	return out, nil
}

func (p *Plugin) consoleFunc(level slog.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		p.logger.Log(context.Background(), level, strings.Join(parts, " "), "source", "script")
		return goja.Undefined()
	}
}

// queue schedules fn to run once the current script call returns. Caller
// holds p.mu (it is only reachable from inside a script call).
func (p *Plugin) queue(fn func(context.Context)) {
	p.pending = append(p.pending, fn)
}

// api builds the host object passed to initialize.
func (p *Plugin) api() *goja.Object {
	o := p.vm.NewObject()
	_ = o.Set("pluginId", p.id)
	_ = o.Set("log", p.consoleFunc(slog.LevelInfo))
	_ = o.Set("copy", func(text string) error {
		return p.ext.Clipboard().WriteAll(text)
	})
	_ = o.Set("navigate", func(view string) {
		path := p.viewPath(view)
		p.queue(func(ctx context.Context) {
			if err := p.ext.Navigator().NavigateToView(ctx, path); err != nil {
				p.logger.Error("script navigation failed", "view", path, "error", err)
			}
		})
	})
	_ = o.Set("back", func() {
		p.queue(func(ctx context.Context) { p.ext.Navigator().GoBack(ctx) })
	})
	_ = o.Set("execute", func(commandID string, args map[string]any) {
		id := command.ObjectID(p.id, commandID)
		p.queue(func(ctx context.Context) {
			if _, err := p.ext.Commands().Execute(ctx, id, args); err != nil {
				p.logger.Error("script command failed", "command", id, "error", err)
			}
		})
	})
	return o
}

func (p *Plugin) viewPath(view string) string {
	if strings.Contains(view, "/") {
		return view
	}
	return p.id + "/" + view
}

// Initialize stores ctx and calls the script's initialize(api).
func (p *Plugin) Initialize(ctx extension.Context) error {
	p.mu.Lock()
	p.ext = ctx
	p.logger = ctx.Logger()
	api := p.api()
	p.mu.Unlock()

	_, err := p.call(context.Background(), "initialize", api)
	return err
}

func (p *Plugin) Activate(ctx context.Context) error {
	_, err := p.call(ctx, "activate")
	return err
}

func (p *Plugin) Deactivate(ctx context.Context) error {
	_, err := p.call(ctx, "deactivate")
	return err
}

// ExecuteCommand calls executeCommand(commandId, args). An object result
// with type "inline" becomes an extension.InlineResult.
func (p *Plugin) ExecuteCommand(ctx context.Context, commandID string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	out, err := p.call(ctx, "executeCommand", commandID, args)
	if err != nil {
		return nil, err
	}
	if m, ok := out.(map[string]any); ok && m["type"] == extension.ResultTypeInline {
		return p.inline(m), nil
	}
	return out, nil
}

func (p *Plugin) inline(m map[string]any) extension.InlineResult {
	str := func(k string) string {
		if v, ok := m[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	r := extension.InlineResult{
		Title:    str("title"),
		Subtitle: str("subtitle"),
		Value:    str("value"),
		Error:    str("error"),
	}
	if r.Value != "" && p.ext != nil {
		value := r.Value
		r.Action = func(context.Context) error {
			return p.ext.Clipboard().WriteAll(value)
		}
	}
	return r
}

// scriptResult is the shape of one search result returned by a script.
type scriptResult struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle"`
	Icon     string         `json:"icon"`
	Type     string         `json:"type"`
	Score    float64        `json:"score"`
	Command  string         `json:"command"`
	Args     map[string]any `json:"args"`
	View     string         `json:"view"`
}

// Search calls search(query) and converts the returned array.
func (p *Plugin) Search(ctx context.Context, query string) ([]search.Result, error) {
	out, err := p.call(ctx, "search", query)
	if err != nil || out == nil {
		return nil, err
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%s: search: %w", p.id, err)
	}
	var raw []scriptResult
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%s: search must return an array of results: %w", p.id, err)
	}

	results := make([]search.Result, 0, len(raw))
	for i, r := range raw {
		if r.Title == "" {
			continue
		}
		res := search.Result{
			ID:       r.ID,
			Title:    r.Title,
			Subtitle: r.Subtitle,
			Icon:     r.Icon,
			Type:     r.Type,
			Score:    r.Score,
			Source:   search.SourceExtension,
			PluginID: p.id,
		}
		if res.ID == "" {
			res.ID = fmt.Sprintf("%s_result_%d", p.id, i)
		}
		if res.Type == "" {
			res.Type = search.TypeResult
		}
		if r.View != "" {
			res.View = p.viewPath(r.View)
			res.Type = search.TypeView
		}
		if r.Command != "" {
			id, args := command.ObjectID(p.id, r.Command), r.Args
			res.Action = func(ctx context.Context) (search.ActionResult, error) {
				if p.ext == nil {
					return search.None, fmt.Errorf("%s: not initialised", p.id)
				}
				_, err := p.ext.Commands().Execute(ctx, id, args)
				return search.None, err
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (p *Plugin) OnViewSearch(ctx context.Context, query string) error {
	_, err := p.call(ctx, "onViewSearch", query)
	return err
}

func (p *Plugin) ViewActivated(ctx context.Context, viewPath string) {
	if _, err := p.call(ctx, "viewActivated", viewPath); err != nil {
		p.logger.Error("viewActivated failed", "view", viewPath, "error", err)
	}
}

func (p *Plugin) ViewDeactivated(ctx context.Context, viewPath string) {
	if _, err := p.call(ctx, "viewDeactivated", viewPath); err != nil {
		p.logger.Error("viewDeactivated failed", "view", viewPath, "error", err)
	}
}

// ViewState returns whatever viewState(path) returns, exported to Go values.
func (p *Plugin) ViewState(viewPath string) any {
	out, err := p.call(context.Background(), "viewState", viewPath)
	if err != nil {
		p.logger.Error("viewState failed", "view", viewPath, "error", err)
		return nil
	}
	return out
}
