// tools_commands.go implements MCP tools for commands, actions and views.

package mcp

import (
	"context"

	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/manager"
	"github.com/mark3labs/mcp-go/mcp"
)

// listCommands handles vela_commands tool calls.
func (h *handlers) listCommands(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plugin := req.GetString("plugin", "")

	cmds := h.app.Commands.Commands()
	if plugin != "" {
		filtered := make([]command.Command, 0, len(cmds))
		for _, c := range cmds {
			if c.PluginID == plugin {
				filtered = append(filtered, c)
			}
		}
		cmds = filtered
	}
	return jsonResult(cmds)
}

// ActionList is returned by vela_actions.
type ActionList struct {
	Context action.Context  `json:"context"`
	Actions []action.Action `json:"actions"`
}

// listActions handles vela_actions tool calls.
func (h *handlers) listActions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if name := req.GetString("context", ""); name != "" {
		c, err := action.ParseContext(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		h.app.Actions.SetContext(c)
	}

	list := ActionList{Context: h.app.Actions.Context()}
	if req.GetBool("all", false) {
		list.Actions = h.app.Actions.All()
	} else {
		list.Actions = h.app.Actions.Visible()
	}
	return jsonResult(list)
}

// runAction handles vela_run_action tool calls.
func (h *handlers) runAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil //nolint:nilerr
	}

	if err := h.app.Actions.Execute(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("executed " + id), nil
}

// ViewResult is returned by the navigation tools.
type ViewResult struct {
	Depth int                `json:"depth"`
	View  *manager.ViewState `json:"view,omitempty"`
	Query string             `json:"query"`
}

func (h *handlers) viewResult() (*mcp.CallToolResult, error) {
	r := ViewResult{
		Depth: h.app.Manager.Stack().Depth(),
		Query: h.app.Query.Query(),
	}
	if vs, ok := h.app.Manager.CurrentView(); ok {
		r.View = &vs
	}
	return jsonResult(r)
}

// navigate handles vela_navigate tool calls.
func (h *handlers) navigate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := req.RequireString("view")
	if err != nil {
		return mcp.NewToolResultError("view is required"), nil //nolint:nilerr
	}

	err = h.app.Manager.NavigateToView(ctx, view)

	log.Event("mcp:navigate", "navigate").Target(view).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.viewResult()
}

// back handles vela_back tool calls.
func (h *handlers) back(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.app.Manager.GoBack(ctx)
	return h.viewResult()
}

// listPlugins handles vela_plugins tool calls.
func (h *handlers) listPlugins(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return jsonResult(h.app.Manager.Plugins())
	}
	info, ok := h.app.Manager.Info(id)
	if !ok {
		return mcp.NewToolResultError("unknown plugin: " + id), nil
	}
	return jsonResult(info)
}
