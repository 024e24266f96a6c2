// tools_search.go implements MCP tools for searching and running commands.
//
// Separated from tools_commands.go because these tools take free text and
// go through ranking or matchers, while the others address commands and
// actions by id.
//
// Design: vela_search feeds the live query exactly as typing would, so an
// open searchable view receives the text. The response then carries the
// view state instead of results.

package mcp

import (
	"context"
	"errors"

	"github.com/jpl-au/vela/internal/app"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/match"
	"github.com/jpl-au/vela/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
)

// search handles vela_search tool calls.
func (h *handlers) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	limit := req.GetInt("limit", 0)

	resp := h.app.Input(ctx, query)
	if limit > 0 && len(resp.Results) > limit {
		resp.Results = resp.Results[:limit]
	}

	log.Event("mcp:search", "search").Detail("query", query).Detail("count", len(resp.Results)).Write(nil)

	return jsonResult(resp)
}

// SelectResult is returned by vela_select.
type SelectResult struct {
	Result search.Result       `json:"result"`
	Action search.ActionResult `json:"action"`
}

// selectResult handles vela_select tool calls.
func (h *handlers) selectResult(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil //nolint:nilerr
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil //nolint:nilerr
	}

	r, ar, err := h.app.Pick(ctx, query, id)

	log.Event("mcp:select", "select").Plugin(r.PluginID).Target(id).Detail("query", query).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(SelectResult{Result: r, Action: ar})
}

// RunResult is returned by vela_run.
type RunResult struct {
	Command    string         `json:"command"`
	Confidence int            `json:"confidence"`
	Args       map[string]any `json:"args,omitempty"`
	Result     any            `json:"result,omitempty"`
}

// run handles vela_run tool calls.
func (h *handlers) run(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil //nolint:nilerr
	}

	m, out, err := h.app.Run(ctx, query)

	ev := log.Event("mcp:run", "execute").Detail("query", query)
	if m != nil {
		ev = ev.Target(m.CommandID)
	}
	ev.Write(err)

	if errors.Is(err, app.ErrNoMatch) {
		return mcp.NewToolResultError("no command matches " + query + "; use vela_commands to list triggers"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(runResult(m, out))
}

func runResult(m *match.CommandMatch, out any) RunResult {
	return RunResult{
		Command:    m.CommandID,
		Confidence: m.Confidence,
		Args:       m.Args,
		Result:     out,
	}
}
