package manager

import (
	"context"

	"github.com/jpl-au/vela/extension"
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool is an MCP tool contributed by a plugin, bound to that plugin's
// Context.
type Tool struct {
	PluginID string
	Tool     mcp.Tool
	Handler  func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// MCPTools collects the tools of every enabled MCPProvider plugin.
func (m *Manager) MCPTools() []Tool {
	var out []Tool
	for _, a := range m.ActivePlugins() {
		p, ok := a.Plugin.(extension.MCPProvider)
		if !ok {
			continue
		}
		for _, t := range p.MCPTools() {
			h, extCtx := t.Handler, a.Context
			out = append(out, Tool{
				PluginID: a.ID,
				Tool:     t.Tool,
				Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
					return h(ctx, extCtx, req)
				},
			})
		}
	}
	return out
}
