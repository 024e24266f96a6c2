// mcp.go lets built-in plugins contribute tools to "vela serve".
//
// Kept apart from extension.go because few plugins need it: most only
// contribute commands and results, which reach MCP through vela_search and
// vela_run already. The docs plugin is the one that adds a tool of its own.

package extension

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCPHandler answers one call of a plugin tool. extCtx is the plugin's own
// Context, the same one its commands receive.
type MCPHandler func(ctx context.Context, extCtx Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

type MCPTool struct {
	Tool    mcp.Tool
	Handler MCPHandler
}

// MCPProvider is implemented by plugins with tools. Only active plugins are
// asked, and the server asks again whenever plugins are enabled, disabled
// or reloaded.
type MCPProvider interface {
	MCPTools() []MCPTool
}
