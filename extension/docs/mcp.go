// mcp.go exposes the guide pages to MCP clients as the vela_docs tool.
//
// Separated from docs.go because the tool is independent of the browse
// view: it reads pages directly and never touches navigation.

package docs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/log"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPTools implements extension.MCPProvider.
func (d *Docs) MCPTools() []extension.MCPTool {
	return []extension.MCPTool{{
		Tool: mcp.NewTool("vela_docs",
			mcp.WithDescription("Read the vela documentation. Without a topic, lists the available pages."),
			mcp.WithString("topic", mcp.Description("Page name or search text, e.g. 'matchers' or 'view stack'")),
		),
		Handler: d.handleDocs,
	}}
}

func (d *Docs) handleDocs(_ context.Context, extCtx extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic := req.GetString("topic", "")

	if topic == "" {
		entries := make([]Entry, 0, len(d.pages))
		for _, p := range d.pages {
			entries = append(entries, Entry{Name: p.Name, Title: p.Title, Summary: p.Summary})
		}
		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("marshal pages: %w", err)
		}
		return mcp.NewToolResultText(string(b)), nil
	}

	found := Find(d.pages, topic)
	if len(found) == 0 {
		err := fmt.Errorf("%w: %s", ErrNoTopic, topic)
		log.Event("mcp:docs", "read").Plugin(extCtx.PluginID()).Detail("topic", topic).Write(err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Event("mcp:docs", "read").Plugin(extCtx.PluginID()).Target(found[0].Name).Detail("topic", topic).Write(nil)
	return mcp.NewToolResultText(found[0].Body), nil
}
