// encode.go turns launcher values into MCP tool results and resource
// contents.
//
// Design: tools return the value both as structured content and as indented
// JSON text. Clients that predate structured content read the text.

package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func indent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// jsonResult wraps v in a tool result. An unencodable value becomes a tool
// error rather than a protocol error.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := indent(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructured(v, string(data)), nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := indent(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
