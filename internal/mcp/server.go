// Package mcp implements the Model Context Protocol server, exposing the
// launcher to LLMs. An assistant can search, run commands and actions,
// move through plugin views and inspect plugins through the same core the
// CLI and HTTP API drive.
package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/app"
	"github.com/jpl-au/vela/internal/version"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Serve starts the MCP server over stdio.
// Uses stdio transport for compatibility with desktop MCP clients.
//
// Design: the app's logger must not write to stdout, which is reserved for
// JSON-RPC messages. The app built by the CLI logs to stderr.
func Serve(a *app.App) error {
	h := newHandlers(a)
	defer h.close()

	a.Logger.Info("vela MCP server ready", "version", version.Short(), "transport", "stdio")

	err := server.ServeStdio(h.srv)
	if errors.Is(err, context.Canceled) {
		a.Logger.Info("server stopped")
		return nil
	}
	return err
}

// NewServer builds the MCP server for a without starting a transport.
// The returned stop function detaches it from plugin reloads.
func NewServer(a *app.App) (*server.MCPServer, func()) {
	h := newHandlers(a)
	return h.srv, h.close
}

// handlers provides MCP request handlers with access to the launcher.
type handlers struct {
	app *app.App
	srv *server.MCPServer

	mu          sync.Mutex
	pluginTools []string
	unsub       func()
}

func newHandlers(a *app.App) *handlers {
	h := &handlers{app: a}
	h.srv = server.NewMCPServer(
		"vela",
		version.Short(),
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)
	registerResources(h.srv, h)
	registerTools(h.srv, h)
	h.syncPluginTools()
	h.unsub = a.Manager.Subscribe(func(e extension.Event) {
		if _, ok := e.(extension.PluginEvent); ok {
			h.syncPluginTools()
		}
	})
	return h
}

func (h *handlers) close() {
	if h.unsub != nil {
		h.unsub()
	}
}

// syncPluginTools replaces the tools contributed by plugins with those of
// the plugins loaded now.
func (h *handlers) syncPluginTools() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.pluginTools) > 0 {
		h.srv.DeleteTools(h.pluginTools...)
	}
	h.pluginTools = h.pluginTools[:0]
	for _, t := range h.app.Manager.MCPTools() {
		h.srv.AddTool(t.Tool, t.Handler)
		h.pluginTools = append(h.pluginTools, t.Tool.Name)
	}
}

// registerTools exposes launcher operations as MCP tools for LLM invocation.
func registerTools(s *server.MCPServer, h *handlers) {
	// Search
	s.AddTool(
		mcp.NewTool("vela_search",
			mcp.WithDescription("Search applications, plugin commands and plugin results. An empty query returns the most used items. While a searchable plugin view is open the text goes to that view instead."),
			mcp.WithString("query", mcp.Description("Search text")),
			mcp.WithNumber("limit", mcp.Description("Maximum results to return (default: all)")),
		),
		h.search,
	)

	// Select a result
	s.AddTool(
		mcp.NewTool("vela_select",
			mcp.WithDescription("Search and then activate one result, as pressing Enter on it would"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
			mcp.WithString("id", mcp.Required(), mcp.Description("Result id, or its 1-based position")),
		),
		h.selectResult,
	)

	// Run the best matching command
	s.AddTool(
		mcp.NewTool("vela_run",
			mcp.WithDescription("Run the command whose matchers best fit the input, e.g. '2+2' or 'greet'"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Command input")),
		),
		h.run,
	)

	// Commands
	s.AddTool(
		mcp.NewTool("vela_commands",
			mcp.WithDescription("List registered plugin commands"),
			mcp.WithString("plugin", mcp.Description("Only list commands of this plugin")),
		),
		h.listCommands,
	)

	// Actions
	s.AddTool(
		mcp.NewTool("vela_actions",
			mcp.WithDescription("List the actions available in the current context"),
			mcp.WithBoolean("all", mcp.Description("List every registered action regardless of context")),
			mcp.WithString("context", mcp.Description("Switch to this context first (core, global, view, result)")),
		),
		h.listActions,
	)

	s.AddTool(
		mcp.NewTool("vela_run_action",
			mcp.WithDescription("Execute an action by id"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Action id, e.g. 'reset_search'")),
		),
		h.runAction,
	)

	// Navigation
	s.AddTool(
		mcp.NewTool("vela_navigate",
			mcp.WithDescription("Open a plugin view and return its state"),
			mcp.WithString("view", mcp.Required(), mcp.Description("View path as plugin/view, e.g. 'greeting/form'")),
		),
		h.navigate,
	)

	s.AddTool(
		mcp.NewTool("vela_back",
			mcp.WithDescription("Close the top view. Closing the last view restores the search query."),
		),
		h.back,
	)

	// Plugins
	s.AddTool(
		mcp.NewTool("vela_plugins",
			mcp.WithDescription("List discovered plugins with their state, or show one plugin"),
			mcp.WithString("id", mcp.Description("Plugin id (optional, list all if empty)")),
		),
		h.listPlugins,
	)
}
