/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// serve.go implements "vela serve" and "vela http", the long-running
// front ends.
//
// Separated from the one-shot commands because both block until stopped
// and start the app's background helpers: the application scan, the
// plugin directory watcher and the metrics reporter.
//
// Design: serve speaks MCP over stdio, so nothing but JSON-RPC may reach
// stdout. The app logger writes to stderr for that reason.

package cmd

import (
	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/config"
	"github.com/jpl-au/vela/internal/httpapi"
	"github.com/jpl-au/vela/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start an MCP (Model Context Protocol) server over stdio so agents can search,
run commands and navigate plugin views.

  vela serve
  vela serve --watch      # reload plugins when their directory changes`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Start the HTTP API",
	Long: `Serve the launcher over HTTP with a WebSocket event stream on /events.

  vela http
  vela http --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runHTTP,
}

func init() {
	serveCmd.Flags().Bool(extension.FlagWatch, false, "Watch the plugin directory and reload on change")
	httpCmd.Flags().Bool(extension.FlagWatch, false, "Watch the plugin directory and reload on change")
	httpCmd.Flags().String(extension.FlagAddr, "", "Listen address (default http.addr or "+config.DefaultHTTPAddr+")")
	rootCmd.AddCommand(serveCmd, httpCmd)
}

// applyWatch turns on the plugin watcher for this run when --watch is set.
func applyWatch(c *cobra.Command) {
	if w, _ := c.Flags().GetBool(extension.FlagWatch); w {
		App().Config.Extensions.Watch = &w
	}
}

func runServe(c *cobra.Command, _ []string) error {
	applyWatch(c)
	App().Background(c.Context())
	return mcp.Serve(App())
}

func runHTTP(c *cobra.Command, _ []string) error {
	applyWatch(c)
	addr, _ := c.Flags().GetString(extension.FlagAddr)
	if addr == "" {
		addr = App().Config.HTTPAddr()
	}

	App().Background(c.Context())
	return httpapi.New(App(), nil).ListenAndServe(c.Context(), addr)
}
