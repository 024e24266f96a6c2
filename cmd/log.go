/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// log.go implements "vela log" for reading the audit trail.
//
// Separated from the commands that write entries: every surface (CLI, MCP,
// HTTP) appends to the same log, and this is the one place it is read.
//
// Design: runs without starting the launcher, so inspecting what happened
// never loads plugins or touches vela.db. Reading is not itself audited.

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/duration"
	"github.com/jpl-au/vela/internal/format"
	"github.com/jpl-au/vela/internal/log"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the audit log",
	Long: `Shows recorded operations, newest first.

  vela log                       # last 20 entries
  vela log --source plugin:      # plugin state changes
  vela log --plugin calculator   # one plugin
  vela log --failed --since 7d   # recent failures`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func init() {
	f := logCmd.Flags()
	f.StringP(extension.FlagSource, "s", "", "Source prefix (e.g. plugin: or mcp:)")
	f.StringP(extension.FlagPlugin, "p", "", "Only entries for this plugin")
	f.String(extension.FlagSince, "", "Only entries newer than this (e.g. 2h, 7d)")
	f.Bool(extension.FlagFailed, false, "Only failed operations")
	f.IntP(extension.FlagLimit, "n", 20, "Maximum entries (0 for all)")
	rootCmd.AddCommand(logCmd)
}

func runLog(c *cobra.Command, _ []string) error {
	var filter log.Filter
	filter.Source, _ = c.Flags().GetString(extension.FlagSource)
	filter.Plugin, _ = c.Flags().GetString(extension.FlagPlugin)
	filter.Failed, _ = c.Flags().GetBool(extension.FlagFailed)
	filter.Limit, _ = c.Flags().GetInt(extension.FlagLimit)

	if since, _ := c.Flags().GetString(extension.FlagSince); since != "" {
		d, err := duration.Parse(since)
		if err != nil {
			return PrintJSONError(err)
		}
		filter.Since = time.Now().Add(-d)
	}

	entries, err := log.Query(c.Context(), filter)
	if errors.Is(err, log.ErrClosed) {
		err = fmt.Errorf("%w (%s)", err, log.DBPath())
	}
	if err != nil {
		return PrintJSONError(err)
	}
	if JSON() {
		if entries == nil {
			entries = []log.Entry{}
		}
		return PrintJSON(entries)
	}
	return format.AuditEntries(out, entries)
}
