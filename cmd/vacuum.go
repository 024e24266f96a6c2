/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// vacuum.go implements "vela vacuum" for forgetting stale usage.
//
// Design: requires --older-than so nothing is forgotten by accident, and
// supports --dry-run to preview. Usage drives ranking, so pruning changes
// result order; it never touches plugins or the search index. Without
// --scope the audit log is trimmed to the same window.

package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/duration"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/vacuum"
	"github.com/spf13/cobra"
)

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Forget stale usage counters",
	Long: `Forgets usage counters that have not been used recently and compacts the
database. Forgotten items rank as if they had never been launched. Without
--scope, audit log entries older than the cutoff are pruned as well.

  vela vacuum --older-than 90d --dry-run   # preview
  vela vacuum --older-than 6m              # forget
  vela vacuum --older-than 1y --scope app  # applications only

Durations accept d, w, m (30 days) and y (365 days) as well as Go durations.`,
	Args: cobra.NoArgs,
	RunE: runVacuum,
}

func init() {
	vacuumCmd.Flags().String(extension.FlagOlderThan, "", "Forget counters unused for this long (e.g. 90d)")
	vacuumCmd.Flags().String(extension.FlagScope, "", "Limit to one scope (app or ext)")
	vacuumCmd.Flags().BoolP(extension.FlagDryRun, "n", false, "Preview without forgetting")
	_ = vacuumCmd.MarkFlagRequired(extension.FlagOlderThan)
	rootCmd.AddCommand(vacuumCmd)
}

func runVacuum(c *cobra.Command, _ []string) error {
	olderThan, _ := c.Flags().GetString(extension.FlagOlderThan)
	scope, _ := c.Flags().GetString(extension.FlagScope)
	dryRun, _ := c.Flags().GetBool(extension.FlagDryRun)

	d, err := duration.Parse(olderThan)
	if err != nil {
		return PrintJSONError(err)
	}
	if scope != "" && !slices.Contains(vacuum.Scopes, scope) {
		return PrintJSONError(fmt.Errorf("invalid scope %q (use app or ext)", scope))
	}

	w := out
	if JSON() {
		w = io.Discard
	}
	res, err := vacuum.Run(c.Context(), w, App().Store, vacuum.Options{
		OlderThan: d,
		Scope:     scope,
		DryRun:    dryRun,
	})
	log.Event("cli:vacuum", "run").
		Detail("older_than", olderThan).
		Detail("dry_run", dryRun).
		Detail("forgotten", res.Forgotten).
		Detail("audit", res.Audit).
		Write(err)
	if err != nil {
		return PrintJSONError(err)
	}
	if JSON() {
		return PrintJSON(res)
	}
	return nil
}
