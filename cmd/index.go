/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// index.go implements "vela index" for the persisted search index.
//
// Design: sync reconciles without dropping anything, reset rebuilds from
// scratch and also clears cached results. Both cover commands and
// applications.

package cmd

import (
	"fmt"
	"strings"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/format"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/progress"
	"github.com/jpl-au/vela/internal/providers/apps"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the search index",
	Long: `Maintains the full-text index of commands and applications.

  vela index sync          # reconcile with loaded plugins and installed apps
  vela index reset         # drop and rebuild
  vela index query mail    # query the index directly`,
	Run: func(c *cobra.Command, _ []string) {
		_ = c.Help()
	},
}

func init() {
	query := &cobra.Command{
		Use:   "query <text>",
		Short: "Query the index",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIndexQuery,
	}
	query.Flags().IntP(extension.FlagLimit, "n", 20, "Maximum rows")

	indexCmd.AddCommand(
		&cobra.Command{
			Use:   "sync",
			Short: "Reconcile the index with commands and applications",
			Args:  cobra.NoArgs,
			RunE:  runIndexSync,
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Drop and rebuild the index",
			Args:  cobra.NoArgs,
			RunE:  runIndexReset,
		},
		query,
	)
	rootCmd.AddCommand(indexCmd)
}

func runIndexSync(c *cobra.Command, _ []string) error {
	ctx := c.Context()
	var (
		indexed, removed int
		found            []apps.App
	)
	err := progress.While("Syncing index", func() (err error) {
		if indexed, removed, err = App().Manager.SyncIndex(ctx); err != nil {
			return err
		}
		found, err = App().Apps.Refresh(ctx)
		return err
	})
	log.Event("cli:index", "sync").Detail("commands", indexed).Detail("apps", len(found)).Write(err)
	if err != nil {
		return PrintJSONError(err)
	}
	if JSON() {
		return PrintJSON(map[string]int{"indexed": indexed, "removed": removed, "applications": len(found)})
	}
	fmt.Fprintf(out, "Commands: %d indexed, %d removed\nApplications: %d\n", indexed, removed, len(found))
	return nil
}

func runIndexReset(c *cobra.Command, _ []string) error {
	err := progress.While("Rebuilding index", func() error {
		return App().Search.ResetIndex(c.Context())
	})
	log.Event("cli:index", "reset").Write(err)
	if err != nil {
		return PrintJSONError(err)
	}
	if JSON() {
		return PrintJSON(map[string]bool{"reset": true})
	}
	fmt.Fprintln(out, "Index reset")
	return nil
}

func runIndexQuery(c *cobra.Command, args []string) error {
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	items, err := App().Store.Query(c.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return PrintJSONError(err)
	}
	if JSON() {
		return PrintJSON(items)
	}
	return format.IndexItems(out, items)
}
