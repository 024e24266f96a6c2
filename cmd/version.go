/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// version.go implements the version command.
//
// Design: version never initialises the launcher. It only peeks at the
// schema of an existing database so support requests show which migrations
// a user's file has seen.

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/store"
	"github.com/jpl-au/vela/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build date, git commit, Go version, platform, database schema and the built-in plugins.`,
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		var ids []string
		for _, b := range extension.Builtins() {
			ids = append(ids, b.ID)
		}
		info := version.Get(ids, schemaVersion(c.Context()))
		if JSON() {
			return PrintJSON(info)
		}
		fmt.Fprint(out, info.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// schemaVersion reads the schema of an existing database without creating
// one or loading plugins. It returns zero when there is no database yet.
func schemaVersion(ctx context.Context) int {
	cfg, err := loadConfig()
	if err != nil {
		return 0
	}
	if _, err := os.Stat(cfg.DBPath()); err != nil {
		return 0
	}
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return 0
	}
	defer st.Close()
	v, _ := st.SchemaVersion(ctx)
	return v
}
