/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// config.go implements "vela config" for configuration management.
//
// Separated from root.go to isolate the local vs global precedence rules.
//
// Design: config cascades like git: local (.vela/config.yaml) takes
// precedence over global (~/.vela/config.yaml). Values are read from and
// written to the file only, so VELA_* environment overrides never end up
// persisted. --local forces the local file even before it exists.

package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/config"
	"github.com/jpl-au/vela/internal/log"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View or set config values",
	Long: `View or set config values.

  vela config                        # show config
  vela config search.max_results     # show one value
  vela config search.max_results 50  # set a value

Configuration locations:
  Global: ~/.vela/config.yaml
  Local:  .vela/config.yaml

Uses local config if it exists, otherwise global.
Writes go to the same place reads come from.
Use --local to use local config instead.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func init() {
	configCmd.Flags().Bool(extension.FlagLocal, false, "Use local config (.vela/config.yaml)")
	rootCmd.AddCommand(configCmd)
}

func runConfig(c *cobra.Command, args []string) error {
	forceLocal, _ := c.Flags().GetBool(extension.FlagLocal)

	scope := config.ScopeGlobal
	if _, err := os.Stat(config.LocalPath()); err == nil || forceLocal {
		scope = config.ScopeLocal
	}
	cfg, err := config.LoadScope(scope)
	if err != nil {
		return PrintJSONError(fmt.Errorf("config load: %w", err))
	}
	scopeName := "global"
	if scope == config.ScopeLocal {
		scopeName = "local"
	}

	switch len(args) {
	case 0:
		all := cfg.All()
		log.Event("cli:config", "list").Detail("scope", scopeName).Write(nil)
		if JSON() {
			return PrintJSON(all)
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%s: %s\n", k, all[k])
		}

	case 1:
		v, err := cfg.Get(args[0])
		log.Event("cli:config", "get").Detail("key", args[0]).Write(err)
		if err != nil {
			return PrintJSONError(fmt.Errorf("config get %q: %w", args[0], err))
		}
		if JSON() {
			return PrintJSON(map[string]string{args[0]: v})
		}
		fmt.Fprintln(out, v)

	case 2:
		if err := cfg.Set(args[0], args[1]); err != nil {
			log.Event("cli:config", "set").Detail("key", args[0]).Write(err)
			return PrintJSONError(fmt.Errorf("config set %q: %w", args[0], err))
		}
		saveErr := cfg.Save()
		log.Event("cli:config", "set").Detail("key", args[0]).Detail("scope", scopeName).Write(saveErr)
		if saveErr != nil {
			return PrintJSONError(fmt.Errorf("config save: %w", saveErr))
		}
		if JSON() {
			return PrintJSON(map[string]string{"key": args[0], "value": args[1], "scope": scopeName})
		}
		fmt.Fprintf(out, "%s = %s (%s)\n", args[0], args[1], scopeName)
	}
	return nil
}
