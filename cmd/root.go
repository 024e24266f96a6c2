/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// root.go defines the root command and the process lifecycle around it.
//
// Separated from init_app.go, which builds the launcher; this file decides
// when that happens and tears everything down afterwards.
//
// Design: the launcher core is built lazily in prepare. Commands listed in
// noAppCommands (config, version, log and the commands contributed by
// built-in plugins) run without loading plugins or opening vela.db. The
// audit log opens for every command, after flags parse so it follows --dir.
// Interrupts cancel the command's context rather than killing the process,
// so serve and http shut down cleanly.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpl-au/vela/internal/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vela",
	Short: "Command-palette launcher core with plugins and unified search",
	Long: `vela loads launcher plugins, matches typed input to their commands, and
ranks applications, commands and plugin results in one list.

The same core is available as a CLI, an interactive shell, an MCP server
(vela serve) and an HTTP API (vela http).`,
	Run: func(c *cobra.Command, _ []string) {
		_ = c.Help()
	},
	PersistentPreRunE: prepare,
}

// prepare opens the audit log and, unless the command opts out, the
// launcher.
func prepare(c *cobra.Command, _ []string) error {
	log.SetDir(Dir())
	if err := log.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
	}

	name := topLevelCmdName(c)
	if noAppCommands[name] {
		return nil
	}
	err := initApp(c.Context(), name)
	if err == nil {
		return nil
	}
	if JSON() {
		_ = PrintJSON(map[string]string{"error": err.Error()})
		c.SilenceErrors = true
		c.SilenceUsage = true
	}
	return fmt.Errorf("start launcher: %w", err)
}

// topLevelCmdName returns the direct child of root that c belongs to:
// "ext" for "vela ext enable foo".
func topLevelCmdName(c *cobra.Command) string {
	for c.HasParent() && c.Parent().HasParent() {
		c = c.Parent()
	}
	return c.Name()
}

// Execute runs vela and exits with status 1 on error.
func Execute() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer log.Close()

	registerExtensions()
	err := rootCmd.ExecuteContext(ctx)

	if cerr := closeApp(); cerr != nil {
		fmt.Fprintf(os.Stderr, "warning: closing launcher: %v\n", cerr)
	}
	if err != nil {
		return 1
	}
	return 0
}
