/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// ext.go implements "vela ext" for plugin management.
//
// Separated from search.go because these commands change which plugins are
// loaded, and every change reloads the whole plugin set.
//
// Design: enable and disable persist the flag in the database, so the MCP
// server and HTTP API see the same state on their next start. Built-in
// plugins are always on and refuse both.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/format"
	"github.com/jpl-au/vela/internal/install"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/manager"
	"github.com/jpl-au/vela/internal/progress"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var extCmd = &cobra.Command{
	Use:     "ext",
	Aliases: []string{"plugins"},
	Short:   "List and manage plugins",
	Long: `Lists discovered plugins and changes their state.

  vela ext list            # enabled plugins
  vela ext list --all      # include disabled and failed ones
  vela ext info calculator
  vela ext install ./weather
  vela ext disable weather
  vela ext enable weather
  vela ext uninstall weather`,
	Run: func(c *cobra.Command, _ []string) {
		_ = c.Help()
	},
}

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List plugins",
		Args:  cobra.NoArgs,
		RunE:  runExtList,
	}
	list.Flags().Bool(extension.FlagAll, false, "Include disabled plugins")

	info := &cobra.Command{
		Use:   "info <id>",
		Short: "Show a plugin's details and commands",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtInfo,
	}
	info.Flags().Bool(extension.FlagRaw, false, "Print markdown without terminal rendering")

	install := &cobra.Command{
		Use:   "install <dir>",
		Short: "Copy a plugin directory into the extensions directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtInstall,
	}
	install.Flags().BoolP(extension.FlagForce, "f", false, "Replace an installed plugin with the same id")
	install.Flags().BoolP(extension.FlagDryRun, "n", false, "Show what would be copied")

	extCmd.AddCommand(list, info, install,
		&cobra.Command{
			Use:   "enable <id>",
			Short: "Enable a plugin and reload",
			Args:  cobra.ExactArgs(1),
			RunE:  func(c *cobra.Command, args []string) error { return setEnabled(c, args[0], true) },
		},
		&cobra.Command{
			Use:   "disable <id>",
			Short: "Disable a plugin and reload",
			Args:  cobra.ExactArgs(1),
			RunE:  func(c *cobra.Command, args []string) error { return setEnabled(c, args[0], false) },
		},
		&cobra.Command{
			Use:   "uninstall <id>",
			Short: "Remove a plugin's directory and forget its state",
			Args:  cobra.ExactArgs(1),
			RunE:  runExtUninstall,
		},
	)
	rootCmd.AddCommand(extCmd)
}

func runExtList(c *cobra.Command, _ []string) error {
	all, _ := c.Flags().GetBool(extension.FlagAll)

	var infos []manager.Info
	for _, p := range App().Manager.Plugins() {
		if all || p.Enabled {
			infos = append(infos, p)
		}
	}
	if JSON() {
		if infos == nil {
			infos = []manager.Info{}
		}
		return PrintJSON(infos)
	}
	return format.Plugins(out, infos)
}

func runExtInfo(c *cobra.Command, args []string) error {
	id := args[0]
	raw, _ := c.Flags().GetBool(extension.FlagRaw)

	info, ok := App().Manager.Info(id)
	if !ok {
		return PrintJSONError(fmt.Errorf("%w: %s", manager.ErrUnknownPlugin, id))
	}
	var cmds []command.Command
	for _, cm := range App().Commands.Commands() {
		if cm.PluginID == id {
			cmds = append(cmds, cm)
		}
	}

	if JSON() {
		return PrintJSON(map[string]any{"plugin": info, "commands": cmds})
	}
	md := format.PluginPage(info, cmds)
	if !raw && term.IsTerminal(int(os.Stdout.Fd())) {
		if rendered, err := glamour.Render(md, "dark"); err == nil {
			fmt.Fprint(out, rendered)
			return nil
		}
	}
	fmt.Fprint(out, md)
	return nil
}

func runExtInstall(c *cobra.Command, args []string) error {
	force, _ := c.Flags().GetBool(extension.FlagForce)
	dryRun, _ := c.Flags().GetBool(extension.FlagDryRun)

	w := out
	if JSON() {
		w = io.Discard
	}
	res, err := install.Run(c.Context(), w, args[0], App().Config.ExtensionsDir(), install.Options{
		Force:  force,
		DryRun: dryRun,
	})
	log.Event("plugin:install", "install").Plugin(res.ID).Detail("dry_run", dryRun).Write(err)
	if err != nil {
		return PrintJSONError(err)
	}
	if !dryRun {
		err = progress.While("Reloading plugins", func() error {
			return App().Manager.Reload(c.Context())
		})
		if err != nil {
			return PrintJSONError(err)
		}
		if info, ok := App().Manager.Info(res.ID); ok && info.Error != "" {
			fmt.Fprintf(os.Stderr, "warning: %s installed but failed to load: %s\n", res.ID, info.Error)
		}
	}
	if JSON() {
		return PrintJSON(res)
	}
	return nil
}

func setEnabled(c *cobra.Command, id string, enabled bool) error {
	err := progress.While("Reloading plugins", func() error {
		return App().Manager.SetEnabled(c.Context(), id, enabled)
	})
	if err != nil {
		return PrintJSONError(err)
	}
	info, _ := App().Manager.Info(id)
	if JSON() {
		return PrintJSON(info)
	}
	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	fmt.Fprintf(out, "%s %s\n", verb, id)
	return nil
}

func runExtUninstall(c *cobra.Command, args []string) error {
	id := args[0]
	err := progress.While("Uninstalling "+id, func() error {
		return App().Manager.Uninstall(c.Context(), id)
	})
	if err != nil {
		return PrintJSONError(err)
	}
	if JSON() {
		return PrintJSON(map[string]string{"uninstalled": id})
	}
	fmt.Fprintf(out, "Uninstalled %s\n", id)
	return nil
}
