/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// actions.go implements "vela actions" for listing and running actions.

package cmd

import (
	"fmt"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/format"
	"github.com/jpl-au/vela/internal/log"
	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the actions available in a context",
	Long: `Lists actions visible in the current context (core by default).

  vela actions                  # core screen
  vela actions --context view   # inside a plugin view
  vela actions --all            # every registered action
  vela actions run reset_search`,
	Args: cobra.NoArgs,
	RunE: runActions,
}

var actionsRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Execute an action",
	Args:  cobra.ExactArgs(1),
	RunE:  runActionsRun,
}

func init() {
	actionsCmd.PersistentFlags().String(extension.FlagContext, "", "Action context: core, global, view or result")
	actionsCmd.Flags().Bool(extension.FlagAll, false, "List actions from every context")
	actionsCmd.AddCommand(actionsRunCmd)
	rootCmd.AddCommand(actionsCmd)
}

// applyContext switches the registry to the --context flag, if given.
func applyContext(c *cobra.Command) error {
	name, _ := c.Flags().GetString(extension.FlagContext)
	if name == "" {
		return nil
	}
	ctx, err := action.ParseContext(name)
	if err != nil {
		return err
	}
	App().Actions.SetContext(ctx)
	return nil
}

func runActions(c *cobra.Command, _ []string) error {
	if err := applyContext(c); err != nil {
		return PrintJSONError(err)
	}
	all, _ := c.Flags().GetBool(extension.FlagAll)

	list := App().Actions.Visible()
	if all {
		list = App().Actions.All()
	}
	if JSON() {
		return PrintJSON(map[string]any{"context": App().Actions.Context(), "actions": list})
	}
	return format.Actions(out, list)
}

func runActionsRun(c *cobra.Command, args []string) error {
	if err := applyContext(c); err != nil {
		return PrintJSONError(err)
	}
	id := args[0]
	err := App().Actions.Execute(c.Context(), id)
	log.Event("cli:actions", "execute").Target(id).Write(err)
	if err != nil {
		return PrintJSONError(err)
	}
	if JSON() {
		return PrintJSON(map[string]string{"executed": id})
	}
	fmt.Fprintf(out, "Executed %s\n", id)
	return nil
}
