/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// search.go implements "vela search" and "vela run".
//
// Separated from shell.go because these are one-shot commands: one query
// in, one list or one command result out.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/app"
	"github.com/jpl-au/vela/internal/format"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/search"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search applications, commands and plugin results",
	Long: `Searches every provider and prints the ranked results. Without a query the
most used and recently used items are shown.

  vela search firefox
  vela search "2+2"
  vela search docs --pick 1     # activate the first result
  vela search -l mail           # with scores and ids
  vela search -o json`,
	RunE: runSearch,
}

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Run the command that best matches the input",
	Long: `Finds the command whose matchers best fit the input and executes it.
Arguments from the matcher can be supplemented with --arg.

  vela run "12*4"
  vela run greet
  vela run hey --arg input=Ada
  vela run "3/4" --copy          # copy an inline result`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	searchCmd.Flags().IntP(extension.FlagLimit, "n", 0, "Maximum results to show")
	searchCmd.Flags().String(extension.FlagPick, "", "Activate the result with this id or 1-based position")
	searchCmd.Flags().BoolP(extension.FlagLong, "l", false, "Show score, source and id")
	rootCmd.AddCommand(searchCmd)

	runCmd.Flags().StringArray(extension.FlagArg, nil, "Extra argument as key=value (repeatable)")
	runCmd.Flags().Bool(extension.FlagCopy, false, "Run the inline result's action (copies it)")
	rootCmd.AddCommand(runCmd)
}

func runSearch(c *cobra.Command, args []string) error {
	ctx := c.Context()
	query := strings.Join(args, " ")
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	pick, _ := c.Flags().GetString(extension.FlagPick)
	long, _ := c.Flags().GetBool(extension.FlagLong)

	if pick != "" {
		r, ar, err := App().Pick(ctx, query, pick)
		log.Event("cli:search", "select").Plugin(r.PluginID).Target(pick).Detail("query", query).Write(err)
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(map[string]any{"result": r, "action": ar})
		}
		fmt.Fprintf(out, "Selected: %s\n", r.Title)
		if ar.Type == search.ActionSetView {
			printView(out, App())
		}
		return nil
	}

	resp := App().Input(ctx, query)
	if limit > 0 && len(resp.Results) > limit {
		resp.Results = resp.Results[:limit]
	}
	if JSON() {
		return PrintJSON(resp)
	}
	if long {
		return format.ResultsLong(out, resp.Results)
	}
	return format.Results(out, resp.Results)
}

func runRun(c *cobra.Command, args []string) error {
	ctx := c.Context()
	query := strings.Join(args, " ")
	extra, _ := c.Flags().GetStringArray(extension.FlagArg)
	doCopy, _ := c.Flags().GetBool(extension.FlagCopy)

	m := App().Commands.FindMatch(strings.TrimSpace(query))
	if m == nil {
		err := fmt.Errorf("%w: %q", app.ErrNoMatch, query)
		log.Event("cli:run", "execute").Detail("query", query).Write(err)
		return PrintJSONError(err)
	}
	for _, kv := range extra {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return PrintJSONError(fmt.Errorf("invalid --%s %q: want key=value", extension.FlagArg, kv))
		}
		if m.Args == nil {
			m.Args = map[string]any{}
		}
		m.Args[k] = v
	}

	res, err := App().Manager.ExecuteCommand(ctx, m.CommandID, m.Args)
	log.Event("cli:run", "execute").Target(m.CommandID).Detail("query", query).Write(err)
	if err != nil {
		return PrintJSONError(err)
	}

	inline, isInline := res.(extension.InlineResult)
	if doCopy && isInline && inline.Action != nil {
		if err := inline.Action(ctx); err != nil {
			return PrintJSONError(fmt.Errorf("copy: %w", err))
		}
	}

	if JSON() {
		return PrintJSON(map[string]any{"command": m.CommandID, "confidence": m.Confidence, "args": m.Args, "result": res})
	}
	switch {
	case isInline && inline.Error != "":
		return errors.New(inline.Error)
	case isInline:
		fmt.Fprintln(out, inline.Title)
	case res != nil:
		fmt.Fprintln(out, res)
	}
	if App().Manager.Stack().Active() {
		printView(out, App())
	}
	return nil
}


// printView describes the open view and its state.
func printView(w io.Writer, a *app.App) {
	vs, ok := a.Manager.CurrentView()
	if !ok {
		return
	}
	format.View(w, vs, a.Manager.Stack().Depth())
}
