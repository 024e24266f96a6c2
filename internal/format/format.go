// Package format provides output formatting utilities for CLI display.
//
// Centralises formatting logic so that command implementations focus on
// driving the launcher while this package handles presentation concerns
// like column alignment, the view stack tree and plugin pages.
package format

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/manager"
	"github.com/jpl-au/vela/internal/nav"
	"github.com/jpl-au/vela/internal/search"
	"github.com/jpl-au/vela/internal/store"
)

// dash stands in for empty columns.
func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Results prints one numbered line per result. Recently used results are
// marked with a trailing star.
func Results(w io.Writer, rs []search.Result) error {
	if len(rs) == 0 {
		_, err := fmt.Fprintln(w, "No results")
		return err
	}
	for i, r := range rs {
		line := fmt.Sprintf("%2d. %s", i+1, r.Title)
		if r.Subtitle != "" {
			line += "  (" + r.Subtitle + ")"
		}
		if r.RecentlyUsed {
			line += " *"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// ResultsLong prints results with their score, source and id.
//
// Column order is #, SCORE, SOURCE, TITLE, ID. The numeric columns come
// first so they align; ID goes last because plugin result ids vary wildly
// in length.
func ResultsLong(w io.Writer, rs []search.Result) error {
	if len(rs) == 0 {
		_, err := fmt.Fprintln(w, "No results")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tSOURCE\tTITLE\tID")
	for i, r := range rs {
		fmt.Fprintf(tw, "%d\t%5.1f\t%s\t%s\t%s\n", i+1, r.Score, r.Source, r.Title, dash(r.ID))
	}
	return tw.Flush()
}

// Plugins prints a plugin table. Disabled plugins show "disabled" as
// their state whatever their lifecycle state was.
func Plugins(w io.Writer, infos []manager.Info) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No plugins")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tTYPE\tSTATE\tSOURCE")
	for _, in := range infos {
		source := "dir"
		if in.BuiltIn {
			source = "built-in"
		}
		state := string(in.State)
		if !in.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", in.ID, dash(in.Version), dash(in.Type), state, source)
	}
	return tw.Flush()
}

// Actions prints an action table.
func Actions(w io.Writer, list []action.Action) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No actions")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tCONTEXT\tPLUGIN")
	for _, a := range list {
		plugin := a.PluginID
		if a.BuiltIn {
			plugin = ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Label, a.Context, dash(plugin))
	}
	return tw.Flush()
}

// IndexItems prints rows of the search index.
func IndexItems(w io.Writer, items []store.IndexItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No matches")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OBJECT\tNAME\tCATEGORY\tKEYWORD")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ObjectID, it.Name, it.Category, dash(it.Keyword))
	}
	return tw.Flush()
}

// AuditEntries prints audit log entries, newest first as given. Failed
// entries show their error in place of "ok".
func AuditEntries(w io.Writer, entries []log.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No log entries")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSOURCE\tPLUGIN\tTARGET\tTOOK\tRESULT")
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = "error: " + e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Start.Local().Format("2006-01-02 15:04:05"), e.Source,
			dash(e.Plugin), dash(e.Target), e.Duration().Round(time.Millisecond), result)
	}
	return tw.Flush()
}

// View describes an open view and the state its plugin reports.
func View(w io.Writer, vs manager.ViewState, depth int) {
	fmt.Fprintf(w, "View: %s (depth %d)\n", vs.Frame.ViewPath, depth)
	if vs.State != nil {
		fmt.Fprintf(w, "  %+v\n", vs.State)
	}
}

// Stack prints the open views as a tree, the bottom of the stack first.
//
//	greeting/form
//	└── docs/browse  (searchable)
func Stack(w io.Writer, frames []nav.Frame) {
	if len(frames) == 0 {
		fmt.Fprintln(w, "No open views")
		return
	}
	for i, f := range frames {
		line := f.ViewPath
		if f.Searchable {
			line += "  (searchable)"
		}
		if i > 0 {
			line = strings.Repeat("    ", i-1) + "└── " + line
		}
		fmt.Fprintln(w, line)
	}
}

// PluginPage formats a plugin's details and commands as markdown.
func PluginPage(in manager.Info, cmds []command.Command) string {
	var b strings.Builder
	name := in.Name
	if name == "" {
		name = in.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	if in.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", in.Description)
	}

	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| ID | `%s` |\n", in.ID)
	if in.Version != "" {
		fmt.Fprintf(&b, "| Version | %s |\n", in.Version)
	}
	if in.Type != "" {
		fmt.Fprintf(&b, "| Type | %s |\n", in.Type)
	}
	fmt.Fprintf(&b, "| Enabled | %t |\n", in.Enabled)
	fmt.Fprintf(&b, "| State | %s |\n", in.State)
	if in.BuiltIn {
		fmt.Fprintf(&b, "| Source | built-in |\n")
	} else if in.Dir != "" {
		fmt.Fprintf(&b, "| Source | `%s` |\n", in.Dir)
	}
	if len(in.Views) > 0 {
		fmt.Fprintf(&b, "| Views | %s |\n", strings.Join(in.Views, ", "))
	}
	if len(in.Keywords) > 0 {
		fmt.Fprintf(&b, "| Keywords | %s |\n", strings.Join(in.Keywords, ", "))
	}
	if in.Error != "" {
		fmt.Fprintf(&b, "| Error | %s |\n", in.Error)
	}

	if len(cmds) > 0 {
		b.WriteString("\n## Commands\n\n")
		for _, cm := range cmds {
			fmt.Fprintf(&b, "- **%s**", cm.Name)
			if cm.Trigger != "" {
				fmt.Fprintf(&b, " (`%s`)", cm.Trigger)
			}
			if cm.Description != "" {
				fmt.Fprintf(&b, ": %s", cm.Description)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
