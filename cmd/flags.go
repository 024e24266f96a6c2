/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// flags.go holds the persistent flags every vela command shares: output
// format, data directory and verbosity.
//
// Separated from root.go so that built-in plugins adding CLI commands can
// rely on Out, JSON, PrintJSON and Dir without reaching into cobra.
//
// Design: -o is a pflag.Value, so "vela search -o yaml" fails while flags
// parse, before the launcher starts. -v counts: one raises diagnostics to
// info, two to debug.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/jpl-au/vela/internal/config"
	"github.com/spf13/cobra"
)

var validOutputFormats = []string{"json"}

// outputFormat is the value of -o.
type outputFormat string

func (o *outputFormat) String() string { return string(*o) }
func (o *outputFormat) Type() string   { return "format" }

func (o *outputFormat) Set(s string) error {
	if s != "" && !slices.Contains(validOutputFormats, s) {
		return fmt.Errorf("must be one of %v", validOutputFormats)
	}
	*o = outputFormat(s)
	return nil
}

var (
	output    outputFormat
	dir       string
	verbosity int
)

var (
	out io.Writer = os.Stdout
	in  io.Reader = os.Stdin // read by the shell
)

// Out is where commands write their results.
func Out() io.Writer { return out }

// Dir returns the explicit data directory if set.
// Priority: --dir flag > VELA_DATA_DIR env var > empty (use ~/.vela).
func Dir() string {
	if dir != "" {
		return dir
	}
	return os.Getenv(config.EnvPrefix + "_DATA_DIR")
}

// JSON reports whether -o json was given.
func JSON() bool { return output == "json" }

// diagnosticLevel applies -v on top of the configured level.
func diagnosticLevel(configured slog.Level) slog.Level {
	switch {
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return min(configured, slog.LevelInfo)
	}
	return configured
}

// PrintJSON writes v as one line of JSON. It does nothing unless -o json
// was given, so commands can call it unconditionally.
func PrintJSON(v any) error {
	if !JSON() {
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// PrintJSONError reports err as {"error": "..."} under -o json and returns
// nil so cobra does not print it a second time. Otherwise err is returned
// unchanged.
func PrintJSONError(err error) error {
	if !JSON() || err == nil {
		return err
	}
	_ = PrintJSON(map[string]string{"error": err.Error()})
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.VarP(&output, "output", "o", "Output format: json")
	pf.StringVar(&dir, "dir", "", "Data directory (database, plugins, audit log)")
	pf.CountVarP(&verbosity, "verbose", "v", "Log diagnostics to stderr (-vv for debug)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return validOutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
}
