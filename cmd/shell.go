/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// shell.go implements "vela shell", an interactive launcher session.
//
// Separated from search.go because the shell keeps state between lines:
// the last result list, the open views and the live query all persist
// for the whole session, as they do in the launcher window.
//
// Design: on a terminal the shell uses x/term's line editor (history,
// cursor keys) in raw mode. Piped input is read line by line without
// prompts, which keeps scripted sessions and tests simple.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/app"
	"github.com/jpl-au/vela/internal/format"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/search"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const shellHelp = `Type to search. While a searchable view is open, text goes to the view.

  :N            select result N
  :run <text>   run the best matching command
  :actions      list visible actions
  :do <id>      execute an action
  :back         close the top view
  :home         close every view
  :views        show the open views
  :help         this help
  :quit         leave the shell
`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive launcher session",
	Long: `Starts an interactive session that behaves like the launcher window: each
line is a new query, results can be selected by number, and views opened by
commands stay open until closed with :back.

` + shellHelp,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// lineReader yields input lines until io.EOF.
type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(p string)
}

type scanReader struct{ s *bufio.Scanner }

func (r scanReader) ReadLine() (string, error) {
	if r.s.Scan() {
		return r.s.Text(), nil
	}
	if err := r.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (scanReader) SetPrompt(string) {}

func runShell(c *cobra.Command, _ []string) error {
	var (
		lr lineReader
		w  = out
	)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) && out == os.Stdout {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return err
		}
		defer term.Restore(int(f.Fd()), state)
		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{f, os.Stdout}, "")
		lr, w = t, t
	} else {
		lr = scanReader{bufio.NewScanner(in)}
	}

	s := &shell{app: App(), w: w}
	log.Event("cli:shell", "start").Write(nil)
	return s.loop(c.Context(), lr)
}

type shell struct {
	app     *app.App
	w       io.Writer
	results []search.Result
}

func (s *shell) prompt() string {
	if vs, ok := s.app.Manager.CurrentView(); ok {
		return "vela [" + vs.Frame.ViewPath + "]> "
	}
	return "vela> "
}

func (s *shell) loop(ctx context.Context, lr lineReader) error {
	for {
		lr.SetPrompt(s.prompt())
		line, err := lr.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := s.handle(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

// handle processes one line and reports whether the session should end.
func (s *shell) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ":") {
		s.input(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "q", "quit", "exit":
		return true
	case "h", "help":
		fmt.Fprint(s.w, shellHelp)
	case "b", "back":
		s.app.Manager.GoBack(ctx)
		if !s.app.Manager.Stack().Active() {
			fmt.Fprintf(s.w, "Query: %q\n", s.app.Query.Query())
		}
		printView(s.w, s.app)
	case "home":
		s.app.Manager.CloseViews(ctx)
		s.results = nil
		fmt.Fprintf(s.w, "Query: %q\n", s.app.Query.Query())
	case "views":
		format.Stack(s.w, s.app.Manager.Stack().Frames())
	case "run":
		s.run(ctx, arg)
	case "actions":
		for _, a := range s.app.Actions.Visible() {
			fmt.Fprintf(s.w, "  %s  %s\n", a.ID, a.Label)
		}
	case "do":
		if err := s.app.Actions.Execute(ctx, arg); err != nil {
			fmt.Fprintf(s.w, "error: %v\n", err)
			return false
		}
		printView(s.w, s.app)
	default:
		n, err := strconv.Atoi(name)
		if err != nil {
			fmt.Fprintf(s.w, "unknown command :%s (try :help)\n", name)
			return false
		}
		s.selectResult(ctx, n)
	}
	return false
}

func (s *shell) input(ctx context.Context, q string) {
	resp := s.app.Input(ctx, q)
	if resp.View != nil {
		s.results = nil
		fmt.Fprintf(s.w, "  %+v\n", resp.View.State)
		return
	}
	s.results = resp.Results
	format.Results(s.w, resp.Results)
}

func (s *shell) selectResult(ctx context.Context, n int) {
	if n < 1 || n > len(s.results) {
		fmt.Fprintf(s.w, "no result %d\n", n)
		return
	}
	r := s.results[n-1]
	ar, err := s.app.Select(ctx, r)
	if err != nil {
		fmt.Fprintf(s.w, "error: %v\n", err)
		return
	}
	fmt.Fprintf(s.w, "Selected: %s\n", r.Title)
	if ar.Type == search.ActionSetView {
		s.results = nil
		printView(s.w, s.app)
	}
}

func (s *shell) run(ctx context.Context, q string) {
	m, res, err := s.app.Run(ctx, q)
	if err != nil {
		fmt.Fprintf(s.w, "error: %v\n", err)
		return
	}
	switch r := res.(type) {
	case extension.InlineResult:
		if r.Error != "" {
			fmt.Fprintf(s.w, "error: %s\n", r.Error)
		} else {
			fmt.Fprintln(s.w, r.Title)
		}
	case nil:
	default:
		fmt.Fprintf(s.w, "%s: %v\n", m.CommandID, r)
	}
	printView(s.w, s.app)
}
