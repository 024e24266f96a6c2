// cli.go implements the "vela docs" command for documentation access.
//
// Separated from docs.go to isolate documentation rendering logic
// including terminal detection and glamour markdown formatting.
//
// Design: Pages are embedded in the binary via the guide package, so the
// command works before any plugin directory or database exists. Terminal
// output gets glamour rendering for readability; pipe/redirect gets raw
// markdown.

package docs

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/jpl-au/vela/cmd"
	"github.com/jpl-au/vela/guide"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// CLICommands implements extension.CLIProvider.
func (d *Docs) CLICommands() []*cobra.Command {
	return []*cobra.Command{newDocsCmd()}
}

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show the vela documentation",
		Long: `Shows a documentation page. The topic may be a page name or search text.

  vela docs            # overview
  vela docs matchers   # one page
  vela docs "view stack"`,
		RunE: func(_ *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			content, err := resolve(topic)
			if err != nil {
				available, listErr := guide.List()
				if listErr != nil {
					return listErr
				}
				return cmd.PrintJSONError(fmt.Errorf("%w. Available: %s", err, strings.Join(available, ", ")))
			}

			if cmd.JSON() {
				return cmd.PrintJSON(map[string]string{"topic": topic, "content": content})
			}
			if term.IsTerminal(int(os.Stdout.Fd())) {
				rendered, err := glamour.Render(content, "dark")
				if err == nil {
					fmt.Fprint(cmd.Out(), rendered)
					return nil
				}
			}
			fmt.Fprint(cmd.Out(), content)
			return nil
		},
	}
}

// resolve returns the page named topic, or else the best fuzzy match.
func resolve(topic string) (string, error) {
	if content, err := guide.Get(topic); err == nil {
		return content, nil
	}
	pages, err := guide.Pages()
	if err != nil {
		return "", err
	}
	found := Find(pages, topic)
	if len(found) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoTopic, topic)
	}
	return found[0].Body, nil
}
