// cli.go implements the "vela calc" command.
//
// Separated from calculator.go so the plugin itself does not depend on the
// CLI output helpers beyond this one command.

package calculator

import (
	"fmt"
	"strings"

	"github.com/jpl-au/vela/cmd"
	"github.com/jpl-au/vela/internal/log"
	"github.com/spf13/cobra"
)

// CLICommands implements extension.CLIProvider.
func (c *Calculator) CLICommands() []*cobra.Command {
	return []*cobra.Command{newCalcCmd()}
}

func newCalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calc <expression>",
		Short: "Evaluate an arithmetic expression",
		Long: `Evaluates an arithmetic expression the same way the launcher does.

  vela calc "12*(3+4)"
  vela calc 2 + 2 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			expr := strings.Join(args, " ")
			res, err := Evaluate(expr)
			log.Event("calculator:calc", "evaluate").Plugin(ID).Detail("expression", expr).Write(err)
			if err != nil {
				return cmd.PrintJSONError(err)
			}
			if cmd.JSON() {
				return cmd.PrintJSON(map[string]string{"expression": expr, "result": res})
			}
			fmt.Fprintln(cmd.Out(), res)
			return nil
		},
	}
}
