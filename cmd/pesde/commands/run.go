package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script> [args...]",
		Short: "Run a script declared under the project's [target.scripts] table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("target")
			return c.app.Run(cmd.Context(), cwdOrDot(), c.scripts, target, args[0], args[1:])
		},
	}
	cmd.Flags().String("target", "", "Target kind to run the script under (defaults to the manifest's first declared target)")
	return cmd
}
