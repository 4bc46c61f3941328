package commands

import (
	"github.com/pesde-pkg/pesde/internal/app"
	"github.com/spf13/cobra"
)

func (c *CLI) newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Re-resolve dependencies against their latest matching versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
			return c.app.Update(cmd.Context(), cwdOrDot(), app.Options{
				ContinueOnError: continueOnError,
			})
		},
	}
	cmd.Flags().Bool("continue-on-error", false, "Download every node to completion instead of failing fast")
	return cmd
}
