package commands

import (
	"github.com/pesde-pkg/pesde/internal/app"
	"github.com/spf13/cobra"
)

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve, download, and link the project's dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			locked, _ := cmd.Flags().GetBool("locked")
			prod, _ := cmd.Flags().GetBool("prod")
			devOnly, _ := cmd.Flags().GetBool("dev-only")
			continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
			return c.app.Install(cmd.Context(), cwdOrDot(), app.Options{
				Locked:          locked,
				Prod:            prod,
				DevOnly:         devOnly,
				ContinueOnError: continueOnError,
			})
		},
	}
	cmd.Flags().Bool("locked", false, "Fail instead of updating the lockfile if resolution would change it")
	cmd.Flags().Bool("prod", false, "Skip dev dependencies")
	cmd.Flags().Bool("dev-only", false, "Install only dev dependencies")
	cmd.Flags().Bool("continue-on-error", false, "Download every node to completion instead of failing fast")
	return cmd
}
