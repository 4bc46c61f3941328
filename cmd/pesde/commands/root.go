// Package commands implements the CLI commands for the pesde package manager.
package commands

import (
	"context"
	"os"

	"github.com/pesde-pkg/pesde/internal/app"
	"github.com/pesde-pkg/pesde/internal/build"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"github.com/spf13/cobra"
)

// CLI represents the command line interface for pesde.
type CLI struct {
	app     *app.App
	scripts ports.ScriptExecutor
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app and script executor.
func New(a *app.App, scripts ports.ScriptExecutor) *CLI {
	rootCmd := &cobra.Command{
		Use:           "pesde",
		Short:         "A package manager for the Luau ecosystem",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		scripts: scripts,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newUpdateCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newPruneCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func cwdOrDot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
