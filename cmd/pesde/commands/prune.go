package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove unreachable blobs and trees from the content-addressable store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removedBlobs, removedTrees, err := c.app.Prune(cmd.Context(), cwdOrDot())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d blobs and %d trees\n", removedBlobs, removedTrees)
			return nil
		},
	}
}
