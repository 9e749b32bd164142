package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grove/internal/snapshot"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write the tree to " + snapshot.NodesFile + " and " + snapshot.PathsFile,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := snapshot.Export(cmd.Context(), tree, args[0])
			if err != nil {
				return systemError{err}
			}
			return a.emit(cmd, stats, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Exported %d nodes, %d paths to %s\n", stats.Nodes, stats.Paths, args[0])
				return err
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load an exported tree into an empty store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := snapshot.Import(cmd.Context(), tree, args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd, stats, func(w io.Writer) error {
				fmt.Fprintf(w, "Imported %d nodes, %d paths from %s\n", stats.Nodes, stats.Paths, args[0])
				if stats.Skipped > 0 {
					fmt.Fprintf(w, "Skipped %d malformed lines\n", stats.Skipped)
				}
				return nil
			})
		},
	}
}
