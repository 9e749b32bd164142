package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grove/internal/closure"
	"github.com/mesh-intelligence/grove/internal/render"
)

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view [node]",
		Short: "Draw the forest, or the subtree under a node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, err := a.open(ctx)
			if err != nil {
				return err
			}
			var from int64
			if len(args) == 1 {
				if from, err = a.nodeRef(ctx, tree, args[0]); err != nil {
					return err
				}
				if err := mustExist(cmd, tree, from); err != nil {
					return err
				}
			}
			if a.flags.jsonMode {
				snap, err := tree.Snapshot(ctx)
				if err != nil {
					return err
				}
				return a.emit(cmd, snap, nil)
			}
			return render.ViewTree(ctx, cmd.OutOrStdout(), tree, from)
		},
	}
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Print the node and path tables followed by the forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, err := a.open(ctx)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				snap, err := tree.Snapshot(ctx)
				if err != nil {
					return err
				}
				return a.emit(cmd, snap, nil)
			}
			return render.PrintTables(ctx, cmd.OutOrStdout(), tree)
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the closure invariants of the stored tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, err := a.open(ctx)
			if err != nil {
				return err
			}
			snap, err := tree.Snapshot(ctx)
			if err != nil {
				return err
			}
			if err := closure.CheckInvariants(snap); err != nil {
				return err
			}
			summary := map[string]int{"nodes": len(snap.Nodes), "paths": len(snap.Paths)}
			return a.emit(cmd, summary, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "ok: %d nodes, %d paths\n", len(snap.Nodes), len(snap.Paths))
				return err
			})
		},
	}
}
