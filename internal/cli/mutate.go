package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grove/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a node",
		Long: "Add a node under --parent (an id or a title). Without --parent the node is a new root.\n" +
			"A numeric --parent is an id; pass --by-title to look it up as a title instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			id, err := tree.AddNode(cmd.Context(), args[0], a.parentRef(parent))
			if err != nil {
				return err
			}
			return a.emit(cmd, types.Node{ID: id, Title: args[0]}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, id)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent node id or title")
	return cmd
}

// nodeCmd builds a command taking a single node argument.
func nodeCmd(a *app, use, short string, op func(ctx context.Context, tree types.Tree, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <node>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, id, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return op(cmd.Context(), tree, id)
		},
	}
}

// reparentCmd builds a command taking a node and a new parent.
func reparentCmd(a *app, use, short string, op func(tree types.Tree) func(ctx context.Context, id, parent int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <node> <parent>",
		Short: short,
		Long: short + ".\nNode and parent are ids or titles. Numeric arguments are ids unless\n" +
			"--by-title is given, in which case both are looked up as titles.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, id, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			parent, err := a.nodeRef(ctx, tree, args[1])
			if err != nil {
				return err
			}
			return op(tree)(ctx, id, parent)
		},
	}
}

func newDetachCmd(a *app) *cobra.Command {
	return nodeCmd(a, "detach", "Detach a subtree from its parent, making the node a root",
		func(ctx context.Context, tree types.Tree, id int64) error {
			return tree.DetachNode(ctx, id)
		})
}

func newDeleteCmd(a *app) *cobra.Command {
	return nodeCmd(a, "delete", "Delete a node and its whole subtree",
		func(ctx context.Context, tree types.Tree, id int64) error {
			return tree.DeleteNode(ctx, id)
		})
}

func newAttachCmd(a *app) *cobra.Command {
	return reparentCmd(a, "attach", "Attach a detached subtree under a parent",
		func(tree types.Tree) func(ctx context.Context, id, parent int64) error { return tree.AttachNode })
}

func newMoveCmd(a *app) *cobra.Command {
	return reparentCmd(a, "move", "Move a subtree under a new parent",
		func(tree types.Tree) func(ctx context.Context, id, parent int64) error { return tree.MoveNode })
}
