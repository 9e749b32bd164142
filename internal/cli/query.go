package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grove/pkg/types"
)

func newRootsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roots",
		Short: "List root nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			roots, err := tree.GetRoots(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd, nonNil(roots), func(w io.Writer) error {
				for _, n := range roots {
					nodeLine(w, n)
				}
				return nil
			})
		},
	}
}

func newChildrenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "children <node>",
		Short: "List the direct children of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, id, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if err := mustExist(cmd, tree, id); err != nil {
				return err
			}
			children, err := tree.GetDescendants(ctx, id)
			if err != nil {
				return err
			}
			return a.emit(cmd, nonNil(children), func(w io.Writer) error {
				for _, n := range children {
					nodeLine(w, n.Node)
				}
				return nil
			})
		},
	}
}

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <node>",
		Short: "Print the path from the root to a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, id, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if err := mustExist(cmd, tree, id); err != nil {
				return err
			}
			path, err := tree.GetPath(ctx, id)
			if err != nil {
				return err
			}
			return a.emit(cmd, path, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, joinTitles(path))
				return err
			})
		},
	}
}

// nodeDetail is the show command's output.
type nodeDetail struct {
	types.Node
	Root     bool                `json:"root"`
	Path     []types.NodeAtDepth `json:"path"`
	Children []types.NodeAtDepth `json:"children"`
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <node>",
		Short: "Show a node with its path and children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, id, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			var d nodeDetail
			if d.Node, err = tree.GetNode(ctx, id); err != nil {
				return err
			}
			if d.Root, err = tree.IsRoot(ctx, id); err != nil {
				return err
			}
			if d.Path, err = tree.GetPath(ctx, id); err != nil {
				return err
			}
			if d.Children, err = tree.GetDescendants(ctx, id); err != nil {
				return err
			}
			d.Children = nonNil(d.Children)
			return a.emit(cmd, d, func(w io.Writer) error {
				fmt.Fprintf(w, "id:       %d\n", d.ID)
				fmt.Fprintf(w, "title:    %s\n", d.Title)
				fmt.Fprintf(w, "root:     %t\n", d.Root)
				fmt.Fprintf(w, "path:     %s\n", joinTitles(d.Path))
				_, err := fmt.Fprintf(w, "children: %d\n", len(d.Children))
				return err
			})
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <title>",
		Short: "Print the id of the first node with a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			id, err := tree.GetFirstID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd, types.Node{ID: id, Title: args[0]}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, id)
				return err
			})
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := tree.NodeCount(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]int{"nodes": n}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, n)
				return err
			})
		},
	}
}

// mustExist reports ErrNodeNotFound for ids the tree does not hold, since
// the list queries return empty results for them.
func mustExist(cmd *cobra.Command, tree types.Tree, id int64) error {
	ok, err := tree.NodeExists(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("node %d: %w", id, types.ErrNodeNotFound)
	}
	return nil
}

func joinTitles(path []types.NodeAtDepth) string {
	titles := make([]string, len(path))
	for i, n := range path {
		titles[i] = n.Title
	}
	return strings.Join(titles, " -> ")
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
