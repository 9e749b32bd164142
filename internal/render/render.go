// Package render prints trees, ancestor paths and the raw node and path
// relations for people.
package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// indent is appended to the prefix for each level of ViewTree.
const indent = ".       "

// ViewTree prints the subtree rooted at from, one "(id, title)" line per
// node, children indented below their parent. A zero from prints every
// root followed by a blank line.
func ViewTree(ctx context.Context, w io.Writer, tree types.Tree, from int64) error {
	if from != 0 {
		n, err := tree.GetNode(ctx, from)
		if err != nil {
			return err
		}
		return viewNode(ctx, w, tree, n, " ")
	}

	roots, err := tree.GetRoots(ctx)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		_, err := fmt.Fprintln(w, "No root nodes found.")
		return err
	}
	for _, r := range roots {
		if err := viewNode(ctx, w, tree, r, " "); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func viewNode(ctx context.Context, w io.Writer, tree types.Tree, n types.Node, prefix string) error {
	if _, err := fmt.Fprintf(w, "%s(%d, %s)\n", prefix, n.ID, n.Title); err != nil {
		return err
	}
	children, err := tree.GetDescendants(ctx, n.ID)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := viewNode(ctx, w, tree, c.Node, prefix+indent); err != nil {
			return err
		}
	}
	return nil
}

// PrintPath prints the titles from the root down to id joined by " -> ".
func PrintPath(ctx context.Context, w io.Writer, tree types.Tree, id int64) error {
	path, err := tree.GetPath(ctx, id)
	if err != nil {
		return err
	}
	titles := make([]string, len(path))
	for i, p := range path {
		titles[i] = p.Title
	}
	_, err = fmt.Fprintln(w, strings.Join(titles, " -> "))
	return err
}

// PrintTables prints the nodes and paths relations as tables, then the
// tree view.
func PrintTables(ctx context.Context, w io.Writer, tree types.Tree) error {
	snap, err := tree.Snapshot(ctx)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, NodesTable(snap.Nodes)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, PathsTable(snap.Paths)); err != nil {
		return err
	}
	return ViewTree(ctx, w, tree, 0)
}

// NodesTable renders nodes as a bordered table.
func NodesTable(nodes []types.Node) string {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{strconv.FormatInt(n.ID, 10), n.Title}
	}
	return newTable("id", "title").Rows(rows...).Render()
}

// PathsTable renders path entries as a bordered table.
func PathsTable(paths []types.PathEntry) string {
	rows := make([][]string, len(paths))
	for i, p := range paths {
		rows[i] = []string{
			strconv.FormatInt(p.Ancestor, 10),
			strconv.FormatInt(p.Descendant, 10),
			strconv.Itoa(p.Depth),
		}
	}
	return newTable("ancestor", "descendant", "depth").Rows(rows...).Render()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}
