package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grove/internal/closure"
	"github.com/mesh-intelligence/grove/internal/memstore"
	"github.com/mesh-intelligence/grove/pkg/types"
)

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

// scenario builds A(B(D, E), C, F(G)) plus a second root H with ids 1..8.
func scenario(t *testing.T) types.Tree {
	t.Helper()
	ctx := context.Background()
	tree := closure.New(memstore.New())
	t.Cleanup(func() { tree.Close() })
	for _, n := range []struct{ title, parent string }{
		{"A", ""}, {"B", "A"}, {"C", "A"}, {"F", "A"}, {"D", "B"}, {"E", "B"}, {"G", "F"}, {"H", ""},
	} {
		ref := types.NoParent
		if n.parent != "" {
			ref = types.ParentTitle(n.parent)
		}
		_, err := tree.AddNode(ctx, n.title, ref)
		require.NoError(t, err)
	}
	return tree
}

func TestViewTree(t *testing.T) {
	ctx := context.Background()
	tree := scenario(t)

	var buf bytes.Buffer
	require.NoError(t, ViewTree(ctx, &buf, tree, 0))
	assertGolden(t, "view_tree", buf.Bytes())

	buf.Reset()
	require.NoError(t, ViewTree(ctx, &buf, tree, 2))
	assertGolden(t, "view_subtree", buf.Bytes())

	_, err := tree.GetNode(ctx, 99)
	require.ErrorIs(t, err, types.ErrNodeNotFound)
	assert.ErrorIs(t, ViewTree(ctx, &buf, tree, 99), types.ErrNodeNotFound)
}

func TestViewTreeEmpty(t *testing.T) {
	tree := closure.New(memstore.New())
	t.Cleanup(func() { tree.Close() })

	var buf bytes.Buffer
	require.NoError(t, ViewTree(context.Background(), &buf, tree, 0))
	assert.Equal(t, "No root nodes found.\n", buf.String())
}

func TestPrintPath(t *testing.T) {
	ctx := context.Background()
	tree := scenario(t)

	var buf bytes.Buffer
	require.NoError(t, PrintPath(ctx, &buf, tree, 7))
	require.NoError(t, PrintPath(ctx, &buf, tree, 5))
	require.NoError(t, PrintPath(ctx, &buf, tree, 8))
	assertGolden(t, "print_path", buf.Bytes())
}

func TestPrintTables(t *testing.T) {
	ctx := context.Background()
	tree := scenario(t)

	var buf bytes.Buffer
	require.NoError(t, PrintTables(ctx, &buf, tree))
	out := buf.String()

	for _, want := range []string{"id", "title", "ancestor", "descendant", "depth", " (1, A)", "(8, H)"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, NodesTable([]types.Node{{ID: 12, Title: "twelve"}}), "twelve")
	assert.Contains(t, PathsTable([]types.PathEntry{{Ancestor: 31, Descendant: 42, Depth: 5}}), "42")
}
