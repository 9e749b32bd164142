// Package storetest holds the conformance suite every store backend runs from
// its own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

// Run exercises the store contract against open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"create issues increasing ids", testCreate},
		{"lookups", testLookups},
		{"insert with explicit id", testInsert},
		{"delete does not reuse ids", testDeleteNoReuse},
		{"closure queries", testClosureQueries},
		{"insert batch constraints", testInsertBatchConstraints},
		{"delete where", testDeleteWhere},
		{"rollback discards writes", testRollback},
		{"read transaction rejects writes", testReadOnly},
		{"closed store", testClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// inTx runs fn in a writable transaction and commits it.
func inTx(t *testing.T, s store.Store, fn func(tx store.Tx)) {
	t.Helper()
	tx, err := s.Begin(context.Background(), true)
	require.NoError(t, err)
	defer tx.Rollback()
	fn(tx)
	require.NoError(t, tx.Commit())
}

// chain creates titles as a single path root -> ... -> leaf with a full
// closure and returns their ids.
func chain(t *testing.T, tx store.Tx, titles ...string) []int64 {
	t.Helper()
	ctx := context.Background()
	var ids []int64
	for i, title := range titles {
		id, err := tx.Nodes().Create(ctx, title)
		require.NoError(t, err)
		entries := []types.PathEntry{types.SelfRow(id)}
		for j, anc := range ids {
			entries = append(entries, types.PathEntry{Ancestor: anc, Descendant: id, Depth: i - j})
		}
		require.NoError(t, tx.Paths().InsertBatch(ctx, entries))
		ids = append(ids, id)
	}
	return ids
}

func testCreate(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) {
		a, err := tx.Nodes().Create(ctx, "a")
		require.NoError(t, err)
		b, err := tx.Nodes().Create(ctx, "b")
		require.NoError(t, err)
		assert.Greater(t, b, a)
		assert.Greater(t, a, int64(0))

		n, err := tx.Nodes().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func testLookups(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) {
		first, err := tx.Nodes().Create(ctx, "dup")
		require.NoError(t, err)
		_, err = tx.Nodes().Create(ctx, "dup")
		require.NoError(t, err)
		empty, err := tx.Nodes().Create(ctx, "")
		require.NoError(t, err)

		got, err := tx.Nodes().Get(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, types.Node{ID: first, Title: "dup"}, got)

		_, err = tx.Nodes().Get(ctx, 999)
		assert.ErrorIs(t, err, types.ErrNodeNotFound)

		ok, err := tx.Nodes().Exists(ctx, first)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = tx.Nodes().Exists(ctx, 999)
		require.NoError(t, err)
		assert.False(t, ok)

		id, err := tx.Nodes().FindFirstIDByTitle(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, first, id)

		id, err = tx.Nodes().FindFirstIDByTitle(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, empty, id)

		_, err = tx.Nodes().FindFirstIDByTitle(ctx, "missing")
		assert.ErrorIs(t, err, types.ErrTitleNotFound)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func testInsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) {
		require.NoError(t, tx.Nodes().Insert(ctx, types.Node{ID: 40, Title: "restored"}))
		err := tx.Nodes().Insert(ctx, types.Node{ID: 40, Title: "again"})
		assert.ErrorIs(t, err, types.ErrStorage)

		id, err := tx.Nodes().Create(ctx, "next")
		require.NoError(t, err)
		assert.Greater(t, id, int64(40))

		all, err := tx.Nodes().All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []types.Node{{ID: 40, Title: "restored"}, {ID: id, Title: "next"}}, all)
	})
}

func testDeleteNoReuse(t *testing.T, s store.Store) {
	ctx := context.Background()
	var last int64
	inTx(t, s, func(tx store.Tx) {
		_, err := tx.Nodes().Create(ctx, "a")
		require.NoError(t, err)
		last, err = tx.Nodes().Create(ctx, "b")
		require.NoError(t, err)
		n, err := tx.Nodes().Delete(ctx, last, 12345)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
	inTx(t, s, func(tx store.Tx) {
		id, err := tx.Nodes().Create(ctx, "c")
		require.NoError(t, err)
		assert.Greater(t, id, last)
	})
}

func testClosureQueries(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) {
		ids := chain(t, tx, "root", "mid", "leaf")
		root, mid, leaf := ids[0], ids[1], ids[2]
		lone := chain(t, tx, "lone")[0]

		anc, err := tx.Paths().AncestorsOf(ctx, leaf)
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.PathEntry{
			{Ancestor: root, Descendant: leaf, Depth: 2},
			{Ancestor: mid, Descendant: leaf, Depth: 1},
			types.SelfRow(leaf),
		}, anc)

		desc, err := tx.Paths().DescendantsOf(ctx, mid)
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.PathEntry{
			types.SelfRow(mid),
			{Ancestor: mid, Descendant: leaf, Depth: 1},
		}, desc)

		roots, err := tx.Paths().Roots(ctx)
		require.NoError(t, err)
		assert.Equal(t, []types.Node{{ID: root, Title: "root"}, {ID: lone, Title: "lone"}}, roots)

		children, err := tx.Paths().Children(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, []types.NodeAtDepth{{Node: types.Node{ID: mid, Title: "mid"}, Depth: 1}}, children)

		path, err := tx.Paths().Path(ctx, leaf)
		require.NoError(t, err)
		assert.Equal(t, []types.NodeAtDepth{
			{Node: types.Node{ID: root, Title: "root"}, Depth: 2},
			{Node: types.Node{ID: mid, Title: "mid"}, Depth: 1},
			{Node: types.Node{ID: leaf, Title: "leaf"}, Depth: 0},
		}, path)

		all, err := tx.Paths().All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 7)
		for i := 1; i < len(all); i++ {
			prev, cur := all[i-1], all[i]
			assert.True(t, prev.Ancestor < cur.Ancestor ||
				(prev.Ancestor == cur.Ancestor && prev.Descendant < cur.Descendant),
				"entries must be ordered by (ancestor, descendant)")
		}

		n, err := tx.Paths().Count(ctx, store.Predicate{Ancestor: store.Any(), Descendant: store.IDs(leaf), MinDepth: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func testInsertBatchConstraints(t *testing.T, s store.Store) {
	ctx := context.Background()
	tests := []struct {
		name  string
		entry func(x, y int64) types.PathEntry
	}{
		{"duplicate pair", func(x, y int64) types.PathEntry { return types.SelfRow(x) }},
		{"negative depth", func(x, y int64) types.PathEntry { return types.PathEntry{Ancestor: y, Descendant: x, Depth: -1} }},
		{"missing ancestor", func(x, y int64) types.PathEntry { return types.PathEntry{Ancestor: 9999, Descendant: x, Depth: 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := s.Begin(ctx, true)
			require.NoError(t, err)
			defer tx.Rollback()

			ids := chain(t, tx, "x", "y")
			err = tx.Paths().InsertBatch(ctx, []types.PathEntry{tt.entry(ids[0], ids[1])})
			assert.ErrorIs(t, err, types.ErrStorage)
		})
	}
}

func testDeleteWhere(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) {
		ids := chain(t, tx, "a", "b", "c", "d")
		a, b, c, d := ids[0], ids[1], ids[2], ids[3]

		// Detach c: cut (a,c), (a,d), (b,c), (b,d).
		n, err := tx.Paths().DeleteWhere(ctx, store.Predicate{
			Ancestor:   store.StrictAncestors(c),
			Descendant: store.Subtree(c),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		desc, err := tx.Paths().DescendantsOf(ctx, c)
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.PathEntry{types.SelfRow(c), {Ancestor: c, Descendant: d, Depth: 1}}, desc)

		desc, err = tx.Paths().DescendantsOf(ctx, a)
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.PathEntry{types.SelfRow(a), {Ancestor: a, Descendant: b, Depth: 1}}, desc)

		n, err = tx.Paths().DeleteWhere(ctx, store.Predicate{Ancestor: store.Any(), Descendant: store.IDs()})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		n, err = tx.Paths().DeleteWhere(ctx, store.Predicate{Ancestor: store.Any(), Descendant: store.Any()})
		require.NoError(t, err)
		assert.Equal(t, int64(6), n)
	})
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	var keep int64
	inTx(t, s, func(tx store.Tx) {
		keep = chain(t, tx, "keep")[0]
	})

	tx, err := s.Begin(ctx, true)
	require.NoError(t, err)
	ids := chain(t, tx, "gone", "gone-child")
	_, err = tx.Paths().DeleteWhere(ctx, store.Predicate{Ancestor: store.Any(), Descendant: store.IDs(keep)})
	require.NoError(t, err)
	_, err = tx.Nodes().Delete(ctx, keep)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback(), "second rollback is a no-op")

	rtx, err := s.Begin(ctx, false)
	require.NoError(t, err)
	defer rtx.Rollback()

	n, err := rtx.Nodes().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	ok, err := rtx.Nodes().Exists(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, ok)
	all, err := rtx.Paths().All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.PathEntry{types.SelfRow(keep)}, all)
}

func testReadOnly(t *testing.T, s store.Store) {
	ctx := context.Background()
	tx, err := s.Begin(ctx, false)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.Nodes().Create(ctx, "nope")
	assert.Error(t, err)
}

func testClosed(t *testing.T, s store.Store) {
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")
	_, err := s.Begin(context.Background(), false)
	assert.ErrorIs(t, err, types.ErrClosed)
}
