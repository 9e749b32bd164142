package closure

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/grove/internal/badgerstore"
	"github.com/mesh-intelligence/grove/internal/memstore"
	"github.com/mesh-intelligence/grove/internal/sqlite"
	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// backends opens one fresh store per storage engine.
var backends = []struct {
	name string
	open func(t *testing.T) store.Store
}{
	{"memory", func(t *testing.T) store.Store { return memstore.New() }},
	{"sqlite", func(t *testing.T) store.Store {
		b := sqlite.NewBackend()
		require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
		return b
	}},
	{"badger", func(t *testing.T) store.Store {
		s, err := badgerstore.Open("", badgerstore.Options{})
		require.NoError(t, err)
		return s
	}},
}

// eachBackend runs fn with a fresh engine on every backend.
func eachBackend(t *testing.T, fn func(t *testing.T, e *Engine)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			e := New(b.open(t))
			t.Cleanup(func() { e.Close() })
			fn(t, e)
		})
	}
}

// buildScenario creates A; B, C, F under A; D, E under B; G under F.
func buildScenario(t *testing.T, e *Engine) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	ids := map[string]int64{}
	add := func(title, parent string) {
		ref := types.NoParent
		if parent != "" {
			ref = types.ParentID(ids[parent])
		}
		id, err := e.AddNode(ctx, title, ref)
		require.NoError(t, err)
		ids[title] = id
	}
	add("A", "")
	add("B", "A")
	add("C", "A")
	add("F", "A")
	add("D", "B")
	add("E", "B")
	add("G", "F")
	return ids
}

func nodeTitles(items []types.NodeAtDepth) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func requireValid(t *testing.T, e *Engine) types.Snapshot {
	t.Helper()
	snap, err := e.Snapshot(context.Background())
	require.NoError(t, err)
	require.NoError(t, CheckInvariants(snap))
	return snap
}

func TestScenario(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)

		children, err := e.GetDescendants(ctx, ids["A"])
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "F"}, nodeTitles(children))
		for _, c := range children {
			assert.Equal(t, 1, c.Depth)
		}

		path, err := e.GetPath(ctx, ids["G"])
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "F", "G"}, nodeTitles(path))
		assert.Equal(t, []int{2, 1, 0}, []int{path[0].Depth, path[1].Depth, path[2].Depth})

		root, err := e.IsRoot(ctx, ids["A"])
		require.NoError(t, err)
		assert.True(t, root)
		root, err = e.IsRoot(ctx, ids["D"])
		require.NoError(t, err)
		assert.False(t, root)

		require.NoError(t, e.MoveNode(ctx, ids["B"], ids["C"]))

		children, err = e.GetDescendants(ctx, ids["A"])
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "F"}, nodeTitles(children))

		children, err = e.GetDescendants(ctx, ids["C"])
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, nodeTitles(children))

		path, err = e.GetPath(ctx, ids["D"])
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C", "B", "D"}, nodeTitles(path))

		requireValid(t, e)
	})
}

func TestAddNode(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)

		id, err := e.AddNode(ctx, "H", types.ParentTitle("G"))
		require.NoError(t, err)
		assert.Greater(t, id, ids["G"])
		path, err := e.GetPath(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "F", "G", "H"}, nodeTitles(path))

		tests := []struct {
			name   string
			parent types.ParentRef
		}{
			{"missing id", types.ParentID(9999)},
			{"missing title", types.ParentTitle("nope")},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				before, err := e.NodeCount(ctx)
				require.NoError(t, err)

				_, err = e.AddNode(ctx, "orphan", tt.parent)
				assert.ErrorIs(t, err, types.ErrParentNotFound)
				assert.ErrorIs(t, err, types.ErrNotFound)

				after, err := e.NodeCount(ctx)
				require.NoError(t, err)
				assert.Equal(t, before, after, "a failed add must not write")
			})
		}

		root, err := e.AddNode(ctx, "", types.NoParent)
		require.NoError(t, err)
		ok, err := e.IsRoot(ctx, root)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestClosureCompleteness(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		rng := rand.New(rand.NewSource(7))

		parent := map[int64]int64{}
		var all []int64
		for i := 0; i < 60; i++ {
			ref := types.NoParent
			var p int64
			if len(all) > 0 && rng.Intn(5) > 0 {
				p = all[rng.Intn(len(all))]
				ref = types.ParentID(p)
			}
			id, err := e.AddNode(ctx, fmt.Sprintf("n%d", i), ref)
			require.NoError(t, err)
			if p != 0 {
				parent[id] = p
			}
			all = append(all, id)
		}

		for _, id := range all {
			var want []int64
			for cur := id; ; {
				want = append([]int64{cur}, want...)
				p, ok := parent[cur]
				if !ok {
					break
				}
				cur = p
			}
			path, err := e.GetPath(ctx, id)
			require.NoError(t, err)
			got := make([]int64, len(path))
			for i, p := range path {
				got[i] = p.ID
				assert.Equal(t, len(path)-1-i, p.Depth)
			}
			assert.Equal(t, want, got, "path of %d", id)
		}
		requireValid(t, e)
	})
}

func TestMoveRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)

		before := requireValid(t, e)
		require.NoError(t, e.MoveNode(ctx, ids["B"], ids["G"]))
		require.NoError(t, e.MoveNode(ctx, ids["B"], ids["C"]))
		require.NoError(t, e.MoveNode(ctx, ids["B"], ids["A"]))

		after := requireValid(t, e)
		assert.ElementsMatch(t, before.Paths, after.Paths)
	})
}

func TestDetachAndAttach(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)

		inside := func() []types.PathEntry {
			snap, err := e.Snapshot(ctx)
			require.NoError(t, err)
			sub := map[int64]bool{ids["B"]: true, ids["D"]: true, ids["E"]: true}
			var out []types.PathEntry
			for _, p := range snap.Paths {
				if sub[p.Ancestor] && sub[p.Descendant] {
					out = append(out, p)
				}
			}
			return out
		}
		before := inside()

		require.NoError(t, e.DetachNode(ctx, ids["B"]))
		assert.Equal(t, before, inside())

		root, err := e.IsRoot(ctx, ids["B"])
		require.NoError(t, err)
		assert.True(t, root)
		path, err := e.GetPath(ctx, ids["D"])
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "D"}, nodeTitles(path))
		requireValid(t, e)

		// Detaching a root changes nothing.
		require.NoError(t, e.DetachNode(ctx, ids["B"]))
		assert.Equal(t, before, inside())

		require.NoError(t, e.AttachNode(ctx, ids["B"], ids["G"]))
		path, err = e.GetPath(ctx, ids["E"])
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "F", "G", "B", "E"}, nodeTitles(path))
		requireValid(t, e)
	})
}

func TestAttachValidation(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)
		require.NoError(t, e.DetachNode(ctx, ids["F"]))

		tests := []struct {
			name    string
			id      int64
			parent  int64
			want    error
			invalid bool
		}{
			{"still attached", ids["B"], ids["C"], types.ErrNotDetached, true},
			{"under itself", ids["F"], ids["F"], types.ErrCycle, true},
			{"under own descendant", ids["F"], ids["G"], types.ErrCycle, true},
			{"missing node", 9999, ids["A"], types.ErrNodeNotFound, false},
			{"missing parent", ids["F"], 9999, types.ErrParentNotFound, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				before := requireValid(t, e)
				err := e.AttachNode(ctx, tt.id, tt.parent)
				assert.ErrorIs(t, err, tt.want)
				if tt.invalid {
					assert.ErrorIs(t, err, types.ErrInvariantViolation)
				}
				after := requireValid(t, e)
				assert.Equal(t, before, after)
			})
		}
	})
}

func TestMoveValidation(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)
		before := requireValid(t, e)

		assert.ErrorIs(t, e.MoveNode(ctx, ids["B"], ids["D"]), types.ErrCycle)
		assert.ErrorIs(t, e.MoveNode(ctx, ids["B"], ids["B"]), types.ErrCycle)
		assert.ErrorIs(t, e.MoveNode(ctx, 9999, ids["B"]), types.ErrNodeNotFound)
		assert.ErrorIs(t, e.MoveNode(ctx, ids["B"], 9999), types.ErrParentNotFound)
		assert.ErrorIs(t, e.DetachNode(ctx, 9999), types.ErrNodeNotFound)

		assert.Equal(t, before, requireValid(t, e))

		// Moving under the current parent is allowed and changes nothing.
		require.NoError(t, e.MoveNode(ctx, ids["B"], ids["A"]))
		assert.ElementsMatch(t, before.Paths, requireValid(t, e).Paths)
	})
}

func TestDeleteCascade(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)

		require.NoError(t, e.DeleteNode(ctx, ids["B"]))

		snap := requireValid(t, e)
		gone := map[int64]bool{ids["B"]: true, ids["D"]: true, ids["E"]: true}
		for _, p := range snap.Paths {
			assert.False(t, gone[p.Ancestor] || gone[p.Descendant], "row %+v references a deleted node", p)
		}
		for _, title := range []string{"B", "D", "E"} {
			_, err := e.GetNode(ctx, ids[title])
			assert.ErrorIs(t, err, types.ErrNodeNotFound)
		}

		n, err := e.NodeCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		children, err := e.GetDescendants(ctx, ids["A"])
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "F"}, nodeTitles(children))

		assert.ErrorIs(t, e.DeleteNode(ctx, ids["B"]), types.ErrNodeNotFound)

		id, err := e.AddNode(ctx, "after", types.NoParent)
		require.NoError(t, err)
		assert.Greater(t, id, ids["G"], "ids are never reused")
	})
}

func TestQueries(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)
		lone, err := e.AddNode(ctx, "B", types.NoParent)
		require.NoError(t, err)

		roots, err := e.GetRoots(ctx)
		require.NoError(t, err)
		assert.Equal(t, []types.Node{{ID: ids["A"], Title: "A"}, {ID: lone, Title: "B"}}, roots)

		// Roots equal the nodes IsRoot accepts.
		snap := requireValid(t, e)
		var want []types.Node
		for _, n := range snap.Nodes {
			ok, err := e.IsRoot(ctx, n.ID)
			require.NoError(t, err)
			if ok {
				want = append(want, n)
			}
		}
		assert.Equal(t, want, roots)

		first, err := e.GetFirstID(ctx, "B")
		require.NoError(t, err)
		assert.Equal(t, ids["B"], first)
		_, err = e.GetFirstID(ctx, "Z")
		assert.ErrorIs(t, err, types.ErrTitleNotFound)

		ok, err := e.NodeExists(ctx, ids["E"])
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = e.NodeExists(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = e.IsRoot(ctx, 9999)
		assert.ErrorIs(t, err, types.ErrNodeNotFound)

		children, err := e.GetDescendants(ctx, 9999)
		require.NoError(t, err)
		assert.Empty(t, children)
		path, err := e.GetPath(ctx, 9999)
		require.NoError(t, err)
		assert.Empty(t, path)
	})
}

func TestDeepChildrenCompareDepthNumerically(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		parent := types.NoParent
		var ids []int64
		for i := 0; i < 12; i++ {
			id, err := e.AddNode(ctx, fmt.Sprintf("level%d", i), parent)
			require.NoError(t, err)
			ids = append(ids, id)
			parent = types.ParentID(id)
		}
		children, err := e.GetDescendants(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, []string{"level1"}, nodeTitles(children))

		path, err := e.GetPath(ctx, ids[11])
		require.NoError(t, err)
		require.Len(t, path, 12)
		assert.Equal(t, 11, path[0].Depth)
	})
}

// A chain of n nodes holds n(n+1)/2 path rows, so deleting it rewrites
// every one of them in a single transaction.
func TestLongChainMoveAndDelete(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		const n = 500
		ids := make([]int64, 0, n)
		parent := types.NoParent
		for i := 0; i < n; i++ {
			id, err := e.AddNode(ctx, fmt.Sprintf("n%d", i), parent)
			require.NoError(t, err)
			ids = append(ids, id)
			parent = types.ParentID(id)
		}
		other, err := e.AddNode(ctx, "other", types.NoParent)
		require.NoError(t, err)

		mid := ids[n/2]
		require.NoError(t, e.MoveNode(ctx, mid, other))
		path, err := e.GetPath(ctx, ids[n-1])
		require.NoError(t, err)
		require.Len(t, path, n/2+1)
		assert.Equal(t, other, path[0].ID)

		require.NoError(t, e.MoveNode(ctx, mid, ids[n/2-1]))
		path, err = e.GetPath(ctx, ids[n-1])
		require.NoError(t, err)
		require.Len(t, path, n)
		assert.Equal(t, ids[0], path[0].ID)

		require.NoError(t, e.DeleteNode(ctx, ids[0]))
		count, err := e.NodeCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		snap, err := e.Snapshot(ctx)
		require.NoError(t, err)
		require.NoError(t, CheckInvariants(snap))
		assert.Len(t, snap.Paths, 1)
	})
}

func TestSnapshotRestore(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			src := New(memstore.New())
			t.Cleanup(func() { src.Close() })
			ids := buildScenario(t, src)
			require.NoError(t, src.DeleteNode(ctx, ids["E"]))
			snap := requireValid(t, src)

			dst := New(b.open(t))
			t.Cleanup(func() { dst.Close() })
			require.NoError(t, dst.Restore(ctx, snap))
			assert.Equal(t, snap, requireValid(t, dst))

			assert.ErrorIs(t, dst.Restore(ctx, snap), types.ErrNotEmpty)

			id, err := dst.AddNode(ctx, "next", types.ParentTitle("G"))
			require.NoError(t, err)
			assert.Greater(t, id, ids["G"])
		})
	}
}

func TestRestoreRejectsBrokenSnapshot(t *testing.T) {
	e := New(memstore.New())
	t.Cleanup(func() { e.Close() })

	snap := types.Snapshot{
		Nodes: []types.Node{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}},
		Paths: []types.PathEntry{types.SelfRow(1), {Ancestor: 1, Descendant: 2, Depth: 1}},
	}
	err := e.Restore(context.Background(), snap)
	assert.ErrorIs(t, err, types.ErrInvariantViolation)

	n, err := e.NodeCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// failingStore fails every InsertBatch after the node row is created.
type failingStore struct{ store.Store }

func (s failingStore) Begin(ctx context.Context, writable bool) (store.Tx, error) {
	tx, err := s.Store.Begin(ctx, writable)
	if err != nil {
		return nil, err
	}
	return failingTx{tx}, nil
}

type failingTx struct{ store.Tx }

func (t failingTx) Paths() store.ClosureIndex { return failingIndex{t.Tx.Paths()} }

type failingIndex struct{ store.ClosureIndex }

var errInjected = errors.New("injected failure")

func (failingIndex) InsertBatch(context.Context, []types.PathEntry) error {
	return fmt.Errorf("%w: %w", types.ErrStorage, errInjected)
}

func TestFailedMutationRollsBack(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			e := New(s)
			t.Cleanup(func() { e.Close() })
			ids := buildScenario(t, e)
			before := requireValid(t, e)

			broken := New(failingStore{s})
			_, err := broken.AddNode(ctx, "x", types.ParentID(ids["A"]))
			assert.ErrorIs(t, err, errInjected)
			assert.ErrorIs(t, broken.MoveNode(ctx, ids["B"], ids["C"]), types.ErrStorage)

			assert.Equal(t, before, requireValid(t, e))
		})
	}
}

func TestConcurrentMutations(t *testing.T) {
	eachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		ids := buildScenario(t, e)
		targets := []int64{ids["A"], ids["C"], ids["F"], ids["G"]}

		var g errgroup.Group
		for w := 0; w < 4; w++ {
			g.Go(func() error {
				for i := 0; i < 10; i++ {
					id, err := e.AddNode(ctx, fmt.Sprintf("w%d-%d", w, i), types.ParentID(targets[(w+i)%len(targets)]))
					if err != nil {
						return err
					}
					if err := e.MoveNode(ctx, id, targets[(w+i+1)%len(targets)]); err != nil {
						return err
					}
					if _, err := e.GetPath(ctx, id); err != nil {
						return err
					}
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		n, err := e.NodeCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7+40, n)
		requireValid(t, e)
	})
}

func TestClosed(t *testing.T) {
	e := New(memstore.New())
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.AddNode(context.Background(), "x", types.NoParent)
	assert.ErrorIs(t, err, types.ErrClosed)
	_, err = e.GetRoots(context.Background())
	assert.ErrorIs(t, err, types.ErrClosed)
}
