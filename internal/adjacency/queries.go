package adjacency

import (
	"context"
	"sort"

	"github.com/mesh-intelligence/grove/internal/closure"
	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

func (t *Tree) IsRoot(ctx context.Context, id int64) (bool, error) {
	var root bool
	err := t.view(ctx, func(tx store.Tx) error {
		if err := store.MustExist(ctx, tx.Nodes(), id); err != nil {
			return err
		}
		_, hasParent, err := parentOf(ctx, tx, id)
		root = !hasParent
		return err
	})
	return root, err
}

func (t *Tree) GetRoots(ctx context.Context) ([]types.Node, error) {
	var roots []types.Node
	err := t.view(ctx, func(tx store.Tx) error {
		var err error
		roots, err = tx.Paths().Roots(ctx)
		return err
	})
	return roots, err
}

func (t *Tree) GetDescendants(ctx context.Context, id int64) ([]types.NodeAtDepth, error) {
	var children []types.NodeAtDepth
	err := t.view(ctx, func(tx store.Tx) error {
		var err error
		children, err = tx.Paths().Children(ctx, id)
		return err
	})
	return children, err
}

// GetPath walks parent edges from id to its root and returns them root
// first, id last at depth 0.
func (t *Tree) GetPath(ctx context.Context, id int64) ([]types.NodeAtDepth, error) {
	var path []types.NodeAtDepth
	err := t.view(ctx, func(tx store.Tx) error {
		ok, err := tx.Nodes().Exists(ctx, id)
		if err != nil || !ok {
			return err
		}
		chain, err := ancestry(ctx, tx, id)
		if err != nil {
			return err
		}
		path = make([]types.NodeAtDepth, len(chain))
		for depth, a := range chain {
			n, err := tx.Nodes().Get(ctx, a)
			if err != nil {
				return err
			}
			path[len(chain)-1-depth] = types.NodeAtDepth{Node: n, Depth: depth}
		}
		return nil
	})
	return path, err
}

func (t *Tree) NodeCount(ctx context.Context) (int, error) {
	var n int
	err := t.view(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.Nodes().Count(ctx)
		return err
	})
	return n, err
}

func (t *Tree) GetNode(ctx context.Context, id int64) (types.Node, error) {
	var node types.Node
	err := t.view(ctx, func(tx store.Tx) error {
		var err error
		node, err = tx.Nodes().Get(ctx, id)
		return err
	})
	return node, err
}

func (t *Tree) NodeExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := t.view(ctx, func(tx store.Tx) error {
		var err error
		ok, err = tx.Nodes().Exists(ctx, id)
		return err
	})
	return ok, err
}

func (t *Tree) GetFirstID(ctx context.Context, title string) (int64, error) {
	var id int64
	err := t.view(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.Nodes().FindFirstIDByTitle(ctx, title)
		return err
	})
	return id, err
}

// Snapshot returns the tree in closure form, so snapshots move freely
// between representations.
func (t *Tree) Snapshot(ctx context.Context) (types.Snapshot, error) {
	var snap types.Snapshot
	err := t.view(ctx, func(tx store.Tx) error {
		var err error
		if snap.Nodes, err = tx.Nodes().All(ctx); err != nil {
			return err
		}
		snap.Paths, err = closureOf(ctx, tx, snap.Nodes)
		return err
	})
	if err != nil {
		return types.Snapshot{}, err
	}
	sort.Slice(snap.Paths, func(i, j int) bool {
		a, b := snap.Paths[i], snap.Paths[j]
		if a.Ancestor != b.Ancestor {
			return a.Ancestor < b.Ancestor
		}
		return a.Descendant < b.Descendant
	})
	return snap, nil
}

// Restore accepts a closure-form snapshot and keeps only its parent edges.
func (t *Tree) Restore(ctx context.Context, snap types.Snapshot) error {
	if err := closure.CheckInvariants(snap); err != nil {
		return err
	}
	var edges []types.PathEntry
	for _, p := range snap.Paths {
		if p.Depth == 1 {
			edges = append(edges, p)
		}
	}
	return t.update(ctx, func(tx store.Tx) error {
		return closure.Load(ctx, tx, snap.Nodes, edges)
	})
}
