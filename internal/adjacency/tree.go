// Package adjacency implements types.Tree by storing only parent edges
// (depth-1 rows of the path relation). Ancestor paths and subtrees are
// computed by walking those edges, trading the closure table's write cost
// for per-level reads.
package adjacency

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

var _ types.Tree = (*Tree)(nil)

// Tree is an adjacency-list tree over a store.Store.
type Tree struct {
	mu     sync.RWMutex
	closed bool
	store  store.Store
}

// New returns a tree over s. The tree owns s and closes it on Close.
func New(s store.Store) *Tree {
	return &Tree{store: s}
}

func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.store.Close()
}

func (t *Tree) update(ctx context.Context, fn func(tx store.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return types.ErrClosed
	}
	tx, err := t.store.Begin(ctx, true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *Tree) view(ctx context.Context, fn func(tx store.Tx) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return types.ErrClosed
	}
	tx, err := t.store.Begin(ctx, false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *Tree) AddNode(ctx context.Context, title string, parent types.ParentRef) (int64, error) {
	var id int64
	err := t.update(ctx, func(tx store.Tx) error {
		parentID, hasParent, err := store.ResolveParent(ctx, tx.Nodes(), parent)
		if err != nil {
			return err
		}
		id, err = tx.Nodes().Create(ctx, title)
		if err != nil {
			return fmt.Errorf("creating node: %w", err)
		}
		if !hasParent {
			return nil
		}
		return tx.Paths().InsertBatch(ctx, []types.PathEntry{edge(parentID, id)})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DetachNode drops the single edge to the parent of id.
func (t *Tree) DetachNode(ctx context.Context, id int64) error {
	return t.update(ctx, func(tx store.Tx) error {
		if err := store.MustExist(ctx, tx.Nodes(), id); err != nil {
			return err
		}
		return unlink(ctx, tx, id)
	})
}

func (t *Tree) AttachNode(ctx context.Context, id, parent int64) error {
	return t.update(ctx, func(tx store.Tx) error {
		if err := checkEndpoints(ctx, tx, id, parent); err != nil {
			return err
		}
		if _, ok, err := parentOf(ctx, tx, id); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("attaching %d: %w", id, types.ErrNotDetached)
		}
		if err := checkNoCycle(ctx, tx, id, parent); err != nil {
			return err
		}
		return tx.Paths().InsertBatch(ctx, []types.PathEntry{edge(parent, id)})
	})
}

func (t *Tree) MoveNode(ctx context.Context, id, parent int64) error {
	return t.update(ctx, func(tx store.Tx) error {
		if err := checkEndpoints(ctx, tx, id, parent); err != nil {
			return err
		}
		if err := checkNoCycle(ctx, tx, id, parent); err != nil {
			return err
		}
		if err := unlink(ctx, tx, id); err != nil {
			return err
		}
		return tx.Paths().InsertBatch(ctx, []types.PathEntry{edge(parent, id)})
	})
}

// DeleteNode removes id and its subtree. Edges out of subtree members only
// lead to other members, so dropping every edge into the subtree is enough.
func (t *Tree) DeleteNode(ctx context.Context, id int64) error {
	return t.update(ctx, func(tx store.Tx) error {
		if err := store.MustExist(ctx, tx.Nodes(), id); err != nil {
			return err
		}
		sub, err := subtree(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Paths().DeleteWhere(ctx, store.Predicate{
			Ancestor:   store.Any(),
			Descendant: store.IDs(sub...),
		}); err != nil {
			return fmt.Errorf("deleting edges of subtree %d: %w", id, err)
		}
		if _, err := tx.Nodes().Delete(ctx, sub...); err != nil {
			return fmt.Errorf("deleting nodes of subtree %d: %w", id, err)
		}
		return nil
	})
}

func edge(parent, child int64) types.PathEntry {
	return types.PathEntry{Ancestor: parent, Descendant: child, Depth: 1}
}

func unlink(ctx context.Context, tx store.Tx, id int64) error {
	_, err := tx.Paths().DeleteWhere(ctx, store.Predicate{
		Ancestor:   store.Any(),
		Descendant: store.IDs(id),
		MinDepth:   1,
	})
	if err != nil {
		return fmt.Errorf("unlinking %d: %w", id, err)
	}
	return nil
}

func checkEndpoints(ctx context.Context, tx store.Tx, id, parent int64) error {
	if err := store.MustExist(ctx, tx.Nodes(), id); err != nil {
		return err
	}
	return store.MustExistParent(ctx, tx.Nodes(), parent)
}

// checkNoCycle walks up from parent and fails if it meets id.
func checkNoCycle(ctx context.Context, tx store.Tx, id, parent int64) error {
	chain, err := ancestry(ctx, tx, parent)
	if err != nil {
		return err
	}
	for _, a := range chain {
		if a == id {
			return fmt.Errorf("placing %d under %d: %w", id, parent, types.ErrCycle)
		}
	}
	return nil
}

func parentOf(ctx context.Context, tx store.Tx, id int64) (int64, bool, error) {
	rows, err := tx.Paths().AncestorsOf(ctx, id)
	if err != nil {
		return 0, false, err
	}
	for _, r := range rows {
		if r.Depth == 1 {
			return r.Ancestor, true, nil
		}
	}
	return 0, false, nil
}

// ancestry returns id followed by its ancestors, nearest first.
func ancestry(ctx context.Context, tx store.Tx, id int64) ([]int64, error) {
	chain := []int64{id}
	seen := map[int64]bool{id: true}
	for cur := id; ; {
		p, ok, err := parentOf(ctx, tx, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return chain, nil
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: parent edges of %d form a cycle", types.ErrInvariantViolation, id)
		}
		seen[p] = true
		chain = append(chain, p)
		cur = p
	}
}

// subtree returns id and every node below it, breadth first.
func subtree(ctx context.Context, tx store.Tx, id int64) ([]int64, error) {
	out := []int64{id}
	for i := 0; i < len(out); i++ {
		rows, err := tx.Paths().DescendantsOf(ctx, out[i])
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if r.Depth == 1 {
				out = append(out, r.Descendant)
			}
		}
	}
	return out, nil
}

// closureOf expands the stored edges into full closure rows.
func closureOf(ctx context.Context, tx store.Tx, nodes []types.Node) ([]types.PathEntry, error) {
	var paths []types.PathEntry
	for _, n := range nodes {
		chain, err := ancestry(ctx, tx, n.ID)
		if err != nil {
			return nil, err
		}
		for depth, a := range chain {
			paths = append(paths, types.PathEntry{Ancestor: a, Descendant: n.ID, Depth: depth})
		}
	}
	return paths, nil
}
