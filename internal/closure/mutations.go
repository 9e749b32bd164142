package closure

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// AddNode creates a node and its closure rows: a self row plus one row per
// ancestor of the parent, one level deeper.
func (e *Engine) AddNode(ctx context.Context, title string, parent types.ParentRef) (int64, error) {
	var id int64
	err := e.update(ctx, func(tx store.Tx) error {
		parentID, hasParent, err := store.ResolveParent(ctx, tx.Nodes(), parent)
		if err != nil {
			return err
		}

		id, err = tx.Nodes().Create(ctx, title)
		if err != nil {
			return fmt.Errorf("creating node: %w", err)
		}

		entries := []types.PathEntry{types.SelfRow(id)}
		if hasParent {
			ancestors, err := tx.Paths().AncestorsOf(ctx, parentID)
			if err != nil {
				return err
			}
			for _, a := range ancestors {
				entries = append(entries, types.PathEntry{Ancestor: a.Ancestor, Descendant: id, Depth: a.Depth + 1})
			}
		}
		if err := tx.Paths().InsertBatch(ctx, entries); err != nil {
			return fmt.Errorf("inserting paths for node %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DetachNode removes every row linking the subtree of id to a proper
// ancestor of id. Rows inside the subtree are kept.
func (e *Engine) DetachNode(ctx context.Context, id int64) error {
	return e.update(ctx, func(tx store.Tx) error {
		if err := store.MustExist(ctx, tx.Nodes(), id); err != nil {
			return err
		}
		return detach(ctx, tx, id)
	})
}

// AttachNode grafts the subtree rooted at id under parent.
func (e *Engine) AttachNode(ctx context.Context, id, parent int64) error {
	return e.update(ctx, func(tx store.Tx) error {
		if err := checkEndpoints(ctx, tx, id, parent); err != nil {
			return err
		}
		return attach(ctx, tx, id, parent)
	})
}

// MoveNode detaches and re-attaches id in one transaction, so the
// intermediate detached state is never visible.
func (e *Engine) MoveNode(ctx context.Context, id, parent int64) error {
	return e.update(ctx, func(tx store.Tx) error {
		if err := checkEndpoints(ctx, tx, id, parent); err != nil {
			return err
		}
		if err := checkNoCycle(ctx, tx, id, parent); err != nil {
			return err
		}
		if err := detach(ctx, tx, id); err != nil {
			return err
		}
		return attach(ctx, tx, id, parent)
	})
}

// DeleteNode removes id, every node below it and all of their rows.
func (e *Engine) DeleteNode(ctx context.Context, id int64) error {
	return e.update(ctx, func(tx store.Tx) error {
		if err := store.MustExist(ctx, tx.Nodes(), id); err != nil {
			return err
		}
		sub, err := tx.Paths().DescendantsOf(ctx, id)
		if err != nil {
			return err
		}
		ids := make([]int64, len(sub))
		for i, row := range sub {
			ids[i] = row.Descendant
		}

		if _, err := tx.Paths().DeleteWhere(ctx, store.Predicate{
			Ancestor:   store.Any(),
			Descendant: store.Subtree(id),
		}); err != nil {
			return fmt.Errorf("deleting paths of subtree %d: %w", id, err)
		}
		if _, err := tx.Nodes().Delete(ctx, ids...); err != nil {
			return fmt.Errorf("deleting nodes of subtree %d: %w", id, err)
		}
		return nil
	})
}

func detach(ctx context.Context, tx store.Tx, id int64) error {
	_, err := tx.Paths().DeleteWhere(ctx, store.Predicate{
		Ancestor:   store.StrictAncestors(id),
		Descendant: store.Subtree(id),
	})
	if err != nil {
		return fmt.Errorf("detaching %d: %w", id, err)
	}
	return nil
}

// attach inserts the cross product of the parent's ancestors and the
// subtree: (sa, sd, d1+d2+1) for every (sa, parent, d1) and (id, sd, d2).
func attach(ctx context.Context, tx store.Tx, id, parent int64) error {
	linked, err := tx.Paths().Count(ctx, store.Predicate{
		Ancestor:   store.Any(),
		Descendant: store.IDs(id),
		MinDepth:   1,
	})
	if err != nil {
		return err
	}
	if linked > 0 {
		return fmt.Errorf("attaching %d: %w", id, types.ErrNotDetached)
	}

	sub, err := tx.Paths().DescendantsOf(ctx, id)
	if err != nil {
		return err
	}
	for _, s := range sub {
		if s.Descendant == parent {
			return fmt.Errorf("attaching %d under %d: %w", id, parent, types.ErrCycle)
		}
	}
	super, err := tx.Paths().AncestorsOf(ctx, parent)
	if err != nil {
		return err
	}

	entries := make([]types.PathEntry, 0, len(super)*len(sub))
	for _, sa := range super {
		for _, sd := range sub {
			entries = append(entries, types.PathEntry{
				Ancestor:   sa.Ancestor,
				Descendant: sd.Descendant,
				Depth:      sa.Depth + sd.Depth + 1,
			})
		}
	}
	if err := tx.Paths().InsertBatch(ctx, entries); err != nil {
		return fmt.Errorf("attaching %d under %d: %w", id, parent, err)
	}
	return nil
}

func checkEndpoints(ctx context.Context, tx store.Tx, id, parent int64) error {
	if err := store.MustExist(ctx, tx.Nodes(), id); err != nil {
		return err
	}
	return store.MustExistParent(ctx, tx.Nodes(), parent)
}

func checkNoCycle(ctx context.Context, tx store.Tx, id, parent int64) error {
	n, err := tx.Paths().Count(ctx, store.Predicate{
		Ancestor:   store.IDs(id),
		Descendant: store.IDs(parent),
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("moving %d under %d: %w", id, parent, types.ErrCycle)
	}
	return nil
}
