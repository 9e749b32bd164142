package closure

import (
	"context"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// IsRoot reports whether id has no ancestor at depth > 0.
func (e *Engine) IsRoot(ctx context.Context, id int64) (bool, error) {
	var root bool
	err := e.view(ctx, func(tx store.Tx) error {
		if err := store.MustExist(ctx, tx.Nodes(), id); err != nil {
			return err
		}
		n, err := tx.Paths().Count(ctx, store.Predicate{
			Ancestor:   store.Any(),
			Descendant: store.IDs(id),
			MinDepth:   1,
		})
		if err != nil {
			return err
		}
		root = n == 0
		return nil
	})
	return root, err
}

func (e *Engine) GetRoots(ctx context.Context) ([]types.Node, error) {
	var roots []types.Node
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		roots, err = tx.Paths().Roots(ctx)
		return err
	})
	return roots, err
}

// GetDescendants returns the direct children of id. A missing id has none.
func (e *Engine) GetDescendants(ctx context.Context, id int64) ([]types.NodeAtDepth, error) {
	var children []types.NodeAtDepth
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		children, err = tx.Paths().Children(ctx, id)
		return err
	})
	return children, err
}

// GetPath returns the ancestors of id root first, with id itself last at
// depth 0. A missing id has an empty path.
func (e *Engine) GetPath(ctx context.Context, id int64) ([]types.NodeAtDepth, error) {
	var path []types.NodeAtDepth
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		path, err = tx.Paths().Path(ctx, id)
		return err
	})
	return path, err
}

func (e *Engine) NodeCount(ctx context.Context) (int, error) {
	var n int
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.Nodes().Count(ctx)
		return err
	})
	return n, err
}

func (e *Engine) GetNode(ctx context.Context, id int64) (types.Node, error) {
	var node types.Node
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		node, err = tx.Nodes().Get(ctx, id)
		return err
	})
	return node, err
}

func (e *Engine) NodeExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		ok, err = tx.Nodes().Exists(ctx, id)
		return err
	})
	return ok, err
}

// GetFirstID is a convenience lookup; titles are not unique and the lowest
// matching id wins.
func (e *Engine) GetFirstID(ctx context.Context, title string) (int64, error) {
	var id int64
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.Nodes().FindFirstIDByTitle(ctx, title)
		return err
	})
	return id, err
}
