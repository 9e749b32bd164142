package closure

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// Snapshot reads every node and path row in one read transaction.
func (e *Engine) Snapshot(ctx context.Context) (types.Snapshot, error) {
	var snap types.Snapshot
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		if snap.Nodes, err = tx.Nodes().All(ctx); err != nil {
			return err
		}
		snap.Paths, err = tx.Paths().All(ctx)
		return err
	})
	return snap, err
}

// Restore loads snap into an empty tree, keeping node ids. The snapshot
// must satisfy CheckInvariants.
func (e *Engine) Restore(ctx context.Context, snap types.Snapshot) error {
	if err := CheckInvariants(snap); err != nil {
		return err
	}
	return e.update(ctx, func(tx store.Tx) error {
		return Load(ctx, tx, snap.Nodes, snap.Paths)
	})
}

// Load inserts nodes and then paths into an empty store.
func Load(ctx context.Context, tx store.Tx, nodes []types.Node, paths []types.PathEntry) error {
	n, err := tx.Nodes().Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("restoring snapshot: %w", types.ErrNotEmpty)
	}
	for _, node := range nodes {
		if err := tx.Nodes().Insert(ctx, node); err != nil {
			return fmt.Errorf("restoring node %d: %w", node.ID, err)
		}
	}
	if err := tx.Paths().InsertBatch(ctx, paths); err != nil {
		return fmt.Errorf("restoring paths: %w", err)
	}
	return nil
}
