package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// ResolveParent turns ref into a node id. ok is false for types.NoParent.
// A reference that names no existing node yields types.ErrParentNotFound.
func ResolveParent(ctx context.Context, nodes NodeStore, ref types.ParentRef) (id int64, ok bool, err error) {
	if ref.IsRoot() {
		return 0, false, nil
	}
	if title, byTitle := ref.Title(); byTitle {
		id, err := nodes.FindFirstIDByTitle(ctx, title)
		if errors.Is(err, types.ErrTitleNotFound) {
			return 0, false, fmt.Errorf("%w: no node titled %q", types.ErrParentNotFound, title)
		}
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}
	id, _ = ref.ID()
	exists, err := nodes.Exists(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, fmt.Errorf("%w: %d", types.ErrParentNotFound, id)
	}
	return id, true, nil
}

// MustExist returns types.ErrNodeNotFound when id is not stored.
func MustExist(ctx context.Context, nodes NodeStore, id int64) error {
	exists, err := nodes.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %d", types.ErrNodeNotFound, id)
	}
	return nil
}

// MustExistParent returns types.ErrParentNotFound when id is not stored.
func MustExistParent(ctx context.Context, nodes NodeStore, id int64) error {
	exists, err := nodes.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %d", types.ErrParentNotFound, id)
	}
	return nil
}
