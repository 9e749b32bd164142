package types

import "context"

// Tree is the capability contract every tree representation implements.
// Structural mutations are atomic: either every row change of a call
// commits or none does.
type Tree interface {
	// AddNode creates a node under parent and returns its id.
	// Returns ErrParentNotFound when the parent does not resolve.
	AddNode(ctx context.Context, title string, parent ParentRef) (int64, error)

	// DetachNode cuts the subtree rooted at id from its ancestors, keeping
	// the subtree's internal structure. A no-op when id is already a root.
	DetachNode(ctx context.Context, id int64) error

	// AttachNode grafts the detached subtree rooted at id under parent.
	// Returns ErrNotDetached if id still has a parent and ErrCycle if parent
	// lies inside the subtree.
	AttachNode(ctx context.Context, id, parent int64) error

	// MoveNode re-parents the subtree rooted at id in a single transaction.
	MoveNode(ctx context.Context, id, parent int64) error

	// DeleteNode removes id together with its entire subtree.
	DeleteNode(ctx context.Context, id int64) error

	// IsRoot reports whether id has no ancestors.
	IsRoot(ctx context.Context, id int64) (bool, error)

	// GetRoots returns every root node ordered by id.
	GetRoots(ctx context.Context) ([]Node, error)

	// GetDescendants returns the direct children of id ordered by id.
	GetDescendants(ctx context.Context, id int64) ([]NodeAtDepth, error)

	// GetPath returns the ancestors of id ordered root first, ending with id
	// itself at depth 0.
	GetPath(ctx context.Context, id int64) ([]NodeAtDepth, error)

	NodeCount(ctx context.Context) (int, error)
	GetNode(ctx context.Context, id int64) (Node, error)
	NodeExists(ctx context.Context, id int64) (bool, error)

	// GetFirstID returns the id of some node titled title. The choice among
	// duplicates is unspecified.
	GetFirstID(ctx context.Context, title string) (int64, error)

	// Snapshot copies all nodes and path entries in one read transaction.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Restore loads a snapshot into an empty tree.
	// Returns ErrNotEmpty when the tree already holds nodes.
	Restore(ctx context.Context, s Snapshot) error

	// Close releases the underlying store. Later calls return ErrClosed.
	Close() error
}
