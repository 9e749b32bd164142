// Package store defines the storage contract the tree engines are written
// against: a transactional Store exposing a NodeStore for node rows and a
// ClosureIndex for (ancestor, descendant, depth) reachability rows.
//
// Backends (sqlite, memstore, badger) implement these interfaces; the engines
// never see SQL or keys.
package store

import (
	"context"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// Store opens transactions against a backend.
type Store interface {
	// Begin starts a transaction. A writable transaction excludes every other
	// transaction on the same store until it commits or rolls back.
	Begin(ctx context.Context, writable bool) (Tx, error)

	// Close releases the backend. Later calls to Begin return types.ErrClosed.
	Close() error
}

// Tx is a unit of work. Rollback after Commit is a no-op, so callers may
// always defer Rollback.
type Tx interface {
	Nodes() NodeStore
	Paths() ClosureIndex
	Commit() error
	Rollback() error
}

// NodeStore owns node identity and titles. It knows nothing about tree shape.
type NodeStore interface {
	// Create inserts a node and returns its newly issued id. Ids increase
	// monotonically and are never reused.
	Create(ctx context.Context, title string) (int64, error)

	// Insert stores a node with a caller-chosen id and advances the id
	// sequence past it.
	Insert(ctx context.Context, n types.Node) error

	// Get returns types.ErrNodeNotFound when id does not exist.
	Get(ctx context.Context, id int64) (types.Node, error)

	Exists(ctx context.Context, id int64) (bool, error)

	// FindFirstIDByTitle returns the id of some node with the given title or
	// types.ErrTitleNotFound.
	FindFirstIDByTitle(ctx context.Context, title string) (int64, error)

	Count(ctx context.Context) (int, error)

	// Delete removes exactly the listed node rows and reports how many
	// existed. It does not touch path entries.
	Delete(ctx context.Context, ids ...int64) (int64, error)

	// All returns every node ordered by id.
	All(ctx context.Context) ([]types.Node, error)
}

// Reachability is the read side of a ClosureIndex that NodeSet resolution
// needs.
type Reachability interface {
	// AncestorsOf returns entries whose descendant is id, self row included.
	AncestorsOf(ctx context.Context, id int64) ([]types.PathEntry, error)

	// DescendantsOf returns entries whose ancestor is id, self row included.
	DescendantsOf(ctx context.Context, id int64) ([]types.PathEntry, error)
}

// ClosureIndex owns every reachability fact.
type ClosureIndex interface {
	Reachability

	// InsertBatch appends entries. The caller guarantees no (ancestor,
	// descendant) pair already exists.
	InsertBatch(ctx context.Context, entries []types.PathEntry) error

	// DeleteWhere removes every entry matching p and reports how many.
	// Symbolic sets in p are evaluated against the state before the delete.
	DeleteWhere(ctx context.Context, p Predicate) (int64, error)

	// Count reports how many entries match p.
	Count(ctx context.Context, p Predicate) (int64, error)

	// Roots returns nodes that are never a descendant at depth > 0,
	// ordered by id.
	Roots(ctx context.Context) ([]types.Node, error)

	// Children returns the depth-1 descendants of id joined with their
	// titles, ordered by id.
	Children(ctx context.Context, id int64) ([]types.NodeAtDepth, error)

	// Path returns the ancestors of id joined with their titles, ordered by
	// depth descending (root first, id itself last).
	Path(ctx context.Context, id int64) ([]types.NodeAtDepth, error)

	// All returns every entry ordered by (ancestor, descendant).
	All(ctx context.Context) ([]types.PathEntry, error)
}
