// Package closure implements types.Tree with a closure table: every
// ancestor-descendant pair is stored with its depth, so subtree, ancestor
// and root queries are single index scans and structural changes cost
// writes proportional to the rows they add or remove.
package closure

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

var _ types.Tree = (*Engine)(nil)

// Engine runs every mutation in one writable store transaction under an
// exclusive lock, and every query in one read transaction under a shared
// lock.
type Engine struct {
	mu     sync.RWMutex
	closed bool
	store  store.Store
}

// New returns an engine over s. The engine owns s and closes it on Close.
func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// Close closes the underlying store. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.store.Close()
}

func (e *Engine) update(ctx context.Context, fn func(tx store.Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return types.ErrClosed
	}

	tx, err := e.store.Begin(ctx, true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (e *Engine) view(ctx context.Context, fn func(tx store.Tx) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return types.ErrClosed
	}

	tx, err := e.store.Begin(ctx, false)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
