package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

type tx struct {
	tx       *sql.Tx
	writable bool
	done     bool
}

func (t *tx) Nodes() store.NodeStore    { return &nodesTable{t: t} }
func (t *tx) Paths() store.ClosureIndex { return &pathsTable{t: t} }

func (t *tx) Commit() error {
	if t.done {
		return fmt.Errorf("%w: transaction already finished", types.ErrStorage)
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return storageErr("rolling back transaction", err)
	}
	return nil
}

func (t *tx) check(write bool) error {
	if t.done {
		return fmt.Errorf("%w: transaction already finished", types.ErrStorage)
	}
	if write && !t.writable {
		return fmt.Errorf("%w: write in read-only transaction", types.ErrStorage)
	}
	return nil
}
