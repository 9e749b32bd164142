// Package memstore is an in-memory implementation of the store contract.
// Node rows and the closure index live in maps guarded by one RWMutex; a
// writable transaction holds the write lock until it ends and records an
// undo log, so rollback costs as much as the changes it reverts.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

var _ store.Store = (*Store)(nil)

// Store holds a single tree in memory.
type Store struct {
	mu     sync.RWMutex
	closed bool

	nodes  map[int64]string
	byAnc  map[int64]map[int64]int // ancestor -> descendant -> depth
	byDesc map[int64]map[int64]int // descendant -> ancestor -> depth
	nextID int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nodes:  make(map[int64]string),
		byAnc:  make(map[int64]map[int64]int),
		byDesc: make(map[int64]map[int64]int),
	}
}

// Begin locks the store for the lifetime of the transaction.
func (s *Store) Begin(ctx context.Context, writable bool) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if writable {
		s.mu.Lock()
	} else {
		s.mu.RLock()
	}
	if s.closed {
		s.unlock(writable)
		return nil, types.ErrClosed
	}
	return &tx{s: s, writable: writable}, nil
}

// Close marks the store closed. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) unlock(writable bool) {
	if writable {
		s.mu.Unlock()
	} else {
		s.mu.RUnlock()
	}
}

type tx struct {
	s        *Store
	writable bool
	done     bool
	undo     []func()
}

func (t *tx) Nodes() store.NodeStore    { return (*nodeStore)(t) }
func (t *tx) Paths() store.ClosureIndex { return (*closureIndex)(t) }

func (t *tx) Commit() error {
	if t.done {
		return fmt.Errorf("%w: transaction already finished", types.ErrStorage)
	}
	t.done = true
	t.undo = nil
	t.s.unlock(t.writable)
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.s.unlock(t.writable)
	return nil
}

// check guards every operation against use after the transaction ended and
// against writes in a read transaction.
func (t *tx) check(write bool) error {
	if t.done {
		return fmt.Errorf("%w: transaction already finished", types.ErrStorage)
	}
	if write && !t.writable {
		return fmt.Errorf("%w: write in read-only transaction", types.ErrStorage)
	}
	return nil
}

func (t *tx) setPath(anc, desc int64, depth int) {
	if t.s.byAnc[anc] == nil {
		t.s.byAnc[anc] = make(map[int64]int)
	}
	if t.s.byDesc[desc] == nil {
		t.s.byDesc[desc] = make(map[int64]int)
	}
	t.s.byAnc[anc][desc] = depth
	t.s.byDesc[desc][anc] = depth
}

func (t *tx) removePath(anc, desc int64) {
	delete(t.s.byAnc[anc], desc)
	if len(t.s.byAnc[anc]) == 0 {
		delete(t.s.byAnc, anc)
	}
	delete(t.s.byDesc[desc], anc)
	if len(t.s.byDesc[desc]) == 0 {
		delete(t.s.byDesc, desc)
	}
}

func sortedKeys(m map[int64]int) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
