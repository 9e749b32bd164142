// Package badgerstore implements the store contract on BadgerDB.
//
// Key layout (all integers big-endian, so iteration order is numeric):
//
//	n:<id>                     -> title
//	t:<len><title><id>         -> (empty) title index
//	a:<ancestor><descendant>   -> depth
//	d:<descendant><ancestor>   -> depth
//	m:next                     -> last issued id
//
// Both path orientations are written so that ancestor and descendant scans
// are prefix iterations.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

var _ store.Store = (*Store)(nil)

// DefaultMemTableSize is the memtable size used when Options leaves it
// unset. Badger caps a transaction at 15% of the memtable and at one
// skiplist node (96 bytes) per key of that budget, so 256 MiB admits about
// 419k keys. A path row costs two keys and a node row two, which lets one
// mutation rewrite roughly 200k path rows: deleting a 600-node chain fits.
const DefaultMemTableSize = 256 << 20

// Options tunes how the database is opened.
type Options struct {
	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger *slog.Logger

	// SyncWrites fsyncs every commit. Ignored in memory.
	SyncWrites bool

	// MemTableSize bounds the largest mutation, see DefaultMemTableSize.
	// Zero means DefaultMemTableSize.
	MemTableSize int64
}

// Store holds a tree in a BadgerDB instance.
type Store struct {
	// mu makes a writable transaction exclusive, matching the other
	// backends. Badger's own optimistic conflict detection never fires.
	mu     sync.RWMutex
	closed bool
	db     *badger.DB
}

// Open opens the database in dataDir, creating it if needed. An empty
// dataDir opens an in-memory database.
func Open(dataDir string, opts Options) (*Store, error) {
	var bopts badger.Options
	if dataDir == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
		}
		bopts = badger.DefaultOptions(dataDir).WithSyncWrites(opts.SyncWrites)
	}
	memTable := opts.MemTableSize
	if memTable <= 0 {
		memTable = DefaultMemTableSize
	}
	// Values are at most 8 bytes and stay inline in the LSM tree, so the
	// default value log file size never limits a transaction.
	bopts = bopts.WithNumVersionsToKeep(1).WithMemTableSize(memTable)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(newBadgerLogger(opts.Logger))
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger database: %w", types.ErrStorage, err)
	}
	return &Store{db: db}, nil
}

// Begin starts a badger transaction. The store lock is held until the
// transaction ends.
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
	return &tx{s: s, txn: s.db.NewTransaction(writable), writable: writable}, nil
}

// Close closes the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing badger database: %w", types.ErrStorage, err)
	}
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
	txn      *badger.Txn
	writable bool
	done     bool
}

func (t *tx) Nodes() store.NodeStore    { return (*nodeStore)(t) }
func (t *tx) Paths() store.ClosureIndex { return (*closureIndex)(t) }

func (t *tx) Commit() error {
	if t.done {
		return fmt.Errorf("%w: transaction already finished", types.ErrStorage)
	}
	t.done = true
	defer t.s.unlock(t.writable)
	if !t.writable {
		t.txn.Discard()
		return nil
	}
	if err := t.txn.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Discard()
	t.s.unlock(t.writable)
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

func storageErr(op string, err error) error {
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: %s: %w", types.ErrTxnTooLarge, op, err)
	}
	return fmt.Errorf("%w: %s: %w", types.ErrStorage, op, err)
}

// badgerLogger adapts slog.Logger to badger's Logger interface. Badger's
// info output (compaction, value log replay) is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(l *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: l.With("component", "badger")}
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
