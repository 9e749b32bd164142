// Package sqlite implements the store contract on SQLite through
// database/sql. The pure-Go modernc driver is the default; the cgo
// mattn/go-sqlite3 driver can be selected with Config.Driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// DBFileName is the database file created inside Config.DataDir.
const DBFileName = "grove.db"

var _ store.Store = (*Backend)(nil)

// Backend implements store.Store on a single SQLite connection. SQLite has
// one writer at a time; keeping one connection also keeps an in-memory
// database alive and the connection pragmas in force.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens the database described by config and creates the schema if
// needed. An empty DataDir opens a private in-memory database.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return types.ErrBackendUnknown
	}

	dsn := ":memory:"
	if config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		dsn = filepath.Join(config.DataDir, DBFileName)
	}

	db, err := sql.Open(config.GetDriver(), dsn)
	if err != nil {
		return fmt.Errorf("%w: opening database: %w", types.ErrStorage, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("%w: connecting to database: %w", types.ErrStorage, err)
	}
	if err := applyPragmas(db, config.DataDir != ""); err != nil {
		db.Close()
		return err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.attached = true

	slog.Debug("sqlite backend attached", "driver", config.GetDriver(), "dsn", dsn)
	return nil
}

// Detach closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("%w: closing database: %w", types.ErrStorage, err)
	}
	b.db = nil
	return nil
}

// Close implements store.Store.
func (b *Backend) Close() error {
	return b.Detach()
}

// Begin starts a database transaction. With a single connection, a second
// Begin waits until the first transaction ends.
func (b *Backend) Begin(ctx context.Context, writable bool) (store.Tx, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrClosed
	}
	sqlTx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	return &tx{tx: sqlTx, writable: writable}, nil
}

// applyPragmas sets required SQLite configuration on the connection.
func applyPragmas(db *sql.DB, onDisk bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if onDisk {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%w: executing %q: %w", types.ErrStorage, pragma, err)
		}
	}
	return nil
}

// applySchema creates tables and indexes if they do not exist.
func applySchema(db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("%w: creating schema: %w", types.ErrStorage, err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("%w: creating index: %w", types.ErrStorage, err)
		}
	}
	return nil
}

// storageErr wraps a driver error so callers can match types.ErrStorage
// while keeping the driver error in the chain.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrStorage, op, err)
}
