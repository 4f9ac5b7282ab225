// Package store is the durable, crash-safe persistence layer for the
// jobwatch pipeline: snapshot history, the diff queue, the job task
// queue, and job details all live in one embedded SQLite file.
//
// Every write that must be atomic goes through a single write
// transaction opened with BEGIN IMMEDIATE (via the driver's _txlock
// DSN parameter) so that claim and commit operations serialize
// correctly under SQLite's single-writer model. Callers open one
// connection per worker thread and close it between poll cycles to
// release locks, matching the teacher's per-thread connection pattern.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// StaleClaimTimeout is the default age after which an IN_PROGRESS row
// is considered abandoned and eligible for reaping back to PENDING.
const StaleClaimTimeout = 10 * time.Minute

// DefaultBackoff is the backoff applied to a row on failure before it
// becomes claimable again.
const DefaultBackoff = 30 * time.Second

// Store wraps the embedded SQLite database backing the whole pipeline.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the SQLite file at path, applies
// the connection pragmas required by spec (WAL journal mode, NORMAL
// synchronous, in-memory temp store, a busy timeout of at least 30s),
// bootstraps the schema, and runs the additive column migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate"+
			"&_pragma=busy_timeout(30000)"+
			"&_pragma=journal_mode(WAL)"+
			"&_pragma=synchronous(NORMAL)"+
			"&_pragma=temp_store(MEMORY)",
		path,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The write path is serialized by SQLite itself (BEGIN IMMEDIATE);
	// a single connection avoids SQLITE_BUSY races between pool members
	// inside one process while still letting separate worker processes
	// each hold their own connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection, dropping any locks held by
// this worker.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bootstrap(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := runMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// withImmediateTx runs fn inside a write transaction. The DSN's
// _txlock=immediate makes every BeginTx acquire SQLite's write lock
// up front, which is what lets the claim primitives below observe a
// consistent row and then update it without losing the race to
// another owner.
func (s *Store) withImmediateTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
