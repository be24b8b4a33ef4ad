// Package store provides the SQLite-backed entity store for budget lines,
// requests, reconciliations and the derived balance table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store owns the database handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	// One writer at a time; transactions serialize on the connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock overrides the time source used for audit timestamps.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Tx is a single store transaction. All reads and writes of one workflow
// step go through the same Tx.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

// WithTx runs fn inside a transaction and commits if fn returns nil. Any
// error or panic rolls back every write made through the Tx.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&Tx{tx: sqlTx, now: s.now}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back, so any
// write fn attempts is discarded.
func (s *Store) View(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	return fn(&Tx{tx: sqlTx, now: s.now})
}

func (t *Tx) timestamp() string {
	return t.now().UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	ts, _ := time.Parse(time.RFC3339, s)
	return ts
}

// IDSet is a set of row ids.
type IDSet map[int64]struct{}

// Has reports membership.
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (t *Tx) queryIDs(ctx context.Context, query string, args ...any) (IDSet, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make(IDSet)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func expectOneRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNoRow)
	}
	return nil
}

// ErrNoRow is returned by lookups and updates that matched no row.
var ErrNoRow = errors.New("no such row")

func noRow(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRow
	}
	return err
}
