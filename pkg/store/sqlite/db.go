// Package sqlite stores the occupation index, occupation details and the
// query/response cache in a single SQLite database, one table per collection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/anzscache/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS occupation_index (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	name_key TEXT NOT NULL UNIQUE,
	occupation_name TEXT NOT NULL,
	anzsco_code TEXT NOT NULL,
	direct_link TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_occupation_index_code ON occupation_index(anzsco_code);

CREATE TABLE IF NOT EXISTS occupation_details (
	anzsco_code TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS query_records (
	id TEXT NOT NULL UNIQUE,
	query TEXT NOT NULL,
	occupation_key TEXT NOT NULL,
	occupation_name TEXT NOT NULL,
	section TEXT NOT NULL,
	response TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	accessed_at INTEGER NOT NULL,
	PRIMARY KEY (query, occupation_key, section)
);
CREATE INDEX IF NOT EXISTS idx_query_records_accessed ON query_records(accessed_at);
CREATE INDEX IF NOT EXISTS idx_query_records_occupation ON query_records(occupation_key);
`

// DB is the shared SQLite backend. Index, Details and Queries are views over it.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs auto-migration.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}

	return &DB{db: db}, nil
}

// Index returns the occupation index collection.
func (d *DB) Index() *Index { return &Index{db: d.db} }

// Details returns the occupation detail collection.
func (d *DB) Details() *Details { return &Details{db: d.db} }

// Queries returns the query/response collection.
func (d *DB) Queries() *Queries { return &Queries{db: d.db} }

// Close releases the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// storageErr tags a driver error as a backend failure. sql.ErrNoRows is mapped to ErrNotFound
// and context errors pass through untagged.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorageUnavailable, err)
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func count(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, storageErr("count "+table, err)
	}
	return n, nil
}
