package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pario-ai/anzscache/pkg/models"
)

// Index is the append-only occupation index.
type Index struct {
	db *sql.DB
}

// Lookup returns the entry whose normalized name matches name exactly.
func (x *Index) Lookup(ctx context.Context, name string) (models.OccupationEntry, error) {
	var e models.OccupationEntry
	err := x.db.QueryRowContext(ctx,
		`SELECT occupation_name, anzsco_code, direct_link FROM occupation_index WHERE name_key = ?`,
		models.NormalizeName(name),
	).Scan(&e.OccupationName, &e.AnzscoCode, &e.DirectLink)
	if err != nil {
		return models.OccupationEntry{}, storageErr("index lookup", err)
	}
	return e, nil
}

// LookupCode returns the earliest entry classified under code.
func (x *Index) LookupCode(ctx context.Context, code string) (models.OccupationEntry, error) {
	var e models.OccupationEntry
	err := x.db.QueryRowContext(ctx,
		`SELECT occupation_name, anzsco_code, direct_link FROM occupation_index
		 WHERE anzsco_code = ? ORDER BY seq LIMIT 1`,
		code,
	).Scan(&e.OccupationName, &e.AnzscoCode, &e.DirectLink)
	if err != nil {
		return models.OccupationEntry{}, storageErr("index lookup code", err)
	}
	return e, nil
}

// Insert adds entry to the index. Re-inserting a known name with the same code only
// refreshes the link; a different code returns ErrConflict.
func (x *Index) Insert(ctx context.Context, entry models.OccupationEntry) error {
	res, err := x.db.ExecContext(ctx,
		`INSERT INTO occupation_index (name_key, occupation_name, anzsco_code, direct_link, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name_key) DO UPDATE SET direct_link = excluded.direct_link
		 WHERE occupation_index.anzsco_code = excluded.anzsco_code`,
		models.NormalizeName(entry.OccupationName), entry.OccupationName, entry.AnzscoCode,
		entry.DirectLink, toNanos(time.Now()),
	)
	if err != nil {
		return storageErr("index insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("index insert", err)
	}
	if n == 0 {
		return fmt.Errorf("index insert %q as %s: %w", entry.OccupationName, entry.AnzscoCode, models.ErrConflict)
	}
	return nil
}

// List returns all entries in insertion order.
func (x *Index) List(ctx context.Context) ([]models.OccupationEntry, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT occupation_name, anzsco_code, direct_link FROM occupation_index ORDER BY seq`)
	if err != nil {
		return nil, storageErr("index list", err)
	}
	defer rows.Close()

	var out []models.OccupationEntry
	for rows.Next() {
		var e models.OccupationEntry
		if err := rows.Scan(&e.OccupationName, &e.AnzscoCode, &e.DirectLink); err != nil {
			return nil, storageErr("index list", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("index list", err)
	}
	return out, nil
}

// Count returns the number of indexed names.
func (x *Index) Count(ctx context.Context) (int64, error) {
	return count(ctx, x.db, "occupation_index")
}
