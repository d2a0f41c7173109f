package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pario-ai/anzscache/pkg/models"
)

// Queries is the query/response cache.
type Queries struct {
	db *sql.DB
}

const queryColumns = `id, query, occupation_name, section, response, source, created_at, accessed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (models.QueryRecord, error) {
	var r models.QueryRecord
	var created, accessed int64
	if err := s.Scan(&r.ID, &r.Query, &r.OccupationName, &r.Section, &r.Response, &r.Source, &created, &accessed); err != nil {
		return models.QueryRecord{}, err
	}
	r.CreatedAt = fromNanos(created)
	r.AccessedAt = fromNanos(accessed)
	return r, nil
}

// Get returns the record for key and sets its accessed_at to now. accessed_at never
// moves backwards when the clock does.
func (q *Queries) Get(ctx context.Context, key models.QueryKey, now time.Time) (models.QueryRecord, error) {
	k := key.Normalize()
	row := q.db.QueryRowContext(ctx,
		`UPDATE query_records SET accessed_at = MAX(?, accessed_at)
		 WHERE query = ? AND occupation_key = ? AND section = ?
		 RETURNING `+queryColumns,
		toNanos(now), k.Query, k.OccupationName, k.Section,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return models.QueryRecord{}, storageErr("query get", err)
	}
	return rec, nil
}

// Put stores a fresh record for key, replacing any previous one.
func (q *Queries) Put(ctx context.Context, key models.QueryKey, response, source string, now time.Time) (models.QueryRecord, error) {
	k := key.Normalize()
	rec := models.QueryRecord{
		ID:             uuid.NewString(),
		Query:          k.Query,
		OccupationName: strings.TrimSpace(key.OccupationName),
		Section:        k.Section,
		Response:       response,
		Source:         source,
		CreatedAt:      now.UTC(),
		AccessedAt:     now.UTC(),
	}
	ts := toNanos(now)
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO query_records (id, query, occupation_key, occupation_name, section, response, source, created_at, accessed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(query, occupation_key, section) DO UPDATE SET
			id = excluded.id,
			occupation_name = excluded.occupation_name,
			response = excluded.response,
			source = excluded.source,
			created_at = excluded.created_at,
			accessed_at = excluded.accessed_at`,
		rec.ID, k.Query, k.OccupationName, rec.OccupationName, k.Section, response, source, ts, ts,
	)
	if err != nil {
		return models.QueryRecord{}, storageErr("query put", err)
	}
	return rec, nil
}

// Delete removes the record for key, if any.
func (q *Queries) Delete(ctx context.Context, key models.QueryKey) error {
	k := key.Normalize()
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM query_records WHERE query = ? AND occupation_key = ? AND section = ?`,
		k.Query, k.OccupationName, k.Section,
	)
	if err != nil {
		return storageErr("query delete", err)
	}
	return nil
}

// EvictBefore removes records last accessed before cutoff.
func (q *Queries) EvictBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM query_records WHERE accessed_at < ?`, toNanos(cutoff))
	if err != nil {
		return 0, storageErr("query evict", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("query evict", err)
	}
	return n, nil
}

// List returns records for occupationName, most recently accessed first.
// An empty name lists every record.
func (q *Queries) List(ctx context.Context, occupationName string) ([]models.QueryRecord, error) {
	var rows *sql.Rows
	var err error
	if occupationName == "" {
		rows, err = q.db.QueryContext(ctx,
			`SELECT `+queryColumns+` FROM query_records ORDER BY accessed_at DESC`)
	} else {
		rows, err = q.db.QueryContext(ctx,
			`SELECT `+queryColumns+` FROM query_records WHERE occupation_key = ? ORDER BY accessed_at DESC`,
			models.NormalizeName(occupationName))
	}
	if err != nil {
		return nil, storageErr("query list", err)
	}
	defer rows.Close()

	var out []models.QueryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr("query list", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query list", err)
	}
	return out, nil
}

// Count returns the number of cached records.
func (q *Queries) Count(ctx context.Context) (int64, error) {
	return count(ctx, q.db, "query_records")
}

// Clear removes every cached record.
func (q *Queries) Clear(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM query_records`); err != nil {
		return storageErr("query clear", err)
	}
	return nil
}
