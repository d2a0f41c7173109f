// Package memory provides an in-memory backend for the occupation index, occupation
// details and query cache, used for tests and ephemeral deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pario-ai/anzscache/pkg/models"
)

type queryRow struct {
	rec models.QueryRecord
	key models.QueryKey
}

// Store holds the three collections behind a single lock.
type Store struct {
	mu      sync.RWMutex
	names   map[string]int
	entries []models.OccupationEntry
	details map[string]models.OccupationDetail
	queries map[models.QueryKey]queryRow
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		names:   map[string]int{},
		details: map[string]models.OccupationDetail{},
		queries: map[models.QueryKey]queryRow{},
	}
}

// Index returns the occupation index collection.
func (s *Store) Index() *Index { return &Index{s: s} }

// Details returns the occupation detail collection.
func (s *Store) Details() *Details { return &Details{s: s} }

// Queries returns the query/response collection.
func (s *Store) Queries() *Queries { return &Queries{s: s} }

func cloneDetail(d models.OccupationDetail) models.OccupationDetail {
	if d.Tasks != nil {
		d.Tasks = append([]string(nil), d.Tasks...)
	}
	return d
}

// Index is the in-memory occupation index.
type Index struct{ s *Store }

// Lookup returns the entry whose normalized name matches name.
func (x *Index) Lookup(_ context.Context, name string) (models.OccupationEntry, error) {
	x.s.mu.RLock()
	defer x.s.mu.RUnlock()
	i, ok := x.s.names[models.NormalizeName(name)]
	if !ok {
		return models.OccupationEntry{}, models.ErrNotFound
	}
	return x.s.entries[i], nil
}

// LookupCode returns the earliest entry classified under code.
func (x *Index) LookupCode(_ context.Context, code string) (models.OccupationEntry, error) {
	x.s.mu.RLock()
	defer x.s.mu.RUnlock()
	for _, e := range x.s.entries {
		if e.AnzscoCode == code {
			return e, nil
		}
	}
	return models.OccupationEntry{}, models.ErrNotFound
}

// Insert appends entry, refreshing the link of an existing entry with the same code.
func (x *Index) Insert(_ context.Context, entry models.OccupationEntry) error {
	key := models.NormalizeName(entry.OccupationName)
	x.s.mu.Lock()
	defer x.s.mu.Unlock()
	if i, ok := x.s.names[key]; ok {
		if x.s.entries[i].AnzscoCode != entry.AnzscoCode {
			return fmt.Errorf("index insert %q as %s: %w", entry.OccupationName, entry.AnzscoCode, models.ErrConflict)
		}
		x.s.entries[i].DirectLink = entry.DirectLink
		return nil
	}
	x.s.names[key] = len(x.s.entries)
	x.s.entries = append(x.s.entries, entry)
	return nil
}

// List returns all entries in insertion order.
func (x *Index) List(_ context.Context) ([]models.OccupationEntry, error) {
	x.s.mu.RLock()
	defer x.s.mu.RUnlock()
	return append([]models.OccupationEntry(nil), x.s.entries...), nil
}

// Count returns the number of indexed names.
func (x *Index) Count(_ context.Context) (int64, error) {
	x.s.mu.RLock()
	defer x.s.mu.RUnlock()
	return int64(len(x.s.entries)), nil
}

// Details is the in-memory occupation detail collection.
type Details struct{ s *Store }

// Get returns the detail stored for code.
func (d *Details) Get(_ context.Context, code string) (models.OccupationDetail, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	detail, ok := d.s.details[code]
	if !ok {
		return models.OccupationDetail{}, models.ErrNotFound
	}
	return cloneDetail(detail), nil
}

// Put replaces the detail for code.
func (d *Details) Put(_ context.Context, code string, detail models.OccupationDetail) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.details[code] = cloneDetail(detail)
	return nil
}

// Count returns the number of stored details.
func (d *Details) Count(_ context.Context) (int64, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	return int64(len(d.s.details)), nil
}

// Queries is the in-memory query/response cache.
type Queries struct{ s *Store }

// Get returns the record for key and sets its accessed time to now, never moving it backwards.
func (q *Queries) Get(_ context.Context, key models.QueryKey, now time.Time) (models.QueryRecord, error) {
	k := key.Normalize()
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	row, ok := q.s.queries[k]
	if !ok {
		return models.QueryRecord{}, models.ErrNotFound
	}
	if next := now.UTC(); next.After(row.rec.AccessedAt) {
		row.rec.AccessedAt = next
	}
	q.s.queries[k] = row
	return row.rec, nil
}

// Put stores a fresh record for key, replacing any previous one.
func (q *Queries) Put(_ context.Context, key models.QueryKey, response, source string, now time.Time) (models.QueryRecord, error) {
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
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	q.s.queries[k] = queryRow{rec: rec, key: k}
	return rec, nil
}

// Delete removes the record for key, if any.
func (q *Queries) Delete(_ context.Context, key models.QueryKey) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	delete(q.s.queries, key.Normalize())
	return nil
}

// EvictBefore removes records last accessed before cutoff.
func (q *Queries) EvictBefore(_ context.Context, cutoff time.Time) (int64, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var n int64
	for k, row := range q.s.queries {
		if row.rec.AccessedAt.Before(cutoff) {
			delete(q.s.queries, k)
			n++
		}
	}
	return n, nil
}

// List returns records for occupationName, most recently accessed first.
func (q *Queries) List(_ context.Context, occupationName string) ([]models.QueryRecord, error) {
	want := models.NormalizeName(occupationName)
	q.s.mu.RLock()
	out := make([]models.QueryRecord, 0, len(q.s.queries))
	for _, row := range q.s.queries {
		if occupationName == "" || row.key.OccupationName == want {
			out = append(out, row.rec)
		}
	}
	q.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AccessedAt.After(out[j].AccessedAt) })
	return out, nil
}

// Count returns the number of cached records.
func (q *Queries) Count(_ context.Context) (int64, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()
	return int64(len(q.s.queries)), nil
}

// Clear removes every cached record.
func (q *Queries) Clear(_ context.Context) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	q.s.queries = map[models.QueryKey]queryRow{}
	return nil
}
