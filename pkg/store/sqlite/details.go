package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pario-ai/anzscache/pkg/models"
)

// Details stores occupation details as JSON documents keyed by ANZSCO code.
type Details struct {
	db *sql.DB
}

// Get returns the detail stored for code.
func (d *Details) Get(ctx context.Context, code string) (models.OccupationDetail, error) {
	var doc string
	err := d.db.QueryRowContext(ctx,
		`SELECT document FROM occupation_details WHERE anzsco_code = ?`, code,
	).Scan(&doc)
	if err != nil {
		return models.OccupationDetail{}, storageErr("detail get", err)
	}

	var detail models.OccupationDetail
	if err := json.Unmarshal([]byte(doc), &detail); err != nil {
		return models.OccupationDetail{}, fmt.Errorf("decode detail %s: %w", code, err)
	}
	return detail, nil
}

// Put replaces the whole detail document for code.
func (d *Details) Put(ctx context.Context, code string, detail models.OccupationDetail) error {
	doc, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode detail %s: %w", code, err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO occupation_details (anzsco_code, document, updated_at) VALUES (?, ?, ?)`,
		code, string(doc), toNanos(time.Now()),
	)
	if err != nil {
		return storageErr("detail put", err)
	}
	return nil
}

// Count returns the number of stored details.
func (d *Details) Count(ctx context.Context) (int64, error) {
	return count(ctx, d.db, "occupation_details")
}
