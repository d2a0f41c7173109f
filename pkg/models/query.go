package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// QueryRecord is a cached AI response for a (query, occupation, section) triple.
type QueryRecord struct {
	ID             string    `json:"id"`
	Query          string    `json:"query"`
	OccupationName string    `json:"occupation_name"`
	Section        string    `json:"section"`
	Response       string    `json:"response"`
	CreatedAt      time.Time `json:"created_at"`
	AccessedAt     time.Time `json:"accessed_at"`
	Source         string    `json:"source"`
}

// Key returns the logical cache key of the record.
func (r QueryRecord) Key() QueryKey {
	return QueryKey{Query: r.Query, OccupationName: r.OccupationName, Section: r.Section}
}

// QueryKey is the logical lookup key of a QueryRecord.
type QueryKey struct {
	Query          string
	OccupationName string
	Section        string
}

// Normalize trims the query and section, folds the section tag and normalizes the
// occupation name. The query text is otherwise compared verbatim.
func (k QueryKey) Normalize() QueryKey {
	return QueryKey{
		Query:          strings.TrimSpace(k.Query),
		OccupationName: NormalizeName(k.OccupationName),
		Section:        cases.Fold().String(strings.TrimSpace(k.Section)),
	}
}

// String renders the key for use as an in-flight marker. Callers normalize first.
func (k QueryKey) String() string {
	return k.Section + "\x00" + k.OccupationName + "\x00" + k.Query
}

// Generation is what a generation source returns for a query.
type Generation struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}
