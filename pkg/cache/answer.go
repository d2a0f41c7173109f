package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/pario-ai/anzscache/pkg/models"
)

// Answer returns the cached response for (query, occupationName, section), generating
// and storing it on a miss. cached reports whether the record came from storage.
func (c *Cache) Answer(ctx context.Context, query, occupationName, section string) (rec models.QueryRecord, cached bool, err error) {
	key := models.QueryKey{Query: query, OccupationName: occupationName, Section: section}
	nk := key.Normalize()
	switch {
	case nk.Query == "":
		return models.QueryRecord{}, false, invalid("empty query")
	case nk.OccupationName == "":
		return models.QueryRecord{}, false, invalid("empty occupation name")
	case !c.sections[nk.Section]:
		return models.QueryRecord{}, false, invalid("unknown section %q", section)
	}

	rec, err = c.queries.Get(ctx, key, c.now())
	if err == nil {
		c.queryHits.Add(1)
		c.log.Debug().Str("operation", "answer").Str("id", rec.ID).Str("section", nk.Section).Msg("cache hit")
		return rec, true, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.QueryRecord{}, false, err
	}
	c.queryMisses.Add(1)
	c.log.Debug().Str("operation", "answer").Str("section", nk.Section).Msg("cache miss")

	rec, err = fill(ctx, c, &c.queryFills, nk.String(), func(ctx context.Context) (models.QueryRecord, error) {
		// A fill for this key may have finished between our miss and joining the flight.
		if rec, err := c.queries.Get(ctx, key, c.now()); err == nil {
			return rec, nil
		} else if !errors.Is(err, models.ErrNotFound) {
			return models.QueryRecord{}, err
		}
		gen, err := c.src.Generator.Generate(ctx, nk.Query, strings.TrimSpace(occupationName), nk.Section)
		if err != nil {
			return models.QueryRecord{}, externalErr("generate", err)
		}
		rec, err := c.queries.Put(ctx, key, gen.Response, gen.Source, c.now())
		if err != nil {
			return models.QueryRecord{}, err
		}
		c.log.Info().
			Str("operation", "answer_fill").
			Str("id", rec.ID).
			Str("section", rec.Section).
			Str("source", rec.Source).
			Msg("answer cached")
		c.maybeEvict(ctx)
		return rec, nil
	})
	return rec, false, err
}

// Forget drops the cached record for a triple. The next Answer regenerates it.
func (c *Cache) Forget(ctx context.Context, query, occupationName, section string) error {
	return c.queries.Delete(ctx, models.QueryKey{Query: query, OccupationName: occupationName, Section: section})
}

// Answers lists cached records for an occupation, or all of them when empty.
func (c *Cache) Answers(ctx context.Context, occupationName string) ([]models.QueryRecord, error) {
	return c.queries.List(ctx, occupationName)
}
