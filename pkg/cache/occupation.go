package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pario-ai/anzscache/pkg/models"
)

// Occupation resolves name to its index entry and detail. The index and detail
// store are consulted first; on a miss the external sources are called once and
// their results stored. A failed external call leaves the cache untouched.
func (c *Cache) Occupation(ctx context.Context, name string) (models.Occupation, error) {
	if isBlank(name) {
		return models.Occupation{}, invalid("empty occupation name")
	}

	entry, err := c.index.Lookup(ctx, name)
	switch {
	case err == nil:
		c.indexHits.Add(1)
		detail, err := c.details.Get(ctx, entry.AnzscoCode)
		if err == nil {
			c.log.Debug().Str("operation", "occupation").Str("name", name).Str("code", entry.AnzscoCode).Msg("cache hit")
			return models.Occupation{Entry: entry, Detail: detail}, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return models.Occupation{}, err
		}
		c.log.Debug().Str("operation", "occupation").Str("code", entry.AnzscoCode).Msg("detail miss")
	case errors.Is(err, models.ErrNotFound):
		c.indexMisses.Add(1)
		c.log.Debug().Str("operation", "occupation").Str("name", name).Msg("index miss")
	default:
		return models.Occupation{}, err
	}

	return fill(ctx, c, &c.occupationFills, models.NormalizeName(name), func(ctx context.Context) (models.Occupation, error) {
		return c.fillOccupation(ctx, name)
	})
}

func (c *Cache) fillOccupation(ctx context.Context, name string) (models.Occupation, error) {
	entry, err := c.index.Lookup(ctx, name)
	indexed := err == nil
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return models.Occupation{}, err
	}

	if !indexed {
		cls, err := c.src.Classifier.Classify(ctx, name)
		if err != nil {
			return models.Occupation{}, externalErr("classify "+name, err)
		}
		if isBlank(cls.AnzscoCode) {
			return models.Occupation{}, externalErr("classify "+name, errors.New("empty anzsco code"))
		}
		entry = models.OccupationEntry{
			OccupationName: strings.TrimSpace(name),
			AnzscoCode:     strings.TrimSpace(cls.AnzscoCode),
			DirectLink:     cls.DirectLink,
		}
	}

	detail, err := c.details.Get(ctx, entry.AnzscoCode)
	stored := err == nil
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return models.Occupation{}, err
	}
	if !stored {
		detail, err = c.src.Details.FetchDetail(ctx, entry.AnzscoCode)
		if err != nil {
			return models.Occupation{}, externalErr("fetch detail "+entry.AnzscoCode, err)
		}
	}

	// Every external call has succeeded; only now touch storage.
	if !indexed {
		if err := c.index.Insert(ctx, entry); err != nil {
			return models.Occupation{}, err
		}
	}
	if !stored {
		if err := c.PutDetail(ctx, entry.AnzscoCode, detail); err != nil {
			return models.Occupation{}, err
		}
	}

	c.log.Info().
		Str("operation", "occupation_fill").
		Str("name", entry.OccupationName).
		Str("code", entry.AnzscoCode).
		Bool("classified", !indexed).
		Bool("fetched_detail", !stored).
		Msg("occupation cached")
	return models.Occupation{Entry: entry, Detail: detail}, nil
}

// Register inserts an index entry.
func (c *Cache) Register(ctx context.Context, entry models.OccupationEntry) error {
	if isBlank(entry.OccupationName) || isBlank(entry.AnzscoCode) {
		return invalid("occupation name and code are required")
	}
	entry.OccupationName = strings.TrimSpace(entry.OccupationName)
	entry.AnzscoCode = strings.TrimSpace(entry.AnzscoCode)
	return c.index.Insert(ctx, entry)
}

// PutDetail replaces the detail for code. It fails with ErrDanglingReference when no
// index entry owns code.
func (c *Cache) PutDetail(ctx context.Context, code string, detail models.OccupationDetail) error {
	if _, err := c.index.LookupCode(ctx, code); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("put detail %s: %w", code, models.ErrDanglingReference)
		}
		return err
	}
	return c.details.Put(ctx, code, detail)
}

// Occupations lists the index in insertion order.
func (c *Cache) Occupations(ctx context.Context) ([]models.OccupationEntry, error) {
	return c.index.List(ctx)
}
