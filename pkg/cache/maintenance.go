package cache

import (
	"context"
	"fmt"

	"github.com/pario-ai/anzscache/pkg/models"
)

// Evict removes query records not read within the retention window. It is meant to
// be triggered by an external scheduler; losing a record only costs a regeneration.
func (c *Cache) Evict(ctx context.Context) (int64, error) {
	if c.retention <= 0 {
		return 0, nil
	}
	now := c.now()
	n, err := c.queries.EvictBefore(ctx, now.Add(-c.retention))
	if err != nil {
		return 0, fmt.Errorf("evict: %w", err)
	}
	c.lastEvict.Store(now.UnixNano())
	c.evicted.Add(n)
	c.log.Info().Str("operation", "evict").Int64("removed", n).Dur("retention", c.retention).Msg("evicted stale answers")
	return n, nil
}

// maybeEvict runs Evict after a write when enabled and the interval has elapsed.
// Failures are logged only.
func (c *Cache) maybeEvict(ctx context.Context) {
	if !c.evictOnWrite || c.retention <= 0 {
		return
	}
	now := c.now().UnixNano()
	last := c.lastEvict.Load()
	if last != 0 && now-last < c.evictInterval.Nanoseconds() {
		return
	}
	if !c.lastEvict.CompareAndSwap(last, now) {
		return
	}
	if _, err := c.Evict(ctx); err != nil {
		c.log.Warn().Err(err).Str("operation", "evict").Msg("opportunistic eviction failed")
	}
}

// ClearAnswers drops every cached answer.
func (c *Cache) ClearAnswers(ctx context.Context) error {
	return c.queries.Clear(ctx)
}

// Stats returns collection sizes and counters.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	occupations, err := c.index.Count(ctx)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	details, err := c.details.Count(ctx)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	queries, err := c.queries.Count(ctx)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Occupations: occupations,
		Details:     details,
		Queries:     queries,
		IndexHits:   c.indexHits.Load(),
		IndexMisses: c.indexMisses.Load(),
		QueryHits:   c.queryHits.Load(),
		QueryMisses: c.queryMisses.Load(),
		Evicted:     c.evicted.Load(),
	}, nil
}
