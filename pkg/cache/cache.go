// Package cache is the facade over the occupation index, the occupation detail
// store and the query/response cache. It is the only writer of all three and the
// only component that talks to the external classification, detail and generation
// sources.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/anzscache/pkg/models"
)

// Index is the occupation index backend.
type Index interface {
	Lookup(ctx context.Context, name string) (models.OccupationEntry, error)
	LookupCode(ctx context.Context, code string) (models.OccupationEntry, error)
	Insert(ctx context.Context, entry models.OccupationEntry) error
	List(ctx context.Context) ([]models.OccupationEntry, error)
	Count(ctx context.Context) (int64, error)
}

// Details is the occupation detail backend.
type Details interface {
	Get(ctx context.Context, code string) (models.OccupationDetail, error)
	Put(ctx context.Context, code string, detail models.OccupationDetail) error
	Count(ctx context.Context) (int64, error)
}

// Queries is the query/response backend.
type Queries interface {
	Get(ctx context.Context, key models.QueryKey, now time.Time) (models.QueryRecord, error)
	Put(ctx context.Context, key models.QueryKey, response, source string, now time.Time) (models.QueryRecord, error)
	Delete(ctx context.Context, key models.QueryKey) error
	EvictBefore(ctx context.Context, cutoff time.Time) (int64, error)
	List(ctx context.Context, occupationName string) ([]models.QueryRecord, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// Classifier resolves an occupation name to a code and reference link.
type Classifier interface {
	Classify(ctx context.Context, occupationName string) (models.Classification, error)
}

// DetailFetcher fetches enriched metadata for a code.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, anzscoCode string) (models.OccupationDetail, error)
}

// Generator produces a response for a query about an occupation section.
type Generator interface {
	Generate(ctx context.Context, query, occupationName, section string) (models.Generation, error)
}

// Sources groups the external collaborators.
type Sources struct {
	Classifier Classifier
	Details    DetailFetcher
	Generator  Generator
}

// DefaultSections is the section set accepted when none is configured.
var DefaultSections = []string{"overview", "tasks", "skills", "qualifications", "pathways", "outlook"}

// Cache resolves occupations and answers, serving from storage when possible.
type Cache struct {
	index   Index
	details Details
	queries Queries
	src     Sources

	log           zerolog.Logger
	now           func() time.Time
	sections      map[string]bool
	retention     time.Duration
	evictOnWrite  bool
	evictInterval time.Duration
	fillTimeout   time.Duration

	occupationFills singleflight.Group
	queryFills      singleflight.Group

	indexHits   atomic.Int64
	indexMisses atomic.Int64
	queryHits   atomic.Int64
	queryMisses atomic.Int64
	evicted     atomic.Int64
	lastEvict   atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(c *Cache) { c.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithSections restricts accepted section tags. Tags are case folded.
func WithSections(sections []string) Option {
	return func(c *Cache) {
		c.sections = make(map[string]bool, len(sections))
		for _, s := range sections {
			k := models.QueryKey{Section: s}.Normalize().Section
			if k != "" {
				c.sections[k] = true
			}
		}
	}
}

// WithRetention sets how long an unread query record is kept. Zero disables eviction.
func WithRetention(d time.Duration) Option { return func(c *Cache) { c.retention = d } }

// WithEvictOnWrite evicts stale query records after a write, at most once per interval.
func WithEvictOnWrite(interval time.Duration) Option {
	return func(c *Cache) {
		c.evictOnWrite = true
		c.evictInterval = interval
	}
}

// WithFillTimeout bounds a single fill (external calls plus writes).
func WithFillTimeout(d time.Duration) Option { return func(c *Cache) { c.fillTimeout = d } }

// New creates a Cache over the given backends and sources.
func New(index Index, details Details, queries Queries, src Sources, opts ...Option) *Cache {
	c := &Cache{
		index:   index,
		details: details,
		queries: queries,
		src:     src,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	WithSections(DefaultSections)(c)
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With().Str("component", "cache").Logger()
	return c
}

// Sections returns the accepted section tags.
func (c *Cache) Sections() []string {
	out := make([]string, 0, len(c.sections))
	for s := range c.sections {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// fill runs fn once per key across concurrent callers. fn runs detached from the
// caller's cancellation so an abandoned request still populates the cache.
func fill[T any](ctx context.Context, c *Cache, g *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := g.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if c.fillTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.fillTimeout)
			defer cancel()
		}
		return fn(fctx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func externalErr(op string, err error) error {
	if errors.Is(err, models.ErrExternalSourceFailed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrExternalSourceFailed, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
