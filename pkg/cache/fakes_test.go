package cache_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pario-ai/anzscache/pkg/cache"
	"github.com/pario-ai/anzscache/pkg/models"
	"github.com/pario-ai/anzscache/pkg/store/memory"
	"github.com/pario-ai/anzscache/pkg/store/sqlite"
)

var (
	_ cache.Index   = (*memory.Index)(nil)
	_ cache.Details = (*memory.Details)(nil)
	_ cache.Queries = (*memory.Queries)(nil)
	_ cache.Index   = (*sqlite.Index)(nil)
	_ cache.Details = (*sqlite.Details)(nil)
	_ cache.Queries = (*sqlite.Queries)(nil)
)

var errUpstream = errors.New("upstream down")

type fakeCatalog struct {
	mu          sync.Mutex
	codes       map[string]models.Classification
	details     map[string]models.OccupationDetail
	classifyErr error
	detailErr   error

	classifyCalls atomic.Int32
	detailCalls   atomic.Int32
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		codes: map[string]models.Classification{
			"software engineer":  {AnzscoCode: "2611", DirectLink: "https://www.abs.gov.au/anzsco/2611"},
			"software developer": {AnzscoCode: "2611", DirectLink: "https://www.abs.gov.au/anzsco/2611"},
			"chef":               {AnzscoCode: "3513", DirectLink: "https://www.abs.gov.au/anzsco/3513"},
		},
		details: map[string]models.OccupationDetail{
			"2611": {Title: "Software Engineer", UnitGroup: "2613", SkillLevel: "1", Tasks: []string{"Design", "Test", "Deploy"}, Source: "ABS"},
			"3513": {Title: "Chef", UnitGroup: "3513", SkillLevel: "2", Tasks: []string{"Plan menus", "Cook"}, Source: "ABS"},
		},
	}
}

func (f *fakeCatalog) Classify(_ context.Context, name string) (models.Classification, error) {
	f.classifyCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.classifyErr != nil {
		return models.Classification{}, f.classifyErr
	}
	cls, ok := f.codes[models.NormalizeName(name)]
	if !ok {
		return models.Classification{}, errors.New("unknown occupation")
	}
	return cls, nil
}

func (f *fakeCatalog) FetchDetail(_ context.Context, code string) (models.OccupationDetail, error) {
	f.detailCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailErr != nil {
		return models.OccupationDetail{}, f.detailErr
	}
	d, ok := f.details[code]
	if !ok {
		return models.OccupationDetail{}, errors.New("unknown code")
	}
	return d, nil
}

func (f *fakeCatalog) setErrors(classify, detail error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classifyErr = classify
	f.detailErr = detail
}

type fakeGenerator struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
	// entered receives once per call when non-nil; release gates the call.
	entered chan struct{}
	release chan struct{}
	// honourCtx makes a gated call give up when its context ends.
	honourCtx bool
}

func (g *fakeGenerator) Generate(ctx context.Context, query, occupationName, section string) (models.Generation, error) {
	n := g.calls.Add(1)
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		if g.honourCtx {
			select {
			case <-g.release:
			case <-ctx.Done():
				return models.Generation{}, ctx.Err()
			}
		} else {
			<-g.release
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return models.Generation{}, g.err
	}
	return models.Generation{
		Response: occupationName + "/" + section + ": answer to " + query + " #" + strconv.Itoa(int(n)),
		Source:   "fake/model",
	}, nil
}

func (g *fakeGenerator) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// stallingQueries holds the first miss it reports until resume is closed.
type stallingQueries struct {
	cache.Queries
	armed   atomic.Bool
	stalled chan struct{}
	resume  chan struct{}
}

func (q *stallingQueries) Get(ctx context.Context, key models.QueryKey, now time.Time) (models.QueryRecord, error) {
	rec, err := q.Queries.Get(ctx, key, now)
	if errors.Is(err, models.ErrNotFound) && q.armed.CompareAndSwap(true, false) {
		close(q.stalled)
		<-q.resume
	}
	return rec, err
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	cache   *cache.Cache
	store   *memory.Store
	catalog *fakeCatalog
	gen     *fakeGenerator
	clock   *clock
}

func newFixture(opts ...cache.Option) *fixture {
	f := &fixture{
		store:   memory.New(),
		catalog: newFakeCatalog(),
		gen:     &fakeGenerator{},
		clock:   newClock(),
	}
	opts = append([]cache.Option{cache.WithClock(f.clock.Now)}, opts...)
	f.cache = cache.New(f.store.Index(), f.store.Details(), f.store.Queries(), cache.Sources{
		Classifier: f.catalog,
		Details:    f.catalog,
		Generator:  f.gen,
	}, opts...)
	return f
}
