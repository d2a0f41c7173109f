// Package storetest is a conformance suite every storage backend must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/anzscache/pkg/cache"
	"github.com/pario-ai/anzscache/pkg/models"
)

// Backend bundles the three collections of one storage instance.
type Backend struct {
	Index   cache.Index
	Details cache.Details
	Queries cache.Queries
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Run exercises the backend returned by open. open must return an empty backend.
func Run(t *testing.T, open func(t *testing.T) Backend) {
	t.Run("Index", func(t *testing.T) { testIndex(t, open(t)) })
	t.Run("Details", func(t *testing.T) { testDetails(t, open(t)) })
	t.Run("Queries", func(t *testing.T) { testQueries(t, open(t)) })
	t.Run("Eviction", func(t *testing.T) { testEviction(t, open(t)) })
}

func testIndex(t *testing.T, b Backend) {
	ctx := context.Background()
	entry := models.OccupationEntry{
		OccupationName: "Software Engineer",
		AnzscoCode:     "2611",
		DirectLink:     "https://www.abs.gov.au/anzsco/2611",
	}

	_, err := b.Index.Lookup(ctx, "Software Engineer")
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, b.Index.Insert(ctx, entry))

	got, err := b.Index.Lookup(ctx, "software engineer ")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	t.Run("Conflict", func(t *testing.T) {
		err := b.Index.Insert(ctx, models.OccupationEntry{OccupationName: " SOFTWARE ENGINEER", AnzscoCode: "9999"})
		require.ErrorIs(t, err, models.ErrConflict)

		got, err := b.Index.Lookup(ctx, "Software Engineer")
		require.NoError(t, err)
		assert.Equal(t, "2611", got.AnzscoCode)
	})

	t.Run("LinkRefresh", func(t *testing.T) {
		refreshed := entry
		refreshed.DirectLink = "https://www.abs.gov.au/anzsco/v2/2611"
		require.NoError(t, b.Index.Insert(ctx, refreshed))

		got, err := b.Index.Lookup(ctx, "Software Engineer")
		require.NoError(t, err)
		assert.Equal(t, refreshed.DirectLink, got.DirectLink)
		assert.Equal(t, "Software Engineer", got.OccupationName)
	})

	t.Run("LookupCodeAndList", func(t *testing.T) {
		require.NoError(t, b.Index.Insert(ctx, models.OccupationEntry{OccupationName: "Software Developer", AnzscoCode: "2611"}))
		require.NoError(t, b.Index.Insert(ctx, models.OccupationEntry{OccupationName: "Chef", AnzscoCode: "3513"}))

		owner, err := b.Index.LookupCode(ctx, "2611")
		require.NoError(t, err)
		assert.Equal(t, "Software Engineer", owner.OccupationName)

		_, err = b.Index.LookupCode(ctx, "0000")
		assert.ErrorIs(t, err, models.ErrNotFound)

		list, err := b.Index.List(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(list))
		for _, e := range list {
			names = append(names, e.OccupationName)
		}
		assert.Equal(t, []string{"Software Engineer", "Software Developer", "Chef"}, names)

		n, err := b.Index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}

func testDetails(t *testing.T, b Backend) {
	ctx := context.Background()

	_, err := b.Details.Get(ctx, "2611")
	require.ErrorIs(t, err, models.ErrNotFound)

	detail := models.OccupationDetail{
		Title:      "Software Engineer",
		UnitGroup:  "2613",
		SkillLevel: "1",
		Tasks:      []string{"Design", "Test", "Deploy"},
		Source:     "ABS",
		Link:       "https://www.abs.gov.au/anzsco/2611",
	}
	require.NoError(t, b.Details.Put(ctx, "2611", detail))

	got, err := b.Details.Get(ctx, "2611")
	require.NoError(t, err)
	assert.Equal(t, detail, got)
	assert.Equal(t, []string{"Design", "Test", "Deploy"}, got.Tasks)

	t.Run("NoSortNoDedupe", func(t *testing.T) {
		d := models.OccupationDetail{Title: "Chef", Tasks: []string{"Plate", "Cook", "Plate"}}
		require.NoError(t, b.Details.Put(ctx, "3513", d))
		got, err := b.Details.Get(ctx, "3513")
		require.NoError(t, err)
		assert.Equal(t, []string{"Plate", "Cook", "Plate"}, got.Tasks)
	})

	t.Run("FullReplacement", func(t *testing.T) {
		require.NoError(t, b.Details.Put(ctx, "2611", models.OccupationDetail{Title: "Software Engineer (revised)"}))
		got, err := b.Details.Get(ctx, "2611")
		require.NoError(t, err)
		assert.Equal(t, "Software Engineer (revised)", got.Title)
		assert.Empty(t, got.Tasks)
		assert.Empty(t, got.UnitGroup)
	})

	t.Run("CallerMutationDoesNotLeak", func(t *testing.T) {
		tasks := []string{"A", "B"}
		require.NoError(t, b.Details.Put(ctx, "1111", models.OccupationDetail{Tasks: tasks}))
		tasks[0] = "mutated"
		got, err := b.Details.Get(ctx, "1111")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, got.Tasks)
	})

	n, err := b.Details.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func testQueries(t *testing.T, b Backend) {
	ctx := context.Background()
	key := models.QueryKey{Query: "What skills are needed?", OccupationName: "Software Engineer", Section: "skills"}

	_, err := b.Queries.Get(ctx, key, t0)
	require.ErrorIs(t, err, models.ErrNotFound)

	put, err := b.Queries.Put(ctx, key, "Programming and problem solving.", "openai/gpt-4o-mini", t0)
	require.NoError(t, err)
	assert.NotEmpty(t, put.ID)
	assert.True(t, put.CreatedAt.Equal(put.AccessedAt))
	assert.Equal(t, "Software Engineer", put.OccupationName)

	first, err := b.Queries.Get(ctx, key, t0)
	require.NoError(t, err)
	assert.Equal(t, put.ID, first.ID)
	assert.True(t, first.CreatedAt.Equal(first.AccessedAt), "get right after put keeps createdAt == accessedAt")

	second, err := b.Queries.Get(ctx, key, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "Programming and problem solving.", second.Response)
	assert.Equal(t, "openai/gpt-4o-mini", second.Source)
	assert.True(t, put.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, second.AccessedAt.After(first.AccessedAt))
	assert.True(t, second.AccessedAt.Equal(t0.Add(time.Second)))

	later, err := b.Queries.Get(ctx, key, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, later.AccessedAt.Equal(t0.Add(time.Minute)))

	// A clock that steps backwards never moves accessedAt back.
	skewed, err := b.Queries.Get(ctx, key, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.True(t, skewed.AccessedAt.Equal(t0.Add(time.Minute)))
	assert.Equal(t, "Programming and problem solving.", skewed.Response)

	t.Run("KeyNormalization", func(t *testing.T) {
		hit, err := b.Queries.Get(ctx, models.QueryKey{
			Query: "  What skills are needed?", OccupationName: "software engineer", Section: " SKILLS ",
		}, t0.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, put.ID, hit.ID)

		_, err = b.Queries.Get(ctx, models.QueryKey{
			Query: "what skills are needed?", OccupationName: "Software Engineer", Section: "skills",
		}, t0)
		assert.ErrorIs(t, err, models.ErrNotFound, "query text is compared verbatim")

		_, err = b.Queries.Get(ctx, models.QueryKey{
			Query: key.Query, OccupationName: key.OccupationName, Section: "tasks",
		}, t0)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		again, err := b.Queries.Put(ctx, key, "Rewritten answer.", "anthropic/claude", t0.Add(time.Hour))
		require.NoError(t, err)
		assert.NotEqual(t, put.ID, again.ID)

		got, err := b.Queries.Get(ctx, key, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, again.ID, got.ID)
		assert.Equal(t, "Rewritten answer.", got.Response)
		assert.True(t, got.CreatedAt.Equal(t0.Add(time.Hour)))

		n, err := b.Queries.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("ListDeleteClear", func(t *testing.T) {
		other := models.QueryKey{Query: "What does a chef do?", OccupationName: "Chef", Section: "overview"}
		_, err := b.Queries.Put(ctx, other, "Cooks.", "openai/gpt-4o-mini", t0.Add(3*time.Hour))
		require.NoError(t, err)

		chefs, err := b.Queries.List(ctx, "CHEF")
		require.NoError(t, err)
		require.Len(t, chefs, 1)
		assert.Equal(t, "Cooks.", chefs[0].Response)

		all, err := b.Queries.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Chef", all[0].OccupationName, "most recently accessed first")

		require.NoError(t, b.Queries.Delete(ctx, other))
		_, err = b.Queries.Get(ctx, other, t0)
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, b.Queries.Clear(ctx))
		n, err := b.Queries.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func testEviction(t *testing.T, b Backend) {
	ctx := context.Background()
	stale := models.QueryKey{Query: "old?", OccupationName: "Chef", Section: "overview"}
	fresh := models.QueryKey{Query: "new?", OccupationName: "Chef", Section: "overview"}

	_, err := b.Queries.Put(ctx, stale, "old", "s", t0)
	require.NoError(t, err)
	_, err = b.Queries.Put(ctx, fresh, "new", "s", t0.Add(2*time.Hour))
	require.NoError(t, err)

	n, err := b.Queries.EvictBefore(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = b.Queries.Get(ctx, stale, t0.Add(3*time.Hour))
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = b.Queries.Get(ctx, fresh, t0.Add(3*time.Hour))
	assert.NoError(t, err)

	// Reading a record keeps it out of the next eviction.
	n, err = b.Queries.EvictBefore(ctx, t0.Add(150*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}
