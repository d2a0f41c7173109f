package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pario-ai/anzscache/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndRecent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := models.UsageRecord{
		Provider:         "openai",
		Model:            "gpt-4o-mini",
		Section:          "skills",
		PromptTokens:     100,
		CompletionTokens: 50,
		CreatedAt:        now,
	}
	if err := tr.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}

	records, err := tr.Recent(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].TotalTokens != 150 {
		t.Errorf("expected derived total of 150 tokens, got %d", records[0].TotalTokens)
	}
	if records[0].Section != "skills" {
		t.Errorf("section = %q, want skills", records[0].Section)
	}
	if !records[0].CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", records[0].CreatedAt, now)
	}

	records, err = tr.Recent(ctx, now.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records after now, got %d", len(records))
	}
}

func TestTotal(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 3 {
		_ = tr.Record(ctx, models.UsageRecord{
			Provider: "openai", Model: "gpt-4o-mini", Section: "overview",
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
	}

	total, err := tr.Total(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 450 {
		t.Errorf("expected 450, got %d", total)
	}

	total, err = tr.Total(ctx, now.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if total != 300 {
		t.Errorf("expected 300 since +1s, got %d", total)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.UsageRecord{
		Provider: "openai", Model: "gpt-4o-mini", Section: "skills",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: now,
	})
	_ = tr.Record(ctx, models.UsageRecord{
		Provider: "openai", Model: "gpt-4o-mini", Section: "tasks",
		PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30,
		CreatedAt: now,
	})
	_ = tr.Record(ctx, models.UsageRecord{
		Provider: "anthropic", Model: "claude-haiku", Section: "skills",
		PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300,
		CreatedAt: now,
	})

	summaries, err := tr.Summary(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Provider != "anthropic" {
		t.Errorf("expected anthropic first, got %s", summaries[0].Provider)
	}
	if summaries[1].RequestCount != 2 || summaries[1].TotalTokens != 180 {
		t.Errorf("unexpected openai summary: %+v", summaries[1])
	}
}

func TestEmptySummary(t *testing.T) {
	tr := newTestTracker(t)
	summaries, err := tr.Summary(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no summaries, got %d", len(summaries))
	}
}
