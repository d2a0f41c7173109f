package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/anzscache/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

func formatOccupation(occ models.Occupation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", occ.Entry.OccupationName)
	fmt.Fprintf(&b, "  ANZSCO:      %s\n", occ.Entry.AnzscoCode)
	if occ.Entry.DirectLink != "" {
		fmt.Fprintf(&b, "  Link:        %s\n", occ.Entry.DirectLink)
	}
	if occ.Detail.Title != "" {
		fmt.Fprintf(&b, "  Title:       %s\n", occ.Detail.Title)
	}
	if occ.Detail.UnitGroup != "" {
		fmt.Fprintf(&b, "  Unit group:  %s\n", occ.Detail.UnitGroup)
	}
	if occ.Detail.SkillLevel != "" {
		fmt.Fprintf(&b, "  Skill level: %s\n", occ.Detail.SkillLevel)
	}
	if len(occ.Detail.Tasks) > 0 {
		b.WriteString("  Tasks:\n")
		for i, task := range occ.Detail.Tasks {
			fmt.Fprintf(&b, "    %d. %s\n", i+1, task)
		}
	}
	return b.String()
}

func formatAnswer(rec models.QueryRecord, cached bool) string {
	state := "generated"
	if cached {
		state = "cached"
	}
	return fmt.Sprintf("%s\n\n[%s · %s · %s · %s]\n",
		rec.Response, rec.OccupationName, rec.Section, rec.Source, state)
}

func formatCacheStats(stats models.CacheStats) string {
	return fmt.Sprintf("Cache Statistics\n"+
		"  Occupations:  %d\n"+
		"  Details:      %d\n"+
		"  Answers:      %d\n"+
		"  Index hits:   %d\n"+
		"  Index misses: %d\n"+
		"  Answer hits:  %d\n"+
		"  Answer misses:%d\n"+
		"  Hit Rate:     %.1f%%\n"+
		"  Evicted:      %d\n",
		stats.Occupations, stats.Details, stats.Queries,
		stats.IndexHits, stats.IndexMisses, stats.QueryHits, stats.QueryMisses,
		stats.QueryHitRate()*100, stats.Evicted)
}

func formatQueries(recs []models.QueryRecord) string {
	if len(recs) == 0 {
		return "No cached answers found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s %-15s %-20s %-20s %s\n", "Occupation", "Section", "Created", "Last Read", "Query")
	b.WriteString(strings.Repeat("-", 110) + "\n")
	for _, r := range recs {
		q := r.Query
		if len(q) > 40 {
			q = q[:37] + "..."
		}
		fmt.Fprintf(&b, "%-25s %-15s %-20s %-20s %s\n",
			r.OccupationName, r.Section,
			r.CreatedAt.Format(timeLayout), r.AccessedAt.Format(timeLayout), q)
	}
	return b.String()
}
