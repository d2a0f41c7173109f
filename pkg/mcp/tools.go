package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pario-ai/anzscache/pkg/models"
)

type lookupArgs struct {
	Occupation string `json:"occupation"`
}

type answerArgs struct {
	Query      string `json:"query"`
	Occupation string `json:"occupation"`
	Section    string `json:"section"`
}

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"anzsco_lookup":      handleLookup,
	"anzsco_answer":      handleAnswer,
	"anzsco_cache_stats": handleCacheStats,
	"anzsco_queries":     handleQueries,
}

func (s *Server) tools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "anzsco_lookup",
			Description: "Resolve an occupation name to its ANZSCO code, reference link, unit group, skill level and tasks.",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []string{"occupation"},
				"properties": map[string]any{
					"occupation": map[string]any{
						"type":        "string",
						"description": "Occupation name, e.g. \"Software Engineer\"",
					},
				},
			},
		},
		{
			Name:        "anzsco_answer",
			Description: "Answer a question about one section of an occupation. Answers are cached per (query, occupation, section).",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []string{"query", "occupation", "section"},
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The question",
					},
					"occupation": map[string]any{
						"type":        "string",
						"description": "Occupation name",
					},
					"section": map[string]any{
						"type":        "string",
						"description": "Section of the occupation profile",
						"enum":        s.cache.Sections(),
					},
				},
			},
		},
		{
			Name:        "anzsco_cache_stats",
			Description: "Show cache sizes, hit/miss counters and evictions.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "anzsco_queries",
			Description: "List cached answers, most recently read first, optionally for one occupation.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"occupation": map[string]any{
						"type":        "string",
						"description": "Occupation name (optional, omit for all)",
					},
				},
			},
		},
	}
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

// failure renders err for a tool result. Upstream detail is not exposed.
func failure(prefix string, err error) ToolCallResult {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return errorResult(prefix + ": " + err.Error())
	case errors.Is(err, models.ErrExternalSourceFailed):
		return errorResult(prefix + ": upstream source unavailable")
	case errors.Is(err, models.ErrStorageUnavailable):
		return errorResult(prefix + ": storage unavailable")
	default:
		return errorResult(prefix + ": " + err.Error())
	}
}

func handleLookup(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args lookupArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Occupation == "" {
		return errorResult("occupation is required")
	}
	occ, err := s.cache.Occupation(ctx, args.Occupation)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", "anzsco_lookup").Msg("tool failed")
		return failure("Error resolving occupation", err)
	}
	return textResult(formatOccupation(occ))
}

func handleAnswer(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args answerArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	rec, cached, err := s.cache.Answer(ctx, args.Query, args.Occupation, args.Section)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", "anzsco_answer").Msg("tool failed")
		return failure("Error answering query", err)
	}
	return textResult(formatAnswer(rec, cached))
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return failure("Error fetching cache stats", err)
	}
	return textResult(formatCacheStats(stats))
}

func handleQueries(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args lookupArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	recs, err := s.cache.Answers(ctx, args.Occupation)
	if err != nil {
		return failure("Error listing cached answers", err)
	}
	return textResult(formatQueries(recs))
}
