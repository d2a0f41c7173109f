package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pario-ai/anzscache/pkg/config"
	"github.com/pario-ai/anzscache/pkg/models"
	"github.com/pario-ai/anzscache/pkg/router"
)

const anthropicVersion = "2023-06-01"

// Generator answers occupation questions through the configured LLM providers,
// falling back along the route chain on transport errors, 429 and 5xx.
type Generator struct {
	cfg     config.GenerationConfig
	router  *router.Router
	client  *http.Client
	limiter *rate.Limiter
	usage   UsageRecorder
	log     zerolog.Logger
}

// UsageRecorder stores token usage reported by providers.
type UsageRecorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithUsageRecorder records token usage of every successful generation.
func WithUsageRecorder(r UsageRecorder) GeneratorOption {
	return func(g *Generator) { g.usage = r }
}

// NewGenerator creates a Generator from cfg.
func NewGenerator(cfg *config.Config, log zerolog.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		cfg:     cfg.Generation,
		router:  router.New(cfg),
		client:  newClient(cfg.Generation.Timeout),
		limiter: newLimiter(cfg.Generation.Rate, cfg.Generation.Burst),
		log:     log.With().Str("component", "generator").Logger(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Prompt renders the user message sent for a query.
func Prompt(query, occupationName, section string) string {
	return fmt.Sprintf("Occupation: %s\nSection: %s\nQuestion: %s", occupationName, section, query)
}

// Generate produces a response for query. Source is "provider/model" of the route used.
func (g *Generator) Generate(ctx context.Context, query, occupationName, section string) (models.Generation, error) {
	routes, err := g.router.Resolve(g.cfg.Model)
	if err != nil {
		return models.Generation{}, failed("generate", err)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return models.Generation{}, failed("generate", fmt.Errorf("rate limit: %w", err))
	}

	prompt := Prompt(query, occupationName, section)
	var lastErr error
	for _, route := range routes {
		text, usage, status, err := g.call(ctx, route, prompt)
		if err == nil {
			g.recordUsage(ctx, route, section, usage)
			return models.Generation{Response: text, Source: route.Source()}, nil
		}
		lastErr = fmt.Errorf("%s: %w", route.Source(), err)
		if !isRetryable(err, status) {
			break
		}
		g.log.Warn().Err(err).Str("route", route.Source()).Int("status", status).Msg("upstream failed, trying next")
	}
	return models.Generation{}, failed("generate", lastErr)
}

// recordUsage is best effort; a ledger failure never fails the generation.
func (g *Generator) recordUsage(ctx context.Context, route router.Route, section string, usage *models.Usage) {
	if g.usage == nil || usage == nil {
		return
	}
	err := g.usage.Record(ctx, models.UsageRecord{
		Provider:         route.Provider.Name,
		Model:            route.Model,
		Section:          section,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		g.log.Warn().Err(err).Str("route", route.Source()).Msg("record usage")
	}
}

// call performs one attempt. A transport error is returned wrapped with status 0.
func (g *Generator) call(ctx context.Context, route router.Route, prompt string) (string, *models.Usage, int, error) {
	var (
		path    string
		headers = map[string]string{}
		body    []byte
		err     error
	)
	if route.Provider.Type == "anthropic" {
		path = "/v1/messages"
		headers["x-api-key"] = route.Provider.APIKey
		headers["anthropic-version"] = anthropicVersion
		body, err = json.Marshal(models.AnthropicRequest{
			Model:     route.Model,
			System:    g.cfg.SystemPrompt,
			Messages:  []models.ChatMessage{{Role: "user", Content: prompt}},
			MaxTokens: g.cfg.MaxTokens,
		})
	} else {
		path = "/v1/chat/completions"
		headers["Authorization"] = "Bearer " + route.Provider.APIKey
		maxTokens := g.cfg.MaxTokens
		body, err = json.Marshal(models.ChatCompletionRequest{
			Model: route.Model,
			Messages: []models.ChatMessage{
				{Role: "system", Content: g.cfg.SystemPrompt},
				{Role: "user", Content: prompt},
			},
			MaxTokens: &maxTokens,
		})
	}
	if err != nil {
		return "", nil, 0, fmt.Errorf("encode request: %w", err)
	}

	res, err := doRequest(ctx, g.client, http.MethodPost, route.Provider.URL, path, headers, body)
	if err != nil {
		return "", nil, 0, &transportError{err: err}
	}
	if res.statusCode != http.StatusOK {
		return "", nil, res.statusCode, fmt.Errorf("upstream returned %d: %s", res.statusCode, snippet(res.body))
	}

	text, usage, err := parseCompletion(route.Provider.Type, res.body)
	if err != nil {
		return "", nil, res.statusCode, err
	}
	ev := g.log.Debug().Str("route", route.Source())
	if usage != nil {
		ev = ev.Int("prompt_tokens", usage.PromptTokens).Int("completion_tokens", usage.CompletionTokens)
	}
	ev.Msg("generated answer")
	return text, usage, res.statusCode, nil
}

func parseCompletion(providerType string, body []byte) (string, *models.Usage, error) {
	var (
		text  string
		usage *models.Usage
	)
	if providerType == "anthropic" {
		var resp models.AnthropicResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", nil, fmt.Errorf("decode response: %w", err)
		}
		text = resp.Text()
		if resp.Usage != nil {
			usage = resp.Usage.ToUsage()
		}
	} else {
		var resp models.ChatCompletionResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", nil, fmt.Errorf("decode response: %w", err)
		}
		if len(resp.Choices) > 0 {
			text = resp.Choices[0].Message.Content
		}
		usage = resp.Usage
	}
	if strings.TrimSpace(text) == "" {
		return "", usage, errors.New("empty completion")
	}
	return text, usage, nil
}

// transportError marks failures that happened before any HTTP status was received.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }
