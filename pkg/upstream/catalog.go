package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pario-ai/anzscache/pkg/config"
	"github.com/pario-ai/anzscache/pkg/models"
)

// Catalog is the occupation catalog client. It classifies names and fetches details.
type Catalog struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewCatalog creates a Catalog client from cfg.
func NewCatalog(cfg config.CatalogConfig, log zerolog.Logger) *Catalog {
	return &Catalog{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  newClient(cfg.Timeout),
		limiter: newLimiter(cfg.Rate, cfg.Burst),
		log:     log.With().Str("component", "catalog").Logger(),
	}
}

// Classify resolves an occupation name via GET /classify?name=.
func (c *Catalog) Classify(ctx context.Context, occupationName string) (models.Classification, error) {
	var out models.Classification
	if err := c.getJSON(ctx, "/classify?name="+url.QueryEscape(occupationName), &out); err != nil {
		return models.Classification{}, failed("classify", err)
	}
	if out.AnzscoCode == "" {
		return models.Classification{}, failed("classify", errors.New("response has no anzsco_code"))
	}
	return out, nil
}

// FetchDetail fetches the detail document via GET /occupations/{code}.
func (c *Catalog) FetchDetail(ctx context.Context, anzscoCode string) (models.OccupationDetail, error) {
	var out models.OccupationDetail
	if err := c.getJSON(ctx, "/occupations/"+url.PathEscape(anzscoCode), &out); err != nil {
		return models.OccupationDetail{}, failed("fetch detail", err)
	}
	return out, nil
}

func (c *Catalog) getJSON(ctx context.Context, path string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	res, err := doRequest(ctx, c.client, http.MethodGet, c.baseURL, path, headers, nil)
	if err != nil {
		return err
	}
	c.log.Debug().Str("path", path).Int("status", res.statusCode).Msg("catalog request")
	if res.statusCode != http.StatusOK {
		return fmt.Errorf("catalog returned %d: %s", res.statusCode, snippet(res.body))
	}
	if err := json.Unmarshal(res.body, v); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
