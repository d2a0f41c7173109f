// Package router turns the configured generation model into an ordered chain of
// provider+model targets to try.
package router

import (
	"errors"
	"fmt"

	"github.com/pario-ai/anzscache/pkg/config"
)

// ErrNoProviders is returned when no provider is configured.
var ErrNoProviders = errors.New("no providers configured")

// Route is a resolved provider and model to try.
type Route struct {
	Provider config.ProviderConfig
	Model    string
}

// Source identifies the route in cached records, e.g. "openai/gpt-4o-mini".
func (r Route) Source() string {
	return r.Provider.Name + "/" + r.Model
}

// Router resolves model aliases to fallback chains.
type Router struct {
	providers []config.ProviderConfig
	byName    map[string]config.ProviderConfig
	routes    map[string][]config.RouteTarget
}

// New creates a Router from the providers and routes of cfg.
func New(cfg *config.Config) *Router {
	r := &Router{
		providers: cfg.Providers,
		byName:    make(map[string]config.ProviderConfig, len(cfg.Providers)),
		routes:    make(map[string][]config.RouteTarget, len(cfg.Router.Routes)),
	}
	for _, p := range cfg.Providers {
		r.byName[p.Name] = p
	}
	for _, rc := range cfg.Router.Routes {
		r.routes[rc.Model] = rc.Targets
	}
	return r
}

// Resolve returns the ordered routes for model. A configured alias yields its
// targets, skipping unknown providers; anything else goes to the first provider.
func (r *Router) Resolve(model string) ([]Route, error) {
	if len(r.providers) == 0 {
		return nil, ErrNoProviders
	}

	targets, ok := r.routes[model]
	if !ok {
		return []Route{{Provider: r.providers[0], Model: model}}, nil
	}

	var out []Route
	for _, t := range targets {
		p, ok := r.byName[t.Provider]
		if !ok {
			continue
		}
		m := t.Model
		if m == "" {
			m = model
		}
		out = append(out, Route{Provider: p, Model: m})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("route %q: all providers unknown", model)
	}
	return out, nil
}
