package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/anzscache/pkg/config"
)

func providers() []config.ProviderConfig {
	return []config.ProviderConfig{
		{Name: "openai", URL: "https://api.openai.com", APIKey: "sk-1"},
		{Name: "anthropic", URL: "https://api.anthropic.com", APIKey: "sk-2", Type: "anthropic"},
	}
}

func TestResolveNoRoutes(t *testing.T) {
	r := New(&config.Config{Providers: providers()})
	routes, err := r.Resolve("gpt-4o-mini")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "openai", routes[0].Provider.Name)
	assert.Equal(t, "openai/gpt-4o-mini", routes[0].Source())
}

func TestResolveWithAlias(t *testing.T) {
	r := New(&config.Config{
		Providers: providers(),
		Router: config.RouterConfig{Routes: []config.RouteConfig{{
			Model: "careers",
			Targets: []config.RouteTarget{
				{Provider: "openai", Model: "gpt-4o-mini"},
				{Provider: "anthropic", Model: "claude-haiku-4-5"},
			},
		}}},
	})
	routes, err := r.Resolve("careers")
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "openai/gpt-4o-mini", routes[0].Source())
	assert.Equal(t, "anthropic/claude-haiku-4-5", routes[1].Source())
}

func TestResolveEmptyTargetModelUsesRequested(t *testing.T) {
	r := New(&config.Config{
		Providers: providers(),
		Router: config.RouterConfig{Routes: []config.RouteConfig{{
			Model:   "gpt-4o",
			Targets: []config.RouteTarget{{Provider: "anthropic"}},
		}}},
	})
	routes, err := r.Resolve("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", routes[0].Model)
	assert.Equal(t, "anthropic", routes[0].Provider.Name)
}

func TestResolveSkipsUnknownProvider(t *testing.T) {
	r := New(&config.Config{
		Providers: providers(),
		Router: config.RouterConfig{Routes: []config.RouteConfig{{
			Model: "careers",
			Targets: []config.RouteTarget{
				{Provider: "unknown", Model: "x"},
				{Provider: "openai", Model: "gpt-4o-mini"},
			},
		}}},
	})
	routes, err := r.Resolve("careers")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "openai", routes[0].Provider.Name)
}

func TestResolveAllUnknownProviders(t *testing.T) {
	r := New(&config.Config{
		Providers: providers(),
		Router: config.RouterConfig{Routes: []config.RouteConfig{{
			Model:   "bad",
			Targets: []config.RouteTarget{{Provider: "unknown", Model: "x"}},
		}}},
	})
	_, err := r.Resolve("bad")
	assert.Error(t, err)
}

func TestResolveNoProviders(t *testing.T) {
	_, err := New(&config.Config{}).Resolve("gpt-4o-mini")
	assert.ErrorIs(t, err, ErrNoProviders)
}
