package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 30*24*time.Hour, cfg.Cache.Retention)
	assert.Contains(t, cfg.Cache.Sections, "skills")
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	path := writeConfig(t, `
listen: ":9090"
db_path: "test.db"
catalog:
  url: https://catalog.example
  rate: 1
providers:
  - name: openai
    url: https://api.openai.com
    api_key: ${TEST_API_KEY}
generation:
  model: fast
cache:
  retention: 72h
  evict_on_write: false
  sections: [overview, skills]
router:
  routes:
    - model: fast
      targets:
        - provider: openai
          model: gpt-4o-mini
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "sk-test-123", cfg.Providers[0].APIKey, "env var not expanded")
	assert.Equal(t, 72*time.Hour, cfg.Cache.Retention)
	assert.False(t, cfg.Cache.EvictOnWrite)
	assert.Equal(t, []string{"overview", "skills"}, cfg.Cache.Sections)
	assert.Equal(t, "fast", cfg.Generation.Model)
	// untouched defaults survive
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
	assert.Equal(t, time.Hour, cfg.Cache.EvictInterval)
	require.Len(t, cfg.Router.Routes, 1)
	assert.Equal(t, "gpt-4o-mini", cfg.Router.Routes[0].Targets[0].Model)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory driver", mutate: func(c *Config) { c.Storage.Driver = "memory"; c.DBPath = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "unknown storage driver"},
		{name: "no catalog", mutate: func(c *Config) { c.Catalog.URL = "" }, wantErr: "catalog.url"},
		{name: "no providers", mutate: func(c *Config) { c.Providers = nil }, wantErr: "provider"},
		{name: "no sections", mutate: func(c *Config) { c.Cache.Sections = nil }, wantErr: "sections"},
		{name: "negative retention", mutate: func(c *Config) { c.Cache.Retention = -time.Second }, wantErr: "retention"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Catalog.URL = "https://catalog.example"
			cfg.Providers = []ProviderConfig{{Name: "p", URL: "https://llm.example"}}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
