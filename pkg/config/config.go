package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all anzscache configuration.
type Config struct {
	Listen     string           `yaml:"listen"`
	DBPath     string           `yaml:"db_path"`
	LogLevel   string           `yaml:"log_level"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Providers  []ProviderConfig `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
	Router     RouterConfig     `yaml:"router"`
}

// StorageConfig selects the storage backend: "sqlite" (default) or "memory".
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// CacheConfig controls the query/response cache policy.
type CacheConfig struct {
	Retention     time.Duration `yaml:"retention"`
	EvictOnWrite  bool          `yaml:"evict_on_write"`
	EvictInterval time.Duration `yaml:"evict_interval"`
	FillTimeout   time.Duration `yaml:"fill_timeout"`
	Sections      []string      `yaml:"sections"`
}

// CatalogConfig points at the occupation classification and detail service.
type CatalogConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Rate    float64       `yaml:"rate"`
	Burst   int           `yaml:"burst"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProviderConfig defines an upstream LLM provider.
// Type is "openai" (default) or "anthropic".
type ProviderConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Type   string `yaml:"type"`
}

// GenerationConfig controls how answers are generated.
type GenerationConfig struct {
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	MaxTokens    int           `yaml:"max_tokens"`
	Rate         float64       `yaml:"rate"`
	Burst        int           `yaml:"burst"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RouterConfig defines model routing and fallback chains.
type RouterConfig struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig maps a model alias to an ordered list of targets.
type RouteConfig struct {
	Model   string        `yaml:"model"`
	Targets []RouteTarget `yaml:"targets"`
}

// RouteTarget identifies a specific provider and model in a fallback chain.
type RouteTarget struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// DefaultSystemPrompt frames generated answers.
const DefaultSystemPrompt = "You are a careers adviser. Answer questions about occupations classified " +
	"under ANZSCO concisely and factually, for the requested section only."

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		DBPath:   "anzscache.db",
		LogLevel: "info",
		Storage:  StorageConfig{Driver: "sqlite"},
		Cache: CacheConfig{
			Retention:     30 * 24 * time.Hour,
			EvictOnWrite:  true,
			EvictInterval: time.Hour,
			FillTimeout:   2 * time.Minute,
			Sections:      []string{"overview", "tasks", "skills", "qualifications", "pathways", "outlook"},
		},
		Catalog: CatalogConfig{
			Rate:    5,
			Burst:   5,
			Timeout: 30 * time.Second,
		},
		Generation: GenerationConfig{
			Model:        "gpt-4o-mini",
			SystemPrompt: DefaultSystemPrompt,
			MaxTokens:    1024,
			Rate:         2,
			Burst:        2,
			Timeout:      90 * time.Second,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would leave a flow unable to run.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, errors.New("db_path is required for the sqlite driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Catalog.URL == "" {
		errs = append(errs, errors.New("catalog.url is required"))
	}
	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("at least one provider is required"))
	}
	if len(c.Cache.Sections) == 0 {
		errs = append(errs, errors.New("cache.sections must not be empty"))
	}
	if c.Cache.Retention < 0 {
		errs = append(errs, errors.New("cache.retention must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
