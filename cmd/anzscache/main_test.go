package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/anzscache/pkg/models"
)

type env struct {
	configPath  string
	generations atomic.Int32
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{}

	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/classify":
			json.NewEncoder(w).Encode(models.Classification{AnzscoCode: "351311", DirectLink: "https://www.abs.gov.au/anzsco/351311"})
		case "/occupations/351311":
			json.NewEncoder(w).Encode(models.OccupationDetail{Title: "Chef", SkillLevel: "2", Tasks: []string{"Plan menus", "Cook"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(catalog.Close)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := e.generations.Add(1)
		json.NewEncoder(w).Encode(models.ChatCompletionResponse{
			Choices: []models.Choice{{Message: models.ChatMessage{Role: "assistant", Content: fmt.Sprintf("Chefs cook. (%d)", n)}}},
			Usage:   &models.Usage{PromptTokens: 40, CompletionTokens: 8, TotalTokens: 48},
		})
	}))
	t.Cleanup(provider.Close)

	dir := t.TempDir()
	e.configPath = filepath.Join(dir, "anzscache.yaml")
	cfg := fmt.Sprintf(`db_path: %s
log_level: error
catalog:
  url: %s
providers:
  - name: test
    url: %s
`, filepath.Join(dir, "anzscache.db"), catalog.URL, provider.URL)
	require.NoError(t, os.WriteFile(e.configPath, []byte(cfg), 0o600))
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLookupThenIndexList(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "lookup", "Chef")
	require.NoError(t, err)
	assert.Contains(t, out, "ANZSCO:      351311")
	assert.Contains(t, out, "2. Cook")

	out, err = e.run(t, "index", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Chef")
	assert.Contains(t, out, "351311")
}

func TestAskCachesAcrossInvocations(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "ask", "--occupation", "Chef", "--section", "tasks", "What", "does", "a", "chef", "do?")
	require.NoError(t, err)
	assert.Contains(t, out, "Chefs cook. (1)")
	assert.Contains(t, out, "cache miss")

	out, err = e.run(t, "ask", "-o", "chef", "-s", "Tasks", "What does a chef do?")
	require.NoError(t, err)
	assert.Contains(t, out, "Chefs cook. (1)")
	assert.Contains(t, out, "cache hit")
	assert.Equal(t, int32(1), e.generations.Load())

	out, err = e.run(t, "queries", "ls", "--occupation", "CHEF")
	require.NoError(t, err)
	assert.Contains(t, out, "What does a chef do?")

	out, err = e.run(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Answers:     1")

	_, err = e.run(t, "cache", "clear")
	assert.Error(t, err)

	_, err = e.run(t, "cache", "clear", "--queries")
	require.NoError(t, err)
	out, err = e.run(t, "queries", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached answers.")
}

func TestAskRejectsUnknownSection(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "ask", "-o", "Chef", "-s", "salary", "How much?")
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Zero(t, e.generations.Load())
}

func TestStatsReportsGenerationUsage(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "No usage data found.")

	_, err = e.run(t, "ask", "-o", "Chef", "-s", "skills", "Which knife skills matter?")
	require.NoError(t, err)

	out, err = e.run(t, "stats", "--since", "2000-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "gpt-4o-mini")
	assert.Contains(t, out, "48")

	_, err = e.run(t, "stats", "--since", "yesterday")
	assert.Error(t, err)
}

func TestCacheEvict(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "cache", "evict")
	require.NoError(t, err)
	assert.Contains(t, out, "Evicted 0 answers")
}

func TestMissingConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "cache", "stats"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, newLogger("debug").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger("").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger("loud").GetLevel())
}
