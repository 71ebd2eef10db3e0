package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 500, cfg.Scoring.BaseScore)
	assert.Equal(t, 3, cfg.Queue.MaxConcurrent)
	assert.True(t, cfg.CrossValidation.Enabled)
	assert.True(t, cfg.Extraction.UseLLM)
	assert.InDelta(t, 0.7, cfg.CrossValidation.ComplexityThreshold, 0.001)
	assert.InDelta(t, 0.8, cfg.CrossValidation.MinimumConfidence, 0.001)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "gemini", cfg.LLM.Providers[0].Name)
	assert.NotEmpty(t, cfg.Keywords.Gambling)
	assert.NoError(t, cfg.Validate())
}

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Queue.MaxConcurrent = 5
	cfg.Store.Driver = "bigquery"
	cfg.Store.BigQueryProject = "demo-project"
	cfg.LLM.Timeout = 90 * time.Second

	path := filepath.Join(t.TempDir(), "finance-insights.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, got.Queue.MaxConcurrent)
	assert.Equal(t, "bigquery", got.Store.Driver)
	assert.Equal(t, "demo-project", got.Store.BigQueryProject)
	assert.Equal(t, 90*time.Second, got.LLM.Timeout)
	assert.Equal(t, cfg.Keywords, got.Keywords)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	contents := "queue:\n  max_concurrent: 2\nkeywords:\n  gambling: [tigrinho]\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Queue.MaxConcurrent)
	assert.Equal(t, 500, cfg.Scoring.BaseScore)
	assert.Equal(t, []string{"tigrinho"}, cfg.Keywords.Gambling)
	assert.NotEmpty(t, cfg.Keywords.Debt)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Queue, cfg.Queue)
}

func TestLoad_EnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  base_score: 550\n"), 0o644))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 550, cfg.Scoring.BaseScore)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"base score too low", func(c *Config) { c.Scoring.BaseScore = 100 }},
		{"concurrency too high", func(c *Config) { c.Queue.MaxConcurrent = 11 }},
		{"threshold above one", func(c *Config) { c.CrossValidation.ComplexityThreshold = 1.5 }},
		{"zero attempts", func(c *Config) { c.CrossValidation.MaxAttempts = 0 }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"notion without database", func(c *Config) { c.Notion.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestProviderConfig_ResolvedAPIKey(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "from-env")

	assert.Equal(t, "inline", ProviderConfig{APIKey: "inline", APIKeyEnv: "TEST_PROVIDER_KEY"}.ResolvedAPIKey())
	assert.Equal(t, "from-env", ProviderConfig{APIKeyEnv: "TEST_PROVIDER_KEY"}.ResolvedAPIKey())
	assert.Empty(t, ProviderConfig{}.ResolvedAPIKey())
}
