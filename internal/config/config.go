package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dvloznov/finance-insights/internal/risk"
)

// EnvConfigPath names the environment variable pointing at the YAML file.
const EnvConfigPath = "FINANCE_INSIGHTS_CONFIG"

// Config represents the top-level finance-insights.yaml configuration.
type Config struct {
	Log             LogConfig             `yaml:"log"`
	LLM             LLMConfig             `yaml:"llm"`
	Extraction      ExtractionConfig      `yaml:"extraction"`
	Scoring         ScoringConfig         `yaml:"scoring"`
	CrossValidation CrossValidationConfig `yaml:"cross_validation"`
	Queue           QueueConfig           `yaml:"queue"`
	Keywords        risk.Keywords         `yaml:"keywords"`
	Store           StoreConfig           `yaml:"store"`
	Source          SourceConfig          `yaml:"source"`
	Notion          NotionConfig          `yaml:"notion"`
	Server          ServerConfig          `yaml:"server"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// LLMConfig lists completion providers in fallback order.
type LLMConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
	Timeout   time.Duration    `yaml:"timeout"`
}

// ProviderConfig describes one completion provider.
type ProviderConfig struct {
	Name      string `yaml:"name"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// ResolvedAPIKey prefers the inline key, then the named environment variable.
func (p ProviderConfig) ResolvedAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

// ExtractionConfig toggles the LLM extraction strategy. It is on by default
// and only takes effect when a provider is configured.
type ExtractionConfig struct {
	UseLLM bool `yaml:"use_llm"`
}

// ScoringConfig holds the credit-score base.
type ScoringConfig struct {
	BaseScore int `yaml:"base_score"`
}

// CrossValidationConfig controls when a second LLM pass runs.
type CrossValidationConfig struct {
	Enabled             bool    `yaml:"enabled"`
	ComplexityThreshold float64 `yaml:"complexity_threshold"`
	MinimumConfidence   float64 `yaml:"minimum_confidence"`
	MaxAttempts         int     `yaml:"max_attempts"`
}

// QueueConfig bounds concurrent document analyses.
type QueueConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// StoreConfig selects the analysis store.
type StoreConfig struct {
	Driver          string `yaml:"driver"` // sqlite, bigquery or none
	SQLitePath      string `yaml:"sqlite_path"`
	BigQueryProject string `yaml:"bigquery_project"`
	BigQueryDataset string `yaml:"bigquery_dataset"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

// SourceConfig configures where documents are read from and uploaded to.
type SourceConfig struct {
	Bucket   string `yaml:"bucket,omitempty"` // GCS bucket for uploads
	MaxBytes int    `yaml:"max_bytes"`
}

// NotionConfig enables publishing summaries to a Notion database.
type NotionConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Token      string `yaml:"token,omitempty"`
	DatabaseID string `yaml:"database_id"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port     string `yaml:"port"`
	APIToken string `yaml:"api_token,omitempty"` // empty disables bearer auth
}

// Default returns a Config with the canonical thresholds.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		LLM: LLMConfig{
			Providers: []ProviderConfig{
				{Name: "gemini", Model: "gemini-2.5-flash", APIKeyEnv: "GEMINI_API_KEY"},
			},
			Timeout: 60 * time.Second,
		},
		Extraction: ExtractionConfig{UseLLM: true},
		Scoring:    ScoringConfig{BaseScore: 500},
		CrossValidation: CrossValidationConfig{
			Enabled:             true,
			ComplexityThreshold: 0.7,
			MinimumConfidence:   0.8,
			MaxAttempts:         3,
		},
		Queue:    QueueConfig{MaxConcurrent: 3},
		Keywords: risk.DefaultKeywords(),
		Store: StoreConfig{
			Driver:          "sqlite",
			SQLitePath:      "finance-insights.db",
			BigQueryDataset: "finance_insights",
		},
		Source: SourceConfig{MaxBytes: 10 << 20},
		Server: ServerConfig{Port: "8080"},
	}
}

// Load overlays a YAML file on Default and applies environment overrides.
// An empty path falls back to $FINANCE_INSIGHTS_CONFIG; if that is unset too,
// defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.Keywords = cfg.Keywords.Merge(risk.DefaultKeywords())
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NOTION_TOKEN"); v != "" && c.Notion.Token == "" {
		c.Notion.Token = v
	}
	if v := os.Getenv("NOTION_DATABASE_ID"); v != "" && c.Notion.DatabaseID == "" {
		c.Notion.DatabaseID = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" && c.Store.BigQueryProject == "" {
		c.Store.BigQueryProject = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" && c.Source.Bucket == "" {
		c.Source.Bucket = v
	}
	if v := os.Getenv("FINANCE_INSIGHTS_API_TOKEN"); v != "" && c.Server.APIToken == "" {
		c.Server.APIToken = v
	}
}

// Validate rejects values the pipeline cannot honor.
func (c *Config) Validate() error {
	var errs []error
	if c.Scoring.BaseScore < 300 || c.Scoring.BaseScore > 850 {
		errs = append(errs, fmt.Errorf("scoring.base_score %d outside [300,850]", c.Scoring.BaseScore))
	}
	if c.Queue.MaxConcurrent < 1 || c.Queue.MaxConcurrent > 10 {
		errs = append(errs, fmt.Errorf("queue.max_concurrent %d outside [1,10]", c.Queue.MaxConcurrent))
	}
	if !inUnit(c.CrossValidation.ComplexityThreshold) || !inUnit(c.CrossValidation.MinimumConfidence) {
		errs = append(errs, errors.New("cross_validation thresholds must be within [0,1]"))
	}
	if c.CrossValidation.MaxAttempts < 1 {
		errs = append(errs, errors.New("cross_validation.max_attempts must be at least 1"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	switch c.Store.Driver {
	case "", "none", "sqlite", "bigquery":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q not supported", c.Store.Driver))
	}
	if c.Source.MaxBytes < 0 {
		errs = append(errs, errors.New("source.max_bytes must not be negative"))
	}
	if c.Notion.Enabled && c.Notion.DatabaseID == "" {
		errs = append(errs, errors.New("notion.database_id required when notion is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }
