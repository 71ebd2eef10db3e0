// Package app wires configuration into the collaborators the entrypoints
// share: completion chain, analysis store, document source, Notion publisher
// and analyzer.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/llm"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/notionsync"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/risk"
	"github.com/dvloznov/finance-insights/internal/source"
	"github.com/dvloznov/finance-insights/internal/store"
	"github.com/dvloznov/finance-insights/internal/store/bigquery"
	"github.com/dvloznov/finance-insights/internal/store/sqlite"
)

// App holds the collaborators built from one Config. Store, Objects and
// Publisher are nil when not configured.
type App struct {
	Config    *config.Config
	Analyzer  *pipeline.Analyzer
	Store     store.Store
	Source    *source.Source
	Objects   *source.GCSStore
	Publisher *notionsync.Publisher

	closers []func() error
}

// New builds an App. Close releases whatever it opened, also on error paths
// handled by the caller.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)
	a := &App{Config: cfg}

	completer, err := NewCompleter(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.Analyzer = pipeline.NewAnalyzerFromConfig(cfg, completer)

	a.Store, err = OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	if a.Store != nil {
		a.closers = append(a.closers, a.Store.Close)
	}

	if cfg.Source.Bucket != "" {
		a.Objects, err = source.NewGCSStore(ctx, cfg.Store.CredentialsFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.closers = append(a.closers, a.Objects.Close)
	} else {
		log.Debug().Msg("No GCS bucket configured, gs:// documents are unavailable")
	}
	if a.Objects != nil {
		a.Source = source.New(a.Objects)
	} else {
		a.Source = source.New(nil)
	}
	if cfg.Source.MaxBytes > 0 {
		a.Source.MaxBytes = cfg.Source.MaxBytes
	}

	if cfg.Notion.Enabled {
		if cfg.Notion.Token == "" {
			a.Close()
			return nil, errors.New("app.New: notion is enabled but no token is set (NOTION_TOKEN)")
		}
		a.Publisher = notionsync.NewPublisher(notionsync.NewClient(cfg.Notion.Token), cfg.Notion.DatabaseID)
	}

	log.Info().
		Str("store", cfg.Store.Driver).
		Bool("llm", completer != nil).
		Bool("gcs", a.Objects != nil).
		Bool("notion", a.Publisher != nil).
		Msg("Application initialized")
	return a, nil
}

// JobHandler returns a queue handler over the App's collaborators.
func (a *App) JobHandler() *pipeline.JobHandler {
	h := &pipeline.JobHandler{Analyzer: a.Analyzer, Source: a.Source, Store: a.Store}
	if a.Publisher != nil {
		h.Publisher = a.Publisher
	}
	return h
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewCompleter builds the fallback chain from cfg. Providers whose client
// cannot be created are skipped with a warning; with none left the result
// is nil and the analyzer runs without a model.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (llm.Completer, error) {
	log := logger.FromContext(ctx)

	var providers []llm.Provider
	for _, p := range cfg.Providers {
		switch p.Name {
		case "gemini":
			g, err := llm.NewGemini(ctx, p.ResolvedAPIKey(), p.Model, llm.WithJSONResponse())
			if err != nil {
				log.Warn().Err(err).Str("provider", p.Name).Msg("Skipping completion provider")
				continue
			}
			providers = append(providers, llm.Provider{Name: p.Name + ":" + p.Model, Completer: g})
		default:
			return nil, fmt.Errorf("NewCompleter: unknown provider %q", p.Name)
		}
	}

	if len(providers) == 0 {
		log.Warn().Msg("No completion provider available, LLM extraction and cross-validation are disabled")
		return nil, nil
	}
	return llm.NewChain(cfg.Timeout, providers...), nil
}

// OpenStore opens the store selected by cfg.Store.Driver. It returns nil for
// driver "none" or "".
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	classifier := risk.NewClassifier(cfg.Keywords.Merge(risk.DefaultKeywords()))

	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLitePath, classifier)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return db, nil
	case "bigquery":
		repo, err := bigquery.NewRepository(ctx, bigquery.Options{
			ProjectID:       cfg.Store.BigQueryProject,
			Dataset:         cfg.Store.BigQueryDataset,
			CredentialsFile: cfg.Store.CredentialsFile,
			Classifier:      classifier,
		})
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown driver %q", cfg.Store.Driver)
	}
}
