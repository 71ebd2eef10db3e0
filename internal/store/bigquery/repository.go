// Package bigquery stores analyses in BigQuery. Rows are streamed: the
// transaction rows of an analysis go first and the analysis row last, and every
// query reads through the analysis row, so an interrupted save stays invisible.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/option"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/risk"
	"github.com/dvloznov/finance-insights/internal/store"
)

// Options configures NewRepository.
type Options struct {
	ProjectID       string
	Dataset         string
	CredentialsFile string // empty means application default credentials
	Classifier      *risk.Classifier
}

// Repository implements store.Store over a shared BigQuery client.
type Repository struct {
	client     *bigquery.Client
	dataset    string
	classifier *risk.Classifier
	now        func() time.Time
}

// NewRepository creates a BigQuery client for opts.ProjectID.
func NewRepository(ctx context.Context, opts Options) (*Repository, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("NewRepository: project ID is required")
	}
	if opts.Dataset == "" {
		return nil, fmt.Errorf("NewRepository: dataset is required")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := bigquery.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, opts.Dataset, opts.Classifier), nil
}

// NewRepositoryWithClient wraps an existing client. A nil classifier uses
// the default risk keywords.
func NewRepositoryWithClient(client *bigquery.Client, dataset string, classifier *risk.Classifier) *Repository {
	if classifier == nil {
		classifier = risk.Default()
	}
	return &Repository{
		client:     client,
		dataset:    dataset,
		classifier: classifier,
		now:        time.Now,
	}
}

// Client exposes the underlying client, e.g. for Migrate.
func (r *Repository) Client() *bigquery.Client { return r.client }

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// SaveAnalysis streams the transaction rows, then the analysis row.
func (r *Repository) SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error {
	log := logger.FromContext(ctx)

	if err := store.Validate(result); err != nil {
		return fmt.Errorf("SaveAnalysis: %w", err)
	}
	payload, err := store.EncodePayload(result)
	if err != nil {
		return fmt.Errorf("SaveAnalysis: %w", err)
	}

	now := r.now().UTC()
	if err := InsertTransactionsWithClient(ctx, r.client, r.dataset, NewTransactionRows(r.classifier, result, now)); err != nil {
		return fmt.Errorf("SaveAnalysis: %w", err)
	}
	if err := InsertAnalysisWithClient(ctx, r.client, r.dataset, NewAnalysisRow(r.classifier, result, payload, now)); err != nil {
		return fmt.Errorf("SaveAnalysis: %w", err)
	}

	log.Debug().
		Str("analysis_id", result.ID).
		Str("dataset", r.dataset).
		Int("transactions", len(result.Transactions)).
		Msg("Saved analysis to BigQuery")
	return nil
}

// GetAnalysis delegates to GetAnalysisWithClient.
func (r *Repository) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	return GetAnalysisWithClient(ctx, r.client, r.dataset, id)
}

// ListByRiskLevel delegates to ListByRiskLevelWithClient.
func (r *Repository) ListByRiskLevel(ctx context.Context, level domain.RiskLevel) ([]store.Summary, error) {
	return ListByRiskLevelWithClient(ctx, r.client, r.dataset, level)
}

// ListByScoreRange delegates to ListByScoreRangeWithClient.
func (r *Repository) ListByScoreRange(ctx context.Context, min, max int) ([]store.Summary, error) {
	return ListByScoreRangeWithClient(ctx, r.client, r.dataset, min, max)
}

// ListByDateRange delegates to ListByDateRangeWithClient.
func (r *Repository) ListByDateRange(ctx context.Context, from, to civil.Date) ([]store.Summary, error) {
	return ListByDateRangeWithClient(ctx, r.client, r.dataset, from, to)
}

// Stats delegates to StatsWithClient.
func (r *Repository) Stats(ctx context.Context) (store.Stats, error) {
	return StatsWithClient(ctx, r.client, r.dataset)
}

// SuspiciousTransactions delegates to SuspiciousTransactionsWithClient.
func (r *Repository) SuspiciousTransactions(ctx context.Context, analysisID string) ([]store.FlaggedTransaction, error) {
	return SuspiciousTransactionsWithClient(ctx, r.client, r.dataset, analysisID)
}

var _ store.Store = (*Repository)(nil)
