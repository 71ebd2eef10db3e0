// Package notionsync publishes finished analyses to a Notion database, one
// page per analysis keyed by its Analysis ID property.
package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/store"
)

// Publisher writes analyses to one Notion database. Publishing the same
// analysis twice updates its page instead of creating another.
type Publisher struct {
	Pages      AnalysisPages
	DatabaseID string
}

// NewPublisher returns a Publisher for databaseID.
func NewPublisher(pages AnalysisPages, databaseID string) *Publisher {
	return &Publisher{Pages: pages, DatabaseID: databaseID}
}

// Publish creates or updates the page of result.
func (p *Publisher) Publish(ctx context.Context, result *domain.AnalysisResult) error {
	log := logger.FromContext(ctx)

	if p.DatabaseID == "" {
		return fmt.Errorf("Publish: no Notion database configured")
	}

	pageID, err := p.Pages.FindPage(ctx, p.DatabaseID, result.ID)
	if err != nil {
		return fmt.Errorf("Publish: %w", err)
	}

	props := AnalysisToNotionProperties(result)
	if pageID != "" {
		if err := p.Pages.UpdatePage(ctx, pageID, props); err != nil {
			return fmt.Errorf("Publish: %w", err)
		}
		log.Info().
			Str("analysis_id", result.ID).
			Str("page_id", pageID).
			Msg("Updated Notion page")
		return nil
	}

	pageID, err = p.Pages.CreatePage(ctx, p.DatabaseID, props)
	if err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	log.Info().
		Str("analysis_id", result.ID).
		Str("page_id", pageID).
		Msg("Created Notion page")
	return nil
}

// AnalysisLister is the part of store.Store that SyncRange reads.
type AnalysisLister interface {
	ListByDateRange(ctx context.Context, from, to civil.Date) ([]store.Summary, error)
	GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error)
}

// SyncResult counts what SyncRange did.
type SyncResult struct {
	Published int
	Failed    int
	Total     int
}

// SyncRange publishes every stored analysis created between from and to.
// A failing analysis is logged and counted; the rest are still published.
// With dryRun nothing is written to Notion.
func (p *Publisher) SyncRange(ctx context.Context, lister AnalysisLister, from, to civil.Date, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)

	summaries, err := lister.ListByDateRange(ctx, from, to)
	if err != nil {
		return SyncResult{}, fmt.Errorf("SyncRange: listing analyses: %w", err)
	}

	log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Int("analysis_count", len(summaries)).
		Bool("dry_run", dryRun).
		Msg("Starting analysis sync to Notion")

	res := SyncResult{Total: len(summaries)}
	for _, s := range summaries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if dryRun {
			log.Info().Str("analysis_id", s.ID).Msg("[DRY RUN] Would publish analysis")
			res.Published++
			continue
		}

		result, err := lister.GetAnalysis(ctx, s.ID)
		if err == nil {
			err = p.Publish(ctx, result)
		}
		if err != nil {
			log.Warn().Err(err).Str("analysis_id", s.ID).Msg("Failed to publish analysis")
			res.Failed++
			continue
		}
		res.Published++
	}

	log.Info().
		Int("published", res.Published).
		Int("failed", res.Failed).
		Int("total", res.Total).
		Msg("Analysis sync to Notion completed")
	return res, nil
}
