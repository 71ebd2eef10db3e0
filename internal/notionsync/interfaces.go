package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// AnalysisPages is what the Publisher needs from Notion: one page per
// analysis, found by its Analysis ID property.
type AnalysisPages interface {
	// FindPage returns the ID of the page holding analysisID, or "" when
	// the database has none.
	FindPage(ctx context.Context, databaseID, analysisID string) (string, error)

	// CreatePage adds a page to databaseID and returns its ID.
	CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (string, error)

	// UpdatePage overwrites props on an existing page.
	UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) error
}
