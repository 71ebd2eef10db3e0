package pipeline

import (
	"context"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// TextSource reads document text from a local path or a gs:// URI.
type TextSource interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// AnalysisStore persists an analysis and its transactions as one unit.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error
}

// Publisher pushes a finished analysis to an external destination.
type Publisher interface {
	Publish(ctx context.Context, result *domain.AnalysisResult) error
}

// TextAnalyzer is the part of Analyzer the job handler needs.
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, in Input) (*domain.AnalysisResult, error)
}
