package pipeline

import (
	"context"
	"fmt"
	"path"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// JobHandler executes queued analysis jobs: read the text, analyze it, save
// the result and optionally publish it. Source, Store and Publisher may be nil.
type JobHandler struct {
	Analyzer  TextAnalyzer
	Source    TextSource
	Store     AnalysisStore
	Publisher Publisher
}

// Handle implements jobs.JobHandler. Nothing is saved unless the analysis
// succeeds; a publishing failure is logged and does not fail the job.
func (h *JobHandler) Handle(ctx context.Context, job *jobs.AnalysisJob) (string, error) {
	log := logger.FromContext(ctx)

	text := job.Text
	if text == "" {
		if job.DocumentURI == "" {
			return "", &domain.StageError{Stage: StageFetch, Err: fmt.Errorf("job has neither text nor document URI: %w", domain.ErrContentExtraction)}
		}
		if h.Source == nil {
			return "", &domain.StageError{Stage: StageFetch, Err: fmt.Errorf("no source configured for %s", job.DocumentURI)}
		}
		var err error
		text, err = h.Source.Fetch(ctx, job.DocumentURI)
		if err != nil {
			return "", &domain.StageError{Stage: StageFetch, Err: err}
		}
	}

	fileName := job.FileName
	if fileName == "" {
		fileName = DefaultFileName
		if job.DocumentURI != "" {
			fileName = path.Base(job.DocumentURI)
		}
	}

	result, err := h.Analyzer.AnalyzeText(ctx, Input{
		Text:           text,
		FileName:       fileName,
		UserID:         job.UserID,
		ConversationID: job.ConversationID,
	})
	if err != nil {
		return "", err
	}

	if h.Store != nil {
		if err := h.Store.SaveAnalysis(ctx, result); err != nil {
			return "", &domain.StageError{Stage: StagePersist, Err: err}
		}
	}

	if h.Publisher != nil {
		if err := h.Publisher.Publish(ctx, result); err != nil {
			log.Warn().Err(err).Str("analysis_id", result.ID).Msg("Failed to publish analysis")
		}
	}

	return result.ID, nil
}

var _ jobs.JobHandler = (&JobHandler{}).Handle
