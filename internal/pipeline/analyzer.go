package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-insights/internal/categorize"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/extract"
	"github.com/dvloznov/finance-insights/internal/fraud"
	"github.com/dvloznov/finance-insights/internal/llm"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/metrics"
	"github.com/dvloznov/finance-insights/internal/risk"
	"github.com/dvloznov/finance-insights/internal/validation"
)

// Options wires the analysis stages. Zero values select the defaults.
type Options struct {
	// Completer backs LLM extraction and cross-validation. May be nil.
	// When set, the LLM strategy runs ahead of the regex strategies.
	Completer llm.Completer

	// RegexOnly keeps the completer out of extraction; cross-validation
	// still uses it.
	RegexOnly bool

	CrossValidation config.CrossValidationConfig
	BaseScore       int
	Classifier      *risk.Classifier
	Rules           []categorize.Rule
	Families        []fraud.Family
	Parser          *extract.Parser

	Now func() time.Time
}

// Analyzer runs the full analysis of one document's text. It holds no
// per-document state and may be shared across goroutines.
type Analyzer struct {
	pipeline *Pipeline
	now      func() time.Time
}

// NewAnalyzer builds the step pipeline from opts.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Parser == nil {
		opts.Parser = extract.NewParser(extract.WithClock(opts.Now))
	}

	strategies := []extract.Strategy{
		extract.ProfileStrategy{Parser: opts.Parser},
		extract.GenericStrategy{Parser: opts.Parser},
	}
	if opts.Completer != nil && !opts.RegexOnly {
		strategies = append([]extract.Strategy{extract.LLMStrategy{Completer: opts.Completer}}, strategies...)
	}

	return &Analyzer{
		pipeline: NewPipeline(
			&DetectBankStep{},
			&ExtractTransactionsStep{Strategies: strategies},
			&CategorizeStep{Categorizer: categorize.NewCategorizer(opts.Rules...)},
			&AnalyzeStep{
				Engine:   metrics.NewEngine(opts.BaseScore, opts.Classifier),
				Detector: fraud.NewDetector(opts.Families...),
			},
			&CrossValidateStep{Validator: validation.NewValidator(opts.Completer, opts.CrossValidation)},
			&ReportStep{},
		),
		now: opts.Now,
	}
}

// NewAnalyzerFromConfig builds an Analyzer from the loaded configuration.
func NewAnalyzerFromConfig(cfg *config.Config, completer llm.Completer) *Analyzer {
	kw := cfg.Keywords.Merge(risk.DefaultKeywords())
	return NewAnalyzer(Options{
		Completer:       completer,
		RegexOnly:       !cfg.Extraction.UseLLM,
		CrossValidation: cfg.CrossValidation,
		BaseScore:       cfg.Scoring.BaseScore,
		Classifier:      risk.NewClassifier(kw),
	})
}

// Input is one document to analyze.
type Input struct {
	Text           string
	FileName       string
	UserID         string
	ConversationID string
}

// AnalyzeText runs detect, extract, categorize, metrics and fraud,
// cross-validation and report over in.Text. Blank text fails with
// domain.ErrContentExtraction; stage failures are *domain.StageError.
func (a *Analyzer) AnalyzeText(ctx context.Context, in Input) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("AnalyzeText: %w", domain.ErrContentExtraction)
	}

	start := a.now()
	log := logger.FromContext(ctx).With().Str("file", in.FileName).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{Text: in.Text}
	if err := a.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Analysis failed")
		return nil, err
	}

	elapsed := a.now().Sub(start)
	result := &domain.AnalysisResult{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		ConversationID:    in.ConversationID,
		FileName:          in.FileName,
		CreatedAt:         start.UTC(),
		BankDetection:     state.Detection,
		Transactions:      state.Transactions,
		FinancialAnalysis: state.Analysis,
		FraudAlerts:       state.Alerts,
		ReportData:        state.Report,
		Validation:        state.Validation,
		ProcessingMetrics: domain.ProcessingMetrics{
			TotalTime:  elapsed.Milliseconds(),
			Confidence: state.Analysis.Accuracy,
			Method:     state.Extraction.Method,
			Version:    Version,
		},
	}

	log.Info().
		Str("analysis_id", result.ID).
		Str("bank", result.BankDetection.Bank).
		Int("transactions", len(result.Transactions)).
		Int("credit_score", result.FinancialAnalysis.CreditScore).
		Dur("duration", elapsed).
		Msg("Analysis completed")
	return result, nil
}
