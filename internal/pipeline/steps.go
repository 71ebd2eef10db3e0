package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/finance-insights/internal/bank"
	"github.com/dvloznov/finance-insights/internal/categorize"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/extract"
	"github.com/dvloznov/finance-insights/internal/fraud"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/metrics"
	"github.com/dvloznov/finance-insights/internal/report"
	"github.com/dvloznov/finance-insights/internal/validation"
)

// PipelineStep represents a single stage of a document analysis.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Text string

	Detection    domain.BankDetection
	Extraction   extract.Extraction
	Transactions []domain.Transaction
	Analysis     domain.FinancialAnalysis
	Alerts       []domain.FraudAlert
	Validation   *domain.ValidationResult
	Report       domain.ReportData
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially. The first failure stops the run and
// is returned as a *domain.StageError naming the step.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return &domain.StageError{Stage: step.Name(), Err: err}
		}
		if err := step.Execute(ctx, state); err != nil {
			var se *domain.StageError
			if errors.As(err, &se) {
				return err
			}
			return &domain.StageError{Stage: step.Name(), Err: err}
		}
	}
	return nil
}

// DetectBankStep identifies the issuing bank. It never fails.
type DetectBankStep struct{}

func (s *DetectBankStep) Name() string { return StageDetect }

func (s *DetectBankStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Detection = bank.Detect(state.Text)
	log := logger.FromContext(ctx)
	log.Debug().
		Str("bank", state.Detection.Bank).
		Float64("confidence", state.Detection.Confidence).
		Msg("Bank detected")
	return nil
}

// ExtractTransactionsStep runs the extraction strategies in order.
type ExtractTransactionsStep struct {
	Strategies []extract.Strategy
}

func (s *ExtractTransactionsStep) Name() string { return StageExtract }

func (s *ExtractTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	doc := extract.Document{Text: state.Text, Bank: state.Detection.Bank}
	ex, err := extract.FirstSuccess(ctx, doc, s.Strategies...)
	if err != nil {
		return err
	}
	state.Extraction = ex
	state.Transactions = ex.Transactions
	return nil
}

// CategorizeStep assigns categories in place.
type CategorizeStep struct {
	Categorizer *categorize.Categorizer
}

func (s *CategorizeStep) Name() string { return StageCategorize }

func (s *CategorizeStep) Execute(_ context.Context, state *PipelineState) error {
	s.Categorizer.Apply(state.Transactions)
	return nil
}

// AnalyzeStep computes metrics and fraud alerts concurrently. Both only read
// the transaction slice.
type AnalyzeStep struct {
	Engine   *metrics.Engine
	Detector *fraud.Detector
}

func (s *AnalyzeStep) Name() string { return StageAnalyze }

func (s *AnalyzeStep) Execute(ctx context.Context, state *PipelineState) error {
	var (
		fa     domain.FinancialAnalysis
		alerts []domain.FraudAlert
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fa = s.Engine.Compute(state.Transactions)
		return gctx.Err()
	})
	g.Go(func() error {
		alerts = s.Detector.Detect(state.Transactions)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return err
	}

	state.Analysis = fa
	state.Alerts = alerts
	log := logger.FromContext(ctx)
	log.Debug().
		Int("credit_score", fa.CreditScore).
		Str("risk_level", string(fa.RiskLevel)).
		Int("fraud_alerts", len(alerts)).
		Msg("Analysis computed")
	return nil
}

// CrossValidateStep runs the optional second pass and merges its score into
// the analysis accuracy. Without a validator the extraction confidence is used.
type CrossValidateStep struct {
	Validator *validation.Validator
}

func (s *CrossValidateStep) Name() string { return StageValidate }

func (s *CrossValidateStep) Execute(ctx context.Context, state *PipelineState) error {
	confidence := state.Extraction.Confidence
	state.Analysis.Accuracy = confidence
	if s.Validator == nil {
		return nil
	}

	fa := state.Analysis
	res := s.Validator.Validate(ctx, state.Text, validation.Subject{
		Transactions: state.Transactions,
		Confidence:   confidence,
		Analysis:     &fa,
	}, state.Detection.Bank)

	state.Validation = &res
	state.Analysis.Accuracy = (confidence + res.Score) / 2
	return nil
}

// ReportStep builds the chart-ready report.
type ReportStep struct{}

func (s *ReportStep) Name() string { return StageReport }

func (s *ReportStep) Execute(_ context.Context, state *PipelineState) error {
	state.Report = report.Generate(report.Input{
		Transactions: state.Transactions,
		Analysis:     state.Analysis,
	})
	return nil
}
