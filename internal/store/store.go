// Package store defines the analysis store collaborator. An analysis and its
// transactions are written as one unit; readers never observe a partial write.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/risk"
)

// Store persists analyses.
type Store interface {
	// SaveAnalysis writes the analysis row and its transaction rows atomically.
	SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error

	// GetAnalysis returns the full stored result or an error wrapping domain.ErrNotFound.
	GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error)

	// ListByRiskLevel returns analyses of one risk level, newest first.
	ListByRiskLevel(ctx context.Context, level domain.RiskLevel) ([]Summary, error)

	// ListByScoreRange returns analyses with min <= credit score <= max, highest first.
	ListByScoreRange(ctx context.Context, min, max int) ([]Summary, error)

	// ListByDateRange returns analyses created between from and to inclusive, newest first.
	ListByDateRange(ctx context.Context, from, to civil.Date) ([]Summary, error)

	// Stats aggregates every stored analysis.
	Stats(ctx context.Context) (Stats, error)

	// SuspiciousTransactions returns the flagged transaction rows of one analysis.
	SuspiciousTransactions(ctx context.Context, analysisID string) ([]FlaggedTransaction, error)

	Close() error
}

// Summary is the row-level view of a stored analysis.
type Summary struct {
	ID                     string           `json:"id"`
	UserID                 string           `json:"userId,omitempty"`
	FileName               string           `json:"fileName,omitempty"`
	Bank                   string           `json:"bank"`
	CreatedAt              time.Time        `json:"createdAt"`
	CreditScore            int              `json:"creditScore"`
	RiskLevel              domain.RiskLevel `json:"riskLevel"`
	TotalIncome            float64          `json:"totalIncome"`
	TotalExpenses          float64          `json:"totalExpenses"`
	Balance                float64          `json:"balance"`
	TransactionCount       int              `json:"transactionCount"`
	SuspiciousTransactions int              `json:"suspiciousTransactions"`
}

// Stats summarizes all stored analyses.
type Stats struct {
	TotalCount           int                      `json:"totalCount"`
	AverageScore         float64                  `json:"averageScore"`
	TotalIncome          float64                  `json:"totalIncome"`
	TotalExpenses        float64                  `json:"totalExpenses"`
	PositiveBalanceCount int                      `json:"positiveBalanceCount"`
	SuspiciousCount      int                      `json:"suspiciousCount"`
	RiskDistribution     map[domain.RiskLevel]int `json:"riskDistribution"`
}

// TransactionFlags are the per-transaction risk columns computed at write time.
type TransactionFlags struct {
	IsSuspicious bool    `json:"isSuspicious"`
	IsRecurring  bool    `json:"isRecurring"`
	RiskScore    float64 `json:"riskScore"`
}

// FlaggedTransaction is a stored transaction row.
type FlaggedTransaction struct {
	domain.Transaction
	TransactionFlags
}

// Flags evaluates tx with the classifier.
func Flags(c *risk.Classifier, tx domain.Transaction) TransactionFlags {
	return TransactionFlags{
		IsSuspicious: c.IsSuspicious(tx),
		IsRecurring:  c.IsRecurring(tx),
		RiskScore:    c.Score(tx),
	}
}

// SummaryOf builds the summary row of result. Suspicious transactions are
// counted with c.
func SummaryOf(c *risk.Classifier, result *domain.AnalysisResult) Summary {
	fa := result.FinancialAnalysis
	suspicious, _ := c.Counts(result.Transactions)
	return Summary{
		ID:                     result.ID,
		UserID:                 result.UserID,
		FileName:               result.FileName,
		Bank:                   result.BankDetection.Bank,
		CreatedAt:              result.CreatedAt.UTC(),
		CreditScore:            fa.CreditScore,
		RiskLevel:              fa.RiskLevel,
		TotalIncome:            fa.TotalCredits,
		TotalExpenses:          fa.TotalDebits,
		Balance:                fa.FinalBalance,
		TransactionCount:       len(result.Transactions),
		SuspiciousTransactions: suspicious,
	}
}

// Validate rejects results that cannot be stored.
func Validate(result *domain.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("nil analysis result")
	}
	if result.ID == "" {
		return fmt.Errorf("analysis ID is required")
	}
	if result.CreatedAt.IsZero() {
		return fmt.Errorf("analysis %s has no creation time", result.ID)
	}
	return nil
}

// EncodePayload serializes the full result for storage.
func EncodePayload(result *domain.AnalysisResult) (string, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("EncodePayload: %w", err)
	}
	return string(b), nil
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(payload string) (*domain.AnalysisResult, error) {
	var r domain.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("DecodePayload: %w", err)
	}
	return &r, nil
}

// DayBounds converts an inclusive civil date range to [start, end) instants in UTC.
func DayBounds(from, to civil.Date) (time.Time, time.Time) {
	return from.In(time.UTC), to.AddDays(1).In(time.UTC)
}
