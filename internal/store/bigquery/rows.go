package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/risk"
	"github.com/dvloznov/finance-insights/internal/store"
)

// AnalysisRow is one row of the analyses table. Its presence marks the
// analysis' transaction rows as complete.
type AnalysisRow struct {
	AnalysisID     string `bigquery:"analysis_id"`     // REQUIRED
	UserID         string `bigquery:"user_id"`         // NULLABLE
	ConversationID string `bigquery:"conversation_id"` // NULLABLE
	FileName       string `bigquery:"file_name"`       // NULLABLE
	Bank           string `bigquery:"bank"`            // REQUIRED

	CreatedTS   time.Time  `bigquery:"created_ts"`   // REQUIRED
	CreatedDate civil.Date `bigquery:"created_date"` // REQUIRED, partition column

	CreditScore int64  `bigquery:"credit_score"` // REQUIRED
	RiskLevel   string `bigquery:"risk_level"`   // REQUIRED

	TotalIncome   *big.Rat `bigquery:"total_income"`   // REQUIRED NUMERIC
	TotalExpenses *big.Rat `bigquery:"total_expenses"` // REQUIRED NUMERIC
	Balance       *big.Rat `bigquery:"balance"`        // REQUIRED NUMERIC

	TransactionCount       int64 `bigquery:"transaction_count"`
	SuspiciousTransactions int64 `bigquery:"suspicious_transactions"`

	Payload    bigquery.NullJSON `bigquery:"payload"`     // full AnalysisResult
	InsertedTS time.Time         `bigquery:"inserted_ts"` // REQUIRED, newest row wins on re-save
}

// TransactionRow is one row of the analysis_transactions table.
type TransactionRow struct {
	AnalysisID string `bigquery:"analysis_id"` // REQUIRED
	Position   int64  `bigquery:"position"`    // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Description     string     `bigquery:"description"`      // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Direction       string     `bigquery:"direction"`        // REQUIRED, credit or debit

	CategoryName       bigquery.NullString `bigquery:"category_name"`    // NULLABLE
	SubcategoryName    bigquery.NullString `bigquery:"subcategory_name"` // NULLABLE
	CategoryConfidence float64             `bigquery:"category_confidence"`

	IsSuspicious bool    `bigquery:"is_suspicious"`
	IsRecurring  bool    `bigquery:"is_recurring"`
	RiskScore    float64 `bigquery:"risk_score"`

	InsertedTS time.Time `bigquery:"inserted_ts"` // REQUIRED
}

func numeric(f float64) *big.Rat {
	// NUMERIC keeps 9 fractional digits
	return decimal.NewFromFloat(f).Round(9).Rat()
}

func ratFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// NewAnalysisRow builds the analyses row of result.
func NewAnalysisRow(c *risk.Classifier, result *domain.AnalysisResult, payload string, now time.Time) *AnalysisRow {
	sum := store.SummaryOf(c, result)
	return &AnalysisRow{
		AnalysisID:             sum.ID,
		UserID:                 sum.UserID,
		ConversationID:         result.ConversationID,
		FileName:               sum.FileName,
		Bank:                   sum.Bank,
		CreatedTS:              sum.CreatedAt,
		CreatedDate:            civil.DateOf(sum.CreatedAt),
		CreditScore:            int64(sum.CreditScore),
		RiskLevel:              string(sum.RiskLevel),
		TotalIncome:            numeric(sum.TotalIncome),
		TotalExpenses:          numeric(sum.TotalExpenses),
		Balance:                numeric(sum.Balance),
		TransactionCount:       int64(sum.TransactionCount),
		SuspiciousTransactions: int64(sum.SuspiciousTransactions),
		Payload:                bigquery.NullJSON{JSONVal: payload, Valid: true},
		InsertedTS:             now,
	}
}

// NewTransactionRows builds the transaction rows of result in extraction order.
func NewTransactionRows(c *risk.Classifier, result *domain.AnalysisResult, now time.Time) []*TransactionRow {
	rows := make([]*TransactionRow, 0, len(result.Transactions))
	for i, t := range result.Transactions {
		f := store.Flags(c, t)
		rows = append(rows, &TransactionRow{
			AnalysisID:         result.ID,
			Position:           int64(i),
			TransactionDate:    t.Date,
			Description:        t.Description,
			Amount:             numeric(t.Amount),
			Direction:          string(t.Type),
			CategoryName:       nullString(t.Category),
			SubcategoryName:    nullString(t.Subcategory),
			CategoryConfidence: t.CategoryConfidence,
			IsSuspicious:       f.IsSuspicious,
			IsRecurring:        f.IsRecurring,
			RiskScore:          f.RiskScore,
			InsertedTS:         now,
		})
	}
	return rows
}

// Summary converts the row to the store's summary view.
func (r *AnalysisRow) Summary() store.Summary {
	return store.Summary{
		ID:                     r.AnalysisID,
		UserID:                 r.UserID,
		FileName:               r.FileName,
		Bank:                   r.Bank,
		CreatedAt:              r.CreatedTS.UTC(),
		CreditScore:            int(r.CreditScore),
		RiskLevel:              domain.RiskLevel(r.RiskLevel),
		TotalIncome:            ratFloat(r.TotalIncome),
		TotalExpenses:          ratFloat(r.TotalExpenses),
		Balance:                ratFloat(r.Balance),
		TransactionCount:       int(r.TransactionCount),
		SuspiciousTransactions: int(r.SuspiciousTransactions),
	}
}

// Flagged converts the row to the store's transaction view.
func (r *TransactionRow) Flagged() store.FlaggedTransaction {
	return store.FlaggedTransaction{
		Transaction: domain.Transaction{
			Date:               r.TransactionDate,
			Description:        r.Description,
			Amount:             ratFloat(r.Amount),
			Type:               domain.TransactionType(r.Direction),
			Category:           r.CategoryName.StringVal,
			Subcategory:        r.SubcategoryName.StringVal,
			CategoryConfidence: r.CategoryConfidence,
		},
		TransactionFlags: store.TransactionFlags{
			IsSuspicious: r.IsSuspicious,
			IsRecurring:  r.IsRecurring,
			RiskScore:    r.RiskScore,
		},
	}
}
