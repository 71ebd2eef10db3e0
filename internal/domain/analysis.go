package domain

import "time"

// BankDetection identifies the issuing bank of a document.
// Bank is "unknown" when no profile matched; it is never empty.
type BankDetection struct {
	Bank       string  `json:"bank"`
	BankName   string  `json:"bankName"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// RiskLevel is the coarse classification derived from the credit score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// CategoryStats aggregates debit transactions of one category.
type CategoryStats struct {
	Total         float64 `json:"total"`
	Count         int     `json:"count"`
	AverageAmount float64 `json:"averageAmount"`
	Confidence    float64 `json:"confidence"`
	Percentage    float64 `json:"percentage"`
}

// FinancialAnalysis is recomputed wholesale for every transaction set.
type FinancialAnalysis struct {
	TotalCredits      float64                  `json:"totalCredits"`
	TotalDebits       float64                  `json:"totalDebits"`
	FinalBalance      float64                  `json:"finalBalance"`
	TransactionCount  int                      `json:"transactionCount"`
	CreditScore       int                      `json:"creditScore"`
	RiskLevel         RiskLevel                `json:"riskLevel"`
	CategoryBreakdown map[string]CategoryStats `json:"categoryBreakdown"`
	Recommendations   []string                 `json:"recommendations"`
	Accuracy          float64                  `json:"accuracy"`

	IncomeConsistency    float64 `json:"incomeConsistency"`
	SpendingVolatility   float64 `json:"spendingVolatility"`
	DebtServiceRatio     float64 `json:"debtServiceRatio"`
	DiversificationIndex float64 `json:"diversificationIndex"`
	CashFlowVolatility   float64 `json:"cashFlowVolatility"`
	IncomeTrend          float64 `json:"incomeTrend"`
	ExpenseTrend         float64 `json:"expenseTrend"`
	SuspiciousCount      int     `json:"suspiciousCount"`
	GamblingCount        int     `json:"gamblingCount"`
}

// Severity ranks fraud alerts.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight returns 1 for low through 4 for critical, 0 for unknown values.
func (s Severity) Weight() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// FraudAlert is one matched suspicious-pattern family.
type FraudAlert struct {
	Pattern        string   `json:"pattern"`
	Severity       Severity `json:"severity"`
	Confidence     float64  `json:"confidence"`
	Description    string   `json:"description"`
	Evidence       []string `json:"evidence"`
	Recommendation string   `json:"recommendation"`
}

// ValidationResult is the advisory outcome of cross-validation.
type ValidationResult struct {
	IsValid     bool     `json:"isValid"`
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// MonthlyFlow is one point of the income/expense series.
type MonthlyFlow struct {
	Month    string  `json:"month"`
	Label    string  `json:"label"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// CategorySlice is one entry of the category distribution chart.
type CategorySlice struct {
	Category   string  `json:"category"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// RiskMetric compares a score against its benchmark.
type RiskMetric struct {
	Metric    string  `json:"metric"`
	Score     float64 `json:"score"`
	Benchmark float64 `json:"benchmark"`
}

// Charts holds the chart-ready series of a report.
type Charts struct {
	MonthlyFlow          []MonthlyFlow   `json:"monthlyFlow"`
	CategoryDistribution []CategorySlice `json:"categoryDistribution"`
	RiskMetrics          []RiskMetric    `json:"riskMetrics"`
}

// ReportData is the exportable summary of an analysis.
type ReportData struct {
	Period              string             `json:"period"`
	TotalIncome         float64            `json:"totalIncome"`
	TotalExpenses       float64            `json:"totalExpenses"`
	NetFlow             float64            `json:"netFlow"`
	CreditScore         int                `json:"creditScore"`
	RiskScore           int                `json:"riskScore"`
	Recommendations     []string           `json:"recommendations"`
	CategorizedExpenses map[string]float64 `json:"categorizedExpenses"`
	Charts              Charts             `json:"charts"`
}

// ProcessingMetrics describes how an analysis was produced.
type ProcessingMetrics struct {
	TotalTime  int64   `json:"totalTime"` // milliseconds
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Version    string  `json:"version"`
}

// AnalysisResult is the aggregate handed to the analysis store and to consumers.
type AnalysisResult struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId,omitempty"`
	ConversationID    string            `json:"conversationId,omitempty"`
	FileName          string            `json:"fileName,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	BankDetection     BankDetection     `json:"bankDetection"`
	Transactions      []Transaction     `json:"transactions"`
	FinancialAnalysis FinancialAnalysis `json:"financialAnalysis"`
	FraudAlerts       []FraudAlert      `json:"fraudAlerts"`
	ReportData        ReportData        `json:"reportData"`
	Validation        *ValidationResult `json:"validation,omitempty"`
	ProcessingMetrics ProcessingMetrics `json:"processingMetrics"`
}
