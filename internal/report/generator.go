// Package report turns an analysis into chart-ready report data and renders
// it as JSON, HTML or spreadsheet rows. Everything here is pure.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/dvloznov/finance-insights/internal/domain"
)

const (
	topCategories      = 10
	defaultRiskScore   = 50
	neutralConsistency = 50

	creditBenchmark          = 650
	riskBenchmark            = 70
	consistencyBenchmark     = 80
	diversificationBenchmark = 75
)

var riskScores = map[domain.RiskLevel]int{
	domain.RiskLow:    25,
	domain.RiskMedium: 55,
	domain.RiskHigh:   85,
}

var monthAbbrev = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Input is everything the generator reads.
type Input struct {
	Transactions []domain.Transaction
	Analysis     domain.FinancialAnalysis
}

// Generate builds the report for in.
func Generate(in Input) domain.ReportData {
	fa := in.Analysis

	categorized := make(map[string]float64, len(fa.CategoryBreakdown))
	for cat, s := range fa.CategoryBreakdown {
		categorized[cat] = s.Total
	}

	return domain.ReportData{
		Period:              Period(in.Transactions),
		TotalIncome:         fa.TotalCredits,
		TotalExpenses:       fa.TotalDebits,
		NetFlow:             fa.FinalBalance,
		CreditScore:         fa.CreditScore,
		RiskScore:           RiskScore(fa.RiskLevel),
		Recommendations:     Recommendations(fa),
		CategorizedExpenses: categorized,
		Charts: domain.Charts{
			MonthlyFlow:          MonthlyFlow(in.Transactions),
			CategoryDistribution: CategoryDistribution(fa.CategoryBreakdown),
			RiskMetrics:          RiskMetrics(in.Transactions, fa),
		},
	}
}

// Period formats the first and last transaction dates as "dd/mm/yyyy a dd/mm/yyyy".
func Period(txs []domain.Transaction) string {
	var first, last domain.Transaction
	found := false
	for _, tx := range txs {
		if !tx.Date.IsValid() {
			continue
		}
		if !found || tx.Date.Before(first.Date) {
			first = tx
		}
		if !found || tx.Date.After(last.Date) {
			last = tx
		}
		found = true
	}
	if !found {
		return "Período indeterminado"
	}
	return formatDate(first) + " a " + formatDate(last)
}

func formatDate(tx domain.Transaction) string {
	d := tx.Date
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// RiskScore maps a risk level to 25/55/85, or 50 when unknown.
func RiskScore(level domain.RiskLevel) int {
	if s, ok := riskScores[level]; ok {
		return s
	}
	return defaultRiskScore
}

// MonthLabel renders "2024-01" as "jan/2024".
func MonthLabel(key string) string {
	if len(key) != 7 {
		return key
	}
	m, err := strconv.Atoi(key[5:])
	if err != nil || m < 1 || m > 12 {
		return key
	}
	return monthAbbrev[m-1] + "/" + key[:4]
}

// MonthlyFlow groups income and expenses by calendar month in ascending order.
func MonthlyFlow(txs []domain.Transaction) []domain.MonthlyFlow {
	byMonth := map[string]*domain.MonthlyFlow{}
	for _, tx := range txs {
		key := tx.MonthKey()
		f, ok := byMonth[key]
		if !ok {
			f = &domain.MonthlyFlow{Month: key, Label: MonthLabel(key)}
			byMonth[key] = f
		}
		if tx.IsCredit() {
			f.Income += tx.Amount
		} else {
			f.Expenses += tx.Amount
		}
	}

	out := make([]domain.MonthlyFlow, 0, len(byMonth))
	for _, f := range byMonth {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// CategoryDistribution returns the ten largest spending categories.
func CategoryDistribution(breakdown map[string]domain.CategoryStats) []domain.CategorySlice {
	out := make([]domain.CategorySlice, 0, len(breakdown))
	for cat, s := range breakdown {
		out = append(out, domain.CategorySlice{Category: cat, Value: s.Total, Percentage: s.Percentage})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > topCategories {
		out = out[:topCategories]
	}
	return out
}

// RiskMetrics compares the analysis against fixed benchmarks.
func RiskMetrics(txs []domain.Transaction, fa domain.FinancialAnalysis) []domain.RiskMetric {
	return []domain.RiskMetric{
		{Metric: "Score de Crédito", Score: float64(fa.CreditScore), Benchmark: creditBenchmark},
		{Metric: "Risco Geral", Score: float64(100 - RiskScore(fa.RiskLevel)), Benchmark: riskBenchmark},
		{Metric: "Consistência", Score: ConsistencyScore(txs), Benchmark: consistencyBenchmark},
		{Metric: "Diversificação", Score: DiversificationScore(fa.CategoryBreakdown), Benchmark: diversificationBenchmark},
	}
}

// ConsistencyScore is 100 minus the coefficient of variation of monthly
// income, in percent. Too little data scores 50.
func ConsistencyScore(txs []domain.Transaction) float64 {
	if len(txs) < 3 {
		return neutralConsistency
	}
	monthly := map[string]float64{}
	for _, tx := range txs {
		if tx.IsCredit() {
			monthly[tx.MonthKey()] += tx.Amount
		}
	}
	if len(monthly) < 2 {
		return neutralConsistency
	}

	var sum float64
	for _, v := range monthly {
		sum += v
	}
	avg := sum / float64(len(monthly))
	var variance float64
	for _, v := range monthly {
		variance += (v - avg) * (v - avg)
	}
	cv := 1.0
	if avg > 0 {
		cv = math.Sqrt(variance/float64(len(monthly))) / avg
	}
	return math.Max(0, math.Min(100, 100-cv*100))
}

// DiversificationScore is the inverted Herfindahl index of spending shares
// rescaled to 0-100.
func DiversificationScore(breakdown map[string]domain.CategoryStats) float64 {
	var total float64
	for _, s := range breakdown {
		total += s.Total
	}
	n := len(breakdown)
	if n <= 1 || total == 0 {
		return 0
	}

	var hhi float64
	for _, s := range breakdown {
		share := s.Total / total
		hhi += share * share
	}
	minHHI := 1 / float64(n)
	return math.Max(0, math.Min(100, (1-hhi)/(1-minHHI)*100))
}

// Recommendations appends the report rules to the analysis recommendations.
func Recommendations(fa domain.FinancialAnalysis) []string {
	recs := append([]string{}, fa.Recommendations...)

	if top, pct, ok := topCategory(fa.CategoryBreakdown); ok {
		switch {
		case pct > 50:
			recs = append(recs, fmt.Sprintf("⚠️ Atenção: %.1f%% dos gastos concentrados em %s. Considere diversificar.", pct, top))
		case pct > 35:
			recs = append(recs, fmt.Sprintf("📌 %.1f%% dos gastos estão em %s. Acompanhe essa categoria de perto.", pct, top))
		}
	}

	switch {
	case fa.CreditScore < 400:
		recs = append(recs, "📉 Score de crédito baixo. Priorize redução de dívidas e regularize pendências.")
	case fa.CreditScore < 600:
		recs = append(recs, "📊 Score médio. Mantenha consistência de pagamentos para melhorar.")
	default:
		recs = append(recs, "✅ Excelente score de crédito. Considere produtos premium.")
	}

	if fa.CategoryBreakdown["Alimentação"].Percentage > 30 {
		recs = append(recs, "🍽️ Gastos com alimentação elevados. Considere planejamento de refeições.")
	}
	if fa.CategoryBreakdown["Entretenimento"].Percentage > 20 {
		recs = append(recs, "🎬 Gastos com entretenimento representativos. Avalie assinaturas desnecessárias.")
	}
	if fa.CategoryBreakdown["Investimentos"].Total > 0 {
		recs = append(recs, "💰 Ótimo! Você está investindo. Continue com aportes regulares.")
	} else {
		recs = append(recs, "💡 Considere iniciar investimentos, mesmo com pequenos valores.")
	}

	if fa.RiskLevel == domain.RiskHigh {
		recs = append(recs, "🚨 Padrões de alto risco detectados. Monitore transações suspeitas.")
	}
	return recs
}

func topCategory(breakdown map[string]domain.CategoryStats) (string, float64, bool) {
	var (
		name string
		pct  = -1.0
	)
	for cat, s := range breakdown {
		if s.Percentage > pct || (s.Percentage == pct && cat < name) {
			name, pct = cat, s.Percentage
		}
	}
	return name, pct, name != ""
}
