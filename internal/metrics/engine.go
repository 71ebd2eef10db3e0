// Package metrics aggregates transactions into totals, a heuristic credit
// score, a risk level and personalized recommendations.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/risk"
)

// Score bounds and the default base.
const (
	MinCreditScore      = 300
	MaxCreditScore      = 850
	DefaultBaseScore    = 500
	lowRiskThreshold    = 700
	mediumRiskThreshold = 500

	insufficientIncomeData = 0.5
	minIncomeTransactions  = 3
)

// Engine computes FinancialAnalysis values. It holds no per-call state.
type Engine struct {
	baseScore  int
	classifier *risk.Classifier
}

// NewEngine creates an Engine. A nil classifier uses the default keyword lists.
func NewEngine(baseScore int, classifier *risk.Classifier) *Engine {
	if baseScore == 0 {
		baseScore = DefaultBaseScore
	}
	if classifier == nil {
		classifier = risk.Default()
	}
	return &Engine{baseScore: baseScore, classifier: classifier}
}

// RiskLevelFor maps a credit score to its risk level.
func RiskLevelFor(score int) domain.RiskLevel {
	switch {
	case score >= lowRiskThreshold:
		return domain.RiskLow
	case score >= mediumRiskThreshold:
		return domain.RiskMedium
	}
	return domain.RiskHigh
}

// ClampScore bounds a raw score to [300,850].
func ClampScore(score int) int {
	return max(MinCreditScore, min(MaxCreditScore, score))
}

// Compute aggregates txs. An empty list yields zero totals and the base score.
func (e *Engine) Compute(txs []domain.Transaction) domain.FinancialAnalysis {
	income, expenses := totals(txs)
	balance := income.Sub(expenses)

	fa := domain.FinancialAnalysis{
		TotalCredits:      income.InexactFloat64(),
		TotalDebits:       expenses.InexactFloat64(),
		FinalBalance:      balance.InexactFloat64(),
		TransactionCount:  len(txs),
		CategoryBreakdown: Breakdown(txs),
	}

	if len(txs) == 0 {
		fa.CreditScore = ClampScore(e.baseScore)
		fa.RiskLevel = RiskLevelFor(fa.CreditScore)
		fa.Recommendations = Recommendations(fa)
		return fa
	}

	fa.IncomeConsistency = IncomeConsistency(txs)
	fa.SpendingVolatility = SpendingVolatility(txs)
	fa.DebtServiceRatio = e.DebtServiceRatio(txs)
	fa.DiversificationIndex = Diversification(txs)
	fa.CashFlowVolatility = CashFlowVolatility(txs)
	fa.IncomeTrend, fa.ExpenseTrend = Trends(txs)
	fa.SuspiciousCount, fa.GamblingCount = e.classifier.Counts(txs)

	fa.CreditScore = e.creditScore(fa)
	fa.RiskLevel = RiskLevelFor(fa.CreditScore)
	fa.Recommendations = Recommendations(fa)
	return fa
}

func (e *Engine) creditScore(fa domain.FinancialAnalysis) int {
	score := e.baseScore
	income := fa.TotalCredits

	switch {
	case income > 15000:
		score += 150
	case income > 8000:
		score += 100
	case income > 4000:
		score += 50
	case income > 2000:
		score += 25
	default:
		score -= 50
	}

	var ratio float64
	if income > 0 {
		ratio = fa.FinalBalance / income
	}
	switch {
	case ratio > 0.3:
		score += 120
	case ratio > 0.1:
		score += 80
	case ratio > 0:
		score += 40
	case ratio > -0.1:
	default:
		score -= 100
	}

	score += int(fa.IncomeConsistency * 100)
	score += int((1 - fa.SpendingVolatility) * 75)
	score -= fa.SuspiciousCount*25 + fa.GamblingCount*50

	switch {
	case fa.DebtServiceRatio < 0.2:
		score += 50
	case fa.DebtServiceRatio < 0.4:
		score += 25
	case fa.DebtServiceRatio < 0.6:
	default:
		score -= 75
	}

	return ClampScore(score)
}

func totals(txs []domain.Transaction) (income, expenses decimal.Decimal) {
	for _, tx := range txs {
		amount := decimal.NewFromFloat(math.Abs(tx.Amount))
		switch tx.Type {
		case domain.TypeCredit:
			income = income.Add(amount)
		case domain.TypeDebit:
			expenses = expenses.Add(amount)
		}
	}
	return income, expenses
}

// IncomeConsistency is one minus the coefficient of variation of monthly
// income, in [0,1]. Fewer than three credits give 0.5.
func IncomeConsistency(txs []domain.Transaction) float64 {
	monthly := map[string]float64{}
	credits := 0
	for _, tx := range txs {
		if tx.IsCredit() {
			credits++
			monthly[tx.MonthKey()] += math.Abs(tx.Amount)
		}
	}
	if credits < minIncomeTransactions {
		return insufficientIncomeData
	}

	sums := make([]float64, 0, len(monthly))
	for _, v := range monthly {
		sums = append(sums, v)
	}
	m := mean(sums)
	cv := 1.0
	if m > 0 {
		cv = stdDev(sums) / m
	}
	return math.Max(1-math.Min(cv, 1), 0)
}

// SpendingVolatility is the coefficient of variation of debit amounts, capped at 1.
func SpendingVolatility(txs []domain.Transaction) float64 {
	var amounts []float64
	for _, tx := range txs {
		if tx.IsDebit() {
			amounts = append(amounts, math.Abs(tx.Amount))
		}
	}
	m := mean(amounts)
	if m == 0 {
		return 0
	}
	return math.Min(stdDev(amounts)/m, 1)
}

// DebtServiceRatio is the share of income spent on debt-keyword debits.
func (e *Engine) DebtServiceRatio(txs []domain.Transaction) float64 {
	var debt, income float64
	for _, tx := range txs {
		switch {
		case tx.IsCredit():
			income += math.Abs(tx.Amount)
		case e.classifier.IsDebtPayment(tx):
			debt += math.Abs(tx.Amount)
		}
	}
	if income == 0 {
		return 0
	}
	return debt / income
}

// Diversification is the normalized Shannon entropy of income by category.
// A single income category yields 0.
func Diversification(txs []domain.Transaction) float64 {
	byCategory := map[string]float64{}
	var total float64
	for _, tx := range txs {
		if tx.IsCredit() {
			byCategory[tx.Category] += math.Abs(tx.Amount)
			total += math.Abs(tx.Amount)
		}
	}
	if len(byCategory) <= 1 || total == 0 {
		return 0
	}

	var h float64
	for _, v := range byCategory {
		if p := v / total; p > 0 {
			h -= p * math.Log(p)
		}
	}
	return math.Min(h/math.Log(float64(len(byCategory))), 1)
}

// CashFlowVolatility is the standard deviation of the running balance over
// the absolute mean balance, floored at 1.
func CashFlowVolatility(txs []domain.Transaction) float64 {
	if len(txs) < 2 {
		return 0
	}
	sorted := sortedByDate(txs)

	balances := make([]float64, 0, len(sorted))
	var running float64
	for _, tx := range sorted {
		if tx.IsCredit() {
			running += tx.Amount
		} else {
			running -= math.Abs(tx.Amount)
		}
		balances = append(balances, running)
	}
	return stdDev(balances) / math.Max(math.Abs(mean(balances)), 1)
}

// Trends returns the linear slope of monthly income and expenses in month order.
func Trends(txs []domain.Transaction) (income, expenses float64) {
	type flow struct{ in, out float64 }
	months := map[string]*flow{}
	for _, tx := range txs {
		key := tx.MonthKey()
		f, ok := months[key]
		if !ok {
			f = &flow{}
			months[key] = f
		}
		if tx.IsCredit() {
			f.in += math.Abs(tx.Amount)
		} else {
			f.out += math.Abs(tx.Amount)
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ins := make([]float64, len(keys))
	outs := make([]float64, len(keys))
	for i, k := range keys {
		ins[i], outs[i] = months[k].in, months[k].out
	}
	return linearTrend(ins), linearTrend(outs)
}

// Breakdown aggregates debits by category. Percentages are relative to the
// total debits and sum to 100 when there is any spending.
func Breakdown(txs []domain.Transaction) map[string]domain.CategoryStats {
	type acc struct {
		total   decimal.Decimal
		count   int
		confSum float64
	}
	byCategory := map[string]*acc{}
	var expenses decimal.Decimal
	for _, tx := range txs {
		if !tx.IsDebit() {
			continue
		}
		cat := tx.Category
		if cat == "" {
			cat = domain.CategoryOther
		}
		a, ok := byCategory[cat]
		if !ok {
			a = &acc{}
			byCategory[cat] = a
		}
		amount := decimal.NewFromFloat(math.Abs(tx.Amount))
		a.total = a.total.Add(amount)
		a.count++
		a.confSum += tx.CategoryConfidence
		expenses = expenses.Add(amount)
	}

	out := make(map[string]domain.CategoryStats, len(byCategory))
	for cat, a := range byCategory {
		var pct float64
		if expenses.IsPositive() {
			pct = a.total.Div(expenses).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		out[cat] = domain.CategoryStats{
			Total:         a.total.InexactFloat64(),
			Count:         a.count,
			AverageAmount: a.total.Div(decimal.NewFromInt(int64(a.count))).Round(2).InexactFloat64(),
			Confidence:    a.confSum / float64(a.count),
			Percentage:    pct,
		}
	}
	return out
}

// HighestExpenseCategory returns the category with the largest debit total,
// or Outros when there are no debits. Ties resolve alphabetically.
func HighestExpenseCategory(breakdown map[string]domain.CategoryStats) string {
	best, bestTotal := domain.CategoryOther, -1.0
	names := make([]string, 0, len(breakdown))
	for name := range breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if t := breakdown[name].Total; t > bestTotal {
			best, bestTotal = name, t
		}
	}
	return best
}

// Recommendations returns the ordered advice for fa.
func Recommendations(fa domain.FinancialAnalysis) []string {
	var recs []string

	if fa.FinalBalance < 0 {
		recs = append(recs,
			"🚨 URGENTE: Seu saldo está negativo. Priorize reduzir gastos supérfluos.",
			fmt.Sprintf("💡 Foque em reduzir gastos em '%s' que representa sua maior categoria de despesas.",
				HighestExpenseCategory(fa.CategoryBreakdown)),
		)
	}

	if fa.TransactionCount > 0 && fa.IncomeConsistency < 0.6 {
		recs = append(recs, "📊 Sua renda apresenta variações significativas. Considere diversificar suas fontes de renda.")
	}

	switch {
	case fa.CreditScore < 500:
		recs = append(recs, "⭐ Score baixo: Foque em manter contas em dia e reduzir endividamento.")
	case fa.CreditScore < 700:
		recs = append(recs, "📈 Score bom: Continue melhorando mantendo histórico positivo por mais tempo.")
	default:
		recs = append(recs, "🏆 Parabéns! Seu score está excelente. Mantenha os bons hábitos financeiros.")
	}

	if fa.DebtServiceRatio > 0.4 {
		recs = append(recs, fmt.Sprintf("⚠️ Alto comprometimento com dívidas (%.1f%%). Considere renegociar ou quitar débitos.",
			fa.DebtServiceRatio*100))
	}
	return recs
}

func sortedByDate(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp().Before(out[j].Timestamp())
	})
	return out
}
