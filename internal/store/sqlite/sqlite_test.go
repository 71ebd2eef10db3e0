package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func analysis(id string, createdAt time.Time, score int, level domain.RiskLevel, balance float64, txs ...domain.Transaction) *domain.AnalysisResult {
	var credits, debits float64
	for _, tx := range txs {
		if tx.IsCredit() {
			credits += tx.Amount
		} else {
			debits += tx.Amount
		}
	}
	return &domain.AnalysisResult{
		ID:            id,
		UserID:        "user-1",
		FileName:      id + ".txt",
		CreatedAt:     createdAt,
		BankDetection: domain.BankDetection{Bank: "nubank", BankName: "Nubank", Confidence: 0.9, Method: "pattern"},
		Transactions:  txs,
		FinancialAnalysis: domain.FinancialAnalysis{
			TotalCredits:     credits,
			TotalDebits:      debits,
			FinalBalance:     balance,
			TransactionCount: len(txs),
			CreditScore:      score,
			RiskLevel:        level,
			Recommendations:  []string{"Mantenha o controle"},
		},
		ProcessingMetrics: domain.ProcessingMetrics{TotalTime: 12, Confidence: 0.92, Method: "profile", Version: "3.0.0"},
	}
}

func tx(day int, desc string, amount float64, typ domain.TransactionType) domain.Transaction {
	return domain.Transaction{
		Date:        civil.Date{Year: 2024, Month: time.January, Day: day},
		Description: desc,
		Amount:      amount,
		Type:        typ,
		Category:    "Outros",
	}
}

func at(day, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
}

func TestSaveAndGetAnalysis(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	want := analysis("a1", at(1, 10), 720, domain.RiskLow, 800,
		tx(5, "SALARIO ACME", 1000, domain.TypeCredit),
		tx(6, "APOSTA ONLINE", 200, domain.TypeDebit),
	)
	require.NoError(t, db.SaveAnalysis(ctx, want))

	got, err := db.GetAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Transactions, got.Transactions)
	assert.Equal(t, want.FinancialAnalysis, got.FinancialAnalysis)
	assert.Equal(t, want.ProcessingMetrics, got.ProcessingMetrics)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE analysis_id = 'a1'`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveAnalysis_Rejects(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	assert.Error(t, db.SaveAnalysis(ctx, nil))
	assert.Error(t, db.SaveAnalysis(ctx, &domain.AnalysisResult{CreatedAt: at(1, 0)}))
	assert.Error(t, db.SaveAnalysis(ctx, &domain.AnalysisResult{ID: "x"}))
}

func TestSaveAnalysis_IsAtomic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// the type CHECK constraint fails on the second row
	bad := analysis("a1", at(1, 10), 600, domain.RiskMedium, 0,
		tx(5, "ok", 10, domain.TypeDebit),
		tx(6, "broken", 10, domain.TransactionType("refund")),
	)
	require.Error(t, db.SaveAnalysis(ctx, bad))

	_, err := db.GetAnalysis(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&n))
	assert.Zero(t, n)
}

func TestSaveAnalysis_ReplacesExisting(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveAnalysis(ctx, analysis("a1", at(1, 10), 600, domain.RiskMedium, 0,
		tx(5, "a", 10, domain.TypeDebit),
		tx(6, "b", 10, domain.TypeDebit),
	)))
	require.NoError(t, db.SaveAnalysis(ctx, analysis("a1", at(1, 10), 710, domain.RiskLow, 0,
		tx(7, "c", 10, domain.TypeDebit),
	)))

	got, err := db.GetAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 710, got.FinancialAnalysis.CreditScore)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE analysis_id = 'a1'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func seed(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	for _, a := range []*domain.AnalysisResult{
		analysis("low-old", at(1, 9), 780, domain.RiskLow, 500, tx(2, "SALARIO", 3000, domain.TypeCredit)),
		analysis("low-new", at(3, 9), 705, domain.RiskLow, 100, tx(2, "SALARIO", 2000, domain.TypeCredit)),
		analysis("medium", at(2, 23), 610, domain.RiskMedium, -50, tx(2, "CASSINO", 300, domain.TypeDebit)),
		analysis("high", at(4, 0), 420, domain.RiskHigh, -900, tx(2, "compra", 12000, domain.TypeDebit)),
	} {
		require.NoError(t, db.SaveAnalysis(ctx, a))
	}
}

func ids(summaries []store.Summary) []string {
	out := make([]string, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, s.ID)
	}
	return out
}

func TestListQueries(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	ctx := context.Background()

	byLevel, err := db.ListByRiskLevel(ctx, domain.RiskLow)
	require.NoError(t, err)
	assert.Equal(t, []string{"low-new", "low-old"}, ids(byLevel))
	assert.Equal(t, "low-new.txt", byLevel[0].FileName)
	assert.True(t, at(3, 9).Equal(byLevel[0].CreatedAt))

	byScore, err := db.ListByScoreRange(ctx, 600, 780)
	require.NoError(t, err)
	assert.Equal(t, []string{"low-old", "low-new", "medium"}, ids(byScore))

	byDate, err := db.ListByDateRange(ctx,
		civil.Date{Year: 2024, Month: time.March, Day: 2},
		civil.Date{Year: 2024, Month: time.March, Day: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"low-new", "medium"}, ids(byDate))

	none, err := db.ListByRiskLevel(ctx, domain.RiskLevel("unknown"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	empty, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalCount)
	assert.Zero(t, empty.AverageScore)

	seed(t, db)
	stats, err := db.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalCount)
	assert.InDelta(t, (780+705+610+420)/4.0, stats.AverageScore, 1e-9)
	assert.InDelta(t, 5000, stats.TotalIncome, 1e-9)
	assert.InDelta(t, 12300, stats.TotalExpenses, 1e-9)
	assert.Equal(t, 2, stats.PositiveBalanceCount)
	assert.Equal(t, 2, stats.SuspiciousCount)
	assert.Equal(t, map[domain.RiskLevel]int{domain.RiskLow: 2, domain.RiskMedium: 1, domain.RiskHigh: 1}, stats.RiskDistribution)
}

func TestSuspiciousTransactions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveAnalysis(ctx, analysis("a1", at(1, 10), 500, domain.RiskMedium, 0,
		tx(5, "padaria", 20, domain.TypeDebit),
		tx(6, "APOSTA ONLINE", 50, domain.TypeDebit),
		tx(7, "Assinatura Netflix", 39.9, domain.TypeDebit),
	)))

	got, err := db.SuspiciousTransactions(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "APOSTA ONLINE", got[0].Description)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 6}, got[0].Date)
	assert.Equal(t, domain.TypeDebit, got[0].Type)
	assert.True(t, got[0].IsSuspicious)
	assert.False(t, got[0].IsRecurring)
	assert.InDelta(t, 0.9, got[0].RiskScore, 1e-9)

	var recurring int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE analysis_id = 'a1' AND is_recurring = 1`).Scan(&recurring))
	assert.Equal(t, 1, recurring)
}
