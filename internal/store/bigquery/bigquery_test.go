package bigquery

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/risk"
	"github.com/dvloznov/finance-insights/internal/store"
)

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		ID:             "a1",
		UserID:         "u1",
		ConversationID: "c1",
		FileName:       "extrato.txt",
		CreatedAt:      time.Date(2024, time.March, 1, 23, 30, 0, 0, time.UTC),
		BankDetection:  domain.BankDetection{Bank: "itau", BankName: "Itaú"},
		Transactions: []domain.Transaction{
			{Date: civil.Date{Year: 2024, Month: time.February, Day: 1}, Description: "SALARIO", Amount: 5000, Type: domain.TypeCredit, Category: "Renda"},
			{Date: civil.Date{Year: 2024, Month: time.February, Day: 3}, Description: "APOSTA ONLINE", Amount: 150.25, Type: domain.TypeDebit},
		},
		FinancialAnalysis: domain.FinancialAnalysis{
			TotalCredits: 5000,
			TotalDebits:  150.25,
			FinalBalance: 4849.75,
			CreditScore:  690,
			RiskLevel:    domain.RiskMedium,
		},
	}
}

func TestNewAnalysisRow(t *testing.T) {
	now := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	row := NewAnalysisRow(risk.Default(), sampleResult(), `{"id":"a1"}`, now)

	assert.Equal(t, "a1", row.AnalysisID)
	assert.Equal(t, "c1", row.ConversationID)
	assert.Equal(t, "itau", row.Bank)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 1}, row.CreatedDate)
	assert.Equal(t, int64(690), row.CreditScore)
	assert.Equal(t, "medium", row.RiskLevel)
	assert.Equal(t, "4849.75", row.Balance.FloatString(2))
	assert.Equal(t, int64(2), row.TransactionCount)
	assert.Equal(t, int64(1), row.SuspiciousTransactions)
	assert.True(t, row.Payload.Valid)
	assert.Equal(t, now, row.InsertedTS)

	assert.Equal(t, store.Summary{
		ID:                     "a1",
		UserID:                 "u1",
		FileName:               "extrato.txt",
		Bank:                   "itau",
		CreatedAt:              time.Date(2024, time.March, 1, 23, 30, 0, 0, time.UTC),
		CreditScore:            690,
		RiskLevel:              domain.RiskMedium,
		TotalIncome:            5000,
		TotalExpenses:          150.25,
		Balance:                4849.75,
		TransactionCount:       2,
		SuspiciousTransactions: 1,
	}, row.Summary())
}

func TestNewTransactionRows(t *testing.T) {
	now := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	rows := NewTransactionRows(risk.Default(), sampleResult(), now)
	require.Len(t, rows, 2)

	salary := rows[0]
	assert.Equal(t, int64(0), salary.Position)
	assert.Equal(t, "credit", salary.Direction)
	assert.True(t, salary.CategoryName.Valid)
	assert.False(t, salary.SubcategoryName.Valid)
	assert.True(t, salary.IsRecurring)
	assert.False(t, salary.IsSuspicious)

	bet := rows[1]
	assert.Equal(t, int64(1), bet.Position)
	assert.Equal(t, "150.25", bet.Amount.FloatString(2))
	assert.False(t, bet.CategoryName.Valid)
	assert.True(t, bet.IsSuspicious)
	assert.InDelta(t, 0.9, bet.RiskScore, 1e-9)
	assert.Equal(t, now, bet.InsertedTS)

	flagged := bet.Flagged()
	assert.Equal(t, "APOSTA ONLINE", flagged.Description)
	assert.Equal(t, domain.TypeDebit, flagged.Type)
	assert.InDelta(t, 150.25, flagged.Amount, 1e-9)
	assert.True(t, flagged.IsSuspicious)
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_second.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (x INT64);")},
		"m/0001_first.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (x INT64);")},
		"m/001_short.sql":   {Data: []byte("ignored")},
		"m/0003_no_ext":     {Data: []byte("ignored")},
		"m/README.md":       {Data: []byte("ignored")},
	}

	got, err := ReadMigrations(fsys, "m", "proj", "ds")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.ds.a` (x INT64);", got[0].SQL)
	assert.Equal(t, 2, got[1].Version)

	// checksums ignore the target dataset
	other, err := ReadMigrations(fsys, "m", "other", "prod")
	require.NoError(t, err)
	assert.Equal(t, got[0].Checksum, other[0].Checksum)
	assert.NotEqual(t, got[0].Checksum, got[1].Checksum)
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte("a")},
		"m/0001_b.sql": {Data: []byte("b")},
	}
	_, err := ReadMigrations(fsys, "m", "p", "d")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := Migrations("proj", "finance_insights")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Contains(t, got[0].SQL, "`proj.finance_insights.analyses`")
	assert.Contains(t, got[1].SQL, "`proj.finance_insights.analysis_transactions`")
	for _, m := range got {
		assert.False(t, strings.Contains(m.SQL, "{{"), "unrendered placeholder in %s", m.Filename)
	}
}
