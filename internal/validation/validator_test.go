package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/llm"
)

func defaultCfg() config.CrossValidationConfig {
	return config.Default().CrossValidation
}

func sampleSubject(confidence float64) Subject {
	return Subject{
		Transactions: []domain.Transaction{
			{Date: civil.Date{Year: 2024, Month: 1, Day: 15}, Description: "SALARIO", Amount: 5000, Type: domain.TypeCredit},
		},
		Confidence: confidence,
		Analysis:   &domain.FinancialAnalysis{TotalCredits: 5000, FinalBalance: 5000},
	}
}

func TestComplexity(t *testing.T) {
	assert.Zero(t, Complexity("extrato simples de conta"))
	assert.InDelta(t, 0.101, Complexity("SALDO R$ 100,00\n15/01/2024"), 1e-9)
	assert.InDelta(t, 1.0, Complexity(strings.Repeat("ÃÇ", 20)), 1e-9)
}

func TestValidate_NotNeeded(t *testing.T) {
	called := false
	v := NewValidator(llm.CompleterFunc(func(ctx context.Context, p string) (string, error) {
		called = true
		return "", nil
	}), defaultCfg())

	got := v.Validate(context.Background(), "extrato simples de conta", sampleSubject(0.8), "unknown")
	assert.False(t, called)
	assert.True(t, got.IsValid)
	assert.InDelta(t, 0.8, got.Score, 1e-9)
	assert.Empty(t, got.Issues)
	assert.Empty(t, got.Suggestions)
}

func TestShouldValidate(t *testing.T) {
	v := NewValidator(nil, defaultCfg())
	assert.True(t, v.ShouldValidate(0.71, 0.9))
	assert.True(t, v.ShouldValidate(0, 0.79))
	assert.False(t, v.ShouldValidate(0.7, 0.8))

	cfg := defaultCfg()
	cfg.Enabled = false
	assert.False(t, NewValidator(nil, cfg).ShouldValidate(1, 0))
}

func TestValidate_ParsesVerdict(t *testing.T) {
	v := NewValidator(llm.CompleterFunc(func(ctx context.Context, p string) (string, error) {
		return "Resultado:\n" + `{"bankCorrect":true,"valuesAccurate":true,"datesValid":true,"descriptionsValid":true,` +
			`"categorizationGood":false,"overallScore":92,"issues":["categoria genérica"],"suggestions":[]}`, nil
	}), defaultCfg())

	got := v.Validate(context.Background(), "x", sampleSubject(0.6), "itau")
	assert.True(t, got.IsValid)
	assert.InDelta(t, 0.92, got.Score, 1e-9)
	assert.Equal(t, []string{"categoria genérica"}, got.Issues)
	assert.Empty(t, got.Suggestions)
}

func TestValidate_CompleterErrorIsBounded(t *testing.T) {
	calls := 0
	v := NewValidator(llm.CompleterFunc(func(ctx context.Context, p string) (string, error) {
		calls++
		return "", errors.New("unavailable")
	}), defaultCfg())

	got := v.Validate(context.Background(), "x", sampleSubject(0.5), "itau")
	assert.Equal(t, 3, calls)
	assert.False(t, got.IsValid)
	assert.InDelta(t, 0.3, got.Score, 1e-9)
	assert.Equal(t, []string{"Erro na validação cruzada"}, got.Issues)
	assert.Equal(t, []string{"Revisar dados manualmente"}, got.Suggestions)
}

func TestValidate_UnparseableFallsBackToBasic(t *testing.T) {
	v := NewValidator(llm.CompleterFunc(func(ctx context.Context, p string) (string, error) {
		return "Não consegui validar.", nil
	}), defaultCfg())

	got := v.Validate(context.Background(), "x", sampleSubject(0.5), "itau")
	assert.True(t, got.IsValid)
	assert.InDelta(t, 0.7, got.Score, 1e-9)
	assert.Equal(t, []string{"Extração aparenta estar correta"}, got.Suggestions)
}

func TestValidate_NoCompleterUsesBasic(t *testing.T) {
	got := NewValidator(nil, defaultCfg()).Validate(context.Background(), "x", Subject{Confidence: 0.1}, "unknown")
	assert.False(t, got.IsValid)
	assert.InDelta(t, 0.3, got.Score, 1e-9)
}

func TestBasicValidation(t *testing.T) {
	got := BasicValidation(Subject{})
	assert.False(t, got.IsValid)
	assert.InDelta(t, 0.3, got.Score, 1e-9)
	assert.Equal(t, []string{"Nenhuma transação foi extraída", "Saldo final não calculado"}, got.Issues)
	assert.Equal(t, []string{"Revisar dados extraídos manualmente"}, got.Suggestions)

	s := sampleSubject(0.5)
	s.Transactions = append(s.Transactions, domain.Transaction{Date: civil.Date{Year: 2024, Month: 1, Day: 2}, Amount: 1, Type: domain.TypeDebit})
	got = BasicValidation(s)
	assert.InDelta(t, 0.5, got.Score, 1e-9)
	assert.Equal(t, []string{"Algumas transações estão incompletas"}, got.Issues)
}

func TestParseResponse(t *testing.T) {
	got, err := ParseResponse(`{"bankCorrect":true,"valuesAccurate":true,"datesValid":false,"descriptionsValid":true,"overallScore":150}`)
	require.NoError(t, err)
	assert.False(t, got.IsValid)
	assert.InDelta(t, 1.0, got.Score, 1e-9)
	assert.NotNil(t, got.Issues)

	_, err = ParseResponse(`{"bankCorrect":true}`)
	assert.ErrorIs(t, err, domain.ErrJSONParsing)

	_, err = ParseResponse(`{"overallScore":"alto"}`)
	assert.ErrorIs(t, err, domain.ErrJSONParsing)
}

func TestBuildPrompt(t *testing.T) {
	s := sampleSubject(0.5)
	for range 4 {
		s.Transactions = append(s.Transactions, s.Transactions[0])
	}

	p := BuildPrompt(strings.Repeat("a", 2500), s, "nubank")
	assert.Contains(t, p, "BANCO DETECTADO: nubank")
	assert.Contains(t, p, strings.Repeat("a", 2000)+"...")
	assert.NotContains(t, p, strings.Repeat("a", 2001))
	assert.Contains(t, p, "- Total de transações: 5")
	assert.Equal(t, 3, strings.Count(p, "2024-01-15 - SALARIO - R$ 5.000,00 (credit)"))
}
