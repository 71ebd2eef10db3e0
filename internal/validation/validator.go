// Package validation decides whether an extraction needs a second LLM pass
// and scores the verification answer. It never fails: every error path falls
// back to a documented conservative result.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/llm"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/money"
)

const (
	promptContentLimit = 2000
	promptSampleSize   = 3
	basicStartScore    = 0.7
)

type complexityFactor struct {
	re     *regexp.Regexp
	weight float64
}

var complexityFactors = []complexityFactor{
	{regexp.MustCompile(`[^\x00-\x7F]`), 0.1},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4}`), 0.05},
	{regexp.MustCompile(`R\$\s*[\d.,]+`), 0.03},
	{regexp.MustCompile(`\n`), 0.001},
	{regexp.MustCompile(`[A-Z]{2,}`), 0.02},
}

// Complexity scores raw text in [0,1] from weighted pattern counts.
func Complexity(text string) float64 {
	var score float64
	for _, f := range complexityFactors {
		score += float64(len(f.re.FindAllStringIndex(text, -1))) * f.weight
	}
	return math.Min(score, 1)
}

// Subject is what gets cross-validated.
type Subject struct {
	Transactions []domain.Transaction
	Confidence   float64
	// Analysis is nil when no balance was computed.
	Analysis *domain.FinancialAnalysis
}

// Validator runs the conditional second pass.
type Validator struct {
	completer llm.Completer
	cfg       config.CrossValidationConfig
}

// NewValidator creates a Validator. A nil completer limits it to the
// rule-based checks.
func NewValidator(completer llm.Completer, cfg config.CrossValidationConfig) *Validator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Validator{completer: completer, cfg: cfg}
}

// ShouldValidate reports whether text and confidence warrant a second pass.
func (v *Validator) ShouldValidate(complexity, confidence float64) bool {
	if !v.cfg.Enabled {
		return false
	}
	return complexity > v.cfg.ComplexityThreshold || confidence < v.cfg.MinimumConfidence
}

// Validate cross-checks s against the document text.
func (v *Validator) Validate(ctx context.Context, text string, s Subject, bankCode string) domain.ValidationResult {
	log := logger.FromContext(ctx)

	complexity := Complexity(text)
	if !v.ShouldValidate(complexity, s.Confidence) {
		return domain.ValidationResult{IsValid: true, Score: s.Confidence, Issues: []string{}, Suggestions: []string{}}
	}
	if v.completer == nil {
		return BasicValidation(s)
	}

	prompt := BuildPrompt(text, s, bankCode)
	var (
		raw string
		err error
	)
	for attempt := 1; attempt <= v.cfg.MaxAttempts; attempt++ {
		raw, err = v.completer.Generate(ctx, prompt)
		if err == nil || ctx.Err() != nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Cross-validation call failed")
	}
	if err != nil {
		return domain.ValidationResult{
			IsValid:     false,
			Score:       0.3,
			Issues:      []string{"Erro na validação cruzada"},
			Suggestions: []string{"Revisar dados manualmente"},
		}
	}

	res, err := ParseResponse(raw)
	if err != nil {
		log.Debug().Err(err).Msg("Unparseable cross-validation response, using basic validation")
		return BasicValidation(s)
	}
	return res
}

type response struct {
	BankCorrect        bool     `json:"bankCorrect"`
	ValuesAccurate     bool     `json:"valuesAccurate"`
	DatesValid         bool     `json:"datesValid"`
	DescriptionsValid  bool     `json:"descriptionsValid"`
	CategorizationGood bool     `json:"categorizationGood"`
	OverallScore       *float64 `json:"overallScore"`
	Issues             []string `json:"issues"`
	Suggestions        []string `json:"suggestions"`
}

// ParseResponse reads the verifier's JSON verdict.
func ParseResponse(raw string) (domain.ValidationResult, error) {
	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("ParseResponse: %w", err)
	}

	var r response
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return domain.ValidationResult{}, fmt.Errorf("ParseResponse: decode: %w: %w", domain.ErrJSONParsing, err)
	}
	if r.OverallScore == nil {
		return domain.ValidationResult{}, fmt.Errorf("ParseResponse: missing overallScore: %w", domain.ErrJSONParsing)
	}

	res := domain.ValidationResult{
		IsValid:     r.BankCorrect && r.ValuesAccurate && r.DatesValid && r.DescriptionsValid,
		Score:       math.Max(0, math.Min(*r.OverallScore/100, 1)),
		Issues:      r.Issues,
		Suggestions: r.Suggestions,
	}
	if res.Issues == nil {
		res.Issues = []string{}
	}
	if res.Suggestions == nil {
		res.Suggestions = []string{}
	}
	return res, nil
}

// BasicValidation is the rule-based fallback used when no verdict is available.
func BasicValidation(s Subject) domain.ValidationResult {
	issues := []string{}
	score := basicStartScore

	if len(s.Transactions) == 0 {
		issues = append(issues, "Nenhuma transação foi extraída")
		score -= 0.3
	}
	if s.Analysis == nil {
		issues = append(issues, "Saldo final não calculado")
		score -= 0.1
	}
	for _, tx := range s.Transactions {
		if !tx.Date.IsValid() || strings.TrimSpace(tx.Description) == "" {
			issues = append(issues, "Algumas transações estão incompletas")
			score -= 0.2
			break
		}
	}

	suggestion := "Extração aparenta estar correta"
	if len(issues) > 0 {
		suggestion = "Revisar dados extraídos manualmente"
	}
	return domain.ValidationResult{
		IsValid:     len(issues) == 0,
		Score:       math.Max(score, 0),
		Issues:      issues,
		Suggestions: []string{suggestion},
	}
}

// BuildPrompt asks the verifier to judge the extraction.
func BuildPrompt(text string, s Subject, bankCode string) string {
	content := text
	if r := []rune(content); len(r) > promptContentLimit {
		content = string(r[:promptContentLimit]) + "..."
	}

	var fa domain.FinancialAnalysis
	if s.Analysis != nil {
		fa = *s.Analysis
	}

	var b strings.Builder
	b.WriteString("Analise esta extração de dados financeiros e valide sua precisão:\n\n")
	fmt.Fprintf(&b, "BANCO DETECTADO: %s\n", bankCode)
	fmt.Fprintf(&b, "DOCUMENTO ORIGINAL:\n%s\n\n", content)
	b.WriteString("DADOS EXTRAÍDOS:\n")
	fmt.Fprintf(&b, "- Total de transações: %d\n", len(s.Transactions))
	fmt.Fprintf(&b, "- Saldo final: %s\n", money.FormatFloat(fa.FinalBalance))
	fmt.Fprintf(&b, "- Total créditos: %s\n", money.FormatFloat(fa.TotalCredits))
	fmt.Fprintf(&b, "- Total débitos: %s\n\n", money.FormatFloat(fa.TotalDebits))

	b.WriteString("TRANSAÇÕES EXEMPLO:\n")
	if len(s.Transactions) == 0 {
		b.WriteString("Nenhuma transação\n")
	}
	for _, tx := range s.Transactions[:min(promptSampleSize, len(s.Transactions))] {
		fmt.Fprintf(&b, "%s - %s - %s (%s)\n", tx.Date, tx.Description, money.FormatFloat(tx.Amount), tx.Type)
	}

	b.WriteString("\nVALIDE:\n" +
		"1. O banco foi identificado corretamente?\n" +
		"2. Os valores monetários estão corretos?\n" +
		"3. As datas estão no formato adequado?\n" +
		"4. As descrições fazem sentido?\n" +
		"5. A categorização está apropriada?\n\n")
	b.WriteString("Responda APENAS em JSON:\n" +
		"{\"bankCorrect\": boolean, \"valuesAccurate\": boolean, \"datesValid\": boolean, " +
		"\"descriptionsValid\": boolean, \"categorizationGood\": boolean, \"overallScore\": number (0-100), " +
		"\"issues\": [\"...\"], \"suggestions\": [\"...\"]}\n")
	return b.String()
}
