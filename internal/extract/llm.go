package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/llm"
)

const defaultLLMConfidence = 0.8

// ParseError describes why a model response could not become transactions.
// Index is -1 when the failure is not tied to a single transaction.
type ParseError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("llm response: %s", e.Reason)
	}
	return fmt.Sprintf("llm response: transaction %d: %s: %s", e.Index, e.Field, e.Reason)
}

func (e *ParseError) Unwrap() error { return domain.ErrJSONParsing }

// LLMStrategy asks a completion service for structured JSON transactions.
type LLMStrategy struct {
	Completer llm.Completer
}

func (LLMStrategy) Name() string { return MethodLLM }

// Extract builds the prompt, calls the completer and parses the answer. The
// reported confidence is the mean of the per-transaction confidences.
func (s LLMStrategy) Extract(ctx context.Context, doc Document) ([]domain.Transaction, float64, error) {
	if s.Completer == nil {
		return nil, 0, fmt.Errorf("LLMStrategy.Extract: no completer: %w", domain.ErrLLM)
	}

	raw, err := s.Completer.Generate(ctx, BuildExtractionPrompt(doc))
	if err != nil {
		return nil, 0, fmt.Errorf("LLMStrategy.Extract: generate: %w", err)
	}

	txs, confidence, err := ParseLLMResponse(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("LLMStrategy.Extract: %w", err)
	}
	return txs, confidence, nil
}

// BuildExtractionPrompt returns the Portuguese instructions for structured extraction.
func BuildExtractionPrompt(doc Document) string {
	var b strings.Builder
	b.WriteString("Você é um especialista em análise de extratos bancários brasileiros.\n\n")
	if doc.Bank != "" && doc.Bank != "unknown" {
		b.WriteString("Banco identificado: " + doc.Bank + "\n\n")
	}
	b.WriteString("Tarefa:\n" +
		"- Extraia TODAS as transações visíveis no documento.\n" +
		"- Mantenha as descrições originais.\n" +
		"- Use valores numéricos exatos, sem R$ e com ponto como separador decimal.\n" +
		"- Use \"credit\" para entradas e \"debit\" para saídas.\n\n")
	b.WriteString("Responda APENAS com JSON neste formato:\n" +
		"{\"transactions\":[{\"date\":\"DD/MM/AAAA\",\"description\":\"texto\",\"amount\":150.75," +
		"\"type\":\"debit\",\"category\":\"Alimentação\",\"subcategory\":\"Restaurantes\",\"confidence\":0.9}]}\n\n")
	b.WriteString("DOCUMENTO:\n")
	b.WriteString(doc.Text)
	return b.String()
}

type llmResponse struct {
	Transactions []llmTransaction `json:"transactions"`
}

type llmTransaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Confidence  *float64        `json:"confidence"`
}

// ParseLLMResponse extracts the first JSON object of raw and validates every
// transaction in it. Failures are *ParseError values wrapping
// domain.ErrJSONParsing.
func ParseLLMResponse(raw string) ([]domain.Transaction, float64, error) {
	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return nil, 0, &ParseError{Index: -1, Reason: "no JSON object found"}
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(obj), &resp); err != nil {
		return nil, 0, &ParseError{Index: -1, Reason: err.Error()}
	}
	if len(resp.Transactions) == 0 {
		return nil, 0, &ParseError{Index: -1, Field: "transactions", Reason: "missing or empty"}
	}

	txs := make([]domain.Transaction, 0, len(resp.Transactions))
	var confSum float64
	for i, t := range resp.Transactions {
		tx, conf, err := t.toTransaction(i)
		if err != nil {
			return nil, 0, err
		}
		txs = append(txs, tx)
		confSum += conf
	}
	return txs, confSum / float64(len(txs)), nil
}

func (t llmTransaction) toTransaction(i int) (domain.Transaction, float64, error) {
	if strings.TrimSpace(t.Date) == "" {
		return domain.Transaction{}, 0, &ParseError{Index: i, Field: "date", Reason: "missing"}
	}
	date, err := parseISOOrBRDate(t.Date)
	if err != nil {
		return domain.Transaction{}, 0, &ParseError{Index: i, Field: "date", Reason: err.Error()}
	}

	desc := CleanDescription(t.Description)
	if desc == "" {
		return domain.Transaction{}, 0, &ParseError{Index: i, Field: "description", Reason: "missing"}
	}

	if len(t.Amount) == 0 || string(t.Amount) == "null" {
		return domain.Transaction{}, 0, &ParseError{Index: i, Field: "amount", Reason: "missing"}
	}
	amount, err := parseJSONAmount(t.Amount)
	if err != nil {
		return domain.Transaction{}, 0, &ParseError{Index: i, Field: "amount", Reason: err.Error()}
	}

	typ := domain.TypeCredit
	if amount.IsNegative() || strings.EqualFold(t.Type, string(domain.TypeDebit)) {
		typ = domain.TypeDebit
	}

	category := strings.TrimSpace(t.Category)
	if category == "" {
		category = domain.CategoryOther
	}

	conf := defaultLLMConfidence
	if t.Confidence != nil && *t.Confidence >= 0 && *t.Confidence <= 1 {
		conf = *t.Confidence
	}

	return domain.Transaction{
		Date:               date,
		Description:        desc,
		Amount:             amount.Abs().InexactFloat64(),
		Type:               typ,
		Category:           category,
		Subcategory:        strings.TrimSpace(t.Subcategory),
		CategoryConfidence: conf,
	}, conf, nil
}

// parseJSONAmount accepts a JSON number or a Brazilian-formatted string.
func parseJSONAmount(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseAmount(s)
	}
	return decimal.NewFromString(string(raw))
}

func parseISOOrBRDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unsupported date %q", s)
}
