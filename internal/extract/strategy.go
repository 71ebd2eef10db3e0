// Package extract turns statement text into transactions. A bank-profile
// regex strategy, a generic line scanner and an LLM strategy are tried in
// order until one returns a schema-valid result.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-insights/internal/bank"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// Strategy names reported in Extraction.Method.
const (
	MethodProfile = "regex_profile"
	MethodGeneric = "regex_generic"
	MethodLLM     = "llm"
)

const (
	profileConfidence = 0.92
	genericConfidence = 0.6
)

// Document is the input of an extraction strategy.
type Document struct {
	Text string
	Bank string
}

// Extraction is the output of the first strategy that succeeded.
type Extraction struct {
	Transactions []domain.Transaction
	Method       string
	Confidence   float64
}

// Strategy is one way to pull transactions out of a document.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc Document) ([]domain.Transaction, float64, error)
}

var errNoTransactions = errors.New("no transactions found")

// FirstSuccess runs strategies in order and returns the first output that
// passes ValidateSchema. When all fail, the error wraps
// domain.ErrTransactionExtraction together with every cause.
func FirstSuccess(ctx context.Context, doc Document, strategies ...Strategy) (Extraction, error) {
	log := logger.FromContext(ctx)

	var errs []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		txs, confidence, err := s.Extract(ctx, doc)
		if err == nil {
			err = ValidateSchema(txs)
		}
		if err != nil {
			log.Debug().Err(err).Str("strategy", s.Name()).Msg("extraction strategy failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		log.Info().
			Str("strategy", s.Name()).
			Int("transactions", len(txs)).
			Float64("confidence", confidence).
			Msg("transactions extracted")
		return Extraction{Transactions: txs, Method: s.Name(), Confidence: confidence}, nil
	}

	return Extraction{}, fmt.Errorf("FirstSuccess: %w: %w", domain.ErrTransactionExtraction, errors.Join(errs...))
}

// ValidateSchema requires a non-empty list where every transaction has a
// date, a description, a positive amount and a known type.
func ValidateSchema(txs []domain.Transaction) error {
	if len(txs) == 0 {
		return errNoTransactions
	}
	for i, tx := range txs {
		switch {
		case !tx.Date.IsValid():
			return fmt.Errorf("transaction %d: invalid date", i)
		case strings.TrimSpace(tx.Description) == "":
			return fmt.Errorf("transaction %d: empty description", i)
		case tx.Amount <= 0:
			return fmt.Errorf("transaction %d: non-positive amount %v", i, tx.Amount)
		case !tx.Type.Valid():
			return fmt.Errorf("transaction %d: unknown type %q", i, tx.Type)
		}
	}
	return nil
}

// ProfileStrategy applies the regex profile of the detected bank.
type ProfileStrategy struct {
	Parser *Parser
}

func (ProfileStrategy) Name() string { return MethodProfile }

func (s ProfileStrategy) Extract(_ context.Context, doc Document) ([]domain.Transaction, float64, error) {
	prof, ok := bank.Lookup(doc.Bank)
	if !ok {
		return nil, 0, fmt.Errorf("no profile for bank %q", doc.Bank)
	}
	txs := s.Parser.ParseWithProfile(doc.Text, prof)
	if len(txs) == 0 {
		return nil, 0, errNoTransactions
	}
	return txs, profileConfidence, nil
}

// GenericStrategy runs only the generic line scanner.
type GenericStrategy struct {
	Parser *Parser
}

func (GenericStrategy) Name() string { return MethodGeneric }

func (s GenericStrategy) Extract(_ context.Context, doc Document) ([]domain.Transaction, float64, error) {
	txs := s.Parser.ParseGeneric(doc.Text)
	if len(txs) == 0 {
		return nil, 0, errNoTransactions
	}
	return txs, genericConfidence, nil
}
