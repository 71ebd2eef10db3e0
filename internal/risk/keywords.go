// Package risk holds the keyword lists and per-transaction predicates shared by
// the metrics engine, the fraud detector and the analysis stores.
package risk

import (
	"math"
	"strings"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// Keywords is the single configurable source for suspicious, debt and
// recurring vocabulary. Matching is case-insensitive substring.
type Keywords struct {
	Gambling   []string `yaml:"gambling"`
	Laundering []string `yaml:"laundering"`
	Fraud      []string `yaml:"fraud"`
	Debt       []string `yaml:"debt"`
	Recurring  []string `yaml:"recurring"`
}

// DefaultKeywords returns the built-in lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Gambling: []string{
			"bet", "casa de apostas", "jogo", "aposta", "casino", "cassino", "loteria",
			"bingo", "poker", "slots", "roleta", "blackjack", "esportiva",
		},
		Laundering: []string{
			"transferencia rapida", "dinheiro facil", "cambio", "remessa", "ordem de pagamento",
			"recebimento terceiros",
		},
		Fraud: []string{
			"chargeback", "estorno", "contestacao", "disputa", "reversao", "cancelamento",
		},
		Debt: []string{
			"financiamento", "emprestimo", "cartao", "parcelamento",
			"financing", "loan", "credit", "installment",
		},
		Recurring: []string{
			"salario", "salary", "rent", "aluguel", "internet", "telefone",
			"energia", "agua", "assinatura", "subscription", "mensalidade",
		},
	}
}

// Merge fills empty lists in k from defaults.
func (k Keywords) Merge(defaults Keywords) Keywords {
	if len(k.Gambling) == 0 {
		k.Gambling = defaults.Gambling
	}
	if len(k.Laundering) == 0 {
		k.Laundering = defaults.Laundering
	}
	if len(k.Fraud) == 0 {
		k.Fraud = defaults.Fraud
	}
	if len(k.Debt) == 0 {
		k.Debt = defaults.Debt
	}
	if len(k.Recurring) == 0 {
		k.Recurring = defaults.Recurring
	}
	return k
}

// Classifier evaluates transactions against a Keywords set.
type Classifier struct {
	kw Keywords
}

// NewClassifier lowercases the lists once.
func NewClassifier(kw Keywords) *Classifier {
	return &Classifier{kw: Keywords{
		Gambling:   lower(kw.Gambling),
		Laundering: lower(kw.Laundering),
		Fraud:      lower(kw.Fraud),
		Debt:       lower(kw.Debt),
		Recurring:  lower(kw.Recurring),
	}}
}

// Default returns a classifier over DefaultKeywords.
func Default() *Classifier {
	return NewClassifier(DefaultKeywords())
}

// IsGambling reports a gambling keyword in the description.
func (c *Classifier) IsGambling(tx domain.Transaction) bool {
	return containsAny(tx.Description, c.kw.Gambling)
}

// IsSuspicious triggers on any gambling/laundering/fraud keyword, on a round
// amount above 10000, or on any amount above 50000.
func (c *Classifier) IsSuspicious(tx domain.Transaction) bool {
	if containsAny(tx.Description, c.kw.Gambling) ||
		containsAny(tx.Description, c.kw.Laundering) ||
		containsAny(tx.Description, c.kw.Fraud) {
		return true
	}
	amount := math.Abs(tx.Amount)
	return (amount > 10000 && isMultipleOf(amount, 1000)) || amount > 50000
}

// IsDebtPayment reports a debit whose description names a debt product.
func (c *Classifier) IsDebtPayment(tx domain.Transaction) bool {
	return tx.IsDebit() && containsAny(tx.Description, c.kw.Debt)
}

// IsRecurring reports a description typical of recurring bills or salary.
func (c *Classifier) IsRecurring(tx domain.Transaction) bool {
	return containsAny(tx.Description, c.kw.Recurring)
}

// Score returns a per-transaction risk score in [0,1].
func (c *Classifier) Score(tx domain.Transaction) float64 {
	amount := math.Abs(tx.Amount)
	score := 0.0
	switch {
	case amount > 50000:
		score += 0.8
	case amount > 20000:
		score += 0.5
	case amount > 10000:
		score += 0.3
	}
	if containsAny(tx.Description, c.kw.Gambling) {
		score += 0.9
	}
	if containsAny(tx.Description, c.kw.Laundering) {
		score += 0.7
	}
	if containsAny(tx.Description, c.kw.Fraud) {
		score += 0.8
	}
	if amount > 0 && isMultipleOf(amount, 1000) {
		score += 0.2
	}
	return math.Min(score, 1)
}

// Counts returns the suspicious and gambling transaction counts.
func (c *Classifier) Counts(txs []domain.Transaction) (suspicious, gambling int) {
	for _, tx := range txs {
		if c.IsSuspicious(tx) {
			suspicious++
		}
		if c.IsGambling(tx) {
			gambling++
		}
	}
	return suspicious, gambling
}

func containsAny(description string, keywords []string) bool {
	d := strings.ToLower(description)
	for _, k := range keywords {
		if k != "" && strings.Contains(d, k) {
			return true
		}
	}
	return false
}

func isMultipleOf(amount, unit float64) bool {
	return math.Mod(amount, unit) == 0
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
