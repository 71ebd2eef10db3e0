package extract

import (
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/bank"
	"github.com/dvloznov/finance-insights/internal/domain"
)

var (
	genericDate   = regexp.MustCompile(`\b\d{2}/\d{2}(?:/\d{4}|/\d{2})?\b`)
	genericAmount = regexp.MustCompile(`(?:^|\s)(-?(?:R\$[ \t]*)?-?(?:\d{1,3}(?:\.\d{3})+|\d+)(?:[.,]\d{2})?)\b`)
)

// Parser runs the bank-profile regexes and the generic line scanner.
type Parser struct {
	now func() time.Time
}

// ParserOption customizes a Parser.
type ParserOption func(*Parser)

// WithClock sets the clock used to fill in missing years.
func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) { p.now = now }
}

// NewParser creates a Parser using the wall clock.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseTransactions extracts transactions with the profile of bankCode,
// falling back to the generic line scanner when the bank is unknown or the
// profile matched nothing.
func (p *Parser) ParseTransactions(text, bankCode string) []domain.Transaction {
	if prof, ok := bank.Lookup(bankCode); ok {
		if txs := p.ParseWithProfile(text, prof); len(txs) > 0 {
			return txs
		}
	}
	return p.ParseGeneric(text)
}

// ParseWithProfile iterates all non-overlapping line matches of prof. Rows
// with a zero amount are skipped.
func (p *Parser) ParseWithProfile(text string, prof bank.Profile) []domain.Transaction {
	now := p.now()
	dateIdx := prof.Line.SubexpIndex("date")
	descIdx := prof.Line.SubexpIndex("desc")
	amountIdx := prof.Line.SubexpIndex("amount")

	var txs []domain.Transaction
	for _, m := range prof.Line.FindAllStringSubmatch(text, -1) {
		rawDesc := strings.TrimSpace(m[descIdx])
		if m[dateIdx] == "" || rawDesc == "" || m[amountIdx] == "" {
			continue
		}

		date, err := ParseDate(m[dateIdx], now)
		if err != nil {
			continue
		}
		amount, err := ParseAmount(m[amountIdx])
		if err != nil || amount.IsZero() {
			continue
		}
		desc := CleanDescription(rawDesc)
		if desc == "" {
			continue
		}

		txs = append(txs, newTransaction(date, desc, amount, categoryHint(rawDesc, prof.Categories), prof.Name))
	}
	return txs
}

// ParseGeneric scans every line for a date and an amount. The date is removed
// first, the last amount-shaped token is the amount and the rest of the line
// is the description.
func (p *Parser) ParseGeneric(text string) []domain.Transaction {
	now := p.now()

	var txs []domain.Transaction
	for _, line := range strings.Split(text, "\n") {
		loc := genericDate.FindStringIndex(line)
		if loc == nil {
			continue
		}
		date, err := ParseDate(line[loc[0]:loc[1]], now)
		if err != nil {
			continue
		}

		rest := line[:loc[0]] + " " + line[loc[1]:]
		amountLoc := lastAmount(rest)
		if amountLoc == nil {
			continue
		}
		amount, err := ParseAmount(rest[amountLoc[0]:amountLoc[1]])
		if err != nil || amount.IsZero() {
			continue
		}

		desc := CleanDescription(rest[:amountLoc[0]] + " " + rest[amountLoc[1]:])
		if desc == "" {
			continue
		}
		txs = append(txs, newTransaction(date, desc, amount, domain.CategoryGeneric, ""))
	}
	return txs
}

// lastAmount prefers the last token carrying cents or a currency marker and
// otherwise takes the last bare number.
func lastAmount(s string) []int {
	matches := genericAmount.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return nil
	}
	for i := len(matches) - 1; i >= 0; i-- {
		tok := s[matches[i][2]:matches[i][3]]
		if strings.Contains(tok, "R$") || strings.ContainsAny(tok, ",.") {
			return matches[i][2:4]
		}
	}
	last := matches[len(matches)-1]
	return last[2:4]
}

func categoryHint(desc string, hints []bank.CategoryHint) string {
	d := strings.ToLower(desc)
	for _, h := range hints {
		for _, k := range h.Keywords {
			if strings.Contains(d, k) {
				return h.Category
			}
		}
	}
	return domain.CategoryOther
}

func newTransaction(date civil.Date, desc string, amount decimal.Decimal, category, bankName string) domain.Transaction {
	typ := domain.TypeCredit
	if amount.IsNegative() {
		typ = domain.TypeDebit
	}
	return domain.Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount.Abs().InexactFloat64(),
		Type:        typ,
		Category:    category,
		Bank:        bankName,
	}
}
