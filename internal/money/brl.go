// Package money formats amounts in Brazilian reais.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders d as "R$ 1.234,56", with a leading "-" for negatives.
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatFloat is FormatBRL for float amounts.
func FormatFloat(f float64) string {
	return FormatBRL(decimal.NewFromFloat(f))
}

// Sum adds amounts without float drift.
func Sum(amounts ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total
}
