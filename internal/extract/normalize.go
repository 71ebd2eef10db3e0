package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const maxDescriptionLen = 100

var (
	dotCents     = regexp.MustCompile(`^\d+\.\d{2}$`)
	whitespace   = regexp.MustCompile(`\s+`)
	nonWordChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
)

// ParseAmount reads a Brazilian-formatted money string such as "R$ 1.234,56",
// "-89,90" or "-R$ 30". A comma marks the decimal part; dots are thousands
// separators unless the string is plain "123.45".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(raw, "R$", "")
	s = strings.Join(strings.Fields(s), "")

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimLeft(s, "-")
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimRight(s, "-")
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dotCents.MatchString(s):
	default:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), nil
}

// ParseDate reads DD/MM, DD/MM/YY or DD/MM/YYYY. Missing years take the year
// of now; two-digit years are in the 2000s.
func ParseDate(raw string, now time.Time) (civil.Date, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return civil.Date{}, fmt.Errorf("ParseDate: unexpected date %q", raw)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return civil.Date{}, fmt.Errorf("ParseDate: day in %q: %w", raw, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return civil.Date{}, fmt.Errorf("ParseDate: month in %q: %w", raw, err)
	}

	year := now.Year()
	if len(parts) == 3 {
		year, err = strconv.Atoi(parts[2])
		if err != nil {
			return civil.Date{}, fmt.Errorf("ParseDate: year in %q: %w", raw, err)
		}
		if len(parts[2]) == 2 {
			year += 2000
		}
	}

	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, fmt.Errorf("ParseDate: invalid calendar date %q", raw)
	}
	return d, nil
}

// CleanDescription collapses whitespace, drops punctuation other than "-" and
// "_", and truncates to 100 characters.
func CleanDescription(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = nonWordChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(s) > maxDescriptionLen {
		s = strings.TrimSpace(string([]rune(s)[:maxDescriptionLen]))
	}
	return s
}
