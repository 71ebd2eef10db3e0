package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// TransactionType carries the direction of a money movement.
type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

// Valid reports whether t is one of the known directions.
func (t TransactionType) Valid() bool {
	return t == TypeCredit || t == TypeDebit
}

// Transaction is a single dated money movement extracted from a statement.
// Amount is always a magnitude; the sign lives in Type.
type Transaction struct {
	Date               civil.Date      `json:"date"`
	Description        string          `json:"description"`
	Amount             float64         `json:"amount"`
	Type               TransactionType `json:"type"`
	Category           string          `json:"category"`
	Subcategory        string          `json:"subcategory,omitempty"`
	Bank               string          `json:"bank,omitempty"`
	CategoryConfidence float64         `json:"categoryConfidence"`
	MatchedKeywords    []string        `json:"matchedKeywords,omitempty"`

	// PostedAt is set when the source carries an intraday timestamp.
	PostedAt *time.Time `json:"postedAt,omitempty"`
}

// IsCredit reports whether the transaction brings money in.
func (t Transaction) IsCredit() bool { return t.Type == TypeCredit }

// IsDebit reports whether the transaction takes money out.
func (t Transaction) IsDebit() bool { return t.Type == TypeDebit }

// Timestamp returns PostedAt when known, otherwise midnight UTC of Date.
func (t Transaction) Timestamp() time.Time {
	if t.PostedAt != nil {
		return *t.PostedAt
	}
	return t.Date.In(time.UTC)
}

// MonthKey groups transactions by calendar month as YYYY-MM.
func (t Transaction) MonthKey() string {
	return t.Date.String()[:7]
}

// Placeholder categories assigned before categorization.
const (
	CategoryOther   = "Outros"
	CategoryGeneric = "Geral"
)

// IsPlaceholderCategory reports whether c still needs categorization.
func IsPlaceholderCategory(c string) bool {
	return c == "" || c == CategoryOther || c == CategoryGeneric
}
