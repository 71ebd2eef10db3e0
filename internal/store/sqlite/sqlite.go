// Package sqlite stores analyses in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/risk"
	"github.com/dvloznov/finance-insights/internal/store"
)

//go:embed schema.sql
var schema string

// timeLayout is fixed width so stored instants sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the database connection.
type DB struct {
	*sql.DB
	classifier *risk.Classifier
}

// Open opens (or creates) the database at dbPath and applies the schema.
// A nil classifier uses the default risk keywords.
func Open(dbPath string, classifier *risk.Classifier) (*DB, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if classifier == nil {
		classifier = risk.Default()
	}
	db := &DB{DB: conn, classifier: classifier}
	if err := db.Init(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Init creates tables if they don't exist.
func (db *DB) Init() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// SaveAnalysis writes the analysis and all of its transactions in one
// transaction. Saving an existing ID replaces it.
func (db *DB) SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error {
	log := logger.FromContext(ctx)

	if err := store.Validate(result); err != nil {
		return fmt.Errorf("SaveAnalysis: %w", err)
	}
	payload, err := store.EncodePayload(result)
	if err != nil {
		return fmt.Errorf("SaveAnalysis: %w", err)
	}
	sum := store.SummaryOf(db.classifier, result)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveAnalysis: begin: %w", err)
	}
	defer tx.Rollback()

	// cascades to the previous transaction rows
	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, result.ID); err != nil {
		return fmt.Errorf("SaveAnalysis: replace %s: %w", result.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (
			id, user_id, conversation_id, file_name, bank, created_at, created_date,
			credit_score, risk_level, total_income, total_expenses, balance,
			transaction_count, suspicious_transactions, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sum.ID, sum.UserID, result.ConversationID, sum.FileName, sum.Bank,
		sum.CreatedAt.Format(timeLayout), civil.DateOf(sum.CreatedAt).String(),
		sum.CreditScore, string(sum.RiskLevel), sum.TotalIncome, sum.TotalExpenses, sum.Balance,
		sum.TransactionCount, sum.SuspiciousTransactions, payload)
	if err != nil {
		return fmt.Errorf("SaveAnalysis: insert analysis: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			analysis_id, position, date, description, amount, type, category, subcategory,
			category_confidence, is_suspicious, is_recurring, risk_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("SaveAnalysis: prepare transactions: %w", err)
	}
	defer stmt.Close()

	for i, t := range result.Transactions {
		f := store.Flags(db.classifier, t)
		_, err := stmt.ExecContext(ctx, result.ID, i, t.Date.String(), t.Description, t.Amount, string(t.Type),
			t.Category, t.Subcategory, t.CategoryConfidence, f.IsSuspicious, f.IsRecurring, f.RiskScore)
		if err != nil {
			return fmt.Errorf("SaveAnalysis: insert transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveAnalysis: commit: %w", err)
	}

	log.Debug().
		Str("analysis_id", result.ID).
		Int("transactions", len(result.Transactions)).
		Msg("Saved analysis")
	return nil
}

// GetAnalysis returns the stored analysis with the given ID.
func (db *DB) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	var payload string
	err := db.QueryRowContext(ctx, `SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetAnalysis: analysis %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetAnalysis: %w", err)
	}
	return store.DecodePayload(payload)
}

const summaryColumns = `
	id, user_id, file_name, bank, created_at, credit_score, risk_level,
	total_income, total_expenses, balance, transaction_count, suspicious_transactions
`

// ListByRiskLevel returns analyses with the given risk level, newest first.
func (db *DB) ListByRiskLevel(ctx context.Context, level domain.RiskLevel) ([]store.Summary, error) {
	return db.listSummaries(ctx, `
		SELECT `+summaryColumns+`
		FROM analyses
		WHERE risk_level = ?
		ORDER BY created_at DESC, id
	`, string(level))
}

// ListByScoreRange returns analyses scoring within [min, max], highest first.
func (db *DB) ListByScoreRange(ctx context.Context, min, max int) ([]store.Summary, error) {
	return db.listSummaries(ctx, `
		SELECT `+summaryColumns+`
		FROM analyses
		WHERE credit_score BETWEEN ? AND ?
		ORDER BY credit_score DESC, created_at DESC
	`, min, max)
}

// ListByDateRange returns analyses created on days from through to, newest first.
func (db *DB) ListByDateRange(ctx context.Context, from, to civil.Date) ([]store.Summary, error) {
	return db.listSummaries(ctx, `
		SELECT `+summaryColumns+`
		FROM analyses
		WHERE created_date BETWEEN ? AND ?
		ORDER BY created_at DESC, id
	`, from.String(), to.String())
}

func (db *DB) listSummaries(ctx context.Context, query string, args ...any) ([]store.Summary, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var summaries []store.Summary
	for rows.Next() {
		var s store.Summary
		var createdAt, level string
		if err := rows.Scan(&s.ID, &s.UserID, &s.FileName, &s.Bank, &createdAt, &s.CreditScore, &level,
			&s.TotalIncome, &s.TotalExpenses, &s.Balance, &s.TransactionCount, &s.SuspiciousTransactions); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		s.RiskLevel = domain.RiskLevel(level)
		if s.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", s.ID, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Stats aggregates all stored analyses.
func (db *DB) Stats(ctx context.Context) (store.Stats, error) {
	stats := store.Stats{RiskDistribution: map[domain.RiskLevel]int{}}

	var avg sql.NullFloat64
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			AVG(credit_score),
			COALESCE(SUM(total_income), 0),
			COALESCE(SUM(total_expenses), 0),
			COALESCE(SUM(CASE WHEN balance > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN suspicious_transactions > 0 THEN 1 ELSE 0 END), 0)
		FROM analyses
	`).Scan(&stats.TotalCount, &avg, &stats.TotalIncome, &stats.TotalExpenses,
		&stats.PositiveBalanceCount, &stats.SuspiciousCount)
	if err != nil {
		return store.Stats{}, fmt.Errorf("Stats: %w", err)
	}
	stats.AverageScore = avg.Float64

	rows, err := db.QueryContext(ctx, `SELECT risk_level, COUNT(*) FROM analyses GROUP BY risk_level`)
	if err != nil {
		return store.Stats{}, fmt.Errorf("Stats: risk distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return store.Stats{}, fmt.Errorf("Stats: scan risk distribution: %w", err)
		}
		stats.RiskDistribution[domain.RiskLevel(level)] = n
	}
	return stats, rows.Err()
}

// SuspiciousTransactions returns the flagged rows of one analysis in extraction order.
func (db *DB) SuspiciousTransactions(ctx context.Context, analysisID string) ([]store.FlaggedTransaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT date, description, amount, type, category, subcategory,
			   category_confidence, is_suspicious, is_recurring, risk_score
		FROM transactions
		WHERE analysis_id = ? AND is_suspicious = 1
		ORDER BY position
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("SuspiciousTransactions: %w", err)
	}
	defer rows.Close()

	var out []store.FlaggedTransaction
	for rows.Next() {
		var ft store.FlaggedTransaction
		var date, typ string
		if err := rows.Scan(&date, &ft.Description, &ft.Amount, &typ, &ft.Category, &ft.Subcategory,
			&ft.CategoryConfidence, &ft.IsSuspicious, &ft.IsRecurring, &ft.RiskScore); err != nil {
			return nil, fmt.Errorf("SuspiciousTransactions: scan: %w", err)
		}
		if ft.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("SuspiciousTransactions: parse date %q: %w", date, err)
		}
		ft.Type = domain.TransactionType(typ)
		out = append(out, ft)
	}
	return out, rows.Err()
}

var _ store.Store = (*DB)(nil)
