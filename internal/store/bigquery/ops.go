package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/store"
)

const (
	analysesTable     = "analyses"
	transactionsTable = "analysis_transactions"
)

// latestAnalyses keeps the newest copy of each analysis. Re-saving streams a
// new row instead of updating the old one.
const latestAnalyses = `
	SELECT *
	FROM %s
	WHERE TRUE
	QUALIFY ROW_NUMBER() OVER (PARTITION BY analysis_id ORDER BY inserted_ts DESC) = 1
`

func tableRef(client *bigquery.Client, dataset, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", client.Project(), dataset, table)
}

// InsertTransactionsWithClient streams transaction rows into the dataset.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, dataset string, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// InsertAnalysisWithClient streams the analysis row. Call it after the
// transactions of the analysis have been inserted.
func InsertAnalysisWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *AnalysisRow) error {
	inserter := client.Dataset(dataset).Table(analysesTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertAnalysis: inserting row: %w", err)
	}
	return nil
}

// GetAnalysisWithClient loads the payload of the newest row for id.
func GetAnalysisWithClient(ctx context.Context, client *bigquery.Client, dataset, id string) (*domain.AnalysisResult, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT payload
		FROM %s
		WHERE analysis_id = @analysis_id
		ORDER BY inserted_ts DESC
		LIMIT 1
	`, tableRef(client, dataset, analysesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "analysis_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAnalysis: query read: %w", err)
	}

	var row AnalysisRow
	err = it.Next(&row)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("GetAnalysis: analysis %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetAnalysis: iter next: %w", err)
	}
	if !row.Payload.Valid {
		return nil, fmt.Errorf("GetAnalysis: analysis %s has no payload", id)
	}
	return store.DecodePayload(row.Payload.JSONVal)
}

// ListAnalysesWithClient returns summaries of the newest analysis rows matching
// where. where and orderBy are trusted SQL fragments; values go in params.
func ListAnalysesWithClient(ctx context.Context, client *bigquery.Client, dataset, where, orderBy string, params []bigquery.QueryParameter) ([]store.Summary, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			analysis_id,
			user_id,
			file_name,
			bank,
			created_ts,
			credit_score,
			risk_level,
			total_income,
			total_expenses,
			balance,
			transaction_count,
			suspicious_transactions
		FROM (`+latestAnalyses+`)
		WHERE %s
		ORDER BY %s
	`, tableRef(client, dataset, analysesTable), where, orderBy))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAnalyses: query read: %w", err)
	}

	var summaries []store.Summary
	for {
		var r AnalysisRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAnalyses: iter next: %w", err)
		}
		summaries = append(summaries, r.Summary())
	}
	return summaries, nil
}

// ListByRiskLevelWithClient lists analyses of one risk level, newest first.
func ListByRiskLevelWithClient(ctx context.Context, client *bigquery.Client, dataset string, level domain.RiskLevel) ([]store.Summary, error) {
	return ListAnalysesWithClient(ctx, client, dataset,
		"risk_level = @risk_level",
		"created_ts DESC, analysis_id",
		[]bigquery.QueryParameter{{Name: "risk_level", Value: string(level)}})
}

// ListByScoreRangeWithClient lists analyses with a score in [min, max], highest first.
func ListByScoreRangeWithClient(ctx context.Context, client *bigquery.Client, dataset string, min, max int) ([]store.Summary, error) {
	return ListAnalysesWithClient(ctx, client, dataset,
		"credit_score BETWEEN @min_score AND @max_score",
		"credit_score DESC, created_ts DESC",
		[]bigquery.QueryParameter{
			{Name: "min_score", Value: min},
			{Name: "max_score", Value: max},
		})
}

// ListByDateRangeWithClient lists analyses created on days from through to, newest first.
func ListByDateRangeWithClient(ctx context.Context, client *bigquery.Client, dataset string, from, to civil.Date) ([]store.Summary, error) {
	return ListAnalysesWithClient(ctx, client, dataset,
		"created_date BETWEEN @start_date AND @end_date",
		"created_ts DESC, analysis_id",
		[]bigquery.QueryParameter{
			{Name: "start_date", Value: from},
			{Name: "end_date", Value: to},
		})
}

type statsRow struct {
	TotalCount           int64                `bigquery:"total_count"`
	AverageScore         bigquery.NullFloat64 `bigquery:"average_score"`
	TotalIncome          float64              `bigquery:"total_income"`
	TotalExpenses        float64              `bigquery:"total_expenses"`
	PositiveBalanceCount int64                `bigquery:"positive_balance_count"`
	SuspiciousCount      int64                `bigquery:"suspicious_count"`
}

type riskRow struct {
	RiskLevel string `bigquery:"risk_level"`
	Count     int64  `bigquery:"count"`
}

// StatsWithClient aggregates the newest row of every analysis.
func StatsWithClient(ctx context.Context, client *bigquery.Client, dataset string) (store.Stats, error) {
	latest := fmt.Sprintf(latestAnalyses, tableRef(client, dataset, analysesTable))

	q := client.Query(`
		SELECT
			COUNT(*) AS total_count,
			AVG(credit_score) AS average_score,
			CAST(IFNULL(SUM(total_income), 0) AS FLOAT64) AS total_income,
			CAST(IFNULL(SUM(total_expenses), 0) AS FLOAT64) AS total_expenses,
			COUNTIF(balance > 0) AS positive_balance_count,
			COUNTIF(suspicious_transactions > 0) AS suspicious_count
		FROM (` + latest + `)
	`)
	it, err := q.Read(ctx)
	if err != nil {
		return store.Stats{}, fmt.Errorf("Stats: query read: %w", err)
	}
	var sr statsRow
	if err := it.Next(&sr); err != nil && err != iterator.Done {
		return store.Stats{}, fmt.Errorf("Stats: iter next: %w", err)
	}

	stats := store.Stats{
		TotalCount:           int(sr.TotalCount),
		AverageScore:         sr.AverageScore.Float64,
		TotalIncome:          sr.TotalIncome,
		TotalExpenses:        sr.TotalExpenses,
		PositiveBalanceCount: int(sr.PositiveBalanceCount),
		SuspiciousCount:      int(sr.SuspiciousCount),
		RiskDistribution:     map[domain.RiskLevel]int{},
	}

	q = client.Query(`
		SELECT risk_level, COUNT(*) AS count
		FROM (` + latest + `)
		GROUP BY risk_level
	`)
	it, err = q.Read(ctx)
	if err != nil {
		return store.Stats{}, fmt.Errorf("Stats: risk distribution read: %w", err)
	}
	for {
		var r riskRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return store.Stats{}, fmt.Errorf("Stats: risk distribution next: %w", err)
		}
		stats.RiskDistribution[domain.RiskLevel(r.RiskLevel)] = int(r.Count)
	}
	return stats, nil
}

// SuspiciousTransactionsWithClient returns flagged rows of the newest save of
// one analysis. Transaction rows share inserted_ts with their analysis row, so
// rows from a save whose analysis row was never written are not returned.
func SuspiciousTransactionsWithClient(ctx context.Context, client *bigquery.Client, dataset, analysisID string) ([]store.FlaggedTransaction, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_date,
			t.description,
			t.amount,
			t.direction,
			t.category_name,
			t.subcategory_name,
			t.category_confidence,
			t.is_suspicious,
			t.is_recurring,
			t.risk_score
		FROM %s t
		INNER JOIN (
			SELECT analysis_id, MAX(inserted_ts) AS inserted_ts
			FROM %s
			WHERE analysis_id = @analysis_id
			GROUP BY analysis_id
		) a
		  ON t.analysis_id = a.analysis_id
		 AND t.inserted_ts = a.inserted_ts
		WHERE t.analysis_id = @analysis_id
		  AND t.is_suspicious
		ORDER BY t.position
	`, tableRef(client, dataset, transactionsTable), tableRef(client, dataset, analysesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "analysis_id", Value: analysisID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("SuspiciousTransactions: query read: %w", err)
	}

	var out []store.FlaggedTransaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("SuspiciousTransactions: iter next: %w", err)
		}
		out = append(out, r.Flagged())
	}
	return out, nil
}
