package main

import (
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/money"
	"github.com/dvloznov/finance-insights/internal/store"
)

func newShowCommand(o *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <analysis-id>",
		Short: "Print a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := o.storeApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Store.GetAnalysis(ctx, args[0])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), result, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: json, report, html, csv or text")
	return cmd
}

func newListCommand(o *rootOptions) *cobra.Command {
	var (
		riskLevel string
		minScore  int
		maxScore  int
		from      string
		to        string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored analyses by risk level, score range or creation date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			a, err := o.storeApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var summaries []store.Summary
			switch {
			case flags.Changed("risk-level"):
				level := domain.RiskLevel(riskLevel)
				if !level.Valid() {
					return fmt.Errorf("--risk-level must be low, medium or high, got %q", riskLevel)
				}
				summaries, err = a.Store.ListByRiskLevel(ctx, level)

			case flags.Changed("min-score") || flags.Changed("max-score"):
				if minScore > maxScore {
					return errors.New("--min-score must not exceed --max-score")
				}
				summaries, err = a.Store.ListByScoreRange(ctx, minScore, maxScore)

			case flags.Changed("from") || flags.Changed("to"):
				var start, end civil.Date
				start, end, err = dateRange(from, to)
				if err != nil {
					return err
				}
				summaries, err = a.Store.ListByDateRange(ctx, start, end)

			default:
				return errors.New("one of --risk-level, --min-score/--max-score or --from/--to is required")
			}
			if err != nil {
				return err
			}

			writeSummaries(cmd.OutOrStdout(), summaries)
			return nil
		},
	}

	cmd.Flags().StringVar(&riskLevel, "risk-level", "", "low, medium or high")
	cmd.Flags().IntVar(&minScore, "min-score", 300, "lowest credit score")
	cmd.Flags().IntVar(&maxScore, "max-score", 850, "highest credit score")
	cmd.Flags().StringVar(&from, "from", "", "first creation date, YYYY-MM-DD (default 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "last creation date, YYYY-MM-DD (default today)")

	return cmd
}

func newStatsCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize every stored analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := o.storeApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.Store.Stats(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Analyses:          %d\n", s.TotalCount)
			fmt.Fprintf(w, "Average score:     %.1f\n", s.AverageScore)
			fmt.Fprintf(w, "Total income:      %s\n", money.FormatFloat(s.TotalIncome))
			fmt.Fprintf(w, "Total expenses:    %s\n", money.FormatFloat(s.TotalExpenses))
			fmt.Fprintf(w, "Positive balance:  %d\n", s.PositiveBalanceCount)
			fmt.Fprintf(w, "With suspicious:   %d\n", s.SuspiciousCount)
			for _, level := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh} {
				fmt.Fprintf(w, "Risk %-7s       %d\n", level+":", s.RiskDistribution[level])
			}
			return nil
		},
	}
}

func newSuspiciousCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suspicious <analysis-id>",
		Short: "List the suspicious transactions of a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := o.storeApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			txs, err := a.Store.SuspiciousTransactions(ctx, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "=== Suspicious transactions (%d) ===\n", len(txs))
			for i, tx := range txs {
				fmt.Fprintf(w, "%3d. %s  %-40s %15s  risk %.2f\n", i+1, tx.Date, tx.Description, money.FormatFloat(tx.Amount), tx.RiskScore)
			}
			return nil
		},
	}
}

func writeSummaries(w io.Writer, summaries []store.Summary) {
	for _, s := range summaries {
		fmt.Fprintf(w, "%-36s  %s  %-24s %4d  %-6s  %15s\n",
			s.ID,
			s.CreatedAt.Format("2006-01-02 15:04"),
			s.FileName,
			s.CreditScore,
			s.RiskLevel,
			money.FormatFloat(s.Balance),
		)
	}
	fmt.Fprintf(w, "%d analyses\n", len(summaries))
}

// dateRange parses --from/--to, defaulting to the last 30 days.
func dateRange(from, to string) (civil.Date, civil.Date, error) {
	end := civil.DateOf(timeNow())
	if to != "" {
		d, err := civil.ParseDate(to)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("--to: %w", err)
		}
		end = d
	}
	start := end.AddDays(-30)
	if from != "" {
		d, err := civil.ParseDate(from)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("--from: %w", err)
		}
		start = d
	}
	if end.Before(start) {
		return civil.Date{}, civil.Date{}, errors.New("--from must not be after --to")
	}
	return start, end, nil
}
