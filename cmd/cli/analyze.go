package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-insights/internal/bank"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/money"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/report"
)

func newAnalyzeCommand(o *rootOptions) *cobra.Command {
	var (
		format  string
		save    bool
		publish bool
		userID  string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file|gs://bucket/object>",
		Short: "Analyze one statement and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			uri := args[0]

			a, err := o.app(ctx, save)
			if err != nil {
				return err
			}
			defer a.Close()

			if save && a.Store == nil {
				return errors.New("--save needs a store; set store.driver to sqlite or bigquery")
			}
			if publish && a.Publisher == nil {
				return errors.New("--publish needs notion.enabled in the configuration")
			}

			text, err := a.Source.Fetch(ctx, uri)
			if err != nil {
				return err
			}

			result, err := a.Analyzer.AnalyzeText(ctx, pipeline.Input{
				Text:     text,
				FileName: filepath.Base(uri),
				UserID:   userID,
			})
			if err != nil {
				return err
			}

			if save {
				if err := a.Store.SaveAnalysis(ctx, result); err != nil {
					return err
				}
				o.log.Info().Str("analysis_id", result.ID).Msg("Analysis saved")
			}
			if publish {
				if err := a.Publisher.Publish(ctx, result); err != nil {
					return err
				}
			}

			return writeResult(cmd.OutOrStdout(), result, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, report, html, csv or text")
	cmd.Flags().BoolVar(&save, "save", false, "save the analysis to the configured store")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish the analysis to Notion")
	cmd.Flags().StringVar(&userID, "user", "", "owner recorded on the analysis")

	return cmd
}

func newDetectCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file|gs://bucket/object>",
		Short: "Identify the issuing bank of a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := o.app(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			text, err := a.Source.Fetch(ctx, args[0])
			if err != nil {
				return err
			}

			d := bank.Detect(text)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Bank:       %s (%s)\n", d.BankName, d.Bank)
			fmt.Fprintf(w, "Confidence: %.2f\n", d.Confidence)
			fmt.Fprintf(w, "Method:     %s\n", d.Method)
			return nil
		},
	}
}

// writeResult renders result in one of the CLI output formats.
func writeResult(w io.Writer, result *domain.AnalysisResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)

	case "report":
		out, err := report.JSON(result.ReportData)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err

	case "html":
		out, err := report.HTML(result.ReportData)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err

	case "csv":
		for i, sheet := range report.Sheets(result.ReportData) {
			out, err := report.CSV(sheet)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# %s\n%s", sheet.Name, out)
		}
		return nil

	case "text":
		writeText(w, result)
		return nil

	default:
		return fmt.Errorf("unknown format %q (want json, report, html, csv or text)", format)
	}
}

func writeText(w io.Writer, r *domain.AnalysisResult) {
	fa := r.FinancialAnalysis

	fmt.Fprintln(w, "\n=== Analysis ===")
	fmt.Fprintf(w, "ID:           %s\n", r.ID)
	fmt.Fprintf(w, "File:         %s\n", r.FileName)
	fmt.Fprintf(w, "Bank:         %s\n", r.BankDetection.BankName)
	fmt.Fprintf(w, "Period:       %s\n", r.ReportData.Period)
	fmt.Fprintf(w, "Credit score: %d (%s)\n", fa.CreditScore, fa.RiskLevel)
	fmt.Fprintf(w, "Income:       %s\n", money.FormatFloat(fa.TotalCredits))
	fmt.Fprintf(w, "Expenses:     %s\n", money.FormatFloat(fa.TotalDebits))
	fmt.Fprintf(w, "Balance:      %s\n", money.FormatFloat(fa.FinalBalance))

	fmt.Fprintf(w, "\n=== Transactions (%d) ===\n", len(r.Transactions))
	for i, tx := range r.Transactions {
		amount := money.FormatFloat(tx.Amount)
		if tx.IsDebit() {
			amount = "-" + amount
		}
		fmt.Fprintf(w, "%3d. %s  %-40s %15s  %s\n", i+1, tx.Date, tx.Description, amount, tx.Category)
	}

	if len(r.FraudAlerts) > 0 {
		fmt.Fprintf(w, "\n=== Fraud alerts (%d) ===\n", len(r.FraudAlerts))
		for _, alert := range r.FraudAlerts {
			fmt.Fprintf(w, "- %s: %s\n", alert.Pattern, alert.Description)
		}
	}

	if len(fa.Recommendations) > 0 {
		fmt.Fprintln(w, "\n=== Recommendations ===")
		for _, rec := range fa.Recommendations {
			fmt.Fprintf(w, "- %s\n", rec)
		}
	}
	fmt.Fprintln(w)
}
