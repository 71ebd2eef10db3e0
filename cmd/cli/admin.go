package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-insights/internal/notionsync"
	"github.com/dvloznov/finance-insights/internal/source"
	"github.com/dvloznov/finance-insights/internal/store/bigquery"
)

var timeNow = time.Now

func newMigrateCommand(o *rootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending BigQuery schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := o.cfg.Store
			w := cmd.OutOrStdout()

			if cfg.BigQueryProject == "" {
				return errors.New("store.bigquery_project (or GOOGLE_CLOUD_PROJECT) is required")
			}

			if list {
				migrations, err := bigquery.Migrations(cfg.BigQueryProject, cfg.BigQueryDataset)
				if err != nil {
					return err
				}
				for _, m := range migrations {
					fmt.Fprintf(w, "%04d  %-40s %s\n", m.Version, m.Name, m.Checksum[:12])
				}
				return nil
			}

			repo, err := bigquery.NewRepository(ctx, bigquery.Options{
				ProjectID:       cfg.BigQueryProject,
				Dataset:         cfg.BigQueryDataset,
				CredentialsFile: cfg.CredentialsFile,
			})
			if err != nil {
				return err
			}
			defer repo.Close()

			appliedBy := os.Getenv("USER")
			if appliedBy == "" {
				appliedBy = "finance-insights"
			}
			applied, err := bigquery.Migrate(ctx, repo.Client(), cfg.BigQueryDataset, appliedBy)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Applied %d migration(s) to %s.%s\n", applied, cfg.BigQueryProject, cfg.BigQueryDataset)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migrations without connecting")
	return cmd
}

func newSyncNotionCommand(o *rootOptions) *cobra.Command {
	var (
		from       string
		to         string
		dryRun     bool
		token      string
		databaseID string
	)

	cmd := &cobra.Command{
		Use:   "sync-notion",
		Short: "Publish stored analyses created in a date range to Notion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			start, end, err := dateRange(from, to)
			if err != nil {
				return err
			}

			if token == "" {
				token = o.cfg.Notion.Token
			}
			if databaseID == "" {
				databaseID = o.cfg.Notion.DatabaseID
			}
			if databaseID == "" {
				return errors.New("--notion-db-id (or notion.database_id) is required")
			}
			if token == "" && !dryRun {
				return errors.New("--notion-token (or NOTION_TOKEN) is required")
			}

			a, err := o.storeApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var pages notionsync.AnalysisPages
			if token != "" {
				pages = notionsync.NewClient(token)
			}
			publisher := notionsync.NewPublisher(pages, databaseID)

			res, err := publisher.SyncRange(ctx, a.Store, start, end, dryRun)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d published, %d failed, %d total\n", res.Published, res.Failed, res.Total)
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d analyses failed to publish", res.Failed, res.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first creation date, YYYY-MM-DD (default 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "last creation date, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be published without calling Notion")
	cmd.Flags().StringVar(&token, "notion-token", "", "Notion API token (overrides NOTION_TOKEN)")
	cmd.Flags().StringVar(&databaseID, "notion-db-id", "", "Notion database ID (overrides notion.database_id)")

	return cmd
}

func newUploadCommand(o *rootOptions) *cobra.Command {
	var (
		bucket string
		object string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a statement to GCS for later analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filePath := args[0]

			if bucket == "" {
				bucket = o.cfg.Source.Bucket
			}
			if bucket == "" {
				return errors.New("--bucket (or source.bucket / GCS_BUCKET) is required")
			}
			if object == "" {
				object = fmt.Sprintf("uploads/%s/%s-%s", timeNow().Format("2006/01/02"), uuid.NewString(), filepath.Base(filePath))
			}

			gcs, err := source.NewGCSStore(ctx, o.cfg.Store.CredentialsFile)
			if err != nil {
				return err
			}
			defer gcs.Close()

			o.log.Info().
				Str("bucket", bucket).
				Str("object", object).
				Str("file", filePath).
				Msg("Uploading file to GCS")

			if err := gcs.Upload(ctx, bucket, object, filePath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), source.GCSURI(bucket, object))
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket (defaults to source.bucket)")
	cmd.Flags().StringVar(&object, "object", "", "object name (defaults to uploads/<date>/<uuid>-<file>)")

	return cmd
}
