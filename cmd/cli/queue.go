package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/jobs/inmemory"
)

func newServeQueueCommand(o *rootOptions) *cobra.Command {
	var (
		pattern     string
		concurrency int
		userID      string
	)

	cmd := &cobra.Command{
		Use:   "serve-queue <directory>",
		Short: "Analyze every statement in a directory through the job queue",
		Long: "Submits each file matching --pattern as a queued job, waits for the queue\n" +
			"to drain and prints one line per job. Results are saved to the configured store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := o.log

			files, err := filepath.Glob(filepath.Join(args[0], pattern))
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no documents matching %s in %s", pattern, args[0])
			}
			slices.Sort(files)

			a, err := o.app(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if concurrency == 0 {
				concurrency = o.cfg.Queue.MaxConcurrent
			}
			jobStore := inmemory.NewStore()
			queue := inmemory.NewQueue(jobStore, inmemory.WithMaxConcurrent(concurrency))
			if err := queue.Start(ctx, a.JobHandler().Handle); err != nil {
				return err
			}
			defer queue.Stop(context.WithoutCancel(ctx))

			for _, f := range files {
				if _, err := queue.Submit(ctx, &jobs.AnalysisJob{
					DocumentURI: f,
					FileName:    filepath.Base(f),
					UserID:      userID,
				}); err != nil {
					return err
				}
			}

			log.Info().
				Int("documents", len(files)).
				Int("max_concurrent", queue.Status().MaxConcurrent).
				Msg("Waiting for queue to drain")

			if err := queue.Drain(ctx); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, j := range queue.Jobs() {
				detail := j.AnalysisID
				if j.Status == jobs.JobStatusFailed {
					detail = j.Error
				}
				fmt.Fprintf(w, "%-10s %-30s %s\n", j.Status, j.FileName, detail)
			}

			status := queue.Status()
			fmt.Fprintf(w, "\n%d completed, %d failed, %d total\n", status.Completed, status.Failed, status.Total())
			if status.Failed > 0 {
				return fmt.Errorf("%d of %d documents failed", status.Failed, status.Total())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "*.txt", "glob selecting the documents inside the directory")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "max concurrent analyses (1-10, defaults to queue.max_concurrent)")
	cmd.Flags().StringVar(&userID, "user", "", "owner recorded on every analysis")

	return cmd
}
