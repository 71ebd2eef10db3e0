package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-insights/internal/app"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions carries the global flags and what PersistentPreRunE builds
// from them.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCommand() *cobra.Command {
	o := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "finance-insights",
		Short:   "Analyze Brazilian bank statements and score financial health",
		Version: pipeline.Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&o.configPath, "config", "", "path to finance-insights.yaml (or set FINANCE_INSIGHTS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newAnalyzeCommand(o),
		newDetectCommand(o),
		newServeQueueCommand(o),
		newShowCommand(o),
		newListCommand(o),
		newStatsCommand(o),
		newSuspiciousCommand(o),
		newMigrateCommand(o),
		newSyncNotionCommand(o),
		newUploadCommand(o),
		newVersionCommand(),
	)

	return rootCmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	o.cfg = cfg
	o.log = logger.NewWithOptions(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Out:    cmd.ErrOrStderr(),
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx, o.log))
	return nil
}

// app builds the collaborators for one command. withStore false skips
// opening the configured store.
func (o *rootOptions) app(ctx context.Context, withStore bool) (*app.App, error) {
	cfg := *o.cfg
	if !withStore {
		cfg.Store.Driver = "none"
	}
	return app.New(ctx, &cfg)
}

// storeApp is app with a store that must be configured.
func (o *rootOptions) storeApp(ctx context.Context) (*app.App, error) {
	a, err := o.app(ctx, true)
	if err != nil {
		return nil, err
	}
	if a.Store == nil {
		a.Close()
		return nil, fmt.Errorf("no analysis store configured (store.driver is %q)", o.cfg.Store.Driver)
	}
	return a, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the analyzer version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "finance-insights %s\n", pipeline.Version)
			return nil
		},
	}
}
