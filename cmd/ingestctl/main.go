// Command ingestctl manages the GCP infrastructure cloud-ingest runs on:
// the Spanner database, the Pub/Sub topic topology, the GCS-to-BigQuery
// importer function, and the DCP instance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cloud-ingest/internal/app"
	"cloud-ingest/internal/config"
	"cloud-ingest/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	projectID     string
	zone          string
	runDCP        bool
	dcpImage      string
	functionSrc   string
	stagingBucket string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	var flags cliFlags

	rootCmd := &cobra.Command{
		Use:           "ingestctl",
		Short:         "Manage cloud-ingest GCP infrastructure",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.projectID, "project-id", "", "GCP project id (defaults to PROJECT_ID)")
	pf.StringVar(&flags.zone, "zone", "", "GCE zone for the DCP instance")
	pf.BoolVar(&flags.runDCP, "run-dcp", false, "also create the DCP GCE instance")
	pf.StringVar(&flags.dcpImage, "dcp-image", "", "DCP container image override")
	pf.StringVar(&flags.functionSrc, "function-source", "", "directory with the GCS-to-BQ importer source")
	pf.StringVar(&flags.stagingBucket, "staging-bucket", "", "GCS bucket for staged function source")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newCreateCmd(&flags))
	rootCmd.AddCommand(newTearDownCmd(&flags))
	rootCmd.AddCommand(newStatusCmd(&flags))
	return rootCmd
}

// loadConfig merges the environment config with command-line overrides.
func loadConfig(flags *cliFlags) (*config.Config, *slog.Logger, error) {
	if flags.projectID != "" {
		os.Setenv("PROJECT_ID", flags.projectID)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if flags.zone != "" {
		cfg.Infra.Zone = flags.zone
	}
	if flags.dcpImage != "" {
		cfg.Infra.DCPImage = flags.dcpImage
	}
	if flags.functionSrc != "" {
		cfg.Infra.FunctionSourceDir = flags.functionSrc
	}
	if flags.stagingBucket != "" {
		cfg.Infra.StagingBucket = flags.stagingBucket
	}
	cfg.Infra.RunDCP = cfg.Infra.RunDCP || flags.runDCP
	cfg.LogLevel = flags.logLevel

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return cfg, logger, nil
}

// wire builds the fully-wired application for a CLI invocation.
func wire(ctx context.Context, flags *cliFlags) (*app.App, func(), error) {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(ctx, cfg.ProjectID, cfg.SpannerInstance, cfg.SpannerDatabase, logger)
	if err != nil {
		return nil, nil, err
	}
	application, err := app.New(ctx, app.Deps{Cfg: cfg, Store: st, Logger: logger})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	cleanup := func() {
		application.Close() //nolint:errcheck
		st.Close()
	}
	return application, cleanup, nil
}

func newCreateCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the Spanner database, Pub/Sub topics, importer function, and optionally the DCP instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, cleanup, err := wire(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.Services.Infra.Create(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "infrastructure created")
			return nil
		},
	}
}

func newTearDownCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Tear down all cloud-ingest infrastructure",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, cleanup, err := wire(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.Services.Infra.TearDown(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "infrastructure deleted")
			return nil
		},
	}
}

func newStatusCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the status of each infrastructure component as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, cleanup, err := wire(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			status, err := application.Services.Infra.Statuses(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
}
