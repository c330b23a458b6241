// Command updater supervises the local transfer agent. It checks the
// release object in GCS on a schedule and downloads, unpacks, and restarts
// the agent whenever the advertised version changes. All non-flag
// arguments are passed through to the agent.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/robfig/cron/v3"
	flag "github.com/spf13/pflag"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"cloud-ingest/internal/config"
	"cloud-ingest/internal/updater"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		stableSource  = flag.String("stable-agent-source", config.DefaultStableAgentSource, "gs:// URL of the stable agent tarball")
		checkInterval = flag.Duration("check-interval", config.DefaultCheckInterval, "how often to check the release version")
		workDir       = flag.String("work-dir", "/cloud-ingest/agent", "directory the agent is unpacked into and run from")
		sourceDir     = flag.String("source-dir", "/tmp", "directory holding per-PID agent-source files")
		accessToken   = flag.String("access-token", "", "OAuth2 access token for GCS (default: application default credentials)")
		logLevel      = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := (&config.Config{LogLevel: *logLevel}).SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	stable, err := updater.ParseSource(*stableSource)
	if err != nil {
		return err
	}

	var clientOpts []option.ClientOption
	if *accessToken != "" {
		clientOpts = append(clientOpts, option.WithTokenSource(
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: *accessToken})))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf("storage client: %w", err)
	}
	defer client.Close() //nolint:errcheck

	// The agent reports which container it runs in.
	agentArgs := flag.Args()
	if hostname, err := os.Hostname(); err == nil {
		agentArgs = append(agentArgs, "--container-id="+hostname)
	}

	u := updater.New(client, updater.Config{
		StableSource: stable,
		WorkDir:      *workDir,
		SourceDir:    *sourceDir,
		AgentArgs:    agentArgs,
	}, logger)

	check := func() {
		if err := u.CheckOnce(ctx); err != nil {
			logger.Error("update check failed", "error", err)
		}
	}

	// First check runs right away so a fresh container gets an agent
	// without waiting a full interval.
	check()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", *checkInterval), check); err != nil {
		return fmt.Errorf("scheduling update checks: %w", err)
	}
	scheduler.Start()
	logger.Info("updater running", "interval", checkInterval.String(), "stable_source", stable.String())

	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}
