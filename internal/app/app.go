// Package app provides application-level wiring and dependency injection
// for the cloud-ingest backend following hexagonal architecture.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"cloud-ingest/internal/config"
	"cloud-ingest/internal/infra"
	"cloud-ingest/internal/service/infrasvc"
	"cloud-ingest/internal/service/jobs"
	"cloud-ingest/internal/store"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Store  *store.Store
	Logger *slog.Logger
}

// Services groups the service pointers the API handler needs.
type Services struct {
	Jobs  *jobs.JobService
	Infra *infrasvc.InfraService
}

// App holds the fully-wired application.
type App struct {
	Services Services

	closers []func() error
}

// New wires the GCP resource builders and services from the provided deps.
// The caller owns deps.Store; everything created here is released by Close.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	app := &App{}

	spannerBuilder, err := infra.NewSpannerBuilder(ctx,
		cfg.ProjectID, cfg.SpannerInstance, cfg.SpannerDatabase, cfg.Infra.Region, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("spanner builder: %w", err)
	}
	app.closers = append(app.closers, spannerBuilder.Close)

	pubsubBuilder, err := infra.NewPubSubBuilder(ctx, cfg.ProjectID, deps.Logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("pubsub builder: %w", err)
	}
	app.closers = append(app.closers, pubsubBuilder.Close)

	functionsBuilder, err := infra.NewFunctionsBuilder(ctx,
		cfg.ProjectID, cfg.Infra.FunctionLocation, cfg.Infra.StagingBucket, deps.Logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("functions builder: %w", err)
	}
	app.closers = append(app.closers, functionsBuilder.Close)

	gceBuilder, err := infra.NewGCEBuilder(ctx, cfg.ProjectID, cfg.Infra.Zone, deps.Logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("gce builder: %w", err)
	}

	app.Services = Services{
		Jobs: jobs.NewJobService(deps.Store, deps.Logger),
		Infra: infrasvc.NewInfraService(
			spannerBuilder, pubsubBuilder, functionsBuilder, gceBuilder,
			cfg.ProjectID,
			infrasvc.Options{
				FunctionSourceDir: cfg.Infra.FunctionSourceDir,
				RunDCP:            cfg.Infra.RunDCP,
				DCPImage:          cfg.Infra.DCPImage,
			},
			deps.Logger,
		),
	}
	return app, nil
}

// Close releases the GCP clients created by New.
func (a *App) Close() error {
	return a.close()
}

func (a *App) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
