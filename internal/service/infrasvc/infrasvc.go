// Package infrasvc orchestrates creation, teardown, and status reporting of
// the GCP resources the ingest pipeline runs on.
package infrasvc

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"cloud-ingest/internal/infra"
)

// SpannerProvisioner manages the ingest Spanner instance and database.
type SpannerProvisioner interface {
	CreateInstance(ctx context.Context) error
	CreateDatabase(ctx context.Context) error
	DeleteInstance(ctx context.Context) error
	DatabaseStatus(ctx context.Context) (infra.ResourceStatus, error)
}

// PubSubProvisioner manages the ingest topics and subscriptions.
type PubSubProvisioner interface {
	CreateTopicAndSubscriptions(ctx context.Context, spec infra.TopicSpec) error
	DeleteTopicAndSubscriptions(ctx context.Context, topic string) error
	TopicStatus(ctx context.Context, spec infra.TopicSpec) (infra.ResourceStatus, error)
}

// FunctionProvisioner manages the GCS-to-BigQuery importer cloud function.
type FunctionProvisioner interface {
	CreateFunction(ctx context.Context, name, srcDir, topic, entrypoint, timeout string) error
	DeleteFunction(ctx context.Context, name string) error
	FunctionStatus(ctx context.Context, name string) (infra.ResourceStatus, error)
}

// ComputeProvisioner manages the GCE VM hosting the DCP container.
type ComputeProvisioner interface {
	CreateInstance(ctx context.Context, name, image, cmd string, args []string) error
	DeleteInstance(ctx context.Context, name string) error
	InstanceStatus(ctx context.Context, name string) (infra.ResourceStatus, error)
}

// Status is the deployment state of every ingest resource.
type Status struct {
	SpannerStatus        infra.ResourceStatus            `json:"spannerStatus"`
	PubSubStatus         map[string]infra.ResourceStatus `json:"pubsubStatus"`
	DCPStatus            infra.ResourceStatus            `json:"dcpStatus"`
	CloudFunctionsStatus infra.ResourceStatus            `json:"cloudFunctionsStatus"`
}

// Options tune what Create provisions beyond the fixed topology.
type Options struct {
	// FunctionSourceDir holds the importer cloud function source to zip
	// and deploy.
	FunctionSourceDir string
	// RunDCP controls whether Create brings up the DCP VM.
	RunDCP bool
	// DCPImage is the container image the DCP VM runs.
	DCPImage string
}

// InfraService drives the resource builders.
//
//nolint:revive // Name chosen for clarity across package boundaries
type InfraService struct {
	spanner   SpannerProvisioner
	pubsub    PubSubProvisioner
	functions FunctionProvisioner
	compute   ComputeProvisioner
	projectID string
	opts      Options
	logger    *slog.Logger
}

// NewInfraService creates a new InfraService.
func NewInfraService(spanner SpannerProvisioner, pubsub PubSubProvisioner, functions FunctionProvisioner, compute ComputeProvisioner, projectID string, opts Options, logger *slog.Logger) *InfraService {
	return &InfraService{
		spanner:   spanner,
		pubsub:    pubsub,
		functions: functions,
		compute:   compute,
		projectID: projectID,
		opts:      opts,
		logger:    logger.With("component", "infra"),
	}
}

// Statuses returns the state of every resource, queried in parallel.
func (s *InfraService) Statuses(ctx context.Context) (*Status, error) {
	topics := infra.Topics()
	topicStatuses := make([]infra.ResourceStatus, len(topics))

	var status Status
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.spanner.DatabaseStatus(ctx)
		status.SpannerStatus = st
		return err
	})
	g.Go(func() error {
		st, err := s.compute.InstanceStatus(ctx, infra.DCPInstance)
		status.DCPStatus = st
		return err
	})
	g.Go(func() error {
		st, err := s.functions.FunctionStatus(ctx, infra.LoadBQFunction)
		status.CloudFunctionsStatus = st
		return err
	})
	for i, spec := range topics {
		g.Go(func() error {
			st, err := s.pubsub.TopicStatus(ctx, spec)
			topicStatuses[i] = st
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	status.PubSubStatus = make(map[string]infra.ResourceStatus, len(topics))
	for i, spec := range topics {
		status.PubSubStatus[spec.Key] = topicStatuses[i]
	}
	return &status, nil
}

// Create provisions all ingest resources in dependency order: the Spanner
// instance and database, the topics, the importer function, and finally the
// DCP VM.
func (s *InfraService) Create(ctx context.Context) error {
	if err := s.spanner.CreateInstance(ctx); err != nil {
		return err
	}
	if err := s.spanner.CreateDatabase(ctx); err != nil {
		return err
	}
	for _, spec := range infra.Topics() {
		if err := s.pubsub.CreateTopicAndSubscriptions(ctx, spec); err != nil {
			return err
		}
	}
	if err := s.functions.CreateFunction(ctx, infra.LoadBQFunction,
		s.opts.FunctionSourceDir, infra.LoadBQTopic,
		infra.LoadBQFunctionEntrypoint, infra.LoadBQFunctionTimeout); err != nil {
		return err
	}
	if !s.opts.RunDCP {
		s.logger.Info("skipping dcp vm creation")
		return nil
	}
	// The DCP takes the project id as its only argument.
	return s.compute.CreateInstance(ctx, infra.DCPInstance,
		s.opts.DCPImage, infra.DCPCommand, []string{s.projectID})
}

// TearDown deletes all ingest resources in reverse creation order. Missing
// resources are skipped by the builders.
func (s *InfraService) TearDown(ctx context.Context) error {
	if err := s.compute.DeleteInstance(ctx, infra.DCPInstance); err != nil {
		return err
	}
	if err := s.functions.DeleteFunction(ctx, infra.LoadBQFunction); err != nil {
		return err
	}
	for _, spec := range infra.Topics() {
		if err := s.pubsub.DeleteTopicAndSubscriptions(ctx, spec.Topic); err != nil {
			return err
		}
	}
	return s.spanner.DeleteInstance(ctx)
}
