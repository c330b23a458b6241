package infra

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

//go:embed schema.ddl
var schemaDDL string

// schemaStatements splits schema.ddl into the statement list the database
// admin API expects. Statements are separated by blank lines.
func schemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(schemaDDL, "\n\n") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// SpannerBuilder creates and deletes the ingest Spanner instance and
// database.
type SpannerBuilder struct {
	instances  *instance.InstanceAdminClient
	databases  *database.DatabaseAdminClient
	projectID  string
	instanceID string
	databaseID string
	location   string
	nodeCount  int32
	logger     *slog.Logger
}

// NewSpannerBuilder creates a SpannerBuilder with admin clients for the
// given project.
func NewSpannerBuilder(ctx context.Context, projectID, instanceID, databaseID, location string, logger *slog.Logger, opts ...option.ClientOption) (*SpannerBuilder, error) {
	instances, err := instance.NewInstanceAdminClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create instance admin client: %w", err)
	}
	databases, err := database.NewDatabaseAdminClient(ctx, opts...)
	if err != nil {
		instances.Close()
		return nil, fmt.Errorf("create database admin client: %w", err)
	}
	return &SpannerBuilder{
		instances:  instances,
		databases:  databases,
		projectID:  projectID,
		instanceID: instanceID,
		databaseID: databaseID,
		location:   location,
		nodeCount:  1,
		logger:     logger.With("component", "spanner-builder"),
	}, nil
}

// Close releases the admin clients.
func (b *SpannerBuilder) Close() error {
	err := b.instances.Close()
	if cerr := b.databases.Close(); err == nil {
		err = cerr
	}
	return err
}

func (b *SpannerBuilder) instancePath() string {
	return fmt.Sprintf("projects/%s/instances/%s", b.projectID, b.instanceID)
}

func (b *SpannerBuilder) databasePath() string {
	return fmt.Sprintf("%s/databases/%s", b.instancePath(), b.databaseID)
}

// CreateInstance creates the Spanner instance and waits for the operation
// to complete.
func (b *SpannerBuilder) CreateInstance(ctx context.Context) error {
	b.logger.Info("creating spanner instance", "instance", b.instanceID)
	op, err := b.instances.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     "projects/" + b.projectID,
		InstanceId: b.instanceID,
		Instance: &instancepb.Instance{
			Name:        b.instancePath(),
			Config:      fmt.Sprintf("projects/%s/instanceConfigs/regional-%s", b.projectID, b.location),
			DisplayName: b.instanceID,
			NodeCount:   b.nodeCount,
		},
	})
	if err != nil {
		return fmt.Errorf("create spanner instance %q: %w", b.instanceID, err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return fmt.Errorf("wait for spanner instance %q: %w", b.instanceID, err)
	}
	return nil
}

// CreateDatabase creates the ingest database with the embedded schema and
// waits for the operation to complete.
func (b *SpannerBuilder) CreateDatabase(ctx context.Context) error {
	b.logger.Info("creating spanner database", "database", b.databaseID)
	op, err := b.databases.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          b.instancePath(),
		CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", b.databaseID),
		ExtraStatements: schemaStatements(),
	})
	if err != nil {
		return fmt.Errorf("create spanner database %q: %w", b.databaseID, err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return fmt.Errorf("wait for spanner database %q: %w", b.databaseID, err)
	}
	return nil
}

// DeleteInstance deletes the Spanner instance and every database in it. A
// missing instance is not an error.
func (b *SpannerBuilder) DeleteInstance(ctx context.Context) error {
	err := b.instances.DeleteInstance(ctx, &instancepb.DeleteInstanceRequest{
		Name: b.instancePath(),
	})
	if status.Code(err) == codes.NotFound {
		b.logger.Info("spanner instance does not exist, skipping delete", "instance", b.instanceID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete spanner instance %q: %w", b.instanceID, err)
	}
	return nil
}

// DatabaseStatus reports the deployment state of the ingest database.
func (b *SpannerBuilder) DatabaseStatus(ctx context.Context) (ResourceStatus, error) {
	db, err := b.databases.GetDatabase(ctx, &databasepb.GetDatabaseRequest{
		Name: b.databasePath(),
	})
	if status.Code(err) == codes.NotFound {
		return StatusNotFound, nil
	}
	if err != nil {
		return StatusUnknown, fmt.Errorf("get spanner database %q: %w", b.databaseID, err)
	}
	switch db.State {
	case databasepb.Database_CREATING:
		return StatusDeploying, nil
	case databasepb.Database_READY, databasepb.Database_READY_OPTIMIZING:
		return StatusRunning, nil
	default:
		return StatusUnknown, nil
	}
}
