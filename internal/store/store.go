// Package store persists job configs, runs, and tasks in Cloud Spanner.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"cloud-ingest/internal/domain"
)

// Table and column names, shared with the DCP's schema.
const (
	jobConfigsTable = "JobConfigs"
	jobRunsTable    = "JobRuns"
	tasksTable      = "Tasks"

	tasksByStatusIndex      = "TasksByStatus"
	tasksByFailureTypeIndex = "TasksByFailureType"
)

var (
	jobConfigsColumns = []string{"ProjectId", "JobConfigId", "JobSpec"}
	jobRunsColumns    = []string{"ProjectId", "JobConfigId", "JobRunId", "Status", "JobCreationTime", "Counters"}
	tasksColumns      = []string{
		"ProjectId", "JobConfigId", "JobRunId", "TaskId",
		"CreationTime", "LastModificationTime", "Status", "TaskSpec", "TaskType",
	}
)

// Compile-time check.
var _ domain.JobRepository = (*Store)(nil)

// Store implements domain.JobRepository backed by Cloud Spanner.
type Store struct {
	client *spanner.Client
	logger *slog.Logger
	now    func() int64 // unix nanos, swappable in tests
}

// DatabasePath formats the fully qualified Spanner database name.
func DatabasePath(project, instance, database string) string {
	return fmt.Sprintf("projects/%s/instances/%s/databases/%s", project, instance, database)
}

// New connects to the given Spanner database.
func New(ctx context.Context, project, instance, database string, logger *slog.Logger, opts ...option.ClientOption) (*Store, error) {
	client, err := spanner.NewClient(ctx, DatabasePath(project, instance, database), opts...)
	if err != nil {
		return nil, fmt.Errorf("spanner client: %w", err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing Spanner client.
func NewWithClient(client *spanner.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With("component", "store"),
		now:    unixNano,
	}
}

// Close releases the underlying Spanner sessions.
func (s *Store) Close() {
	s.client.Close()
}

func unixNano() int64 { return time.Now().UnixNano() }

// mapError converts Spanner client errors into domain errors so the API
// layer can translate them to HTTP statuses.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	switch spanner.ErrCode(err) {
	case codes.NotFound:
		return domain.ErrNotFound("%s: not found", what)
	case codes.PermissionDenied:
		return domain.ErrAccessDenied("%s: permission denied", what)
	case codes.Unauthenticated:
		return domain.ErrUnauthorized("%s: unauthenticated", what)
	case codes.AlreadyExists:
		return domain.ErrConflict("%s: already exists", what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
