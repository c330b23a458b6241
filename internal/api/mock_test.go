package api

import (
	"context"
	"io"
	"log/slog"

	"cloud-ingest/internal/domain"
	"cloud-ingest/internal/service/infrasvc"
)

func newTestHandler(jobs JobService, infra InfraService) *APIHandler {
	return NewHandler(jobs, infra, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// mockJobService implements JobService with per-method overrides.
type mockJobService struct {
	CreateJobFn              func(ctx context.Context, projectID, configID string, spec domain.JobSpec) (*domain.JobConfig, error)
	ListJobConfigsFn         func(ctx context.Context, projectID string) ([]domain.JobConfigWithRun, error)
	GetJobRunFn              func(ctx context.Context, projectID, configID, runID string) (*domain.JobConfigWithRun, error)
	ListJobRunsFn            func(ctx context.Context, projectID string, pageSize, createdBefore int64) ([]domain.JobRun, error)
	DeleteJobConfigsFn       func(ctx context.Context, projectID string, configIDs []string) (*domain.DeleteResult, error)
	ListTasksOfStatusFn      func(ctx context.Context, req domain.ListTasksRequest, statusName string) ([]domain.Task, error)
	ListTasksOfFailureTypeFn func(ctx context.Context, req domain.ListTasksRequest, failureType int64) ([]domain.Task, error)
}

func (m *mockJobService) CreateJob(ctx context.Context, projectID, configID string, spec domain.JobSpec) (*domain.JobConfig, error) {
	if m.CreateJobFn != nil {
		return m.CreateJobFn(ctx, projectID, configID, spec)
	}
	return &domain.JobConfig{ProjectID: projectID, JobConfigID: configID, JobSpec: spec}, nil
}

func (m *mockJobService) ListJobConfigs(ctx context.Context, projectID string) ([]domain.JobConfigWithRun, error) {
	if m.ListJobConfigsFn != nil {
		return m.ListJobConfigsFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockJobService) GetJobRun(ctx context.Context, projectID, configID, runID string) (*domain.JobConfigWithRun, error) {
	if m.GetJobRunFn != nil {
		return m.GetJobRunFn(ctx, projectID, configID, runID)
	}
	return &domain.JobConfigWithRun{}, nil
}

func (m *mockJobService) ListJobRuns(ctx context.Context, projectID string, pageSize, createdBefore int64) ([]domain.JobRun, error) {
	if m.ListJobRunsFn != nil {
		return m.ListJobRunsFn(ctx, projectID, pageSize, createdBefore)
	}
	return nil, nil
}

func (m *mockJobService) DeleteJobConfigs(ctx context.Context, projectID string, configIDs []string) (*domain.DeleteResult, error) {
	if m.DeleteJobConfigsFn != nil {
		return m.DeleteJobConfigsFn(ctx, projectID, configIDs)
	}
	return &domain.DeleteResult{Deleted: []string{}, Retained: []string{}}, nil
}

func (m *mockJobService) ListTasksOfStatus(ctx context.Context, req domain.ListTasksRequest, statusName string) ([]domain.Task, error) {
	if m.ListTasksOfStatusFn != nil {
		return m.ListTasksOfStatusFn(ctx, req, statusName)
	}
	return nil, nil
}

func (m *mockJobService) ListTasksOfFailureType(ctx context.Context, req domain.ListTasksRequest, failureType int64) ([]domain.Task, error) {
	if m.ListTasksOfFailureTypeFn != nil {
		return m.ListTasksOfFailureTypeFn(ctx, req, failureType)
	}
	return nil, nil
}

// mockInfraService implements InfraService with per-method overrides.
type mockInfraService struct {
	StatusesFn func(ctx context.Context) (*infrasvc.Status, error)
	CreateFn   func(ctx context.Context) error
	TearDownFn func(ctx context.Context) error
}

func (m *mockInfraService) Statuses(ctx context.Context) (*infrasvc.Status, error) {
	if m.StatusesFn != nil {
		return m.StatusesFn(ctx)
	}
	return &infrasvc.Status{}, nil
}

func (m *mockInfraService) Create(ctx context.Context) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx)
	}
	return nil
}

func (m *mockInfraService) TearDown(ctx context.Context) error {
	if m.TearDownFn != nil {
		return m.TearDownFn(ctx)
	}
	return nil
}
