package jobs

import (
	"context"
	"errors"

	"cloud-ingest/internal/domain"
)

var errTest = errors.New("boom")

// mockJobRepo implements domain.JobRepository with per-method overrides.
type mockJobRepo struct {
	CreateJobFn              func(ctx context.Context, config domain.JobConfig) error
	ListJobConfigsFn         func(ctx context.Context, projectID string) ([]domain.JobConfigWithRun, error)
	GetJobRunFn              func(ctx context.Context, projectID, configID, runID string) (*domain.JobConfigWithRun, error)
	ListJobRunsFn            func(ctx context.Context, projectID string, limit, createdBefore int64) ([]domain.JobRun, error)
	DeleteJobConfigsFn       func(ctx context.Context, projectID string, configIDs []string) (*domain.DeleteResult, error)
	ListTasksOfStatusFn      func(ctx context.Context, req domain.ListTasksRequest, status domain.TaskStatus) ([]domain.Task, error)
	ListTasksOfFailureTypeFn func(ctx context.Context, req domain.ListTasksRequest, failureType int64) ([]domain.Task, error)
}

func (m *mockJobRepo) CreateJob(ctx context.Context, config domain.JobConfig) error {
	if m.CreateJobFn != nil {
		return m.CreateJobFn(ctx, config)
	}
	return nil
}

func (m *mockJobRepo) ListJobConfigs(ctx context.Context, projectID string) ([]domain.JobConfigWithRun, error) {
	if m.ListJobConfigsFn != nil {
		return m.ListJobConfigsFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockJobRepo) GetJobRun(ctx context.Context, projectID, configID, runID string) (*domain.JobConfigWithRun, error) {
	if m.GetJobRunFn != nil {
		return m.GetJobRunFn(ctx, projectID, configID, runID)
	}
	return nil, nil
}

func (m *mockJobRepo) ListJobRuns(ctx context.Context, projectID string, limit, createdBefore int64) ([]domain.JobRun, error) {
	if m.ListJobRunsFn != nil {
		return m.ListJobRunsFn(ctx, projectID, limit, createdBefore)
	}
	return nil, nil
}

func (m *mockJobRepo) DeleteJobConfigs(ctx context.Context, projectID string, configIDs []string) (*domain.DeleteResult, error) {
	if m.DeleteJobConfigsFn != nil {
		return m.DeleteJobConfigsFn(ctx, projectID, configIDs)
	}
	return &domain.DeleteResult{Deleted: []string{}, Retained: []string{}}, nil
}

func (m *mockJobRepo) ListTasksOfStatus(ctx context.Context, req domain.ListTasksRequest, status domain.TaskStatus) ([]domain.Task, error) {
	if m.ListTasksOfStatusFn != nil {
		return m.ListTasksOfStatusFn(ctx, req, status)
	}
	return nil, nil
}

func (m *mockJobRepo) ListTasksOfFailureType(ctx context.Context, req domain.ListTasksRequest, failureType int64) ([]domain.Task, error) {
	if m.ListTasksOfFailureTypeFn != nil {
		return m.ListTasksOfFailureTypeFn(ctx, req, failureType)
	}
	return nil, nil
}
