// Package jobs implements the job config, job run, and task listing
// operations on top of the Spanner-backed repository.
package jobs

import (
	"context"
	"log/slog"

	"cloud-ingest/internal/domain"
)

const (
	// DefaultPageSize is applied when a listing request carries no page size.
	DefaultPageSize = 25
	// MaxPageSize caps the page size of any listing request.
	MaxPageSize = 10000
)

// JobService validates requests and delegates persistence to the repository.
//
//nolint:revive // Name chosen for clarity across package boundaries
type JobService struct {
	repo   domain.JobRepository
	logger *slog.Logger
}

// NewJobService creates a new JobService.
func NewJobService(repo domain.JobRepository, logger *slog.Logger) *JobService {
	return &JobService{
		repo:   repo,
		logger: logger.With("component", "jobs"),
	}
}

// clampPageSize maps absent or out-of-range page sizes into [1, MaxPageSize].
func clampPageSize(size int64) int64 {
	if size < 1 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// CreateJob validates and stores a new job config. The first run and its
// listing task are created in the same transaction.
func (s *JobService) CreateJob(ctx context.Context, projectID, configID string, spec domain.JobSpec) (*domain.JobConfig, error) {
	if err := domain.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	if err := domain.ValidateConfigID(configID); err != nil {
		return nil, err
	}
	if err := domain.ValidateJobSpec(spec); err != nil {
		return nil, err
	}

	config := domain.JobConfig{
		ProjectID:   projectID,
		JobConfigID: configID,
		JobSpec:     spec,
	}
	if err := s.repo.CreateJob(ctx, config); err != nil {
		return nil, err
	}

	s.logger.Info("created job config", "project", projectID, "config", configID)
	return &config, nil
}

// ListJobConfigs returns all configs of a project with their latest run.
func (s *JobService) ListJobConfigs(ctx context.Context, projectID string) ([]domain.JobConfigWithRun, error) {
	if err := domain.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	return s.repo.ListJobConfigs(ctx, projectID)
}

// GetJobRun returns one run joined with its config.
func (s *JobService) GetJobRun(ctx context.Context, projectID, configID, runID string) (*domain.JobConfigWithRun, error) {
	if err := domain.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	if err := domain.ValidateConfigID(configID); err != nil {
		return nil, err
	}
	return s.repo.GetJobRun(ctx, projectID, configID, runID)
}

// ListJobRuns returns a page of runs, newest first. createdBefore of zero
// means no upper bound.
func (s *JobService) ListJobRuns(ctx context.Context, projectID string, pageSize, createdBefore int64) ([]domain.JobRun, error) {
	if err := domain.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	return s.repo.ListJobRuns(ctx, projectID, clampPageSize(pageSize), createdBefore)
}

// DeleteJobConfigs deletes the configs among configIDs with no in-progress
// tasks and reports which ids were deleted and which retained.
func (s *JobService) DeleteJobConfigs(ctx context.Context, projectID string, configIDs []string) (*domain.DeleteResult, error) {
	if err := domain.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	for _, id := range configIDs {
		if err := domain.ValidateConfigID(id); err != nil {
			return nil, err
		}
	}
	return s.repo.DeleteJobConfigs(ctx, projectID, configIDs)
}

// ListTasksOfStatus returns tasks of the named status, most recently
// modified first.
func (s *JobService) ListTasksOfStatus(ctx context.Context, req domain.ListTasksRequest, statusName string) ([]domain.Task, error) {
	if err := s.validateTaskRequest(&req); err != nil {
		return nil, err
	}
	status, err := domain.ParseTaskStatus(statusName)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTasksOfStatus(ctx, req, status)
}

// ListTasksOfFailureType returns failed tasks of one failure type, most
// recently modified first.
func (s *JobService) ListTasksOfFailureType(ctx context.Context, req domain.ListTasksRequest, failureType int64) ([]domain.Task, error) {
	if err := s.validateTaskRequest(&req); err != nil {
		return nil, err
	}
	if failureType < 0 {
		return nil, domain.ErrValidation("failure type must not be negative, got %d", failureType)
	}
	return s.repo.ListTasksOfFailureType(ctx, req, failureType)
}

func (s *JobService) validateTaskRequest(req *domain.ListTasksRequest) error {
	if err := domain.ValidateProjectID(req.ProjectID); err != nil {
		return err
	}
	if err := domain.ValidateConfigID(req.JobConfigID); err != nil {
		return err
	}
	if req.LastModifiedBefore < 0 {
		return domain.ErrValidation("lastModifiedBefore must not be negative, got %d", req.LastModifiedBefore)
	}
	req.Limit = clampPageSize(req.Limit)
	return nil
}
