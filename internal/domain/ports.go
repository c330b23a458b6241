package domain

import "context"

// ListTasksRequest narrows a task listing to one job config and run. A zero
// LastModifiedBefore means no upper bound. Limit is clamped by the caller.
type ListTasksRequest struct {
	ProjectID          string
	JobConfigID        string
	JobRunID           string
	Limit              int64
	LastModifiedBefore int64
}

// JobRepository is the persistence port for job configs, runs, and tasks.
type JobRepository interface {
	// CreateJob inserts the config, the first run, and the first listing task
	// in one transaction.
	CreateJob(ctx context.Context, config JobConfig) error

	// ListJobConfigs returns all configs of a project, each joined with its
	// most recent run.
	ListJobConfigs(ctx context.Context, projectID string) ([]JobConfigWithRun, error)

	// GetJobRun returns one run joined with its config.
	GetJobRun(ctx context.Context, projectID, configID, runID string) (*JobConfigWithRun, error)

	// ListJobRuns returns up to limit runs of a project, newest first,
	// optionally created before the given unix-nano timestamp.
	ListJobRuns(ctx context.Context, projectID string, limit, createdBefore int64) ([]JobRun, error)

	// DeleteJobConfigs deletes the subset of ids with no in-progress tasks,
	// atomically against concurrent task insertion, and returns the
	// partition.
	DeleteJobConfigs(ctx context.Context, projectID string, configIDs []string) (*DeleteResult, error)

	// ListTasksOfStatus returns tasks of one status, most recently modified
	// first.
	ListTasksOfStatus(ctx context.Context, req ListTasksRequest, status TaskStatus) ([]Task, error)

	// ListTasksOfFailureType returns failed tasks of one failure type, most
	// recently modified first.
	ListTasksOfFailureType(ctx context.Context, req ListTasksRequest, failureType int64) ([]Task, error)
}
