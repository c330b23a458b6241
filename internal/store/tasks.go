package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"cloud-ingest/internal/domain"
)

const taskSelectColumns = `ProjectId, JobConfigId, JobRunId, TaskId,
       CreationTime, LastModificationTime, Status, TaskSpec, TaskType,
       FailureType, FailureMessage`

// tasksOfStatusQuery lists tasks of one status for a run, most recently
// modified first, through the TasksByStatus secondary index.
func tasksOfStatusQuery(req domain.ListTasksRequest, status domain.TaskStatus) spanner.Statement {
	sql := fmt.Sprintf(`
SELECT %s
FROM Tasks@{FORCE_INDEX=%s}
WHERE ProjectId = @projectID AND JobConfigId = @configID
  AND JobRunId = @runID AND Status = @status`, taskSelectColumns, tasksByStatusIndex)
	params := map[string]interface{}{
		"projectID": req.ProjectID,
		"configID":  req.JobConfigID,
		"runID":     req.JobRunID,
		"status":    int64(status),
		"limit":     req.Limit,
	}
	if req.LastModifiedBefore > 0 {
		sql += `
  AND LastModificationTime < @lastModifiedBefore`
		params["lastModifiedBefore"] = req.LastModifiedBefore
	}
	sql += `
ORDER BY LastModificationTime DESC
LIMIT @limit`
	return spanner.Statement{SQL: sql, Params: params}
}

// tasksOfFailureTypeQuery lists failed tasks of one failure type through the
// TasksByFailureType secondary index.
func tasksOfFailureTypeQuery(req domain.ListTasksRequest, failureType int64) spanner.Statement {
	sql := fmt.Sprintf(`
SELECT %s
FROM Tasks@{FORCE_INDEX=%s}
WHERE ProjectId = @projectID AND JobConfigId = @configID
  AND JobRunId = @runID AND FailureType = @failureType`, taskSelectColumns, tasksByFailureTypeIndex)
	params := map[string]interface{}{
		"projectID":   req.ProjectID,
		"configID":    req.JobConfigID,
		"runID":       req.JobRunID,
		"failureType": failureType,
		"limit":       req.Limit,
	}
	if req.LastModifiedBefore > 0 {
		sql += `
  AND LastModificationTime < @lastModifiedBefore`
		params["lastModifiedBefore"] = req.LastModifiedBefore
	}
	sql += `
ORDER BY LastModificationTime DESC
LIMIT @limit`
	return spanner.Statement{SQL: sql, Params: params}
}

// ListTasksOfStatus returns tasks of one status for a run.
func (s *Store) ListTasksOfStatus(ctx context.Context, req domain.ListTasksRequest, status domain.TaskStatus) ([]domain.Task, error) {
	return s.queryTasks(ctx, tasksOfStatusQuery(req, status), "list tasks of status")
}

// ListTasksOfFailureType returns failed tasks of one failure type for a run.
func (s *Store) ListTasksOfFailureType(ctx context.Context, req domain.ListTasksRequest, failureType int64) ([]domain.Task, error) {
	return s.queryTasks(ctx, tasksOfFailureTypeQuery(req, failureType), "list tasks of failure type")
}

func (s *Store) queryTasks(ctx context.Context, stmt spanner.Statement, what string) ([]domain.Task, error) {
	var out []domain.Task
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapError(err, what)
		}
		task, err := rowToTask(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, nil
}

// rowToTask decodes a Tasks row selected with taskSelectColumns.
func rowToTask(row *spanner.Row) (*domain.Task, error) {
	var (
		task           domain.Task
		status         int64
		taskType       int64
		taskSpec       string
		failureType    spanner.NullInt64
		failureMessage spanner.NullString
	)
	if err := row.Columns(&task.ProjectID, &task.JobConfigID, &task.JobRunID, &task.TaskID,
		&task.CreationTime, &task.LastModificationTime, &status, &taskSpec, &taskType,
		&failureType, &failureMessage); err != nil {
		return nil, fmt.Errorf("decode task row: %w", err)
	}
	task.Status = domain.TaskStatus(status)
	task.TaskType = domain.TaskType(taskType)
	task.TaskSpec = []byte(taskSpec)
	if failureType.Valid {
		task.FailureType = failureType.Int64
	}
	if failureMessage.Valid {
		task.FailureMessage = failureMessage.StringVal
	}
	return &task, nil
}
