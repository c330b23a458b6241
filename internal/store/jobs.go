package store

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"cloud-ingest/internal/domain"
)

// CreateJob inserts the job config, its first run (IN_PROGRESS with initial
// counters), and the first listing task in a single transaction. The run and
// task inserts are temporary until the DCP schedules runs itself.
func (s *Store) CreateJob(ctx context.Context, config domain.JobConfig) error {
	jobSpecJSON, err := domain.EncodeJSON(config.JobSpec)
	if err != nil {
		return err
	}
	countersJSON, err := domain.EncodeJSON(domain.InitialCounters())
	if err != nil {
		return err
	}
	taskSpecJSON, err := domain.EncodeJSON(domain.FirstListTaskSpec(config.JobSpec, config.JobConfigID))
	if err != nil {
		return err
	}

	now := s.now()
	_, err = s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		return txn.BufferWrite([]*spanner.Mutation{
			spanner.Insert(jobConfigsTable, jobConfigsColumns, []interface{}{
				config.ProjectID, config.JobConfigID, jobSpecJSON,
			}),
			spanner.Insert(jobRunsTable, jobRunsColumns, []interface{}{
				config.ProjectID, config.JobConfigID, domain.FirstJobRunID,
				int64(domain.JobInProgress), now, countersJSON,
			}),
			spanner.Insert(tasksTable, tasksColumns, []interface{}{
				config.ProjectID, config.JobConfigID, domain.FirstJobRunID,
				domain.FirstListTaskID(config.JobSpec),
				now, now, int64(domain.TaskUnqueued), taskSpecJSON, int64(domain.TaskTypeList),
			}),
		})
	})
	return mapError(err, fmt.Sprintf("create job config %q", config.JobConfigID))
}

// latestRunsSQL joins every job config of a project with its most recent run.
// Assumes JobCreationTime is unique per config, as the DCP's writer
// guarantees.
const latestRunsSQL = `
SELECT c.ProjectId, c.JobConfigId, c.JobSpec,
       r.JobRunId, r.Status, r.JobCreationTime, r.Counters
FROM JobRuns AS r
JOIN JobConfigs AS c
  ON r.ProjectId = c.ProjectId AND r.JobConfigId = c.JobConfigId
WHERE r.ProjectId = @projectID
  AND r.JobCreationTime IN (
    SELECT MAX(JobCreationTime) FROM JobRuns
    WHERE ProjectId = @projectID
    GROUP BY JobConfigId
  )`

// ListJobConfigs returns all configs of a project with their latest run.
func (s *Store) ListJobConfigs(ctx context.Context, projectID string) ([]domain.JobConfigWithRun, error) {
	stmt := spanner.Statement{
		SQL:    latestRunsSQL,
		Params: map[string]interface{}{"projectID": projectID},
	}

	var out []domain.JobConfigWithRun
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapError(err, "list job configs")
		}
		cfg, err := rowToConfigWithRun(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, nil
}

const jobRunSQL = `
SELECT c.ProjectId, c.JobConfigId, c.JobSpec,
       r.JobRunId, r.Status, r.JobCreationTime, r.Counters
FROM JobRuns AS r
JOIN JobConfigs AS c
  ON r.ProjectId = c.ProjectId AND r.JobConfigId = c.JobConfigId
WHERE r.ProjectId = @projectID
  AND r.JobConfigId = @configID
  AND r.JobRunId = @runID`

// GetJobRun returns one run joined with its config.
func (s *Store) GetJobRun(ctx context.Context, projectID, configID, runID string) (*domain.JobConfigWithRun, error) {
	stmt := spanner.Statement{
		SQL: jobRunSQL,
		Params: map[string]interface{}{
			"projectID": projectID,
			"configID":  configID,
			"runID":     runID,
		},
	}

	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()
	row, err := iter.Next()
	if err == iterator.Done {
		return nil, domain.ErrNotFound("job run %q of config %q not found", runID, configID)
	}
	if err != nil {
		return nil, mapError(err, "get job run")
	}
	return rowToConfigWithRun(row)
}

// ListJobRuns returns up to limit runs of a project, newest first.
func (s *Store) ListJobRuns(ctx context.Context, projectID string, limit, createdBefore int64) ([]domain.JobRun, error) {
	sql := `
SELECT ProjectId, JobConfigId, JobRunId, Status, JobCreationTime, Counters
FROM JobRuns
WHERE ProjectId = @projectID`
	params := map[string]interface{}{
		"projectID": projectID,
		"limit":     limit,
	}
	if createdBefore > 0 {
		sql += ` AND JobCreationTime < @createdBefore`
		params["createdBefore"] = createdBefore
	}
	sql += `
ORDER BY JobCreationTime DESC
LIMIT @limit`

	var out []domain.JobRun
	iter := s.client.Single().Query(ctx, spanner.Statement{SQL: sql, Params: params})
	defer iter.Stop()
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapError(err, "list job runs")
		}
		run, err := rowToJobRun(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, nil
}

// rowToJobRun decodes a JobRuns row selected with jobRunsColumns.
func rowToJobRun(row *spanner.Row) (*domain.JobRun, error) {
	var (
		run          domain.JobRun
		status       int64
		countersJSON string
	)
	if err := row.Columns(&run.ProjectID, &run.JobConfigID, &run.JobRunID,
		&status, &run.JobCreationTime, &countersJSON); err != nil {
		return nil, fmt.Errorf("decode job run row: %w", err)
	}
	run.Status = domain.JobRunStatus(status)
	if err := json.Unmarshal([]byte(countersJSON), &run.Counters); err != nil {
		return nil, fmt.Errorf("decode counters of run %q: %w", run.JobRunID, err)
	}
	return &run, nil
}

// rowToConfigWithRun decodes a joined config+run row as selected by
// latestRunsSQL and jobRunSQL.
func rowToConfigWithRun(row *spanner.Row) (*domain.JobConfigWithRun, error) {
	var (
		out          domain.JobConfigWithRun
		jobSpecJSON  string
		runID        string
		status       int64
		creationTime int64
		countersJSON string
	)
	if err := row.Columns(&out.ProjectID, &out.JobConfigID, &jobSpecJSON,
		&runID, &status, &creationTime, &countersJSON); err != nil {
		return nil, fmt.Errorf("decode config row: %w", err)
	}
	if err := json.Unmarshal([]byte(jobSpecJSON), &out.JobSpec); err != nil {
		return nil, fmt.Errorf("decode job spec of config %q: %w", out.JobConfigID, err)
	}
	run := domain.JobRun{
		ProjectID:       out.ProjectID,
		JobConfigID:     out.JobConfigID,
		JobRunID:        runID,
		Status:          domain.JobRunStatus(status),
		JobCreationTime: creationTime,
	}
	if err := json.Unmarshal([]byte(countersJSON), &run.Counters); err != nil {
		return nil, fmt.Errorf("decode counters of config %q: %w", out.JobConfigID, err)
	}
	out.JobRun = &run
	return &out, nil
}
