package store

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"cloud-ingest/internal/domain"
)

// tasksInProgressQuery builds one UNION ALL statement with a row per config
// id carrying the count of that config's tasks in QUEUED or UNQUEUED state.
// Each branch carries its ordinal so the result order is independent of how
// Spanner evaluates the union.
func tasksInProgressQuery(projectID string, configIDs []string) spanner.Statement {
	params := map[string]interface{}{"projectID": projectID}

	var sb strings.Builder
	for i := range configIDs {
		if i > 0 {
			sb.WriteString("\nUNION ALL\n")
		}
		fmt.Fprintf(&sb, `SELECT %d AS ordinal, COUNT(*) AS tasks_in_progress_count
FROM Tasks
WHERE ProjectId = @projectID AND JobConfigId = @config_%d
  AND (Status = %d OR Status = %d)`,
			i, i, domain.TaskQueued, domain.TaskUnqueued)
		params[fmt.Sprintf("config_%d", i)] = configIDs[i]
	}
	sb.WriteString("\nORDER BY ordinal")

	return spanner.Statement{SQL: sb.String(), Params: params}
}

// partitionConfigs splits configIDs by the per-config in-progress counts:
// zero-count ids are deletable, the rest must be retained. counts[i]
// corresponds to configIDs[i].
func partitionConfigs(configIDs []string, counts []int64) *domain.DeleteResult {
	res := &domain.DeleteResult{
		Deleted:  []string{},
		Retained: []string{},
	}
	for i, id := range configIDs {
		if counts[i] > 0 {
			res.Retained = append(res.Retained, id)
		} else {
			res.Deleted = append(res.Deleted, id)
		}
	}
	return res
}

// DeleteJobConfigs deletes exactly the configs that have no tasks in
// progress. The count query and the delete run in the same read-write
// transaction, so a task queued concurrently can never slip between the
// check and the delete.
func (s *Store) DeleteJobConfigs(ctx context.Context, projectID string, configIDs []string) (*domain.DeleteResult, error) {
	if len(configIDs) == 0 {
		return &domain.DeleteResult{Deleted: []string{}, Retained: []string{}}, nil
	}

	var result *domain.DeleteResult
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		counts := make([]int64, 0, len(configIDs))
		iter := txn.Query(ctx, tasksInProgressQuery(projectID, configIDs))
		defer iter.Stop()
		for {
			row, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			var ordinal, count int64
			if err := row.Columns(&ordinal, &count); err != nil {
				return fmt.Errorf("decode in-progress count: %w", err)
			}
			counts = append(counts, count)
		}
		if len(counts) != len(configIDs) {
			return fmt.Errorf("in-progress count query returned %d rows for %d configs", len(counts), len(configIDs))
		}

		result = partitionConfigs(configIDs, counts)
		if len(result.Deleted) == 0 {
			return nil
		}

		keys := make([]spanner.Key, len(result.Deleted))
		for i, id := range result.Deleted {
			keys[i] = spanner.Key{projectID, id}
		}
		return txn.BufferWrite([]*spanner.Mutation{
			spanner.Delete(jobConfigsTable, spanner.KeySetFromKeys(keys...)),
		})
	})
	if err != nil {
		return nil, mapError(err, "delete job configs")
	}

	s.logger.Info("deleted job configs",
		"project", projectID,
		"deleted", len(result.Deleted),
		"retained", len(result.Retained))
	return result, nil
}
