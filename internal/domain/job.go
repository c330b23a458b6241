package domain

import (
	"encoding/json"
	"fmt"
)

// FirstJobRunID is the run id given to the run created alongside a new job
// config. Scheduling of further runs belongs to the DCP, which is external to
// this repo.
const FirstJobRunID = "jobrun"

// ListResultObjectFormat is the GCS object that receives the output of the
// first listing task: cloud-ingest/listfiles/<config>/<run>/<task>.
const ListResultObjectFormat = "cloud-ingest/listfiles/%s/%s/%s"

// JobRunStatus is the lifecycle state of a job run, written by the DCP after
// the initial insert.
type JobRunStatus int64

const (
	JobNotStarted JobRunStatus = 0
	JobInProgress JobRunStatus = 1
	JobRunFailed  JobRunStatus = 2
	JobRunSuccess JobRunStatus = 3
)

// String returns the wire name of the run status.
func (s JobRunStatus) String() string {
	switch s {
	case JobNotStarted:
		return "NOT_STARTED"
	case JobInProgress:
		return "IN_PROGRESS"
	case JobRunFailed:
		return "FAILED"
	case JobRunSuccess:
		return "SUCCESS"
	}
	return fmt.Sprintf("JobRunStatus(%d)", int64(s))
}

// JobSpec describes a transfer: an on-prem source directory, a GCS
// destination, and the BigQuery table loaded from the transferred data.
type JobSpec struct {
	OnPremSrcDirectory string `json:"onPremSrcDirectory"`
	GCSBucket          string `json:"gcsBucket"`
	GCSDirectory       string `json:"gcsDirectory,omitempty"`
	BigQueryDataset    string `json:"bigqueryDataset"`
	BigQueryTable      string `json:"bigqueryTable"`
}

// JobConfig is a named transfer configuration.
type JobConfig struct {
	ProjectID   string  `json:"projectId"`
	JobConfigID string  `json:"jobConfigId"`
	JobSpec     JobSpec `json:"jobSpec"`
}

// Counters aggregates task counts for a job run, overall and per task type.
// It is stored as a JSON column on the JobRuns table.
type Counters struct {
	TotalTasks     int64 `json:"totalTasks"`
	TasksCompleted int64 `json:"tasksCompleted"`
	TasksFailed    int64 `json:"tasksFailed"`
	TasksQueued    int64 `json:"tasksQueued"`
	TasksUnqueued  int64 `json:"tasksUnqueued"`

	TotalTasksList     int64 `json:"totalTasksList"`
	TasksCompletedList int64 `json:"tasksCompletedList"`
	TasksFailedList    int64 `json:"tasksFailedList"`
	TasksQueuedList    int64 `json:"tasksQueuedList"`
	TasksUnqueuedList  int64 `json:"tasksUnqueuedList"`

	TotalTasksCopy     int64 `json:"totalTasksCopy"`
	TasksCompletedCopy int64 `json:"tasksCompletedCopy"`
	TasksFailedCopy    int64 `json:"tasksFailedCopy"`
	TasksQueuedCopy    int64 `json:"tasksQueuedCopy"`
	TasksUnqueuedCopy  int64 `json:"tasksUnqueuedCopy"`
}

// InitialCounters returns the counters for a freshly created run: one
// unqueued listing task, nothing else.
func InitialCounters() Counters {
	return Counters{
		TotalTasks:        1,
		TasksUnqueued:     1,
		TotalTasksList:    1,
		TasksUnqueuedList: 1,
	}
}

// JobRun is one execution of a JobConfig.
type JobRun struct {
	ProjectID       string       `json:"projectId"`
	JobConfigID     string       `json:"jobConfigId"`
	JobRunID        string       `json:"jobRunId"`
	Status          JobRunStatus `json:"status"`
	JobCreationTime int64        `json:"jobCreationTime"`
	Counters        Counters     `json:"counters"`
}

// JobConfigWithRun pairs a job config with its most recent run, the shape
// returned when listing configs.
type JobConfigWithRun struct {
	JobConfig
	JobRun *JobRun `json:"jobRun,omitempty"`
}

// DeleteResult is the partition computed by DeleteJobConfigs: ids that were
// deleted and ids retained because tasks were still in progress.
type DeleteResult struct {
	Deleted  []string `json:"delibleConfigs"`
	Retained []string `json:"indelibleConfigs"`
}

// FirstListTaskID returns the task id of the initial listing task for a job
// spec, list:<src directory>.
func FirstListTaskID(spec JobSpec) string {
	return "list:" + spec.OnPremSrcDirectory
}

// FirstListTaskSpec builds the spec of the initial listing task for a new
// job config.
func FirstListTaskSpec(spec JobSpec, configID string) ListTaskSpec {
	return ListTaskSpec{
		SrcDirectory:        spec.OnPremSrcDirectory,
		DstListResultBucket: spec.GCSBucket,
		DstListResultObject: fmt.Sprintf(ListResultObjectFormat, configID, FirstJobRunID, "list"),
	}
}

// EncodeJSON marshals v for storage in a Spanner JSON string column.
func EncodeJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}
