package domain

import (
	"encoding/json"
	"fmt"
)

// TaskStatus is the lifecycle state of a transfer task. The numeric values
// are stored in the Tasks.Status column and must stay in sync with what the
// DCP writes.
type TaskStatus int64

const (
	TaskUnqueued TaskStatus = 0
	TaskQueued   TaskStatus = 1
	TaskFailed   TaskStatus = 2
	TaskSuccess  TaskStatus = 3
)

// String returns the wire name of the status.
func (s TaskStatus) String() string {
	switch s {
	case TaskUnqueued:
		return "UNQUEUED"
	case TaskQueued:
		return "QUEUED"
	case TaskFailed:
		return "FAILED"
	case TaskSuccess:
		return "SUCCESS"
	}
	return fmt.Sprintf("TaskStatus(%d)", int64(s))
}

// ParseTaskStatus maps a status name to its TaskStatus value.
func ParseTaskStatus(name string) (TaskStatus, error) {
	switch name {
	case "UNQUEUED":
		return TaskUnqueued, nil
	case "QUEUED":
		return TaskQueued, nil
	case "FAILED":
		return TaskFailed, nil
	case "SUCCESS":
		return TaskSuccess, nil
	}
	return 0, ErrValidation("unknown task status %q", name)
}

// InProgress reports whether a task in this status still blocks deletion of
// its job config.
func (s TaskStatus) InProgress() bool {
	return s == TaskUnqueued || s == TaskQueued
}

// TaskType identifies the kind of work a task performs.
type TaskType int64

const (
	TaskTypeList TaskType = 1
	TaskTypeCopy TaskType = 2
	TaskTypeLoad TaskType = 3
)

// String returns the wire name of the task type.
func (t TaskType) String() string {
	switch t {
	case TaskTypeList:
		return "LIST"
	case TaskTypeCopy:
		return "COPY"
	case TaskTypeLoad:
		return "LOAD"
	}
	return fmt.Sprintf("TaskType(%d)", int64(t))
}

// ParseTaskType maps a type name to its TaskType value.
func ParseTaskType(name string) (TaskType, error) {
	switch name {
	case "LIST":
		return TaskTypeList, nil
	case "COPY":
		return TaskTypeCopy, nil
	case "LOAD":
		return TaskTypeLoad, nil
	}
	return 0, ErrValidation("unknown task type %q", name)
}

// Task is a unit of transfer work. Only the first LIST task of a job is
// written by this repo; everything after that is the DCP's business.
type Task struct {
	ProjectID            string          `json:"projectId"`
	JobConfigID          string          `json:"jobConfigId"`
	JobRunID             string          `json:"jobRunId"`
	TaskID               string          `json:"taskId"`
	TaskSpec             json.RawMessage `json:"taskSpec"`
	TaskType             TaskType        `json:"taskType"`
	Status               TaskStatus      `json:"status"`
	FailureType          int64           `json:"failureType,omitempty"`
	FailureMessage       string          `json:"failureMessage,omitempty"`
	CreationTime         int64           `json:"creationTime"`
	LastModificationTime int64           `json:"lastModificationTime"`
}

// ListTaskSpec is the spec of the first LIST task, naming where the listing
// result lands in GCS.
type ListTaskSpec struct {
	SrcDirectory          string `json:"src_directory"`
	DstListResultBucket   string `json:"dst_list_result_bucket"`
	DstListResultObject   string `json:"dst_list_result_object"`
	ExpectedGenerationNum int64  `json:"expected_generation_num"`
}
