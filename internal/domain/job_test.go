package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialCounters(t *testing.T) {
	c := InitialCounters()

	assert.Equal(t, int64(1), c.TotalTasks)
	assert.Equal(t, int64(1), c.TasksUnqueued)
	assert.Equal(t, int64(1), c.TotalTasksList)
	assert.Equal(t, int64(1), c.TasksUnqueuedList)
	assert.Zero(t, c.TasksCompleted)
	assert.Zero(t, c.TasksQueued)
	assert.Zero(t, c.TotalTasksCopy)
}

func TestInitialCountersJSONKeys(t *testing.T) {
	// The DCP reads these keys back, so the JSON shape is part of the
	// contract.
	b, err := json.Marshal(InitialCounters())
	require.NoError(t, err)

	var m map[string]int64
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, int64(1), m["totalTasks"])
	assert.Equal(t, int64(1), m["tasksUnqueued"])
	assert.Equal(t, int64(0), m["tasksCompletedCopy"])
	assert.Contains(t, m, "tasksFailedList")
}

func TestFirstListTask(t *testing.T) {
	spec := JobSpec{
		OnPremSrcDirectory: "/data/photos",
		GCSBucket:          "ingest-bucket",
		BigQueryDataset:    "ds",
		BigQueryTable:      "tbl",
	}

	assert.Equal(t, "list:/data/photos", FirstListTaskID(spec))

	ts := FirstListTaskSpec(spec, "cfg1")
	assert.Equal(t, "/data/photos", ts.SrcDirectory)
	assert.Equal(t, "ingest-bucket", ts.DstListResultBucket)
	assert.Equal(t, "cloud-ingest/listfiles/cfg1/jobrun/list", ts.DstListResultObject)
	assert.Zero(t, ts.ExpectedGenerationNum)
}

func TestJobRunStatusString(t *testing.T) {
	assert.Equal(t, "NOT_STARTED", JobNotStarted.String())
	assert.Equal(t, "IN_PROGRESS", JobInProgress.String())
	assert.Equal(t, "FAILED", JobRunFailed.String())
	assert.Equal(t, "SUCCESS", JobRunSuccess.String())
}
