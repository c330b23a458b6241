package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskStatus(t *testing.T) {
	s, err := ParseTaskStatus("QUEUED")
	require.NoError(t, err)
	assert.Equal(t, TaskQueued, s)

	_, err = ParseTaskStatus("RUNNING")
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTaskStatusInProgress(t *testing.T) {
	assert.True(t, TaskUnqueued.InProgress())
	assert.True(t, TaskQueued.InProgress())
	assert.False(t, TaskFailed.InProgress())
	assert.False(t, TaskSuccess.InProgress())
}

func TestParseTaskType(t *testing.T) {
	tt, err := ParseTaskType("LOAD")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeLoad, tt)

	_, err = ParseTaskType("list")
	assert.Error(t, err)
}
