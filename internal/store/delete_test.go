package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasksInProgressQuery(t *testing.T) {
	stmt := tasksInProgressQuery("proj", []string{"cfg-a", "cfg-b", "cfg-c"})

	assert.Equal(t, 3, strings.Count(stmt.SQL, "COUNT(*)"))
	assert.Equal(t, 2, strings.Count(stmt.SQL, "UNION ALL"))
	assert.Contains(t, stmt.SQL, "ORDER BY ordinal")
	// Only QUEUED(1) and UNQUEUED(0) block deletion.
	assert.Contains(t, stmt.SQL, "(Status = 1 OR Status = 0)")

	assert.Equal(t, "proj", stmt.Params["projectID"])
	assert.Equal(t, "cfg-a", stmt.Params["config_0"])
	assert.Equal(t, "cfg-b", stmt.Params["config_1"])
	assert.Equal(t, "cfg-c", stmt.Params["config_2"])
	// Ids are always bound as parameters, never spliced into the SQL.
	assert.NotContains(t, stmt.SQL, "cfg-a")
}

func TestPartitionConfigs(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		counts   []int64
		deleted  []string
		retained []string
	}{
		{
			name:     "mixed",
			ids:      []string{"a", "b"},
			counts:   []int64{2, 0},
			deleted:  []string{"b"},
			retained: []string{"a"},
		},
		{
			name:     "all idle",
			ids:      []string{"a", "b", "c"},
			counts:   []int64{0, 0, 0},
			deleted:  []string{"a", "b", "c"},
			retained: []string{},
		},
		{
			name:     "all busy",
			ids:      []string{"a", "b"},
			counts:   []int64{1, 7},
			deleted:  []string{},
			retained: []string{"a", "b"},
		},
		{
			name:     "empty",
			ids:      nil,
			counts:   nil,
			deleted:  []string{},
			retained: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := partitionConfigs(tc.ids, tc.counts)
			require.NotNil(t, res)
			assert.Equal(t, tc.deleted, res.Deleted)
			assert.Equal(t, tc.retained, res.Retained)
		})
	}
}
