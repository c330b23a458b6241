package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProjectID(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"my-project-123", true},
		{"cloud-ingest-demo", true},
		{"short", false},
		{"My-Project", false},
		{"1project-abc", false},
		{"trailing-dash-", false},
	}
	for _, tc := range tests {
		err := ValidateProjectID(tc.id)
		if tc.ok {
			assert.NoError(t, err, tc.id)
		} else {
			assert.Error(t, err, tc.id)
		}
	}
}

func TestValidateConfigID(t *testing.T) {
	assert.NoError(t, ValidateConfigID("transfer_2024-01"))
	assert.Error(t, ValidateConfigID(""))
	assert.Error(t, ValidateConfigID("-leading-dash"))
	assert.Error(t, ValidateConfigID("has space"))
}

func TestValidateJobSpec(t *testing.T) {
	valid := JobSpec{
		OnPremSrcDirectory: "/mnt/share/data",
		GCSBucket:          "my-bucket",
		BigQueryDataset:    "ingest",
		BigQueryTable:      "files",
	}
	assert.NoError(t, ValidateJobSpec(valid))

	rel := valid
	rel.OnPremSrcDirectory = "data/photos"
	assert.Error(t, ValidateJobSpec(rel))

	traversal := valid
	traversal.OnPremSrcDirectory = "/mnt/../etc"
	assert.Error(t, ValidateJobSpec(traversal))

	badBucket := valid
	badBucket.GCSBucket = "Bad_Bucket"
	assert.Error(t, ValidateJobSpec(badBucket))

	badTable := valid
	badTable.BigQueryTable = "no.dots"
	assert.Error(t, ValidateJobSpec(badTable))
}
