package domain

import (
	"regexp"
	"strings"
)

var (
	projectIDRe = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)
	configIDRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)
	bucketRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,61}[a-z0-9]$`)
	// Go's regexp caps repeat counts at 1000, so the 1-1024 length range is
	// split into two adjacent runs.
	datasetRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,1000}[A-Za-z0-9_]{0,24}$`)
)

// ValidateProjectID checks the GCP project id format.
func ValidateProjectID(id string) error {
	if !projectIDRe.MatchString(id) {
		return ErrValidation("invalid project id %q", id)
	}
	return nil
}

// ValidateConfigID checks the job config id format.
func ValidateConfigID(id string) error {
	if !configIDRe.MatchString(id) {
		return ErrValidation("invalid job config id %q", id)
	}
	return nil
}

// ValidateJobSpec checks the fields of a job spec: source directory, GCS
// destination, and BigQuery target.
func ValidateJobSpec(spec JobSpec) error {
	if err := validateOnPremDir(spec.OnPremSrcDirectory); err != nil {
		return err
	}
	if !bucketRe.MatchString(spec.GCSBucket) {
		return ErrValidation("invalid GCS bucket name %q", spec.GCSBucket)
	}
	if !datasetRe.MatchString(spec.BigQueryDataset) {
		return ErrValidation("invalid BigQuery dataset %q", spec.BigQueryDataset)
	}
	if !datasetRe.MatchString(spec.BigQueryTable) {
		return ErrValidation("invalid BigQuery table %q", spec.BigQueryTable)
	}
	return nil
}

// validateOnPremDir requires an absolute Unix path with no parent-directory
// segments.
func validateOnPremDir(dir string) error {
	if !strings.HasPrefix(dir, "/") {
		return ErrValidation("on-prem source directory %q must be an absolute path", dir)
	}
	for _, seg := range strings.Split(dir, "/") {
		if seg == ".." {
			return ErrValidation("on-prem source directory %q must not contain '..'", dir)
		}
	}
	return nil
}
