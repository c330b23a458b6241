package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cloud-ingest/internal/domain"
)

type createJobConfigRequest struct {
	JobConfigID string         `json:"jobConfigId"`
	JobSpec     domain.JobSpec `json:"jobSpec"`
}

type deleteJobConfigsRequest struct {
	JobConfigIDs []string `json:"jobConfigIds"`
}

// listJobConfigs returns all configs of a project, each with its latest run.
func (h *APIHandler) listJobConfigs(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	configs, err := h.jobs.ListJobConfigs(r.Context(), projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if configs == nil {
		configs = []domain.JobConfigWithRun{}
	}
	h.writeJSON(w, http.StatusOK, configs)
}

// createJobConfig creates a config together with its first run and listing
// task.
func (h *APIHandler) createJobConfig(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req createJobConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if req.JobConfigID == "" {
		h.writeError(w, r, domain.ErrValidation("jobConfigId is required"))
		return
	}

	config, err := h.jobs.CreateJob(r.Context(), projectID, req.JobConfigID, req.JobSpec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, config)
}

// deleteJobConfigs deletes the idle subset of the given configs and reports
// the partition.
func (h *APIHandler) deleteJobConfigs(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req deleteJobConfigsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if len(req.JobConfigIDs) == 0 {
		h.writeError(w, r, domain.ErrValidation("jobConfigIds must not be empty"))
		return
	}

	result, err := h.jobs.DeleteJobConfigs(r.Context(), projectID, req.JobConfigIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// listJobRuns returns a page of runs, newest first.
func (h *APIHandler) listJobRuns(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	pageSize, err := intQueryParam(r, "pageSize")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	createdBefore, err := intQueryParam(r, "createdBefore")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	runs, err := h.jobs.ListJobRuns(r.Context(), projectID, pageSize, createdBefore)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []domain.JobRun{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

// getJobRun returns a single run joined with its config.
func (h *APIHandler) getJobRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.jobs.GetJobRun(r.Context(),
		chi.URLParam(r, "projectID"),
		chi.URLParam(r, "configID"),
		chi.URLParam(r, "runID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}
