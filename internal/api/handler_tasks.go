package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cloud-ingest/internal/domain"
)

// taskListRequest extracts the path and query parameters shared by the task
// listing routes.
func taskListRequest(r *http.Request) (domain.ListTasksRequest, error) {
	pageSize, err := intQueryParam(r, "pageSize")
	if err != nil {
		return domain.ListTasksRequest{}, err
	}
	lastModifiedBefore, err := intQueryParam(r, "lastModifiedBefore")
	if err != nil {
		return domain.ListTasksRequest{}, err
	}
	return domain.ListTasksRequest{
		ProjectID:          chi.URLParam(r, "projectID"),
		JobConfigID:        chi.URLParam(r, "configID"),
		JobRunID:           chi.URLParam(r, "runID"),
		Limit:              pageSize,
		LastModifiedBefore: lastModifiedBefore,
	}, nil
}

// listTasksOfStatus returns tasks of one status, most recently modified
// first.
func (h *APIHandler) listTasksOfStatus(w http.ResponseWriter, r *http.Request) {
	req, err := taskListRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tasks, err := h.jobs.ListTasksOfStatus(r.Context(), req, chi.URLParam(r, "status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	h.writeJSON(w, http.StatusOK, tasks)
}

// listTasksOfFailureType returns failed tasks of one failure type, most
// recently modified first.
func (h *APIHandler) listTasksOfFailureType(w http.ResponseWriter, r *http.Request) {
	req, err := taskListRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	raw := chi.URLParam(r, "failureType")
	failureType, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeError(w, r, domain.ErrValidation("failure type must be a valid integer, got %q", raw))
		return
	}

	tasks, err := h.jobs.ListTasksOfFailureType(r.Context(), req, failureType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	h.writeJSON(w, http.StatusOK, tasks)
}
