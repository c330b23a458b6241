// Package api provides HTTP handlers for the cloud-ingest REST API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cloud-ingest/internal/domain"
	"cloud-ingest/internal/service/infrasvc"
)

// JobService is the job config, run, and task surface the handlers call.
type JobService interface {
	CreateJob(ctx context.Context, projectID, configID string, spec domain.JobSpec) (*domain.JobConfig, error)
	ListJobConfigs(ctx context.Context, projectID string) ([]domain.JobConfigWithRun, error)
	GetJobRun(ctx context.Context, projectID, configID, runID string) (*domain.JobConfigWithRun, error)
	ListJobRuns(ctx context.Context, projectID string, pageSize, createdBefore int64) ([]domain.JobRun, error)
	DeleteJobConfigs(ctx context.Context, projectID string, configIDs []string) (*domain.DeleteResult, error)
	ListTasksOfStatus(ctx context.Context, req domain.ListTasksRequest, statusName string) ([]domain.Task, error)
	ListTasksOfFailureType(ctx context.Context, req domain.ListTasksRequest, failureType int64) ([]domain.Task, error)
}

// InfraService is the provisioning surface the handlers call.
type InfraService interface {
	Statuses(ctx context.Context) (*infrasvc.Status, error)
	Create(ctx context.Context) error
	TearDown(ctx context.Context) error
}

// APIHandler serves the REST API.
//
//nolint:revive // Name chosen for clarity across package boundaries
type APIHandler struct {
	jobs   JobService
	infra  InfraService
	logger *slog.Logger
}

// NewHandler creates a new APIHandler.
func NewHandler(jobs JobService, infra InfraService, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		jobs:   jobs,
		infra:  infra,
		logger: logger.With("component", "api"),
	}
}

// Routes mounts every API route on a new router.
func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Get("/jobconfigs", h.listJobConfigs)
		r.Post("/jobconfigs", h.createJobConfig)
		r.Post("/jobconfigs/delete", h.deleteJobConfigs)

		r.Get("/jobruns", h.listJobRuns)
		r.Get("/jobruns/{configID}/{runID}", h.getJobRun)

		r.Get("/tasks/{configID}/{runID}/status/{status}", h.listTasksOfStatus)
		r.Get("/tasks/{configID}/{runID}/failuretype/{failureType}", h.listTasksOfFailureType)

		r.Get("/infrastructure/status", h.infraStatus)
		r.Post("/infrastructure/create", h.infraCreate)
		r.Post("/infrastructure/teardown", h.infraTearDown)
	})
	return r
}

// writeJSON writes v as a JSON response.
func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps err to an HTTP status and writes the error body.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": err.Error(),
	})
}

// intQueryParam parses an optional integer query parameter; absent means
// zero.
func intQueryParam(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.ErrValidation("query param %q must be a valid integer, got %q", name, raw)
	}
	return v, nil
}
