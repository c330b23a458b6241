package api

import (
	"net/http"
)

// infraStatus reports the deployment state of every ingest resource.
func (h *APIHandler) infraStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.infra.Statuses(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// infraCreate provisions all ingest resources.
func (h *APIHandler) infraCreate(w http.ResponseWriter, r *http.Request) {
	if err := h.infra.Create(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "created"})
}

// infraTearDown deletes all ingest resources.
func (h *APIHandler) infraTearDown(w http.ResponseWriter, r *http.Request) {
	if err := h.infra.TearDown(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
