package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/auth"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/service"
)

// JobHandler exposes the caller's application records. Every route runs
// behind RequireAuth; the service scopes each operation to the identity.
type JobHandler struct {
	svc *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

// HandleList returns the caller's records, oldest first.
//
// HTTP: GET /api/jobs
func (h *JobHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	jobs, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// HandleCreate adds a record.
//
// HTTP: POST /api/jobs
func (h *JobHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	var job model.Job
	if err := decodeJSON(r, &job); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.svc.Create(r.Context(), user.ID, &job)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate replaces a record the caller owns.
//
// HTTP: PUT /api/jobs/{id}
func (h *JobHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	var job model.Job
	if err := decodeJSON(r, &job); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), user.ID, chi.URLParam(r, "id"), &job)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete removes a record the caller owns.
//
// HTTP: DELETE /api/jobs/{id}
func (h *JobHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	if err := h.svc.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
