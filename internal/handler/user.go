package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/auth"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/service"
)

// UserHandler exposes account administration. Every route is mounted
// behind RequireAuth and RequireAdmin.
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// HandleList returns every account as a summary row.
//
// HTTP: GET /api/users (admin)
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleChangeRole sets an account's role.
//
// HTTP: PUT /api/users/{id}/role (admin)
func (h *UserHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	var req struct {
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.ChangeRole(r.Context(), actor, chi.URLParam(r, "id"), req.Role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "role updated"})
}

// HandleDelete removes an account and its records.
//
// HTTP: DELETE /api/users/{id} (admin)
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	if err := h.svc.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
