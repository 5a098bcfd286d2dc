package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/service"
)

// DropdownHandler exposes the shared field vocabularies. Reads are open
// to any signed-in user; mutations are mounted behind RequireAdmin.
type DropdownHandler struct {
	svc *service.DropdownService
}

func NewDropdownHandler(svc *service.DropdownService) *DropdownHandler {
	return &DropdownHandler{svc: svc}
}

// HandleList returns every vocabulary grouped by field.
//
// HTTP: GET /api/dropdowns
func (h *DropdownHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

// HandleAdd appends a label to a field's vocabulary.
//
// HTTP: POST /api/dropdowns (admin)
func (h *DropdownHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FieldName string `json:"field_name"`
		Label     string `json:"label"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	opt, err := h.svc.Add(r.Context(), req.FieldName, req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, opt)
}

// HandleRename changes an option's label.
//
// HTTP: PUT /api/dropdowns/{id} (admin)
func (h *DropdownHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	id, err := optionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Label string `json:"label"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	opt, err := h.svc.Rename(r.Context(), id, req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opt)
}

// HandleReorder rewrites a field's display order.
//
// HTTP: PUT /api/dropdowns/reorder (admin)
func (h *DropdownHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FieldName string  `json:"field_name"`
		IDs       []int64 `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Reorder(r.Context(), req.FieldName, req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reordered"})
}

// HandleDelete removes an option.
//
// HTTP: DELETE /api/dropdowns/{id} (admin)
func (h *DropdownHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := optionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func optionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", "option id must be an integer")
	}
	return id, nil
}
