package handler

import (
	"net/http"

	"github.com/nrahman/jobtrack/internal/audit"
)

// LogsHandler exposes the audit trail to administrators.
type LogsHandler struct {
	audit *audit.Logger
}

func NewLogsHandler(auditLog *audit.Logger) *LogsHandler {
	return &LogsHandler{audit: auditLog}
}

// HandleList returns the audit log lines, oldest first.
//
// HTTP: GET /api/logs (admin)
func (h *LogsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	lines, err := h.audit.Read()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"lines": lines})
}
