package handler

import (
	"net/http"
	"strconv"

	"github.com/remiblancher/smimekit/internal/api/dto"
	apierrors "github.com/remiblancher/smimekit/internal/api/errors"
	"github.com/remiblancher/smimekit/pkg/audit"
)

// AuditHandler exposes the audit trail of the running server.
type AuditHandler struct {
	events  *audit.MemoryWriter
	logFile string
}

// NewAuditHandler creates a new AuditHandler. events holds the events of this
// process; logFile is the persistent chain, empty when not configured.
func NewAuditHandler(events *audit.MemoryWriter, logFile string) *AuditHandler {
	return &AuditHandler{events: events, logFile: logFile}
}

// Logs handles GET /api/v1/audit/logs
func (h *AuditHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, http.StatusNotFound, apierrors.NewNotFound("audit log"))
		return
	}

	events := h.events.Events()
	resp := dto.AuditLogsResponse{Logs: make([]dto.AuditEntry, 0, len(events)), Total: len(events)}
	for _, e := range events {
		resp.Logs = append(resp.Logs, auditEntry(e))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Verify handles POST /api/v1/audit/verify
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h.logFile == "" {
		respondError(w, http.StatusNotFound, apierrors.NewNotFound("audit log file"))
		return
	}

	resp := dto.AuditVerifyResponse{Valid: true, LogFile: h.logFile}
	n, err := audit.VerifyChain(h.logFile)
	resp.EntryCount = n
	if err != nil {
		resp.Valid = false
		resp.Errors = []string{err.Error()}
	}
	respondJSON(w, http.StatusOK, resp)
}

func auditEntry(e audit.Event) dto.AuditEntry {
	details := map[string]string{}
	if e.Context.Flags != "" {
		details["flags"] = e.Context.Flags
	}
	if e.Context.Cipher != "" {
		details["cipher"] = e.Context.Cipher
	}
	if e.Context.Algorithm != "" {
		details["algorithm"] = e.Context.Algorithm
	}
	if e.Context.Recipients > 0 {
		details["recipients"] = strconv.Itoa(e.Context.Recipients)
	}
	if e.Context.RequestID != "" {
		details["request_id"] = e.Context.RequestID
	}

	return dto.AuditEntry{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Operation: string(e.EventType),
		Subject:   e.Object.Subject,
		Details:   details,
		Success:   e.Result == audit.ResultSuccess,
		Error:     e.Context.Reason,
		Hash:      e.Hash,
	}
}
