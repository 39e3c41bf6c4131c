// Package handler provides HTTP handlers for the REST API.
package handler

import (
	"net/http"

	"github.com/remiblancher/smimekit/internal/api/dto"
	"github.com/remiblancher/smimekit/pkg/audit"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

// HealthHandler handles health and readiness endpoints.
type HealthHandler struct {
	version    string
	components []string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version string, components []string) *HealthHandler {
	return &HealthHandler{
		version:    version,
		components: components,
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]string, len(h.components))
	for _, c := range h.components {
		status[c] = "ok"
	}

	respondJSON(w, http.StatusOK, dto.HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Services: status,
	})
}

// Ready handles GET /ready. The server is ready once auditing is active.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"server": true,
		"audit":  audit.Enabled(),
	}

	allReady := true
	for _, ready := range checks {
		if !ready {
			allReady = false
			break
		}
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, dto.ReadyResponse{Ready: allReady, Checks: checks})
}

// Options handles GET /api/v1/options.
func (h *HealthHandler) Options(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.OptionsResponse{
		Flags:   pkcs7.FlagNames(),
		Ciphers: pkcs7.CipherNames(),
	})
}
