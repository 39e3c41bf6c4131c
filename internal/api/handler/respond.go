package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/remiblancher/smimekit/internal/api/dto"
	apierrors "github.com/remiblancher/smimekit/internal/api/errors"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, apiErr *dto.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErr)
}

// handleServiceError maps an operation failure to its status and body.
func handleServiceError(w http.ResponseWriter, err error) {
	status, apiErr := apierrors.MapError(err)
	respondError(w, status, apiErr)
}

// decodeRequest reads a JSON body into v, answering 400 (or 413 for an
// oversized body) on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, &dto.APIError{
				Code:    apierrors.CodeInvalidRequest,
				Message: "Request body too large",
			})
			return false
		}
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return false
	}
	return true
}

// decodeField decodes a BinaryData field, answering 400 naming the field.
func decodeField(w http.ResponseWriter, name string, b *dto.BinaryData) ([]byte, bool) {
	data, err := b.Decode()
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewValidationError("Invalid "+name, map[string]string{
			name: err.Error(),
		}))
		return nil, false
	}
	return data, true
}
