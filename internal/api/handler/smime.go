package handler

import (
	"net/http"

	"github.com/remiblancher/smimekit/internal/api/dto"
	"github.com/remiblancher/smimekit/internal/api/service"
)

// SMIMEHandler handles the S/MIME codec.
type SMIMEHandler struct {
	service *service.Service
}

// NewSMIMEHandler creates a new SMIMEHandler.
func NewSMIMEHandler(svc *service.Service) *SMIMEHandler {
	return &SMIMEHandler{service: svc}
}

// Write handles POST /api/v1/smime/write
func (h *SMIMEHandler) Write(w http.ResponseWriter, r *http.Request) {
	var req dto.SMIMEWriteRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	structure, ok := decodeField(w, "pkcs7", &req.PKCS7)
	if !ok {
		return
	}
	var content []byte
	if req.Data != nil {
		if content, ok = decodeField(w, "data", req.Data); !ok {
			return
		}
		if content == nil {
			content = []byte{}
		}
	}

	out, err := h.service.WriteSMIME(r.Context(), structure, content, req.Options)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.SMIMEWriteResponse{SMIME: string(out)})
}

// Read handles POST /api/v1/smime/read
func (h *SMIMEHandler) Read(w http.ResponseWriter, r *http.Request) {
	var req dto.SMIMEReadRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	p7, content, err := h.service.ReadSMIME(r.Context(), []byte(req.SMIME))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := dto.SMIMEReadResponse{
		PKCS7: dto.Base64(p7.DER()),
		Type:  structureType(p7),
	}
	if content != nil {
		resp.Content = dto.Base64(content)
	}
	respondJSON(w, http.StatusOK, resp)
}
