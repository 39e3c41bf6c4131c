package handler

import (
	"net/http"

	"github.com/remiblancher/smimekit/internal/api/dto"
	"github.com/remiblancher/smimekit/internal/api/service"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

// PKCS7Handler handles the engine operations.
type PKCS7Handler struct {
	service *service.Service
}

// NewPKCS7Handler creates a new PKCS7Handler.
func NewPKCS7Handler(svc *service.Service) *PKCS7Handler {
	return &PKCS7Handler{service: svc}
}

// Encrypt handles POST /api/v1/pkcs7/encrypt
func (h *PKCS7Handler) Encrypt(w http.ResponseWriter, r *http.Request) {
	var req dto.EncryptRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	data, ok := decodeField(w, "data", &req.Data)
	if !ok {
		return
	}

	p7, err := h.service.Encrypt(r.Context(), service.EncryptInput{
		Recipients: []byte(req.Recipients),
		Plaintext:  data,
		Cipher:     req.Cipher,
		Options:    req.Options,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.EncryptResponse{
		PKCS7:      dto.Base64(p7.DER()),
		Recipients: p7.RecipientCount(),
	})
}

// Decrypt handles POST /api/v1/pkcs7/decrypt
func (h *PKCS7Handler) Decrypt(w http.ResponseWriter, r *http.Request) {
	var req dto.DecryptRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	structure, ok := decodeField(w, "pkcs7", &req.PKCS7)
	if !ok {
		return
	}

	plaintext, err := h.service.Decrypt(r.Context(), service.DecryptInput{
		Structure:   structure,
		Key:         []byte(req.Key.PEM),
		KeyPassword: []byte(req.Key.Password),
		Certificate: []byte(req.Certificate),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.DecryptResponse{Data: dto.Base64(plaintext)})
}

// Sign handles POST /api/v1/pkcs7/sign
func (h *PKCS7Handler) Sign(w http.ResponseWriter, r *http.Request) {
	var req dto.SignRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	data, ok := decodeField(w, "data", &req.Data)
	if !ok {
		return
	}

	p7, err := h.service.Sign(r.Context(), service.SignInput{
		Certificate: []byte(req.Certificate),
		Key:         []byte(req.Key.PEM),
		KeyPassword: []byte(req.Key.Password),
		ExtraCerts:  []byte(req.ExtraCerts),
		Content:     data,
		Options:     req.Options,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.SignResponse{
		PKCS7:    dto.Base64(p7.DER()),
		Detached: p7.Detached(),
		MicAlg:   p7.MicAlg(),
	})
}

// Verify handles POST /api/v1/pkcs7/verify
func (h *PKCS7Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	structure, ok := decodeField(w, "pkcs7", &req.PKCS7)
	if !ok {
		return
	}
	var detached []byte
	if req.Data != nil {
		if detached, ok = decodeField(w, "data", req.Data); !ok {
			return
		}
		if detached == nil {
			detached = []byte{}
		}
	}

	valid, content, err := h.service.Verify(r.Context(), service.VerifyInput{
		Structure:    structure,
		Certificates: []byte(req.Certificates),
		TrustAnchors: []byte(req.TrustAnchors),
		Detached:     detached,
		Options:      req.Options,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.VerifyResponse{Valid: valid, Content: dto.Base64(content)})
}

// structureType names the content type of a parsed structure for responses.
func structureType(p7 *pkcs7.PKCS7) string {
	if p7 == nil {
		return ""
	}
	return p7.Type().String()
}
