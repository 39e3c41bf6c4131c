package handler

import (
	"net/http"
	"time"

	"github.com/remiblancher/smimekit/internal/api/dto"
	"github.com/remiblancher/smimekit/internal/api/service"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

// PEMHandler handles certificate and key loading.
type PEMHandler struct {
	service *service.Service
}

// NewPEMHandler creates a new PEMHandler.
func NewPEMHandler(svc *service.Service) *PEMHandler {
	return &PEMHandler{service: svc}
}

// Certificates handles POST /api/v1/pem/certificates
func (h *PEMHandler) Certificates(w http.ResponseWriter, r *http.Request) {
	var req dto.PEMCertificatesRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	certs, err := h.service.ReadCertificates(r.Context(), []byte(req.PEM))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := dto.PEMCertificatesResponse{Certificates: make([]dto.CertificateInfo, 0, len(certs))}
	for _, c := range certs {
		resp.Certificates = append(resp.Certificates, certificateInfo(c))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Key handles POST /api/v1/pem/key
func (h *PEMHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req dto.PEMKeyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	key, err := h.service.ReadPrivateKey(r.Context(), []byte(req.PEM), []byte(req.Password))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.PEMKeyResponse{Algorithm: key.Algorithm().String()})
}

func certificateInfo(c *x509util.Certificate) dto.CertificateInfo {
	x := c.X509()
	return dto.CertificateInfo{
		Subject:     c.Subject(),
		Issuer:      c.Issuer(),
		Serial:      c.SerialHex(),
		Fingerprint: c.FingerprintHex(),
		NotBefore:   x.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:    x.NotAfter.UTC().Format(time.RFC3339),
		Emails:      x.EmailAddresses,
	}
}
