package dto

// PEMCertificatesRequest loads every certificate found in PEM text.
type PEMCertificatesRequest struct {
	// PEM holds one or more CERTIFICATE blocks.
	PEM string `json:"pem"`
}

// PEMCertificatesResponse lists the parsed certificates in input order.
type PEMCertificatesResponse struct {
	Certificates []CertificateInfo `json:"certificates"`
}

// CertificateInfo describes a certificate without its key material.
type CertificateInfo struct {
	Subject     string   `json:"subject"`
	Issuer      string   `json:"issuer"`
	Serial      string   `json:"serial"`
	Fingerprint string   `json:"fingerprint"` // SHA-256, hex
	NotBefore   string   `json:"not_before"`  // RFC3339
	NotAfter    string   `json:"not_after"`   // RFC3339
	Emails      []string `json:"emails,omitempty"`
}

// PEMKeyRequest loads one private key.
type PEMKeyRequest struct {
	PEM string `json:"pem"`

	// Password decrypts an ENCRYPTED PRIVATE KEY block.
	Password string `json:"password,omitempty"`
}

// PEMKeyResponse describes a loaded key. The key itself is never returned.
type PEMKeyResponse struct {
	Algorithm string `json:"algorithm"`
}

// KeyInput is a private key carried inside an engine request.
type KeyInput struct {
	PEM      string `json:"pem"`
	Password string `json:"password,omitempty"`
}
