package dto

// EncryptRequest envelopes data for a set of recipients.
type EncryptRequest struct {
	// Recipients is PEM text holding one certificate per recipient.
	Recipients string `json:"recipients"`

	// Data is the plaintext.
	Data BinaryData `json:"data"`

	// Cipher is a cipher name such as "des_ede3_cbc".
	Cipher string `json:"cipher"`

	// Options is a non-empty list of option names.
	Options []string `json:"options"`
}

// EncryptResponse carries the enveloped-data structure.
type EncryptResponse struct {
	PKCS7      *BinaryData `json:"pkcs7"`
	Recipients int         `json:"recipients"`
}

// DecryptRequest opens an enveloped-data structure.
type DecryptRequest struct {
	// PKCS7 is DER (base64) or a PEM "PKCS7" block.
	PKCS7 BinaryData `json:"pkcs7"`

	Key KeyInput `json:"key"`

	// Certificate is the recipient certificate, PEM.
	Certificate string `json:"certificate"`
}

// DecryptResponse carries the recovered plaintext.
type DecryptResponse struct {
	Data *BinaryData `json:"data"`
}

// SignRequest signs data.
type SignRequest struct {
	// Certificate is the signer certificate, PEM.
	Certificate string `json:"certificate"`

	Key KeyInput `json:"key"`

	// ExtraCerts is optional PEM text of certificates to embed.
	ExtraCerts string `json:"extra_certs,omitempty"`

	Data BinaryData `json:"data"`

	Options []string `json:"options"`
}

// SignResponse carries the signed-data structure.
type SignResponse struct {
	PKCS7    *BinaryData `json:"pkcs7"`
	Detached bool        `json:"detached"`
	MicAlg   string      `json:"micalg,omitempty"`
}

// VerifyRequest checks a signed-data structure.
type VerifyRequest struct {
	PKCS7 BinaryData `json:"pkcs7"`

	// Certificates are candidate signer certificates, PEM.
	Certificates string `json:"certificates,omitempty"`

	// TrustAnchors is the trust store, PEM.
	TrustAnchors string `json:"trust_anchors,omitempty"`

	// Data is the detached content, if any.
	Data *BinaryData `json:"data,omitempty"`

	Options []string `json:"options"`
}

// VerifyResponse reports a successful verification. A failed verification
// is an error response, never Valid=false.
type VerifyResponse struct {
	Valid   bool        `json:"valid"`
	Content *BinaryData `json:"content,omitempty"`
}
