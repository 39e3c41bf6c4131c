package dto

// SMIMEWriteRequest renders a PKCS7 structure as an S/MIME message.
type SMIMEWriteRequest struct {
	PKCS7 BinaryData `json:"pkcs7"`

	// Data is the detached content for multipart/signed output.
	Data *BinaryData `json:"data,omitempty"`

	Options []string `json:"options"`
}

// SMIMEWriteResponse carries the MIME text.
type SMIMEWriteResponse struct {
	SMIME string `json:"smime"`
}

// SMIMEReadRequest parses an S/MIME message.
type SMIMEReadRequest struct {
	SMIME string `json:"smime"`
}

// SMIMEReadResponse carries the structure and, for multipart/signed input or
// embedded signed data, the content.
type SMIMEReadResponse struct {
	PKCS7   *BinaryData `json:"pkcs7"`
	Type    string      `json:"type"`
	Content *BinaryData `json:"content,omitempty"`
}
