// Package dto provides Data Transfer Objects for the REST API.
package dto

import (
	"encoding/base64"
	"fmt"

	"github.com/remiblancher/smimekit/pkg/errstack"
)

// Encodings accepted by BinaryData.
const (
	EncodingText   = "text"
	EncodingPEM    = "pem"
	EncodingBase64 = "base64"
)

// BinaryData represents binary data with encoding metadata.
type BinaryData struct {
	// Data is the encoded content.
	Data string `json:"data"`

	// Encoding is "base64", "pem" or "text". PEM and text are taken as-is;
	// an empty encoding means text.
	Encoding string `json:"encoding,omitempty"`
}

// Base64 wraps raw bytes for a response.
func Base64(data []byte) *BinaryData {
	return &BinaryData{Data: base64.StdEncoding.EncodeToString(data), Encoding: EncodingBase64}
}

// Decode decodes the binary data based on its encoding.
func (b *BinaryData) Decode() ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("binary data is nil")
	}
	switch b.Encoding {
	case EncodingPEM, EncodingText, "":
		return []byte(b.Data), nil
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(b.Data)
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", b.Encoding)
	}
}

// IsPEM reports whether the data is declared as PEM text.
func (b *BinaryData) IsPEM() bool {
	return b != nil && b.Encoding == EncodingPEM
}

// APIError represents a standardized error response.
type APIError struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Details carries the error kind and its record stack, oldest first.
	Details *ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails is the machine readable part of an APIError.
type ErrorDetails struct {
	Kind   string            `json:"kind,omitempty"`
	Errors []errstack.Record `json:"errors,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Status is "ok" or "degraded".
	Status string `json:"status"`

	// Version is the server version.
	Version string `json:"version"`

	// Services lists enabled components and their status.
	Services map[string]string `json:"services,omitempty"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	// Ready indicates if the server is ready to accept requests.
	Ready bool `json:"ready"`

	// Checks lists individual readiness checks.
	Checks map[string]bool `json:"checks,omitempty"`
}

// OptionsResponse lists the option and cipher names the engine accepts.
type OptionsResponse struct {
	Flags   []string `json:"flags"`
	Ciphers []string `json:"ciphers"`
}
