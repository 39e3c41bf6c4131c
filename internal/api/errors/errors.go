// Package errors provides error handling and HTTP status code mapping.
package errors

import (
	"errors"
	"net/http"

	"github.com/remiblancher/smimekit/internal/api/dto"
	"github.com/remiblancher/smimekit/pkg/errstack"
)

// Error codes for API responses.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidOption  = "INVALID_OPTION"
	CodeParseError     = "PARSE_ERROR"
	CodeCryptoEngine   = "CRYPTO_ENGINE_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeValidation     = "VALIDATION_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// MapError maps an operation error to an HTTP status code and APIError. The
// record stack of an errstack error is carried in the details.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	var e *errstack.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, &dto.APIError{
			Code:    CodeInternal,
			Message: "An internal error occurred",
		}
	}

	details := &dto.ErrorDetails{Kind: e.Kind.String(), Errors: e.Records()}
	switch e.Kind {
	case errstack.InvalidOption:
		return http.StatusBadRequest, &dto.APIError{Code: CodeInvalidOption, Message: err.Error(), Details: details}
	case errstack.ParseError:
		return http.StatusBadRequest, &dto.APIError{Code: CodeParseError, Message: err.Error(), Details: details}
	case errstack.CryptoEngineError:
		return http.StatusUnprocessableEntity, &dto.APIError{Code: CodeCryptoEngine, Message: err.Error(), Details: details}
	default:
		return http.StatusInternalServerError, &dto.APIError{Code: CodeInternal, Message: err.Error(), Details: details}
	}
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

// NewNotFound creates a not found error.
func NewNotFound(resource string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeNotFound,
		Message: resource + " not found",
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, fields map[string]string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeValidation,
		Message: message,
		Details: &dto.ErrorDetails{Fields: fields},
	}
}
