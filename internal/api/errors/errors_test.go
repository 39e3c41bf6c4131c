package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/remiblancher/smimekit/pkg/errstack"
)

var testReason = errstack.NewReason(errstack.LibPKCS7, 1, "test reason")

func TestU_MapError_Kinds(t *testing.T) {
	tests := []struct {
		kind   errstack.Kind
		status int
		code   string
	}{
		{errstack.InvalidOption, http.StatusBadRequest, CodeInvalidOption},
		{errstack.ParseError, http.StatusBadRequest, CodeParseError},
		{errstack.CryptoEngineError, http.StatusUnprocessableEntity, CodeCryptoEngine},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			status, apiErr := MapError(errstack.Raise(tt.kind, testReason, "data"))
			if status != tt.status || apiErr.Code != tt.code {
				t.Errorf("MapError() = %d %s, want %d %s", status, apiErr.Code, tt.status, tt.code)
			}
			if apiErr.Details == nil || apiErr.Details.Kind != tt.kind.String() {
				t.Fatalf("details = %+v", apiErr.Details)
			}
			if len(apiErr.Details.Errors) != 1 {
				t.Fatalf("records = %d, want 1", len(apiErr.Details.Errors))
			}
			if reason, _ := apiErr.Details.Errors[0].Reason.Get(); reason != "test reason" {
				t.Errorf("record reason = %q", reason)
			}
		})
	}
}

func TestU_MapError_WrappedStack(t *testing.T) {
	err := fmt.Errorf("sign: %w", errstack.Raise(errstack.CryptoEngineError, testReason, ""))
	if status, _ := MapError(err); status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", status)
	}
}

func TestU_MapError_Foreign(t *testing.T) {
	status, apiErr := MapError(errors.New("audit log failed: disk full"))
	if status != http.StatusInternalServerError || apiErr.Code != CodeInternal {
		t.Errorf("MapError() = %d %s", status, apiErr.Code)
	}
	if apiErr.Details != nil {
		t.Errorf("foreign error leaked details: %+v", apiErr.Details)
	}
}

func TestU_MapError_Nil(t *testing.T) {
	if status, apiErr := MapError(nil); status != http.StatusOK || apiErr != nil {
		t.Errorf("MapError(nil) = %d %v", status, apiErr)
	}
}

func TestU_Constructors(t *testing.T) {
	if e := NewBadRequest("bad"); e.Code != CodeInvalidRequest || e.Message != "bad" {
		t.Errorf("NewBadRequest() = %+v", e)
	}
	if e := NewNotFound("audit log"); e.Code != CodeNotFound || e.Message != "audit log not found" {
		t.Errorf("NewNotFound() = %+v", e)
	}
	if e := NewValidationError("invalid", map[string]string{"data": "bad base64"}); e.Details.Fields["data"] != "bad base64" {
		t.Errorf("NewValidationError() = %+v", e)
	}
}
