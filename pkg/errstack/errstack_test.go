package errstack

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	testReasonInner = NewReason(LibASN1, 58, "nested asn1 error")
	testReasonOuter = NewReason(LibPKCS7, 112, "wrong content type")
)

// =============================================================================
// Raise / Wrap Tests
// =============================================================================

func TestU_Raise_CapturesCallSite(t *testing.T) {
	err := Raise(CryptoEngineError, testReasonOuter, "")

	if len(err.Frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(err.Frames))
	}
	f := err.Frames[0]
	if f.File != "errstack/errstack_test.go" {
		t.Errorf("File = %q, want errstack/errstack_test.go", f.File)
	}
	if f.Line == 0 {
		t.Error("Line should be set")
	}
	if f.Function != "errstack.TestU_Raise_CapturesCallSite" {
		t.Errorf("Function = %q", f.Function)
	}
	if f.Library != "PKCS7 routines" {
		t.Errorf("Library = %q", f.Library)
	}
	if f.Code != uint32(LibPKCS7)<<24|112 {
		t.Errorf("Code = %08X", f.Code)
	}
}

func TestU_Wrap_ForeignErrorIsOldestFrame(t *testing.T) {
	err := Wrap(ParseError, io.ErrUnexpectedEOF, testReasonInner, "certificate 2")

	if err.Kind != ParseError {
		t.Errorf("Kind = %v, want %v", err.Kind, ParseError)
	}
	if len(err.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(err.Frames))
	}
	if err.Frames[0].Reason != io.ErrUnexpectedEOF.Error() || err.Frames[0].Code != 0 {
		t.Errorf("foreign frame = %+v", err.Frames[0])
	}
	if err.Frames[1].Reason != "nested asn1 error" || err.Frames[1].Data != "certificate 2" {
		t.Errorf("reason frame = %+v", err.Frames[1])
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should find the foreign cause")
	}
	if !errors.Is(err, testReasonInner) {
		t.Error("errors.Is should find the reason")
	}
}

func TestU_Wrap_OuterKindKeepsOrder(t *testing.T) {
	inner := Raise(ParseError, testReasonInner, "")
	outer := Wrap(CryptoEngineError, inner, testReasonOuter, "")

	if outer.Kind != CryptoEngineError {
		t.Errorf("Kind = %v, want outer kind %v", outer.Kind, CryptoEngineError)
	}
	if errors.Is(outer, ParseError) {
		t.Error("errors.Is(outer, ParseError) = true, inner kind leaked")
	}
	if !errors.Is(outer, testReasonInner) {
		t.Error("inner reason lost")
	}
	got := []string{outer.Frames[0].Reason, outer.Frames[1].Reason}
	want := []string{"nested asn1 error", "wrong content type"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frame order mismatch (-want +got):\n%s", diff)
	}
	if len(inner.Frames) != 1 || inner.Kind != ParseError {
		t.Error("Wrap must not modify the wrapped error")
	}
}

func TestU_Error_IsKind(t *testing.T) {
	err := error(Raise(InvalidOption, testReasonOuter, "bogus"))

	if !errors.Is(err, InvalidOption) {
		t.Error("errors.Is(err, InvalidOption) = false")
	}
	if errors.Is(err, ParseError) {
		t.Error("errors.Is(err, ParseError) = true")
	}
	if k, ok := KindOf(err); !ok || k != InvalidOption {
		t.Errorf("KindOf = %v, %v", k, ok)
	}
	if _, ok := KindOf(io.EOF); ok {
		t.Error("KindOf(io.EOF) should report false")
	}
}

func TestU_Error_Message(t *testing.T) {
	err := Wrap(CryptoEngineError, io.EOF, testReasonOuter, "signer 0")

	msg := err.Error()
	if !strings.HasPrefix(msg, "crypto_engine_error: wrong content type (signer 0)") {
		t.Errorf("Error() = %q", msg)
	}
	if !strings.HasSuffix(msg, ": EOF") {
		t.Errorf("Error() should end with the root cause, got %q", msg)
	}
}

// =============================================================================
// Translate Tests
// =============================================================================

func TestU_Translate_PresenceMarkers(t *testing.T) {
	frames := []Frame{
		{Code: 7, File: "a/b.go", Line: 3},
		{Code: 9, File: "c/d.go", Line: 5, Library: "PEM routines", Function: "x509util.ParseCertificatesPEM", Reason: "bad base64 decode", Data: "block 1"},
	}

	got := Translate(frames)
	want := []Record{
		{Code: 7, File: "a/b.go", Line: 3},
		{
			Code: 9, File: "c/d.go", Line: 5,
			Library:  Some("PEM routines"),
			Function: Some("x509util.ParseCertificatesPEM"),
			Reason:   Some("bad base64 decode"),
			Data:     Some("block 1"),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Translate mismatch (-want +got):\n%s", diff)
	}
}

func TestU_Translate_Empty(t *testing.T) {
	if got := Translate(nil); got != nil {
		t.Errorf("Translate(nil) = %v, want nil", got)
	}
}

func TestU_Record_JSONAbsentIsNull(t *testing.T) {
	rec := Translate([]Frame{{Code: 1, File: "f.go", Line: 2, Reason: "r"}})[0]

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"code":1,"file":"f.go","line":2,"library":null,"function":null,"reason":"r","data":null}`
	if string(data) != want {
		t.Errorf("JSON = %s\nwant  %s", data, want)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(rec, back); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestU_Records_ForeignError(t *testing.T) {
	recs := Records(io.EOF)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if v, ok := recs[0].Reason.Get(); !ok || v != "EOF" {
		t.Errorf("Reason = %q, %v", v, ok)
	}
	if recs[0].Library.Present {
		t.Error("Library should be absent")
	}
	if Records(nil) != nil {
		t.Error("Records(nil) should be nil")
	}
}

func TestU_Record_String(t *testing.T) {
	rec := Translate([]Frame{{Code: 0x0600006F, File: "pkcs7/verify.go", Line: 10, Library: "PKCS7 routines", Function: "pkcs7.Verify", Reason: "signature failure"}})[0]

	want := "error:0600006F:PKCS7 routines:pkcs7.Verify:signature failure:pkcs7/verify.go:10"
	if got := rec.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
