package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/remiblancher/smimekit/internal/logging"
	"github.com/remiblancher/smimekit/internal/metrics"
	"github.com/remiblancher/smimekit/internal/testpki"
	"github.com/remiblancher/smimekit/pkg/audit"
	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

// =============================================================================
// Helpers
// =============================================================================

type fixture struct {
	svc     *Service
	metrics *metrics.Metrics
	events  *audit.MemoryWriter
	logs    *bytes.Buffer

	ca     *testpki.Identity
	signer *testpki.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events := audit.NewMemoryWriter()
	if err := audit.Init(events); err != nil {
		t.Fatalf("audit.Init() error = %v", err)
	}
	t.Cleanup(func() { _ = audit.Close() })

	var logs bytes.Buffer
	m := metrics.New()
	ca := testpki.CA(t, "Service CA")
	return &fixture{
		svc:     New(logging.New(logging.Options{Level: "debug", Output: &logs}), m),
		metrics: m,
		events:  events,
		logs:    &logs,
		ca:      ca,
		signer:  testpki.Issue(t, ca, testpki.RSAKey(t), "Alice"),
	}
}

func (f *fixture) sign(t *testing.T, content []byte, options ...string) *pkcs7.PKCS7 {
	t.Helper()
	p7, err := f.svc.Sign(context.Background(), SignInput{
		Certificate: f.signer.CertPEM(),
		Key:         f.signer.KeyPEM(t),
		Content:     content,
		Options:     options,
	})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return p7
}

func (f *fixture) eventTypes() []audit.EventType {
	var types []audit.EventType
	for _, e := range f.events.Events() {
		types = append(types, e.EventType)
	}
	return types
}

type failingWriter struct{}

func (failingWriter) Write(*audit.Event) error { return errors.New("disk full") }
func (failingWriter) Close() error             { return nil }
func (failingWriter) LastHash() string         { return audit.GenesisHash }

// =============================================================================
// Round trips
// =============================================================================

func TestF_Service_SignVerifyDetached(t *testing.T) {
	f := newFixture(t)
	content := []byte("quarterly report")
	p7 := f.sign(t, content, "detached", "binary")

	ok, got, err := f.svc.Verify(context.Background(), VerifyInput{
		Structure:    p7.DER(),
		TrustAnchors: f.ca.CertPEM(),
		Detached:     content,
		Options:      []string{"binary"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() = false with nil error")
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Verify() content = %q, want %q", got, content)
	}
}

func TestF_Service_VerifyAcceptsPEM(t *testing.T) {
	f := newFixture(t)
	p7 := f.sign(t, []byte("embedded"), "binary")

	_, got, err := f.svc.Verify(context.Background(), VerifyInput{
		Structure: p7.PEM(),
		Options:   []string{"noverify"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if string(got) != "embedded" {
		t.Errorf("Verify() content = %q", got)
	}
}

func TestF_Service_EncryptDecrypt(t *testing.T) {
	f := newFixture(t)
	recipient := testpki.SelfSigned(t, testpki.RSAKey(t), "Bob")

	p7, err := f.svc.Encrypt(context.Background(), EncryptInput{
		Recipients: recipient.CertPEM(),
		Plaintext:  []byte("for bob only"),
		Cipher:     "des_ede3_cbc",
		Options:    []string{"binary"},
	})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	plaintext, err := f.svc.Decrypt(context.Background(), DecryptInput{
		Structure:   p7.DER(),
		Key:         recipient.KeyPEM(t),
		Certificate: recipient.CertPEM(),
	})
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(plaintext) != "for bob only" {
		t.Errorf("Decrypt() = %q", plaintext)
	}
}

func TestF_Service_SMIMERoundTrip(t *testing.T) {
	f := newFixture(t)
	content := []byte("signed body")
	p7 := f.sign(t, content, "detached", "binary")

	text, err := f.svc.WriteSMIME(context.Background(), p7.DER(), content, []string{"detached", "binary"})
	if err != nil {
		t.Fatalf("WriteSMIME() error = %v", err)
	}
	if !bytes.Contains(text, []byte("multipart/signed")) {
		t.Fatalf("WriteSMIME() did not produce multipart/signed:\n%s", text)
	}

	read, got, err := f.svc.ReadSMIME(context.Background(), text)
	if err != nil {
		t.Fatalf("ReadSMIME() error = %v", err)
	}
	if !bytes.Equal(read.DER(), p7.DER()) {
		t.Error("ReadSMIME() structure differs from the written one")
	}
	if !bytes.Equal(got, content) {
		t.Errorf("ReadSMIME() content = %q, want %q", got, content)
	}
}

// =============================================================================
// Option handling
// =============================================================================

func TestU_Service_EmptyOptionsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p7 := f.sign(t, []byte("x"), "binary")

	_, encErr := f.svc.Encrypt(ctx, EncryptInput{Recipients: f.signer.CertPEM(), Cipher: "des_ede3_cbc"})
	_, signErr := f.svc.Sign(ctx, SignInput{Certificate: f.signer.CertPEM(), Key: f.signer.KeyPEM(t)})
	_, _, verErr := f.svc.Verify(ctx, VerifyInput{Structure: p7.DER()})
	_, writeErr := f.svc.WriteSMIME(ctx, p7.DER(), nil, nil)

	for name, err := range map[string]error{"encrypt": encErr, "sign": signErr, "verify": verErr, "smime write": writeErr} {
		if !errors.Is(err, errstack.InvalidOption) || !errors.Is(err, pkcs7.ErrEmptyOptions) {
			t.Errorf("%s with no options: error = %v, want empty option set", name, err)
		}
	}
}

func TestU_Service_UnknownOptionAndCipher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Sign(ctx, SignInput{
		Certificate: f.signer.CertPEM(),
		Key:         f.signer.KeyPEM(t),
		Options:     []string{"detached", "sideways"},
	})
	if !errors.Is(err, pkcs7.ErrUnknownOption) {
		t.Errorf("Sign() error = %v, want unknown option", err)
	}

	_, err = f.svc.Encrypt(ctx, EncryptInput{
		Recipients: f.signer.CertPEM(),
		Cipher:     "rot13",
		Options:    []string{"binary"},
	})
	if !errors.Is(err, pkcs7.ErrUnknownCipher) {
		t.Errorf("Encrypt() error = %v, want unknown cipher", err)
	}
}

func TestU_Service_MalformedInputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ReadCertificates(ctx, []byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n")); !errors.Is(err, errstack.ParseError) {
		t.Errorf("ReadCertificates() error = %v, want ParseError", err)
	}
	if _, err := f.svc.ReadPrivateKey(ctx, []byte("no key here"), nil); !errors.Is(err, errstack.ParseError) {
		t.Errorf("ReadPrivateKey() error = %v, want ParseError", err)
	}
	if _, _, err := f.svc.Verify(ctx, VerifyInput{Structure: []byte{0x30, 0x01}, Options: []string{"binary"}}); !errors.Is(err, errstack.ParseError) {
		t.Errorf("Verify() error = %v, want ParseError", err)
	}
	if _, _, err := f.svc.ReadSMIME(ctx, []byte("Subject: hi\n\nbody")); !errors.Is(err, errstack.ParseError) {
		t.Errorf("ReadSMIME() error = %v, want ParseError", err)
	}
}

// =============================================================================
// Audit, metrics and logging
// =============================================================================

func TestU_Service_AuditsOperations(t *testing.T) {
	f := newFixture(t)
	f.sign(t, []byte("audited"), "binary")

	types := f.eventTypes()
	if len(types) != 2 || types[0] != audit.EventKeyLoaded || types[1] != audit.EventPKCS7Sign {
		t.Fatalf("events = %v, want [KEY_LOADED PKCS7_SIGN]", types)
	}

	sign := f.events.Events()[1]
	if sign.Result != audit.ResultSuccess {
		t.Errorf("sign result = %s", sign.Result)
	}
	if !strings.Contains(sign.Object.Subject, "Alice") {
		t.Errorf("sign object subject = %q", sign.Object.Subject)
	}
	if sign.Context.Flags != "binary" || sign.Context.Algorithm != "RSA" {
		t.Errorf("sign context = %+v", sign.Context)
	}
}

func TestU_Service_AuditsFailures(t *testing.T) {
	f := newFixture(t)
	recipient := testpki.SelfSigned(t, testpki.RSAKey(t), "Bob")
	stranger := testpki.SelfSigned(t, testpki.RSAKey(t), "Mallory")

	p7, err := f.svc.Encrypt(context.Background(), EncryptInput{
		Recipients: recipient.CertPEM(),
		Plaintext:  []byte("secret"),
		Cipher:     "aes_128_cbc",
		Options:    []string{"binary"},
	})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	_, err = f.svc.Decrypt(context.Background(), DecryptInput{
		Structure:   p7.DER(),
		Key:         stranger.KeyPEM(t),
		Certificate: stranger.CertPEM(),
	})
	if !errors.Is(err, errstack.CryptoEngineError) {
		t.Fatalf("Decrypt() error = %v, want CryptoEngineError", err)
	}

	events := f.events.Events()
	last := events[len(events)-1]
	if last.EventType != audit.EventPKCS7Decrypt || last.Result != audit.ResultFailure {
		t.Fatalf("last event = %s/%s", last.EventType, last.Result)
	}
	if last.Context.Reason == "" {
		t.Error("failure event has no reason")
	}
}

func TestU_Service_AuditFailureFailsOperation(t *testing.T) {
	f := newFixture(t)
	if err := audit.Init(failingWriter{}); err != nil {
		t.Fatalf("audit.Init() error = %v", err)
	}

	_, err := f.svc.ReadPrivateKey(context.Background(), f.signer.KeyPEM(t), nil)
	if err == nil || !strings.Contains(err.Error(), "audit log failed") {
		t.Fatalf("ReadPrivateKey() error = %v, want audit failure", err)
	}
}

func TestU_Service_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	f.sign(t, []byte("counted"), "binary")
	_, _ = f.svc.Sign(context.Background(), SignInput{Options: []string{"bogus"}})

	if got := testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues(metrics.OpSign, metrics.StatusSuccess)); got != 1 {
		t.Errorf("sign successes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.metrics.ErrorsTotal.WithLabelValues(metrics.OpSign, errstack.InvalidOption.String())); got != 1 {
		t.Errorf("sign invalid_option errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues(metrics.OpReadPrivateKey, metrics.StatusSuccess)); got != 0 {
		t.Errorf("key loads inside sign = %v, want 0", got)
	}
}

func TestU_Service_NestedLoadFailureCountedOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Encrypt(context.Background(), EncryptInput{
		Recipients: []byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"),
		Plaintext:  []byte("x"),
		Cipher:     "aes_256_cbc",
	})
	if !errors.Is(err, errstack.ParseError) {
		t.Fatalf("Encrypt() error = %v, want ParseError", err)
	}

	kind := errstack.ParseError.String()
	if got := testutil.ToFloat64(f.metrics.ErrorsTotal.WithLabelValues(metrics.OpEncrypt, kind)); got != 1 {
		t.Errorf("encrypt errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.metrics.ErrorsTotal.WithLabelValues(metrics.OpReadCertificates, kind)); got != 0 {
		t.Errorf("read_certificates errors = %v, want 0", got)
	}
	if got := strings.Count(f.logs.String(), "operation failed"); got != 1 {
		t.Errorf("logged %d failures, want 1:\n%s", got, f.logs.String())
	}
}

func TestU_Service_SignStillAuditsKeyLoad(t *testing.T) {
	f := newFixture(t)
	f.sign(t, []byte("audited"), "binary")

	types := f.eventTypes()
	if len(types) < 2 || types[0] != audit.EventKeyLoaded || types[len(types)-1] != audit.EventPKCS7Sign {
		t.Errorf("events = %v, want KEY_LOADED then PKCS7_SIGN", types)
	}
}

func TestU_Service_LogsWithRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := logging.WithRequestID(context.Background(), "req-7")

	_, _ = f.svc.WriteSMIME(ctx, nil, nil, []string{"unknown-flag"})

	out := f.logs.String()
	for _, want := range []string{"operation failed", "op=smime_write", "kind=invalid_option", "request_id=req-7"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output lacks %q:\n%s", want, out)
		}
	}
}

func TestU_Service_NilDependencies(t *testing.T) {
	events := audit.NewMemoryWriter()
	if err := audit.Init(events); err != nil {
		t.Fatalf("audit.Init() error = %v", err)
	}
	t.Cleanup(func() { _ = audit.Close() })

	svc := New(nil, nil)
	certs, err := svc.ReadCertificates(context.Background(), nil)
	if err != nil || len(certs) != 0 {
		t.Errorf("ReadCertificates(nil) = %v, %v", certs, err)
	}
}
