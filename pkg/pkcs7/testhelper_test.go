package pkcs7

import (
	"context"
	"crypto"
	"errors"
	"testing"

	"github.com/remiblancher/smimekit/internal/testpki"
	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

// testSigner bundles the handles of one identity.
type testSigner struct {
	id   *testpki.Identity
	cert *x509util.Certificate
	key  *x509util.PrivateKey
}

func newTestSigner(t *testing.T, key crypto.Signer, cn string) *testSigner {
	t.Helper()
	return wrapIdentity(t, testpki.SelfSigned(t, key, cn))
}

func wrapIdentity(t *testing.T, id *testpki.Identity) *testSigner {
	t.Helper()
	k, err := x509util.NewPrivateKey(id.Key)
	if err != nil {
		t.Fatalf("NewPrivateKey() error = %v", err)
	}
	return &testSigner{id: id, cert: x509util.NewCertificate(id.Cert), key: k}
}

func (s *testSigner) store() *x509util.TrustStore { return x509util.NewTrustStore(s.cert) }

func (s *testSigner) stack() *x509util.Stack { return x509util.NewStack(s.cert) }

func mustSign(t *testing.T, s *testSigner, content []byte, flags Flags) *PKCS7 {
	t.Helper()
	p7, err := Sign(context.Background(), s.cert, s.key, nil, content, flags)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return p7
}

func mustEncrypt(t *testing.T, recipients *x509util.Stack, content []byte, c Cipher, flags Flags) *PKCS7 {
	t.Helper()
	p7, err := Encrypt(context.Background(), recipients, content, c, flags)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	return p7
}

// assertFailure checks the kind and the reason carried by err.
func assertFailure(t *testing.T, err error, kind errstack.Kind, reason *errstack.Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s (%v), got nil", kind, reason)
	}
	if !errors.Is(err, kind) {
		t.Errorf("error kind: got %v, want %s", err, kind)
	}
	if reason != nil && !errors.Is(err, reason) {
		t.Errorf("error %q does not carry reason %q", err, reason)
	}
}
