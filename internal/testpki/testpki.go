// Package testpki generates throwaway keys and certificates for tests.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

// Identity is a key together with its certificate.
type Identity struct {
	Cert *x509.Certificate
	Key  crypto.Signer
}

// CertPEM returns the certificate PEM encoded.
func (id *Identity) CertPEM() []byte { return CertPEM(id.Cert) }

// KeyPEM returns the private key as an unencrypted PKCS#8 PEM block.
func (id *Identity) KeyPEM(t testing.TB) []byte { return KeyPEM(t, id.Key) }

// RSAKey generates a 2048-bit RSA key.
func RSAKey(t testing.TB) crypto.Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return key
}

// ECDSAKey generates a P-256 key.
func ECDSAKey(t testing.TB) crypto.Signer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate ECDSA key: %v", err)
	}
	return key
}

// Ed25519Key generates an Ed25519 key.
func Ed25519Key(t testing.TB) crypto.Signer {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate Ed25519 key: %v", err)
	}
	return key
}

// CA creates a self-signed CA with a fresh ECDSA key.
func CA(t testing.TB, cn string) *Identity {
	t.Helper()
	key := ECDSAKey(t)
	template := &x509.Certificate{
		SerialNumber:          serial(t),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Test Org"}},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}
	return &Identity{Cert: create(t, template, template, key.Public(), key), Key: key}
}

// Intermediate creates a CA certificate signed by parent that may only
// issue end-entity certificates.
func Intermediate(t testing.TB, parent *Identity, cn string) *Identity {
	t.Helper()
	key := ECDSAKey(t)
	template := &x509.Certificate{
		SerialNumber:          serial(t),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Test Org"}},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(180 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
	}
	return &Identity{Cert: create(t, template, parent.Cert, key.Public(), parent.Key), Key: key}
}

// SelfSigned creates a self-signed end-entity certificate for key.
func SelfSigned(t testing.TB, key crypto.Signer, cn string) *Identity {
	t.Helper()
	template := leafTemplate(t, cn)
	return &Identity{Cert: create(t, template, template, key.Public(), key), Key: key}
}

// Issue creates an end-entity certificate for key signed by ca.
func Issue(t testing.TB, ca *Identity, key crypto.Signer, cn string) *Identity {
	t.Helper()
	return &Identity{Cert: create(t, leafTemplate(t, cn), ca.Cert, key.Public(), ca.Key), Key: key}
}

// IssueWithUsage is Issue with an explicit extended key usage list.
func IssueWithUsage(t testing.TB, ca *Identity, key crypto.Signer, cn string, usage ...x509.ExtKeyUsage) *Identity {
	t.Helper()
	template := leafTemplate(t, cn)
	template.ExtKeyUsage = usage
	return &Identity{Cert: create(t, template, ca.Cert, key.Public(), ca.Key), Key: key}
}

// CertPEM encodes certificates as consecutive CERTIFICATE blocks.
func CertPEM(certs ...*x509.Certificate) []byte {
	var out []byte
	for _, c := range certs {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}
	return out
}

// KeyPEM encodes key as an unencrypted PKCS#8 block.
func KeyPEM(t testing.TB, key crypto.Signer) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func leafTemplate(t testing.TB, cn string) *x509.Certificate {
	t.Helper()
	return &x509.Certificate{
		SerialNumber:          serial(t),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Test Org"}},
		EmailAddresses:        []string{"test@example.com"},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		BasicConstraintsValid: true,
	}
}

func create(t testing.TB, template, parent *x509.Certificate, pub crypto.PublicKey, signer crypto.Signer) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, signer)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	return cert
}

func serial(t testing.TB) *big.Int {
	t.Helper()
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("Failed to generate serial number: %v", err)
	}
	return n
}
