package x509util

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/remiblancher/smimekit/pkg/errstack"
)

// PEM block types accepted as certificates.
var certificateBlockTypes = map[string]bool{
	"CERTIFICATE":         true,
	"X509 CERTIFICATE":    true,
	"TRUSTED CERTIFICATE": true,
}

// Certificate is an immutable handle on a parsed X.509 certificate.
// Handles are safe for concurrent use; nothing mutates them after creation.
type Certificate struct {
	cert        *x509.Certificate
	fingerprint [sha256.Size]byte
}

// NewCertificate wraps an already parsed certificate.
// The caller must not modify cert afterwards.
func NewCertificate(cert *x509.Certificate) *Certificate {
	return &Certificate{cert: cert, fingerprint: sha256.Sum256(cert.Raw)}
}

// ParseCertificateDER parses a single DER certificate.
func ParseCertificateDER(der []byte) (*Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errstack.Wrap(errstack.ParseError, err, ErrCertificateDecode, "")
	}
	return NewCertificate(cert), nil
}

// ParseCertificatesPEM parses every certificate block of data in file order.
// Input without any BEGIN line, blank or not, yields an empty slice. A
// single malformed block fails the whole call. Blocks of other types are
// skipped.
func ParseCertificatesPEM(data []byte) ([]*Certificate, error) {
	blocks, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	certs := make([]*Certificate, 0, len(blocks))
	for i, block := range blocks {
		if !certificateBlockTypes[block.Type] {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errstack.Wrap(errstack.ParseError, err, ErrCertificateDecode, fmt.Sprintf("block %d", i))
		}
		certs = append(certs, NewCertificate(cert))
	}
	return certs, nil
}

// X509 returns the parsed certificate. It is shared; do not modify it.
func (c *Certificate) X509() *x509.Certificate { return c.cert }

// Raw returns a copy of the DER encoding.
func (c *Certificate) Raw() []byte { return bytes.Clone(c.cert.Raw) }

// Clone returns an equivalent handle. The parse is shared, which is fine
// since neither handle can change it.
func (c *Certificate) Clone() *Certificate {
	clone := *c
	return &clone
}

// Subject returns the subject DN in RFC 2253 form.
func (c *Certificate) Subject() string { return c.cert.Subject.String() }

// Issuer returns the issuer DN in RFC 2253 form.
func (c *Certificate) Issuer() string { return c.cert.Issuer.String() }

// SerialHex returns the serial number as lower-case hex.
func (c *Certificate) SerialHex() string { return c.cert.SerialNumber.Text(16) }

// Fingerprint returns the SHA-256 fingerprint of the DER encoding.
func (c *Certificate) Fingerprint() [sha256.Size]byte { return c.fingerprint }

// FingerprintHex returns the fingerprint as hex.
func (c *Certificate) FingerprintHex() string { return hex.EncodeToString(c.fingerprint[:]) }

// Equal reports whether both handles hold the same certificate.
func (c *Certificate) Equal(other *Certificate) bool {
	return other != nil && c.fingerprint == other.fingerprint
}

// decodePEM splits data into PEM blocks. Text outside blocks is ignored.
// pem.Decode silently skips blocks it cannot decode, so the number of BEGIN
// lines is compared with the number of decoded blocks to catch a malformed
// block hiding among valid ones.
func decodePEM(data []byte) ([]*pem.Block, error) {
	var blocks []*pem.Block
	rest := data
	for {
		block, r := pem.Decode(rest)
		if block == nil {
			break
		}
		if _, encrypted := block.Headers["Proc-Type"]; encrypted {
			return nil, errstack.Raisef(errstack.ParseError, ErrEncryptedKey, "block %d: legacy PEM encryption", len(blocks))
		}
		blocks = append(blocks, block)
		rest = r
	}

	begins := bytes.Count(data, []byte("-----BEGIN "))
	if begins != len(blocks) {
		return nil, errstack.Raisef(errstack.ParseError, ErrBadPEM, "%d of %d blocks decoded", len(blocks), begins)
	}
	return blocks, nil
}
