package x509util

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"

	"github.com/remiblancher/smimekit/pkg/errstack"
)

// PEM block types accepted as private keys.
const (
	pemTypePKCS8          = "PRIVATE KEY"
	pemTypeEncryptedPKCS8 = "ENCRYPTED PRIVATE KEY"
	pemTypeRSA            = "RSA PRIVATE KEY"
	pemTypeEC             = "EC PRIVATE KEY"
)

// PrivateKey is an immutable handle on private key material. There is no way
// to serialize it back out.
type PrivateKey struct {
	signer crypto.Signer
}

// NewPrivateKey wraps an RSA, ECDSA or Ed25519 private key.
func NewPrivateKey(key crypto.PrivateKey) (*PrivateKey, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return &PrivateKey{signer: k}, nil
	case *ecdsa.PrivateKey:
		return &PrivateKey{signer: k}, nil
	case ed25519.PrivateKey:
		return &PrivateKey{signer: k}, nil
	case *ed25519.PrivateKey:
		return &PrivateKey{signer: *k}, nil
	default:
		return nil, errstack.Raisef(errstack.ParseError, ErrUnsupportedKeyType, "%T", key)
	}
}

// ParsePrivateKeyPEM loads exactly one unencrypted private key. Blocks of
// other types, such as an accompanying certificate, are ignored.
func ParsePrivateKeyPEM(data []byte) (*PrivateKey, error) {
	return parsePrivateKeyPEM(data, nil)
}

// ParsePrivateKeyPEMWithPassword is ParsePrivateKeyPEM that also accepts an
// ENCRYPTED PRIVATE KEY block (PKCS#8 PBES2) decrypted with password.
func ParsePrivateKeyPEMWithPassword(data, password []byte) (*PrivateKey, error) {
	return parsePrivateKeyPEM(data, password)
}

func parsePrivateKeyPEM(data, password []byte) (*PrivateKey, error) {
	blocks, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	var keyBlock *pem.Block
	for _, block := range blocks {
		switch block.Type {
		case pemTypePKCS8, pemTypeEncryptedPKCS8, pemTypeRSA, pemTypeEC:
		default:
			continue
		}
		if keyBlock != nil {
			return nil, errstack.Raise(errstack.ParseError, ErrMultiplePrivateKey, "")
		}
		keyBlock = block
	}
	if keyBlock == nil {
		if len(blocks) == 0 && len(bytes.TrimSpace(data)) != 0 {
			return nil, errstack.Raise(errstack.ParseError, ErrNoStartLine, "")
		}
		return nil, errstack.Raise(errstack.ParseError, ErrNoPrivateKey, "")
	}

	var key crypto.PrivateKey
	switch keyBlock.Type {
	case pemTypePKCS8:
		key, err = x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	case pemTypeRSA:
		key, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	case pemTypeEC:
		key, err = x509.ParseECPrivateKey(keyBlock.Bytes)
	case pemTypeEncryptedPKCS8:
		if len(password) == 0 {
			return nil, errstack.Raise(errstack.ParseError, ErrEncryptedKey, "encrypted key requires a password")
		}
		key, err = pkcs8.ParsePKCS8PrivateKey(keyBlock.Bytes, password)
		if err != nil {
			return nil, errstack.Wrap(errstack.ParseError, err, ErrEncryptedKey, "")
		}
	}
	if err != nil {
		return nil, errstack.Wrap(errstack.ParseError, err, ErrPrivateKeyDecode, keyBlock.Type)
	}
	return NewPrivateKey(key)
}

// Signer returns the key as a crypto.Signer.
func (k *PrivateKey) Signer() crypto.Signer { return k.signer }

// Public returns the public half of the key.
func (k *PrivateKey) Public() crypto.PublicKey { return k.signer.Public() }

// RSA returns the key when it is an RSA key.
func (k *PrivateKey) RSA() (*rsa.PrivateKey, bool) {
	rk, ok := k.signer.(*rsa.PrivateKey)
	return rk, ok
}

// Algorithm reports the public key algorithm of the key.
func (k *PrivateKey) Algorithm() x509.PublicKeyAlgorithm {
	switch k.signer.(type) {
	case *rsa.PrivateKey:
		return x509.RSA
	case *ecdsa.PrivateKey:
		return x509.ECDSA
	case ed25519.PrivateKey:
		return x509.Ed25519
	default:
		return x509.UnknownPublicKeyAlgorithm
	}
}

// Matches reports whether cert carries the public half of k.
func (k *PrivateKey) Matches(cert *Certificate) bool {
	if cert == nil {
		return false
	}
	pub, ok := k.signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	return ok && pub.Equal(cert.X509().PublicKey)
}

// String describes the key without revealing material.
func (k *PrivateKey) String() string {
	return fmt.Sprintf("PrivateKey(%s)", k.Algorithm())
}
