package pkcs7

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	// Register the SHA-2 and SHA-1 implementations with crypto.Hash.
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
)

var digestOIDs = []struct {
	oid  asn1.ObjectIdentifier
	hash crypto.Hash
}{
	{OIDDigestSHA1, crypto.SHA1},
	{OIDDigestSHA256, crypto.SHA256},
	{OIDDigestSHA384, crypto.SHA384},
	{OIDDigestSHA512, crypto.SHA512},
}

func hashByOID(oid asn1.ObjectIdentifier) (crypto.Hash, bool) {
	for _, d := range digestOIDs {
		if d.oid.Equal(oid) {
			return d.hash, true
		}
	}
	return 0, false
}

func oidForHash(h crypto.Hash) asn1.ObjectIdentifier {
	for _, d := range digestOIDs {
		if d.hash == h {
			return d.oid
		}
	}
	return nil
}

func digest(h crypto.Hash, data []byte) []byte {
	w := h.New()
	w.Write(data)
	return w.Sum(nil)
}

// signatureAlgorithm picks the digest and the digestEncryptionAlgorithm for a
// signing key.
func signatureAlgorithm(pub crypto.PublicKey) (crypto.Hash, pkix.AlgorithmIdentifier, error) {
	switch pub.(type) {
	case *rsa.PublicKey:
		return crypto.SHA256, pkix.AlgorithmIdentifier{Algorithm: OIDRSAEncryption, Parameters: asn1.NullRawValue}, nil
	case *ecdsa.PublicKey:
		return crypto.SHA256, pkix.AlgorithmIdentifier{Algorithm: OIDECDSAWithSHA256}, nil
	case ed25519.PublicKey:
		return crypto.SHA512, pkix.AlgorithmIdentifier{Algorithm: OIDEd25519}, nil
	}
	return 0, pkix.AlgorithmIdentifier{}, fmt.Errorf("%T", pub)
}

// checkSignature verifies sig over signed with the public key of a signer.
// RSA accepts both rsaEncryption and the sha*WithRSA identifiers; ECDSA
// signatures are ASN.1 encoded; Ed25519 signs the message itself.
func checkSignature(pub crypto.PublicKey, alg asn1.ObjectIdentifier, h crypto.Hash, signed, sig []byte) error {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		if !isRSAAlgorithm(alg) {
			return fmt.Errorf("algorithm %s does not match RSA key", alg)
		}
		return rsa.VerifyPKCS1v15(key, h, digest(h, signed), sig)
	case *ecdsa.PublicKey:
		if !isECDSAAlgorithm(alg) {
			return fmt.Errorf("algorithm %s does not match ECDSA key", alg)
		}
		if !ecdsa.VerifyASN1(key, digest(h, signed), sig) {
			return fmt.Errorf("ecdsa verification failed")
		}
		return nil
	case ed25519.PublicKey:
		if !alg.Equal(OIDEd25519) {
			return fmt.Errorf("algorithm %s does not match Ed25519 key", alg)
		}
		if !ed25519.Verify(key, signed, sig) {
			return fmt.Errorf("ed25519 verification failed")
		}
		return nil
	}
	return fmt.Errorf("unsupported public key %T", pub)
}

func isRSAAlgorithm(oid asn1.ObjectIdentifier) bool {
	for _, o := range []asn1.ObjectIdentifier{OIDRSAEncryption, OIDSHA1WithRSA, OIDSHA256WithRSA, OIDSHA384WithRSA, OIDSHA512WithRSA} {
		if o.Equal(oid) {
			return true
		}
	}
	return false
}

func isECDSAAlgorithm(oid asn1.ObjectIdentifier) bool {
	for _, o := range []asn1.ObjectIdentifier{OIDECPublicKey, OIDECDSAWithSHA1, OIDECDSAWithSHA256, OIDECDSAWithSHA384, OIDECDSAWithSHA512} {
		if o.Equal(oid) {
			return true
		}
	}
	return false
}
