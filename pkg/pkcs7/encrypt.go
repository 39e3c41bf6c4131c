package pkcs7

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

// Encrypt builds EnvelopedData: plaintext is encrypted once under a fresh
// content key, and the key is sealed for every recipient with
// RSAES-PKCS1-v1_5. Any single recipient can decrypt on their own.
//
// Content is canonicalised like signed content unless binary is set.
func Encrypt(ctx context.Context, recipients *x509util.Stack, plaintext []byte, c Cipher, flags Flags) (*PKCS7, error) {
	if err := ctx.Err(); err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrCancelled, "encrypt")
	}
	if !c.valid() {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrUnsupportedCipher, "")
	}
	if recipients.Len() == 0 {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrNoRecipients, "")
	}

	// Reject unusable recipients before doing any work.
	keys := make([]*rsa.PublicKey, recipients.Len())
	for i, rc := range recipients.Certificates() {
		pub, ok := rc.X509().PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, errstack.Raise(errstack.CryptoEngineError, ErrUnsupportedKeyType, rc.Subject())
		}
		keys[i] = pub
	}

	ciphertext, key, iv, err := c.encrypt(Canonicalize(plaintext, flags))
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrEncryptFailed, c.name)
	}

	infos := make([]recipientInfo, recipients.Len())
	for i, rc := range recipients.Certificates() {
		sealed, err := rsa.EncryptPKCS1v15(rand.Reader, keys[i], key)
		if err != nil {
			return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrEncryptFailed, rc.Subject())
		}
		infos[i] = recipientInfo{
			Version:                0,
			IssuerAndSerialNumber:  newIssuerAndSerial(rc.X509()),
			KeyEncryptionAlgorithm: pkix.AlgorithmIdentifier{Algorithm: OIDRSAEncryption, Parameters: asn1.NullRawValue},
			EncryptedKey:           sealed,
		}
	}

	ivParam, err := asn1.Marshal(iv)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrEncode, "iv")
	}
	ed := envelopedData{
		Version:        0,
		RecipientInfos: infos,
		EncryptedContentInfo: encryptedContentInfo{
			ContentType: OIDData,
			ContentEncryptionAlgorithm: pkix.AlgorithmIdentifier{
				Algorithm:  c.oid,
				Parameters: asn1.RawValue{FullBytes: ivParam},
			},
			EncryptedContent: asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, Bytes: ciphertext},
		},
	}
	return newPKCS7(OIDEnvelopedData, ed)
}
