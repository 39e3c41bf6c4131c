package pkcs7

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/asn1"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

// Decrypt recovers the plaintext of EnvelopedData for the recipient
// identified by cert, unsealing the content key with key. Either the whole
// plaintext or an error is returned.
func Decrypt(ctx context.Context, p7 *PKCS7, key *x509util.PrivateKey, cert *x509util.Certificate) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrCancelled, "decrypt")
	}
	if p7 == nil || p7.enveloped == nil {
		data := "nil"
		if p7 != nil {
			data = p7.Type().String()
		}
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrWrongContentType, data)
	}
	if key == nil || cert == nil {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrNoSigner, "key and certificate required")
	}
	if !key.Matches(cert) {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrKeyMismatch, cert.Subject())
	}
	rsaKey, ok := key.RSA()
	if !ok {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrUnsupportedKeyType, key.Algorithm().String())
	}

	ed := p7.enveloped
	var ri *recipientInfo
	for i := range ed.RecipientInfos {
		if ed.RecipientInfos[i].IssuerAndSerialNumber.matches(cert.X509()) {
			ri = &ed.RecipientInfos[i]
			break
		}
	}
	if ri == nil {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrNoRecipientMatch, cert.Subject())
	}
	if !ri.KeyEncryptionAlgorithm.Algorithm.Equal(OIDRSAEncryption) {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrUnsupportedKeyType, ri.KeyEncryptionAlgorithm.Algorithm.String())
	}

	eci := ed.EncryptedContentInfo
	c, ok := cipherByOID(eci.ContentEncryptionAlgorithm.Algorithm)
	if !ok {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrUnsupportedCipher, eci.ContentEncryptionAlgorithm.Algorithm.String())
	}
	var iv []byte
	if _, err := asn1.Unmarshal(eci.ContentEncryptionAlgorithm.Parameters.FullBytes, &iv); err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrDecryptFailed, "iv")
	}
	ciphertext, err := octets(eci.EncryptedContent)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrDecryptFailed, "encrypted content")
	}

	cek, err := rsa.DecryptPKCS1v15(rand.Reader, rsaKey, ri.EncryptedKey)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrDecryptFailed, "content key")
	}
	plaintext, err := c.decrypt(ciphertext, cek, iv)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrDecryptFailed, c.name)
	}
	return plaintext, nil
}
