package pkcs7

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"time"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

// now is the signing time source.
var now = time.Now

// Sign produces SignedData over content, signed by key and attributed to
// signer. Extra certificates are embedded for chain building.
//
// Flags used: detached omits the content, nocerts leaves the signer
// certificate out, noattr signs the content without authenticated attributes,
// nosmimecap drops the SMIMECapabilities attribute, and binary/text control
// canonicalisation (see Canonicalize).
func Sign(ctx context.Context, signer *x509util.Certificate, key *x509util.PrivateKey, extra *x509util.Stack, content []byte, flags Flags) (*PKCS7, error) {
	if err := ctx.Err(); err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrCancelled, "sign")
	}
	if signer == nil || key == nil {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrNoSigner, "")
	}
	if !key.Matches(signer) {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrKeyMismatch, signer.Subject())
	}
	h, sigAlg, err := signatureAlgorithm(key.Public())
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrUnsupportedKeyType, signer.Subject())
	}

	data := Canonicalize(content, flags)
	cert := signer.X509()

	si := signerInfo{
		Version:                   1,
		IssuerAndSerialNumber:     newIssuerAndSerial(cert),
		DigestAlgorithm:           pkix.AlgorithmIdentifier{Algorithm: oidForHash(h)},
		DigestEncryptionAlgorithm: sigAlg,
	}

	toSign := data
	if !flags.Has(FlagNoAttr) {
		attrs, err := buildSignedAttributes(OIDData, digest(h, data), now(), flags)
		if err != nil {
			return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrSigningFailed, "signed attributes")
		}
		si.AuthenticatedAttributes = attrs.raw()
		toSign = attrs.set
	}

	sig, err := signBytes(key.Signer(), h, toSign)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrSigningFailed, signer.Subject())
	}
	si.EncryptedDigest = sig

	var certs []*x509.Certificate
	if !flags.Has(FlagNoCerts) {
		certs = append(certs, cert)
	}
	certs = append(certs, extra.X509()...)
	rawCerts, err := marshalCertificates(certs)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrEncode, "certificates")
	}

	sd := signedData{
		Version:          1,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{si.DigestAlgorithm},
		ContentInfo:      contentInfo{ContentType: OIDData},
		Certificates:     rawCerts,
		SignerInfos:      []signerInfo{si},
	}
	if !flags.Has(FlagDetached) {
		eContent, err := asn1.Marshal(data)
		if err != nil {
			return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrEncode, "content")
		}
		sd.ContentInfo.Content = explicit0(eContent)
	}
	return newPKCS7(OIDSignedData, sd)
}

func signBytes(signer crypto.Signer, h crypto.Hash, message []byte) ([]byte, error) {
	if _, ok := signer.(ed25519.PrivateKey); ok {
		return signer.Sign(rand.Reader, message, crypto.Hash(0))
	}
	return signer.Sign(rand.Reader, digest(h, message), h)
}
