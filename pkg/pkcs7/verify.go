package pkcs7

import (
	"bytes"
	"context"
	"crypto/subtle"
	"crypto/x509"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

// Verify checks every signature of signed-data and returns the signed
// content. detached must be nil when the structure embeds its content and
// non-nil when it does not.
//
// Signers are looked up in certs and then, unless nointern, among the
// embedded certificates. Unless noverify each signer must chain to store,
// using the embedded certificates as intermediates unless nochain. Unless
// nosigs the message digest and signature of every signer are checked; this
// happens even with noverify. With text the text/plain header is removed
// from the returned content.
//
// Verification never reports false: every failure is an error.
func Verify(ctx context.Context, p7 *PKCS7, certs *x509util.Stack, store *x509util.TrustStore, detached []byte, flags Flags) (bool, []byte, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrCancelled, "verify")
	}
	if p7 == nil || p7.signed == nil {
		data := "nil"
		if p7 != nil {
			data = p7.Type().String()
		}
		return false, nil, errstack.Raise(errstack.CryptoEngineError, ErrWrongContentType, data)
	}
	sd := p7.signed
	if len(sd.SignerInfos) == 0 {
		return false, nil, errstack.Raise(errstack.CryptoEngineError, ErrNoSignatures, "")
	}

	var data, out []byte
	switch {
	case p7.content == nil && detached == nil:
		return false, nil, errstack.Raise(errstack.CryptoEngineError, ErrNoContent, "")
	case p7.content != nil && detached != nil:
		return false, nil, errstack.Raise(errstack.CryptoEngineError, ErrContentAndDataPresent, "")
	case p7.content != nil:
		data = p7.content
		out = p7.content
	default:
		data = canonicalDetached(detached, flags)
		out = detached
	}

	candidates := certs.X509()
	if !flags.Has(FlagNoIntern) {
		candidates = append(candidates, p7.certs...)
	}
	signers := make([]*x509.Certificate, len(sd.SignerInfos))
	for i, si := range sd.SignerInfos {
		signers[i] = findSigner(si.IssuerAndSerialNumber, candidates)
		if signers[i] == nil {
			return false, nil, errstack.Raisef(errstack.CryptoEngineError, ErrSignerNotFound,
				"signer %d serial %x", i, si.IssuerAndSerialNumber.SerialNumber)
		}
	}

	if !flags.Has(FlagNoVerify) {
		opts := x509.VerifyOptions{
			Roots:         store.Pool(),
			Intermediates: x509.NewCertPool(),
			CurrentTime:   now(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
		}
		if !flags.Has(FlagNoChain) {
			for _, c := range p7.certs {
				opts.Intermediates.AddCert(c)
			}
		}
		for _, signer := range signers {
			if _, err := signer.Verify(opts); err != nil {
				return false, nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrCertificateVerify, signer.Subject.String())
			}
		}
	}

	if !flags.Has(FlagNoSigs) {
		for i, si := range sd.SignerInfos {
			if err := verifySignerInfo(si, signers[i], data); err != nil {
				return false, nil, err
			}
		}
	}

	if flags.Has(FlagText) {
		if p7.content == nil && !hasTextHeader(out) {
			return true, bytes.Clone(out), nil
		}
		stripped, err := stripTextHeader(out)
		if err != nil {
			return false, nil, err
		}
		return true, stripped, nil
	}
	return true, bytes.Clone(out), nil
}

// canonicalDetached prepares detached content for digesting. A text/plain
// header already present is not added a second time.
func canonicalDetached(detached []byte, flags Flags) []byte {
	if flags.Has(FlagText) && hasTextHeader(detached) {
		flags &^= FlagText
	}
	return Canonicalize(detached, flags)
}

func findSigner(ias issuerAndSerial, candidates []*x509.Certificate) *x509.Certificate {
	for _, c := range candidates {
		if ias.matches(c) {
			return c
		}
	}
	return nil
}

func verifySignerInfo(si signerInfo, cert *x509.Certificate, data []byte) error {
	h, ok := hashByOID(si.DigestAlgorithm.Algorithm)
	if !ok {
		return errstack.Raise(errstack.CryptoEngineError, ErrUnsupportedDigest, si.DigestAlgorithm.Algorithm.String())
	}

	signed := data
	if len(si.AuthenticatedAttributes.FullBytes) > 0 {
		attrs, err := parseAttributes(si.AuthenticatedAttributes.Bytes)
		if err != nil {
			return errstack.Wrap(errstack.CryptoEngineError, err, ErrDecode, "signed attributes")
		}
		raw, ok := attrs[OIDAttributeMessageDigest.String()]
		if !ok {
			return errstack.Raise(errstack.CryptoEngineError, ErrNoMessageDigest, "")
		}
		md, err := octets(raw)
		if err != nil {
			return errstack.Wrap(errstack.CryptoEngineError, err, ErrDecode, "messageDigest")
		}
		if subtle.ConstantTimeCompare(md, digest(h, data)) != 1 {
			return errstack.Raise(errstack.CryptoEngineError, ErrDigestFailure, cert.Subject.String())
		}
		signed = signedAttributesDER(si.AuthenticatedAttributes)
	}

	if err := checkSignature(cert.PublicKey, si.DigestEncryptionAlgorithm.Algorithm, h, signed, si.EncryptedDigest); err != nil {
		return errstack.Wrap(errstack.CryptoEngineError, err, ErrSignatureFailure, cert.Subject.String())
	}
	return nil
}
