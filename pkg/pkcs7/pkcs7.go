package pkcs7

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"slices"
	"strings"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

// Type is the content type of a PKCS7 structure.
type Type int

const (
	TypeUnknown Type = iota
	TypeData
	TypeSigned
	TypeEnveloped
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "data"
	case TypeSigned:
		return "signed-data"
	case TypeEnveloped:
		return "enveloped-data"
	default:
		return "unknown"
	}
}

// PKCS7 is an immutable handle to an encoded ContentInfo. It is safe for
// concurrent use; accessors return copies.
type PKCS7 struct {
	der         []byte
	contentType asn1.ObjectIdentifier

	signed    *signedData
	enveloped *envelopedData
	data      []byte

	// certs are the certificates embedded in signed-data, decoded once.
	certs []*x509.Certificate
	// content is the eContent of signed-data, nil when detached.
	content []byte
}

// Parse decodes a BER or DER encoded ContentInfo. BER input, such as the
// indefinite-length output of streaming encoders, is normalised to DER
// first, so DER() always returns DER.
func Parse(data []byte) (*PKCS7, error) {
	if len(data) == 0 {
		return nil, errstack.Raise(errstack.ParseError, ErrDecode, "empty input")
	}
	der, rest, err := berToDER(data)
	if err != nil {
		return nil, errstack.Wrap(errstack.ParseError, err, ErrDecode, "BER")
	}
	if len(rest) > 0 {
		return nil, errstack.Raisef(errstack.ParseError, ErrTrailingData, "%d bytes", len(rest))
	}

	var info contentInfo
	if err := unmarshalExact(der, &info); err != nil {
		return nil, errstack.Wrap(errstack.ParseError, err, ErrDecode, "ContentInfo")
	}

	p := &PKCS7{der: der, contentType: info.ContentType}
	switch {
	case info.ContentType.Equal(OIDSignedData):
		if err := p.parseSigned(info.Content.Bytes); err != nil {
			return nil, err
		}
	case info.ContentType.Equal(OIDEnvelopedData):
		var ed envelopedData
		if err := unmarshalExact(info.Content.Bytes, &ed); err != nil {
			return nil, errstack.Wrap(errstack.ParseError, err, ErrDecode, "EnvelopedData")
		}
		p.enveloped = &ed
	case info.ContentType.Equal(OIDData):
		if len(info.Content.Bytes) > 0 {
			var raw asn1.RawValue
			if err := unmarshalExact(info.Content.Bytes, &raw); err != nil {
				return nil, errstack.Wrap(errstack.ParseError, err, ErrDecode, "Data")
			}
			data, err := octets(raw)
			if err != nil {
				return nil, errstack.Wrap(errstack.ParseError, err, ErrDecode, "Data")
			}
			p.data = data
		}
	}
	return p, nil
}

// ParsePEM decodes a single "PKCS7" PEM block.
func ParsePEM(data []byte) (*PKCS7, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errstack.Raise(errstack.ParseError, ErrDecode, "no PEM block")
	}
	if block.Type != "PKCS7" && block.Type != "CMS" {
		return nil, errstack.Raise(errstack.ParseError, ErrDecode, "unexpected PEM type "+block.Type)
	}
	return Parse(block.Bytes)
}

func (p *PKCS7) parseSigned(inner []byte) error {
	var sd signedData
	if err := unmarshalExact(inner, &sd); err != nil {
		return errstack.Wrap(errstack.ParseError, err, ErrDecode, "SignedData")
	}
	certs, err := sd.Certificates.parse()
	if err != nil {
		return errstack.Wrap(errstack.ParseError, err, ErrDecode, "certificates")
	}
	if len(sd.ContentInfo.Content.Bytes) > 0 {
		var raw asn1.RawValue
		if err := unmarshalExact(sd.ContentInfo.Content.Bytes, &raw); err != nil {
			return errstack.Wrap(errstack.ParseError, err, ErrDecode, "encapsulated content")
		}
		content, err := octets(raw)
		if err != nil {
			return errstack.Wrap(errstack.ParseError, err, ErrDecode, "encapsulated content")
		}
		if content == nil {
			content = []byte{}
		}
		p.content = content
	}
	p.signed = &sd
	p.certs = certs
	return nil
}

// newPKCS7 wraps an inner structure in a ContentInfo and parses the result
// back, so built and parsed handles are indistinguishable.
func newPKCS7(contentType asn1.ObjectIdentifier, inner any) (*PKCS7, error) {
	innerDER, err := asn1.Marshal(inner)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrEncode, "")
	}
	der, err := asn1.Marshal(contentInfo{ContentType: contentType, Content: explicit0(innerDER)})
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrEncode, "ContentInfo")
	}
	p, err := Parse(der)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrEncode, "re-parse")
	}
	return p, nil
}

func unmarshalExact(der []byte, v any) error {
	rest, err := asn1.Unmarshal(der, v)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return asn1.SyntaxError{Msg: "trailing data"}
	}
	return nil
}

// DER returns the encoded structure.
func (p *PKCS7) DER() []byte { return bytes.Clone(p.der) }

// PEM returns the structure as a "PKCS7" PEM block.
func (p *PKCS7) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "PKCS7", Bytes: p.der})
}

// Type reports the content type.
func (p *PKCS7) Type() Type {
	switch {
	case p.signed != nil:
		return TypeSigned
	case p.enveloped != nil:
		return TypeEnveloped
	case p.contentType.Equal(OIDData):
		return TypeData
	default:
		return TypeUnknown
	}
}

// ContentType returns the content type OID.
func (p *PKCS7) ContentType() asn1.ObjectIdentifier {
	return append(asn1.ObjectIdentifier(nil), p.contentType...)
}

// Detached reports whether signed-data carries no encapsulated content.
func (p *PKCS7) Detached() bool {
	return p.signed != nil && p.content == nil
}

// Content returns the encapsulated content of signed-data or the payload of
// a data structure. It is nil for detached signatures and enveloped data.
func (p *PKCS7) Content() []byte {
	switch {
	case p.signed != nil:
		return bytes.Clone(p.content)
	case p.data != nil:
		return bytes.Clone(p.data)
	}
	return nil
}

// SignerCount is the number of SignerInfos. A signed-data structure
// without signers is a certificate bundle ("certs-only").
func (p *PKCS7) SignerCount() int {
	if p.signed == nil {
		return 0
	}
	return len(p.signed.SignerInfos)
}

// RecipientCount is the number of RecipientInfos of enveloped data.
func (p *PKCS7) RecipientCount() int {
	if p.enveloped == nil {
		return 0
	}
	return len(p.enveloped.RecipientInfos)
}

// Certificates returns the certificates embedded in signed-data.
func (p *PKCS7) Certificates() *x509util.Stack {
	certs := make([]*x509util.Certificate, len(p.certs))
	for i, c := range p.certs {
		certs[i] = x509util.NewCertificate(c)
	}
	return x509util.NewStack(certs...)
}

// DigestAlgorithms lists the digest algorithm OIDs declared by signed-data.
func (p *PKCS7) DigestAlgorithms() []asn1.ObjectIdentifier {
	if p.signed == nil {
		return nil
	}
	out := make([]asn1.ObjectIdentifier, len(p.signed.DigestAlgorithms))
	for i, alg := range p.signed.DigestAlgorithms {
		out[i] = append(asn1.ObjectIdentifier(nil), alg.Algorithm...)
	}
	return out
}

// MicAlg returns the multipart/signed micalg parameter for the digest
// algorithms of the structure, for example "sha-256".
func (p *PKCS7) MicAlg() string {
	algs := p.DigestAlgorithms()
	if len(algs) == 0 {
		return "sha-256"
	}
	names := make([]string, 0, len(algs))
	for _, oid := range algs {
		name := "unknown"
		if h, ok := hashByOID(oid); ok {
			name = micalgName(h)
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

func micalgName(h crypto.Hash) string {
	switch h {
	case crypto.SHA1:
		return "sha1"
	case crypto.SHA256:
		return "sha-256"
	case crypto.SHA384:
		return "sha-384"
	case crypto.SHA512:
		return "sha-512"
	}
	return "unknown"
}
