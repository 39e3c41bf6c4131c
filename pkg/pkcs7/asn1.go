package pkcs7

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
)

// contentInfo is the ContentInfo structure:
//
//	ContentInfo ::= SEQUENCE {
//	  contentType ContentType,
//	  content [0] EXPLICIT ANY DEFINED BY contentType OPTIONAL }
type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// signedData is the SignedData structure:
//
//	SignedData ::= SEQUENCE {
//	  version Version,
//	  digestAlgorithms DigestAlgorithmIdentifiers,
//	  contentInfo ContentInfo,
//	  certificates [0] IMPLICIT ExtendedCertificatesAndCertificates OPTIONAL,
//	  crls [1] IMPLICIT CertificateRevocationLists OPTIONAL,
//	  signerInfos SignerInfos }
type signedData struct {
	Version          int
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	ContentInfo      contentInfo
	Certificates     rawCertificates        `asn1:"optional,tag:0"`
	CRLs             []pkix.CertificateList `asn1:"optional,tag:1"`
	SignerInfos      []signerInfo           `asn1:"set"`
}

// rawCertificates keeps the certificate set undecoded until it is needed.
// Raw holds the whole [0] element.
type rawCertificates struct {
	Raw asn1.RawContent
}

// signerInfo is the SignerInfo structure:
//
//	SignerInfo ::= SEQUENCE {
//	  version Version,
//	  issuerAndSerialNumber IssuerAndSerialNumber,
//	  digestAlgorithm DigestAlgorithmIdentifier,
//	  authenticatedAttributes [0] IMPLICIT Attributes OPTIONAL,
//	  digestEncryptionAlgorithm DigestEncryptionAlgorithmIdentifier,
//	  encryptedDigest EncryptedDigest,
//	  unauthenticatedAttributes [1] IMPLICIT Attributes OPTIONAL }
type signerInfo struct {
	Version                   int
	IssuerAndSerialNumber     issuerAndSerial
	DigestAlgorithm           pkix.AlgorithmIdentifier
	AuthenticatedAttributes   asn1.RawValue `asn1:"optional,tag:0"`
	DigestEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedDigest           []byte
	UnauthenticatedAttributes asn1.RawValue `asn1:"optional,tag:1"`
}

type issuerAndSerial struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

type attribute struct {
	Type  asn1.ObjectIdentifier
	Value asn1.RawValue `asn1:"set"`
}

// envelopedData is the EnvelopedData structure:
//
//	EnvelopedData ::= SEQUENCE {
//	  version Version,
//	  recipientInfos RecipientInfos,
//	  encryptedContentInfo EncryptedContentInfo }
type envelopedData struct {
	Version              int
	RecipientInfos       []recipientInfo `asn1:"set"`
	EncryptedContentInfo encryptedContentInfo
}

type recipientInfo struct {
	Version                int
	IssuerAndSerialNumber  issuerAndSerial
	KeyEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedKey           []byte
}

type encryptedContentInfo struct {
	ContentType                asn1.ObjectIdentifier
	ContentEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedContent           asn1.RawValue `asn1:"optional,tag:0"`
}

// explicit0 wraps an encoded element in a [0] EXPLICIT tag. RawValue
// ignores struct tags when marshalling so the wrapper is built by hand.
func explicit0(inner []byte) asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: inner}
}

func newIssuerAndSerial(cert *x509.Certificate) issuerAndSerial {
	return issuerAndSerial{
		IssuerName:   asn1.RawValue{FullBytes: cert.RawIssuer},
		SerialNumber: cert.SerialNumber,
	}
}

// matches compares the identifier against a certificate.
func (ias issuerAndSerial) matches(cert *x509.Certificate) bool {
	return ias.SerialNumber != nil &&
		ias.SerialNumber.Cmp(cert.SerialNumber) == 0 &&
		string(ias.IssuerName.FullBytes) == string(cert.RawIssuer)
}

func marshalCertificates(certs []*x509.Certificate) (rawCertificates, error) {
	if len(certs) == 0 {
		return rawCertificates{}, nil
	}
	var buf []byte
	for _, c := range certs {
		buf = append(buf, c.Raw...)
	}
	b, err := asn1.Marshal(asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: buf})
	if err != nil {
		return rawCertificates{}, err
	}
	return rawCertificates{Raw: b}, nil
}

func (raw rawCertificates) parse() ([]*x509.Certificate, error) {
	if len(raw.Raw) == 0 {
		return nil, nil
	}
	var val asn1.RawValue
	if _, err := asn1.Unmarshal(raw.Raw, &val); err != nil {
		return nil, err
	}
	return x509.ParseCertificates(val.Bytes)
}

// octets returns the value of an OCTET STRING, accepting the constructed
// form where the value is split across several inner OCTET STRINGs.
func octets(raw asn1.RawValue) ([]byte, error) {
	if !raw.IsCompound {
		return raw.Bytes, nil
	}
	var out []byte
	rest := raw.Bytes
	for len(rest) > 0 {
		var part asn1.RawValue
		var err error
		rest, err = asn1.Unmarshal(rest, &part)
		if err != nil {
			return nil, err
		}
		b, err := octets(part)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}
