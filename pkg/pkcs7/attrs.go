package pkcs7

import (
	"bytes"
	"encoding/asn1"
	"fmt"
	"slices"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// smimeCapability is one entry of the SMIMECapabilities attribute.
type smimeCapability struct {
	CapabilityID asn1.ObjectIdentifier
	Parameters   asn1.RawValue `asn1:"optional"`
}

// Ciphers advertised in SMIMECapabilities, strongest first.
var advertisedCiphers = []Cipher{CipherAES256CBC, CipherAES192CBC, CipherAES128CBC, CipherDESEDE3CBC}

// signedAttributes holds the encoded authenticated attributes of a signer.
type signedAttributes struct {
	// set is the DER SET OF encoding, which is what gets signed.
	set []byte
	// content is the body of the SET, stored under the [0] IMPLICIT tag.
	content []byte
}

type attrValue struct {
	oid asn1.ObjectIdentifier
	val any
}

func (a signedAttributes) raw() asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: a.content}
}

// buildSignedAttributes encodes contentType, signingTime, messageDigest and,
// unless disabled, SMIMECapabilities as a DER sorted SET OF.
func buildSignedAttributes(contentType asn1.ObjectIdentifier, digest []byte, signingTime time.Time, flags Flags) (signedAttributes, error) {
	values := []attrValue{
		{OIDAttributeContentType, contentType},
		{OIDAttributeSigningTime, signingTime.UTC()},
		{OIDAttributeMessageDigest, digest},
	}
	if !flags.Has(FlagNoSMIMECap) {
		caps := make([]smimeCapability, len(advertisedCiphers))
		for i, c := range advertisedCiphers {
			caps[i] = smimeCapability{CapabilityID: c.oid}
		}
		values = append(values, attrValue{OIDAttributeSMIMECapabilities, caps})
	}

	encoded := make([][]byte, 0, len(values))
	for _, v := range values {
		valDER, err := asn1.Marshal(v.val)
		if err != nil {
			return signedAttributes{}, fmt.Errorf("attribute %s: %w", v.oid, err)
		}
		attr, err := asn1.Marshal(attribute{
			Type:  v.oid,
			Value: asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSet, IsCompound: true, Bytes: valDER},
		})
		if err != nil {
			return signedAttributes{}, fmt.Errorf("attribute %s: %w", v.oid, err)
		}
		encoded = append(encoded, attr)
	}
	slices.SortFunc(encoded, bytes.Compare)

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
		for _, e := range encoded {
			b.AddBytes(e)
		}
	})
	set, err := b.Bytes()
	if err != nil {
		return signedAttributes{}, err
	}

	s := cryptobyte.String(set)
	var content cryptobyte.String
	if !s.ReadASN1(&content, cbasn1.SET) {
		return signedAttributes{}, fmt.Errorf("attribute set re-read failed")
	}
	return signedAttributes{set: set, content: content}, nil
}

// parseAttributes splits the body of an attribute SET. The first value of
// each attribute is returned, keyed by dotted OID.
func parseAttributes(content []byte) (map[string]asn1.RawValue, error) {
	attrs := make(map[string]asn1.RawValue)
	s := cryptobyte.String(content)
	for !s.Empty() {
		var elem cryptobyte.String
		if !s.ReadASN1Element(&elem, cbasn1.SEQUENCE) {
			return nil, fmt.Errorf("malformed attribute")
		}
		var attr attribute
		if rest, err := asn1.Unmarshal(elem, &attr); err != nil {
			return nil, err
		} else if len(rest) > 0 {
			return nil, fmt.Errorf("trailing data in attribute")
		}
		var first asn1.RawValue
		if _, err := asn1.Unmarshal(attr.Value.Bytes, &first); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", attr.Type, err)
		}
		attrs[attr.Type.String()] = first
	}
	return attrs, nil
}

// signedAttributesDER returns the bytes a signature over authenticated
// attributes covers: the received [0] element re-tagged as a SET.
func signedAttributesDER(raw asn1.RawValue) []byte {
	out := bytes.Clone(raw.FullBytes)
	out[0] = 0x31
	return out
}
