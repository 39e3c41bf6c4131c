package pkcs7

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// maxBERDepth bounds the nesting of constructed elements.
const maxBERDepth = 64

var errBERTruncated = errors.New("ber: truncated element")

// berToDER re-encodes the first element of data with definite lengths, as
// OpenSSL emits indefinite lengths for streamed structures. Constructed
// strings are kept constructed; octets reassembles them on read. Input that
// is already DER comes back unchanged. The bytes after the element are
// returned as rest.
func berToDER(data []byte) (der, rest []byte, err error) {
	in := cryptobyte.String(data)
	var b cryptobyte.Builder
	if err := convertBER(&in, &b, 0); err != nil {
		return nil, nil, err
	}
	out, err := b.Bytes()
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

func convertBER(in *cryptobyte.String, b *cryptobyte.Builder, depth int) error {
	if depth > maxBERDepth {
		return errors.New("ber: nesting too deep")
	}

	var tag, lenByte uint8
	if !in.ReadUint8(&tag) || !in.ReadUint8(&lenByte) {
		return errBERTruncated
	}
	if tag&0x1f == 0x1f {
		return fmt.Errorf("ber: high tag number form not supported (tag byte %#x)", tag)
	}
	constructed := tag&0x20 != 0

	if lenByte == 0x80 {
		if !constructed {
			return fmt.Errorf("ber: indefinite length on primitive tag %#x", tag)
		}
		var err error
		b.AddASN1(cbasn1.Tag(tag), func(child *cryptobyte.Builder) {
			for err == nil {
				if len(*in) >= 2 && (*in)[0] == 0 && (*in)[1] == 0 {
					in.Skip(2)
					return
				}
				if in.Empty() {
					err = errors.New("ber: missing end-of-contents")
					return
				}
				err = convertBER(in, child, depth+1)
			}
		})
		return err
	}

	length, err := readBERLength(in, lenByte)
	if err != nil {
		return err
	}
	var body cryptobyte.String
	if !in.ReadBytes((*[]byte)(&body), length) {
		return errBERTruncated
	}

	if !constructed {
		b.AddASN1(cbasn1.Tag(tag), func(child *cryptobyte.Builder) {
			child.AddBytes(body)
		})
		return nil
	}
	b.AddASN1(cbasn1.Tag(tag), func(child *cryptobyte.Builder) {
		for err == nil && !body.Empty() {
			err = convertBER(&body, child, depth+1)
		}
	})
	return err
}

func readBERLength(in *cryptobyte.String, lenByte uint8) (int, error) {
	if lenByte < 0x80 {
		return int(lenByte), nil
	}
	n := int(lenByte & 0x7f)
	if n > 4 {
		return 0, fmt.Errorf("ber: length of %d bytes not supported", n)
	}
	var length int
	for range n {
		var v uint8
		if !in.ReadUint8(&v) {
			return 0, errBERTruncated
		}
		length = length<<8 | int(v)
	}
	return length, nil
}
