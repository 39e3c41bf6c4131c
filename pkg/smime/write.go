// Package smime converts PKCS7 structures to and from S/MIME messages.
package smime

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

const (
	base64LineLength = 64
	signedPreamble   = "This is an S/MIME signed message"
)

// Write renders p7 as an S/MIME message.
//
// A detached signed-data structure with non-nil content becomes a
// multipart/signed message whose first part is the canonicalised content.
// Everything else becomes a single base64 application/pkcs7-mime body.
func Write(p7 *pkcs7.PKCS7, content []byte, flags pkcs7.Flags) ([]byte, error) {
	if p7 == nil {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrNoStructure, "")
	}
	w := newWriter(flags)
	if flags.Has(pkcs7.FlagDetached) && p7.Type() == pkcs7.TypeSigned && content != nil {
		boundary, err := newBoundary()
		if err != nil {
			return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrWrite, "boundary")
		}
		w.multipartSigned(p7, pkcs7.Canonicalize(content, flags), boundary)
	} else {
		w.opaque(p7)
	}
	return w.buf.Bytes(), nil
}

type writer struct {
	buf    bytes.Buffer
	eol    string
	prefix string
}

func newWriter(flags pkcs7.Flags) *writer {
	w := &writer{eol: "\n", prefix: "application/x-pkcs7-"}
	if flags.Has(pkcs7.FlagCRLFEOL) {
		w.eol = "\r\n"
	}
	if flags.Has(pkcs7.FlagNoOldMIMEType) {
		w.prefix = "application/pkcs7-"
	}
	return w
}

func (w *writer) line(s string) {
	w.buf.WriteString(s)
	w.buf.WriteString(w.eol)
}

func (w *writer) multipartSigned(p7 *pkcs7.PKCS7, content []byte, boundary string) {
	delim := "------" + boundary

	w.line("MIME-Version: 1.0")
	w.line(`Content-Type: multipart/signed; protocol="` + w.prefix + `signature"; micalg="` +
		p7.MicAlg() + `"; boundary="----` + boundary + `"`)
	w.line("")
	w.line(signedPreamble)
	w.line("")
	w.line(delim)
	w.buf.Write(content)
	w.line("")
	w.line(delim)
	w.line("Content-Type: " + w.prefix + `signature; name="smime.p7s"`)
	w.line("Content-Transfer-Encoding: base64")
	w.line(`Content-Disposition: attachment; filename="smime.p7s"`)
	w.line("")
	w.base64(p7.DER())
	w.line("")
	w.line(delim + "--")
	w.line("")
}

func (w *writer) opaque(p7 *pkcs7.PKCS7) {
	contentType := w.prefix + "mime"
	if t := smimeType(p7); t != "" {
		contentType += "; smime-type=" + t
	}

	w.line("MIME-Version: 1.0")
	w.line(`Content-Disposition: attachment; filename="smime.p7m"`)
	w.line("Content-Type: " + contentType + `; name="smime.p7m"`)
	w.line("Content-Transfer-Encoding: base64")
	w.line("")
	w.base64(p7.DER())
	w.line("")
}

func (w *writer) base64(der []byte) {
	enc := base64.StdEncoding.EncodeToString(der)
	for len(enc) > base64LineLength {
		w.line(enc[:base64LineLength])
		enc = enc[base64LineLength:]
	}
	if enc != "" {
		w.line(enc)
	}
}

func smimeType(p7 *pkcs7.PKCS7) string {
	switch p7.Type() {
	case pkcs7.TypeEnveloped:
		return "enveloped-data"
	case pkcs7.TypeSigned:
		if p7.SignerCount() == 0 {
			return "certs-only"
		}
		return "signed-data"
	}
	return ""
}

func newBoundary() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
