package smime

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

// Read parses an S/MIME message and returns the structure it carries plus
// the signed content. For multipart/signed messages the content is the exact
// byte sequence of the first part. For an opaque signed-data body it is the
// encapsulated content; for anything else it is nil.
func Read(text []byte) (*pkcs7.PKCS7, []byte, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(text))
	if err != nil {
		return nil, nil, errstack.Wrap(errstack.ParseError, err, ErrMIMEParse, "")
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, nil, errstack.Wrap(errstack.ParseError, err, ErrMIMEParse, "")
	}
	mediaType, params, err := contentType(textproto.MIMEHeader(msg.Header))
	if err != nil {
		return nil, nil, err
	}

	if mediaType == "multipart/signed" {
		return readMultipartSigned(body, params["boundary"])
	}
	if !isPKCS7Type(mediaType, "mime") && !isPKCS7Type(mediaType, "signature") {
		return nil, nil, errstack.Raise(errstack.ParseError, ErrInvalidMIMEType, mediaType)
	}
	p7, err := decodeBody(textproto.MIMEHeader(msg.Header), body)
	if err != nil {
		return nil, nil, err
	}
	var content []byte
	if p7.Type() == pkcs7.TypeSigned && !p7.Detached() {
		content = p7.Content()
	}
	return p7, content, nil
}

func readMultipartSigned(body []byte, boundary string) (*pkcs7.PKCS7, []byte, error) {
	if boundary == "" {
		return nil, nil, errstack.Raise(errstack.ParseError, ErrNoMultipartBoundary, "")
	}
	parts, err := splitMultipart(body, boundary)
	if err != nil {
		return nil, nil, err
	}
	if len(parts) != 2 {
		return nil, nil, errstack.Raisef(errstack.ParseError, ErrMultipartBody, "%d parts", len(parts))
	}

	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(parts[1])))
	header, err := r.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, nil, errstack.Wrap(errstack.ParseError, err, ErrMIMEParse, "signature part")
	}
	mediaType, _, err := contentType(header)
	if err != nil {
		return nil, nil, err
	}
	if !isPKCS7Type(mediaType, "signature") {
		return nil, nil, errstack.Raise(errstack.ParseError, ErrNoSigType, mediaType)
	}
	sig, err := io.ReadAll(r.R)
	if err != nil {
		return nil, nil, errstack.Wrap(errstack.ParseError, err, ErrMIMEParse, "signature part")
	}
	p7, err := decodeBody(header, sig)
	if err != nil {
		return nil, nil, err
	}
	return p7, bytes.Clone(parts[0]), nil
}

func contentType(header textproto.MIMEHeader) (string, map[string]string, error) {
	v := header.Get("Content-Type")
	if v == "" {
		return "", nil, errstack.Raise(errstack.ParseError, ErrNoContentType, "")
	}
	mediaType, params, err := mime.ParseMediaType(v)
	if err != nil {
		return "", nil, errstack.Wrap(errstack.ParseError, err, ErrMIMEParse, v)
	}
	return mediaType, params, nil
}

func isPKCS7Type(mediaType, suffix string) bool {
	return mediaType == "application/pkcs7-"+suffix || mediaType == "application/x-pkcs7-"+suffix
}

// decodeBody decodes a transfer encoded DER body. Base64 is assumed unless
// the part declares a binary encoding.
func decodeBody(header textproto.MIMEHeader, body []byte) (*pkcs7.PKCS7, error) {
	der := body
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "binary", "8bit":
	default:
		var err error
		der, err = base64.StdEncoding.DecodeString(string(bytes.Join(bytes.Fields(body), nil)))
		if err != nil {
			return nil, errstack.Wrap(errstack.ParseError, err, ErrBase64Decode, "")
		}
	}
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, errstack.Wrap(errstack.ParseError, err, ErrPKCS7Parse, "")
	}
	return p7, nil
}

// splitMultipart returns the raw bytes of every part between the delimiter
// lines of boundary. The line break in front of a delimiter belongs to the
// delimiter, so each part is returned exactly as it was signed.
func splitMultipart(body []byte, boundary string) ([][]byte, error) {
	delim := []byte("--" + boundary)
	var parts [][]byte
	start := -1
	for off := 0; off < len(body); {
		next := len(body)
		if i := bytes.IndexByte(body[off:], '\n'); i >= 0 {
			next = off + i + 1
		}
		line := bytes.TrimRight(body[off:next], " \t\r\n")
		if rest, ok := bytes.CutPrefix(line, delim); ok && (len(rest) == 0 || string(rest) == "--") {
			if start >= 0 {
				parts = append(parts, trimEOL(body[start:off]))
			}
			if len(rest) > 0 {
				return parts, nil
			}
			start = next
		}
		off = next
	}
	return nil, errstack.Raise(errstack.ParseError, ErrMultipartBody, "missing closing boundary")
}

func trimEOL(b []byte) []byte {
	if bytes.HasSuffix(b, []byte("\r\n")) {
		return b[:len(b)-2]
	}
	return bytes.TrimSuffix(b, []byte("\n"))
}
