package pkcs7

import (
	"bufio"
	"bytes"
	"io"
	"mime"
	"net/textproto"

	"github.com/remiblancher/smimekit/pkg/errstack"
)

// textHeader is prepended to content signed with FlagText.
const textHeader = "Content-Type: text/plain\r\n\r\n"

// Canonicalize returns the bytes that get signed or encrypted for content.
//
// With FlagBinary the content is used as is and FlagText is ignored.
// Otherwise every line ending becomes CRLF (trailing CR and LF runs collapse
// into a single CRLF) and, with FlagText, a text/plain MIME header is put in
// front.
func Canonicalize(content []byte, flags Flags) []byte {
	if flags.Has(FlagBinary) {
		return bytes.Clone(content)
	}
	out := make([]byte, 0, len(content)+len(content)/32+len(textHeader))
	if flags.Has(FlagText) {
		out = append(out, textHeader...)
	}
	return appendCRLF(out, content)
}

func appendCRLF(out, content []byte) []byte {
	for len(content) > 0 {
		line, rest, found := bytes.Cut(content, []byte{'\n'})
		content = rest
		eol := found
		for len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
			eol = true
		}
		out = append(out, line...)
		if eol {
			out = append(out, '\r', '\n')
		}
	}
	return out
}

// hasTextHeader reports whether content starts with a MIME header block
// declaring text/plain.
func hasTextHeader(content []byte) bool {
	_, err := stripTextHeader(content)
	return err == nil
}

// stripTextHeader removes the MIME header block in front of signed text
// content. The block must declare Content-Type text/plain.
func stripTextHeader(content []byte) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(content))
	header, err := textproto.NewReader(br).ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrNotText, "bad MIME header")
	}
	mediaType, _, perr := mime.ParseMediaType(header.Get("Content-Type"))
	if perr != nil || mediaType != "text/plain" {
		return nil, errstack.Raise(errstack.CryptoEngineError, ErrNotText, header.Get("Content-Type"))
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return nil, errstack.Wrap(errstack.CryptoEngineError, err, ErrNotText, "")
	}
	return body, nil
}
