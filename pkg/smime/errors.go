package smime

import "github.com/remiblancher/smimekit/pkg/errstack"

var (
	ErrMIMEParse           = errstack.NewReason(errstack.LibSMIME, 203, "mime parse error")
	ErrNoContentType       = errstack.NewReason(errstack.LibSMIME, 206, "no content type")
	ErrInvalidMIMEType     = errstack.NewReason(errstack.LibSMIME, 205, "invalid mime type")
	ErrNoMultipartBoundary = errstack.NewReason(errstack.LibSMIME, 211, "no multipart boundary")
	ErrMultipartBody       = errstack.NewReason(errstack.LibSMIME, 207, "no multipart body failure")
	ErrNoSigType           = errstack.NewReason(errstack.LibSMIME, 209, "no sig content type")
	ErrBase64Decode        = errstack.NewReason(errstack.LibSMIME, 110, "base64 decode error")
	ErrPKCS7Parse          = errstack.NewReason(errstack.LibSMIME, 212, "pkcs7 parse error")
	ErrNoStructure         = errstack.NewReason(errstack.LibSMIME, 213, "no pkcs7 structure")
	ErrWrite               = errstack.NewReason(errstack.LibSMIME, 214, "mime write error")
)
