package pkcs7

import "github.com/remiblancher/smimekit/pkg/errstack"

// Option errors.
var (
	ErrUnknownOption = errstack.NewReason(errstack.LibOptions, 1, "unknown option")
	ErrEmptyOptions  = errstack.NewReason(errstack.LibOptions, 2, "empty option set")
	ErrUnknownCipher = errstack.NewReason(errstack.LibCipher, 3, "unknown cipher")
)

// Encoding errors.
var (
	ErrDecode       = errstack.NewReason(errstack.LibASN1, 58, "nested asn1 error")
	ErrTrailingData = errstack.NewReason(errstack.LibASN1, 59, "trailing data")
	ErrEncode       = errstack.NewReason(errstack.LibASN1, 60, "encode error")
)

// Engine errors.
var (
	ErrWrongContentType      = errstack.NewReason(errstack.LibPKCS7, 112, "wrong content type")
	ErrNoSignatures          = errstack.NewReason(errstack.LibPKCS7, 118, "no signatures on data")
	ErrNoContent             = errstack.NewReason(errstack.LibPKCS7, 122, "no content")
	ErrContentAndDataPresent = errstack.NewReason(errstack.LibPKCS7, 123, "content and data present")
	ErrSignerNotFound        = errstack.NewReason(errstack.LibPKCS7, 128, "signer certificate not found")
	ErrCertificateVerify     = errstack.NewReason(errstack.LibPKCS7, 117, "certificate verify error")
	ErrDigestFailure         = errstack.NewReason(errstack.LibPKCS7, 101, "digest failure")
	ErrSignatureFailure      = errstack.NewReason(errstack.LibPKCS7, 105, "signature failure")
	ErrNoMessageDigest       = errstack.NewReason(errstack.LibPKCS7, 132, "unable to find message digest")
	ErrNotText               = errstack.NewReason(errstack.LibPKCS7, 160, "not text/plain content")
	ErrKeyMismatch           = errstack.NewReason(errstack.LibPKCS7, 127, "private key does not match certificate")
	ErrNoSigner              = errstack.NewReason(errstack.LibPKCS7, 129, "no signer certificate or key")
	ErrSigningFailed         = errstack.NewReason(errstack.LibPKCS7, 130, "signing error")
	ErrUnsupportedKeyType    = errstack.NewReason(errstack.LibPKCS7, 110, "unsupported public key type")
	ErrUnsupportedDigest     = errstack.NewReason(errstack.LibPKCS7, 119, "unknown digest type")
	ErrNoRecipients          = errstack.NewReason(errstack.LibPKCS7, 131, "no recipients")
	ErrNoRecipientMatch      = errstack.NewReason(errstack.LibPKCS7, 115, "no recipient matches certificate")
	ErrDecryptFailed         = errstack.NewReason(errstack.LibPKCS7, 219, "decrypt error")
	ErrEncryptFailed         = errstack.NewReason(errstack.LibPKCS7, 220, "encrypt error")
	ErrUnsupportedCipher     = errstack.NewReason(errstack.LibPKCS7, 108, "unsupported cipher type")
	ErrCancelled             = errstack.NewReason(errstack.LibPKCS7, 250, "operation cancelled")
)
