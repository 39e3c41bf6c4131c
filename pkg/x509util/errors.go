// Package x509util loads PEM certificates and private keys into immutable
// handles and groups certificates into stacks and trust stores.
package x509util

import "github.com/remiblancher/smimekit/pkg/errstack"

// Failure reasons raised while loading PEM input.
var (
	ErrBadPEM             = errstack.NewReason(errstack.LibPEM, 100, "bad PEM block")
	ErrNoStartLine        = errstack.NewReason(errstack.LibPEM, 108, "no start line")
	ErrCertificateDecode  = errstack.NewReason(errstack.LibX509, 13, "certificate decode error")
	ErrNoPrivateKey       = errstack.NewReason(errstack.LibPEM, 109, "no private key")
	ErrMultiplePrivateKey = errstack.NewReason(errstack.LibPEM, 110, "more than one private key")
	ErrPrivateKeyDecode   = errstack.NewReason(errstack.LibPEM, 111, "private key decode error")
	ErrEncryptedKey       = errstack.NewReason(errstack.LibPEM, 104, "bad password read")
	ErrUnsupportedKeyType = errstack.NewReason(errstack.LibX509, 117, "unsupported key type")
)
