// Package service implements the eight boundary operations shared by the CLI
// and the REST API. Inputs are encoded forms (PEM text, DER bytes, option
// names); every operation is audited, measured and logged.
package service

import (
	"bytes"
	"context"
	"time"

	"github.com/remiblancher/smimekit/internal/logging"
	"github.com/remiblancher/smimekit/internal/metrics"
	"github.com/remiblancher/smimekit/pkg/audit"
	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
	"github.com/remiblancher/smimekit/pkg/smime"
	"github.com/remiblancher/smimekit/pkg/x509util"
)

// Service provides the secure messaging operations.
type Service struct {
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates a Service. A nil logger discards output and nil metrics record
// nothing.
func New(log *logging.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{log: log.With("component", "service"), metrics: m}
}

// EncryptInput holds the encoded inputs of Encrypt.
type EncryptInput struct {
	Recipients []byte // PEM, one certificate per recipient
	Plaintext  []byte
	Cipher     string
	Options    []string
}

// DecryptInput holds the encoded inputs of Decrypt.
type DecryptInput struct {
	Structure   []byte // DER or PEM
	Key         []byte // PEM
	KeyPassword []byte
	Certificate []byte // PEM
}

// SignInput holds the encoded inputs of Sign.
type SignInput struct {
	Certificate []byte // PEM
	Key         []byte // PEM
	KeyPassword []byte
	ExtraCerts  []byte // PEM, optional
	Content     []byte
	Options     []string
}

// VerifyInput holds the encoded inputs of Verify. Detached is nil unless the
// structure was signed without its content.
type VerifyInput struct {
	Structure    []byte // DER or PEM
	Certificates []byte // PEM, optional
	TrustAnchors []byte // PEM, optional
	Detached     []byte
	Options      []string
}

// ReadCertificates loads every certificate of a PEM text in file order.
func (s *Service) ReadCertificates(ctx context.Context, pemText []byte) ([]*x509util.Certificate, error) {
	var certs []*x509util.Certificate
	err := s.observe(ctx, metrics.OpReadCertificates, func() error {
		var err error
		certs, err = x509util.ParseCertificatesPEM(pemText)
		return err
	}, "bytes", len(pemText))
	return certs, err
}

// ReadPrivateKey loads one private key, decrypting it with password when the
// block is encrypted. Every load is audited; the key is not.
func (s *Service) ReadPrivateKey(ctx context.Context, pemText, password []byte) (*x509util.PrivateKey, error) {
	var key *x509util.PrivateKey
	err := s.observe(ctx, metrics.OpReadPrivateKey, func() error {
		var err error
		key, err = loadPrivateKey(ctx, pemText, password)
		return err
	})
	return key, err
}

// Encrypt envelopes plaintext for every recipient.
func (s *Service) Encrypt(ctx context.Context, in EncryptInput) (*pkcs7.PKCS7, error) {
	var p7 *pkcs7.PKCS7
	err := s.observe(ctx, metrics.OpEncrypt, func() error {
		flags, err := pkcs7.RequireFlags(in.Options)
		if err != nil {
			return err
		}
		c, err := pkcs7.SelectCipher(in.Cipher)
		if err != nil {
			return err
		}
		certs, err := x509util.ParseCertificatesPEM(in.Recipients)
		if err != nil {
			return err
		}
		recipients := x509util.NewStack(certs...)

		p7, err = pkcs7.Encrypt(ctx, recipients, in.Plaintext, c, flags)
		obj := audit.Object{Type: "pkcs7"}
		if len(certs) == 1 {
			obj = audit.CertificateObject("pkcs7", certs[0])
		}
		return audited(err, audit.LogOperation(audit.EventPKCS7Encrypt, obj, audit.Context{
			Flags:      flags.String(),
			Cipher:     c.Name(),
			Recipients: recipients.Len(),
			RequestID:  logging.RequestID(ctx),
		}, err))
	}, "cipher", in.Cipher, "options", in.Options)
	return p7, err
}

// Decrypt opens an enveloped-data structure with the recipient key and
// certificate.
func (s *Service) Decrypt(ctx context.Context, in DecryptInput) ([]byte, error) {
	var plaintext []byte
	err := s.observe(ctx, metrics.OpDecrypt, func() error {
		p7, err := parseStructure(in.Structure)
		if err != nil {
			return err
		}
		key, err := loadPrivateKey(ctx, in.Key, in.KeyPassword)
		if err != nil {
			return err
		}
		cert, err := firstCertificate(in.Certificate)
		if err != nil {
			return err
		}

		plaintext, err = pkcs7.Decrypt(ctx, p7, key, cert)
		return audited(err, audit.LogOperation(audit.EventPKCS7Decrypt,
			audit.CertificateObject("pkcs7", cert), audit.Context{
				Recipients: p7.RecipientCount(),
				RequestID:  logging.RequestID(ctx),
			}, err))
	})
	return plaintext, err
}

// Sign produces signed-data over the content.
func (s *Service) Sign(ctx context.Context, in SignInput) (*pkcs7.PKCS7, error) {
	var p7 *pkcs7.PKCS7
	err := s.observe(ctx, metrics.OpSign, func() error {
		flags, err := pkcs7.RequireFlags(in.Options)
		if err != nil {
			return err
		}
		signer, err := firstCertificate(in.Certificate)
		if err != nil {
			return err
		}
		key, err := loadPrivateKey(ctx, in.Key, in.KeyPassword)
		if err != nil {
			return err
		}
		extra, err := x509util.ParseCertificatesPEM(in.ExtraCerts)
		if err != nil {
			return err
		}

		p7, err = pkcs7.Sign(ctx, signer, key, x509util.NewStack(extra...), in.Content, flags)
		auditCtx := audit.Context{
			Flags:     flags.String(),
			Detached:  flags.Has(pkcs7.FlagDetached),
			RequestID: logging.RequestID(ctx),
		}
		if key != nil {
			auditCtx.Algorithm = key.Algorithm().String()
		}
		return audited(err, audit.LogOperation(audit.EventPKCS7Sign,
			audit.CertificateObject("pkcs7", signer), auditCtx, err))
	}, "options", in.Options)
	return p7, err
}

// Verify checks a signed-data structure and returns its content. Success is
// always reported as true; every failure is an error.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (bool, []byte, error) {
	var (
		ok      bool
		content []byte
	)
	err := s.observe(ctx, metrics.OpVerify, func() error {
		flags, err := pkcs7.RequireFlags(in.Options)
		if err != nil {
			return err
		}
		p7, err := parseStructure(in.Structure)
		if err != nil {
			return err
		}
		certs, err := x509util.ParseCertificatesPEM(in.Certificates)
		if err != nil {
			return err
		}
		anchors, err := x509util.ParseCertificatesPEM(in.TrustAnchors)
		if err != nil {
			return err
		}

		ok, content, err = pkcs7.Verify(ctx, p7, x509util.NewStack(certs...),
			x509util.NewTrustStore(anchors...), in.Detached, flags)
		obj := audit.Object{Type: "pkcs7"}
		if embedded := p7.Certificates(); embedded.Len() > 0 {
			obj = audit.CertificateObject("pkcs7", embedded.At(0))
		}
		return audited(err, audit.LogOperation(audit.EventPKCS7Verify, obj, audit.Context{
			Flags:     flags.String(),
			Detached:  in.Detached != nil,
			RequestID: logging.RequestID(ctx),
		}, err))
	}, "options", in.Options)
	return ok, content, err
}

// WriteSMIME renders a structure as an S/MIME message.
func (s *Service) WriteSMIME(ctx context.Context, structure, content []byte, options []string) ([]byte, error) {
	var out []byte
	err := s.observe(ctx, metrics.OpSMIMEWrite, func() error {
		flags, err := pkcs7.RequireFlags(options)
		if err != nil {
			return err
		}
		p7, err := parseStructure(structure)
		if err != nil {
			return err
		}

		out, err = smime.Write(p7, content, flags)
		return audited(err, audit.LogOperation(audit.EventSMIMEWrite, audit.Object{Type: "smime"}, audit.Context{
			Flags:     flags.String(),
			Detached:  content != nil && flags.Has(pkcs7.FlagDetached),
			RequestID: logging.RequestID(ctx),
		}, err))
	}, "options", options)
	return out, err
}

// ReadSMIME parses an S/MIME message. The content is the first part of a
// multipart/signed message, or the embedded content of signed-data.
func (s *Service) ReadSMIME(ctx context.Context, text []byte) (*pkcs7.PKCS7, []byte, error) {
	var (
		p7      *pkcs7.PKCS7
		content []byte
	)
	err := s.observe(ctx, metrics.OpSMIMERead, func() error {
		var err error
		p7, content, err = smime.Read(text)
		return audited(err, audit.LogOperation(audit.EventSMIMERead, audit.Object{Type: "smime"}, audit.Context{
			Detached:  p7 != nil && p7.Detached(),
			RequestID: logging.RequestID(ctx),
		}, err))
	}, "bytes", len(text))
	return p7, content, err
}

// observe runs fn, then records its duration and outcome.
func (s *Service) observe(ctx context.Context, op string, fn func() error, args ...any) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	kind := ""
	if err != nil {
		kind = "internal"
		if k, ok := errstack.KindOf(err); ok {
			kind = k.String()
		}
	}
	s.metrics.RecordOperation(op, elapsed, kind, err != nil)

	log := s.log.FromContext(ctx).With("op", op)
	if err != nil {
		log.Error("operation failed", err, "kind", kind)
		return err
	}
	log.Debug("operation completed", append(args, "duration", elapsed)...)
	return nil
}

// loadPrivateKey parses and audits a key load. It is not observed; callers
// record the outcome under their own operation.
func loadPrivateKey(ctx context.Context, pemText, password []byte) (*x509util.PrivateKey, error) {
	var (
		key *x509util.PrivateKey
		err error
	)
	if len(password) > 0 {
		key, err = x509util.ParsePrivateKeyPEMWithPassword(pemText, password)
	} else {
		key, err = x509util.ParsePrivateKeyPEM(pemText)
	}
	algorithm := ""
	if key != nil {
		algorithm = key.Algorithm().String()
	}
	return key, audited(err, audit.LogKeyLoaded(algorithm, logging.RequestID(ctx), err))
}

func firstCertificate(pemText []byte) (*x509util.Certificate, error) {
	certs, err := x509util.ParseCertificatesPEM(pemText)
	if err != nil || len(certs) == 0 {
		return nil, err
	}
	return certs[0], nil
}

// audited returns the operation error, or the audit error when the operation
// itself succeeded.
func audited(opErr, auditErr error) error {
	if opErr != nil {
		return opErr
	}
	return auditErr
}

// parseStructure accepts a PKCS7 structure as DER or as a PEM block.
func parseStructure(data []byte) (*pkcs7.PKCS7, error) {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		return pkcs7.ParsePEM(data)
	}
	return pkcs7.Parse(data)
}
