package x509util

import (
	"crypto/sha256"
	"crypto/x509"
)

// Stack is an ordered list of certificates travelling with a message:
// recipients for encryption, extra certificates for signing, candidate
// signers for verification. Order is the construction order.
type Stack struct {
	certs []*Certificate
}

// NewStack builds a stack in argument order. Nil entries are dropped.
func NewStack(certs ...*Certificate) *Stack {
	s := &Stack{certs: make([]*Certificate, 0, len(certs))}
	for _, c := range certs {
		if c != nil {
			s.certs = append(s.certs, c)
		}
	}
	return s
}

// Len returns the number of certificates. A nil stack is empty.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.certs)
}

// At returns the i-th certificate.
func (s *Stack) At(i int) *Certificate { return s.certs[i] }

// Certificates returns a copy of the stack contents.
func (s *Stack) Certificates() []*Certificate {
	if s == nil {
		return nil
	}
	return append([]*Certificate(nil), s.certs...)
}

// X509 returns the parsed certificates in stack order.
func (s *Stack) X509() []*x509.Certificate {
	out := make([]*x509.Certificate, 0, s.Len())
	for _, c := range s.Certificates() {
		out = append(out, c.X509())
	}
	return out
}

// TrustStore is the set of certificates accepted as verification anchors.
// Adding a certificate twice keeps one copy; order is not meaningful.
type TrustStore struct {
	certs []*Certificate
	index map[[sha256.Size]byte]struct{}
	pool  *x509.CertPool
}

// NewTrustStore builds a trust store from certs.
func NewTrustStore(certs ...*Certificate) *TrustStore {
	ts := &TrustStore{
		index: make(map[[sha256.Size]byte]struct{}, len(certs)),
		pool:  x509.NewCertPool(),
	}
	for _, c := range certs {
		if c == nil {
			continue
		}
		if _, dup := ts.index[c.Fingerprint()]; dup {
			continue
		}
		ts.index[c.Fingerprint()] = struct{}{}
		ts.certs = append(ts.certs, c)
		ts.pool.AddCert(c.X509())
	}
	return ts
}

// Len returns the number of distinct certificates. A nil store is empty.
func (ts *TrustStore) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.certs)
}

// Contains reports whether c is a member of the store.
func (ts *TrustStore) Contains(c *Certificate) bool {
	if ts == nil || c == nil {
		return false
	}
	_, ok := ts.index[c.Fingerprint()]
	return ok
}

// Pool returns the store as a certificate pool for chain building. A nil
// store yields an empty pool, never the system roots.
func (ts *TrustStore) Pool() *x509.CertPool {
	if ts == nil {
		return x509.NewCertPool()
	}
	return ts.pool.Clone()
}
