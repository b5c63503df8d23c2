// Package certstore parses the chip's on-board X.509 certificate
// store: a small fixed header followed by up to four concatenated DER
// certificates, retrieved from the chip in 128-byte Get_Info_Req
// blocks and reassembled (by FetchAndParse, or by the caller of Parse)
// before parsing.
package certstore

import (
	"crypto/x509"
	"fmt"

	"github.com/tropicsquare/tropic-go/l2"
)

const (
	// MaxTotalSize is the largest certificate store the chip will
	// ever report.
	MaxTotalSize = 3840
	// MaxCerts is the largest number of certificates the store can
	// hold.
	MaxCerts = 4

	headerSize  = 2 // version:1, num_certs:1
	certLenSize = 2 // per-certificate length, little-endian

	// blockSize is the chip's Get_Info_Req(InfoCertStore) block size;
	// a block shorter than this signals the end of the store.
	blockSize = 128
)

// Error reports a malformed certificate store.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("certstore: %s", e.Reason)
}

// Store is a parsed certificate chain, ordered leaf-first as the chip
// stores it.
type Store struct {
	Version byte
	Certs   []*x509.Certificate
}

// Parse decodes raw as a certificate store: version:1 | num_certs:1 |
// cert_len[0..3]:2 LE each | DER certs concatenated in order. The
// length table always carries MaxCerts entries regardless of
// num_certs; entries beyond num_certs are ignored.
func Parse(raw []byte) (*Store, error) {
	if len(raw) > MaxTotalSize {
		return nil, &Error{Reason: "store exceeds maximum size"}
	}
	if len(raw) < headerSize {
		return nil, &Error{Reason: "truncated header"}
	}
	version := raw[0]
	numCerts := int(raw[1])
	if numCerts > MaxCerts {
		return nil, &Error{Reason: "too many certificates"}
	}

	lengthsEnd := headerSize + MaxCerts*certLenSize
	if len(raw) < lengthsEnd {
		return nil, &Error{Reason: "truncated length table"}
	}

	lengths := make([]int, numCerts)
	for i := 0; i < numCerts; i++ {
		off := headerSize + i*certLenSize
		lengths[i] = int(raw[off]) | int(raw[off+1])<<8
	}

	store := &Store{Version: version, Certs: make([]*x509.Certificate, 0, numCerts)}
	cursor := lengthsEnd
	for i, length := range lengths {
		if cursor+length > len(raw) {
			return nil, &Error{Reason: fmt.Sprintf("certificate %d truncated", i)}
		}
		der := raw[cursor : cursor+length]
		cursor += length
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("certificate %d: %v", i, err)}
		}
		store.Certs = append(store.Certs, cert)
	}
	return store, nil
}

// FetchAndParse retrieves the chip's certificate store over repeated
// Get_Info_Req(InfoCertStore, block) calls, one per 128-byte block,
// and parses the reassembled bytes. It stops once a block comes back
// shorter than blockSize or MaxTotalSize is reached.
func FetchAndParse(proto *l2.Protocol) (*Store, error) {
	var raw []byte
	for block := 0; len(raw) < MaxTotalSize; block++ {
		resp, err := proto.Exchange(l2.GetInfoRequest(l2.InfoCertStore, byte(block)))
		if err != nil {
			return nil, fmt.Errorf("certstore: fetch block %d: %w", block, err)
		}
		raw = append(raw, resp.Data...)
		if len(resp.Data) < blockSize {
			break
		}
	}
	return Parse(raw)
}

// StaticPublicKey extracts the chip's long-term X25519 static public
// key from cert's SubjectPublicKeyInfo. X25519 has no X.509 OID that
// crypto/x509 recognizes, so the chip's certificate carries it as the
// trailing 32 raw bytes of the DER-encoded SPKI; this is this
// repository's own convention for binding the handshake's ST key to
// the certificate chain, not a standard encoding.
func StaticPublicKey(cert *x509.Certificate) ([32]byte, error) {
	var pub [32]byte
	raw := cert.RawSubjectPublicKeyInfo
	if len(raw) < 32 {
		return pub, &Error{Reason: "certificate too short to hold a static key"}
	}
	copy(pub[:], raw[len(raw)-32:])
	return pub, nil
}

// Leaf returns the first (leaf) certificate, or nil if the store is
// empty.
func (s *Store) Leaf() *x509.Certificate {
	if len(s.Certs) == 0 {
		return nil
	}
	return s.Certs[0]
}

// Verify checks the leaf certificate against roots using the
// intermediate certificates present in the store.
func (s *Store) Verify(roots *x509.CertPool) ([][]*x509.Certificate, error) {
	if len(s.Certs) == 0 {
		return nil, &Error{Reason: "empty store"}
	}
	intermediates := x509.NewCertPool()
	for _, c := range s.Certs[1:] {
		intermediates.AddCert(c)
	}
	return s.Certs[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
	})
}
