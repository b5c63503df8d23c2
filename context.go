// Package tropic is the host-side driver for a secure-element chip
// reachable over a synchronous serial bus: L1 frame transport, the L2
// unencrypted protocol, the L3 encrypted session, and a typed command
// dispatcher built on top of all three.
package tropic

import (
	"crypto/x509"
	"log/slog"

	"github.com/tropicsquare/tropic-go/certstore"
	"github.com/tropicsquare/tropic-go/cryptoimpl"
	"github.com/tropicsquare/tropic-go/l1"
	"github.com/tropicsquare/tropic-go/l2"
	"github.com/tropicsquare/tropic-go/l3"
	"github.com/tropicsquare/tropic-go/port"
	"github.com/tropicsquare/tropic-go/tcrypto"
)

// Context is the top-level handle for one chip: it owns the L1
// transport, the L2 protocol, the chosen crypto provider, and the
// current L3 session (if any). A Context is not safe for concurrent
// use and must not be shared across goroutines.
type Context struct {
	port     port.Port
	provider tcrypto.Provider
	l1       *l1.Transport
	l2       *l2.Protocol
	session  *l3.Session
	log      *slog.Logger

	pairingPriv   [32]byte
	pairingSlot   byte
	chipStaticPub [32]byte
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithCryptoProvider overrides the default stdlib/x-crypto provider.
func WithCryptoProvider(p tcrypto.Provider) Option {
	return func(c *Context) { c.provider = p }
}

// WithLogger installs a structured logger. Session keys and private
// scalars are never passed to it, at any level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// New creates a Context bound to p, with no session established yet.
func New(p port.Port, opts ...Option) *Context {
	c := &Context{
		port:     p,
		provider: cryptoimpl.Default{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.l1 = l1.New(c.port)
	c.l2 = l2.New(c.l1)
	return c
}

// Init brings the chip from whatever mode it powered up in to
// application mode, issuing Startup_Req if necessary. It returns the
// resulting mode; ModeMaintenance is not an error, it's a signal that
// only firmware-update operations are available until the caller runs
// one.
func (c *Context) Init() (l2.Mode, error) {
	mode, err := l2.Init(c.l2)
	if err != nil {
		if perr, ok := err.(*l2.ProtocolError); ok && perr.Kind == l2.BadChipMode {
			c.log.Warn("application firmware failed to boot, chip left in non-application mode", "mode", mode)
			return mode, nil
		}
		return l2.ModeUnknown, err
	}
	return mode, nil
}

// Deinit tears down any active session and zeroes cached key
// material. Deinit is idempotent: calling it twice, or on a Context
// that never established a session, is harmless.
func (c *Context) Deinit() error {
	var err error
	if c.session != nil && c.session.State() == l3.StateEstablished {
		err = c.session.Abort()
	}
	c.session = nil
	c.pairingPriv = [32]byte{}
	return err
}

// StartSession runs the L3 handshake on pairingSlot (0..3) using
// pairingPriv as the host's long-term pairing private key and
// chipStaticPub as the chip's known static public key, leaving the
// Context in the Established session state on success.
func (c *Context) StartSession(pairingSlot byte, pairingPriv, chipStaticPub [32]byte) error {
	if pairingSlot > 3 {
		return &ArgumentError{Kind: SlotOutOfRange, Arg: "pairing_slot"}
	}
	hs := l3.NewHandshake(c.l2, c.provider)
	session, err := hs.Run(c.port, pairingPriv, chipStaticPub, pairingSlot)
	if err != nil {
		return err
	}
	c.session = session
	c.pairingPriv = pairingPriv
	c.pairingSlot = pairingSlot
	c.chipStaticPub = chipStaticPub
	return nil
}

// FetchCertStore retrieves and parses the chip's on-board certificate
// store. If roots is non-nil the leaf certificate is verified against
// it before the store is returned.
func (c *Context) FetchCertStore(roots *x509.CertPool) (*certstore.Store, error) {
	store, err := certstore.FetchAndParse(c.l2)
	if err != nil {
		return nil, err
	}
	if roots != nil {
		if _, err := store.Verify(roots); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// StartSessionWithCertStore is the normal way to establish a session:
// it fetches the chip's certificate store, verifies it against roots
// (if non-nil), and runs the handshake against the chip static public
// key carried by the store's leaf certificate, per spec.md §4.3 ("ST =
// chip static pub, known from certificate"). StartSession remains
// available for callers that already have chipStaticPub out of band.
func (c *Context) StartSessionWithCertStore(pairingSlot byte, pairingPriv [32]byte, roots *x509.CertPool) error {
	store, err := c.FetchCertStore(roots)
	if err != nil {
		return err
	}
	leaf := store.Leaf()
	if leaf == nil {
		return &certstore.Error{Reason: "empty certificate store"}
	}
	chipStaticPub, err := certstore.StaticPublicKey(leaf)
	if err != nil {
		return err
	}
	return c.StartSession(pairingSlot, pairingPriv, chipStaticPub)
}

// AbortSession tears down the current session without deiniting the
// whole Context.
func (c *Context) AbortSession() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Abort()
	c.session = nil
	return err
}

// command is the shared send/receive path every typed command in this
// package funnels through: it requires an Established session and
// returns the session's own errors unchanged.
func (c *Context) command(cmdID byte, payload []byte) ([]byte, error) {
	if c.session == nil || c.session.State() != l3.StateEstablished {
		return nil, &SessionError{Kind: NoSession}
	}
	req := make([]byte, 0, 1+len(payload))
	req = append(req, cmdID)
	req = append(req, payload...)
	return c.session.Command(req)
}
