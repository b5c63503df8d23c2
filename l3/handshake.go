package l3

import (
	"github.com/tropicsquare/tropic-go/l2"
	"github.com/tropicsquare/tropic-go/port"
	"github.com/tropicsquare/tropic-go/tcrypto"
)

// basepoint is the standard X25519 base point encoding, used to turn
// a random 32-byte scalar into a public key without depending on
// golang.org/x/crypto directly from this package.
var basepoint = [32]byte{9}

const protocolLabel = "tropic-go L3 handshake v1"

// Handshake runs the ephemeral X25519 key agreement against the
// chip's pairing key and static public key, producing an Established
// Session on success.
type Handshake struct {
	proto    *l2.Protocol
	provider tcrypto.Provider
}

// NewHandshake prepares a Handshake driven over proto.
func NewHandshake(proto *l2.Protocol, provider tcrypto.Provider) *Handshake {
	return &Handshake{proto: proto, provider: provider}
}

// handshakeScratch holds every intermediate value the handshake
// derives before arriving at k_cmd/k_res: the ephemeral private scalar
// and the DH/chaining values. It is owned by the caller rather than
// hidden inside Run, the same way ChunkAssembler is caller-owned in
// l2 — here so wipe() leaves inspectable, test-visible memory instead
// of stack locals that vanish the moment Run returns.
type handshakeScratch struct {
	ehPriv        [32]byte
	dh1, dh2, dh3 [32]byte

	ck1, ck2, ck3        []byte
	kCmdSlice, kResSlice []byte
	confirmed            []byte
}

// wipe zeroes every field. Called unconditionally before Run returns,
// on every path: success and failure alike.
func (s *handshakeScratch) wipe() {
	zero32(&s.ehPriv)
	zero32(&s.dh1)
	zero32(&s.dh2)
	zero32(&s.dh3)
	zeroBytes(s.ck1)
	zeroBytes(s.ck2)
	zeroBytes(s.ck3)
	zeroBytes(s.kCmdSlice)
	zeroBytes(s.kResSlice)
	zeroBytes(s.confirmed)
}

// Run performs the handshake using the host's long-term pairing
// keypair (registered with the chip at the given slot) and the chip's
// known static public key, drawing the ephemeral private scalar from
// rng.
func (h *Handshake) Run(rng port.Port, pairingPriv, chipStaticPub [32]byte, slot byte) (*Session, error) {
	return h.run(&handshakeScratch{}, rng, pairingPriv, chipStaticPub, slot)
}

func (h *Handshake) run(sc *handshakeScratch, rng port.Port, pairingPriv, chipStaticPub [32]byte, slot byte) (*Session, error) {
	defer sc.wipe()

	if err := rng.Random(sc.ehPriv[:]); err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	ehPub, err := h.provider.X25519(sc.ehPriv, basepoint)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}

	resp, err := h.proto.Exchange(l2.HandshakeRequest(ehPub, slot))
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	if len(resp.Data) != 32+32+16 {
		return nil, &SessionError{Kind: HandshakeFailed}
	}
	var etPub [32]byte
	copy(etPub[:], resp.Data[:32])
	confirmCiphertext := resp.Data[32:64]
	confirmTag := resp.Data[64:80]

	// dh1/dh2/dh3 mirror the chip's transcript exactly: dh1 ties the
	// host ephemeral key to the chip's long-term static key, dh2 ties
	// the host's long-term pairing key to the chip's ephemeral key,
	// dh3 ties both ephemeral keys together.
	sc.dh1, err = h.provider.X25519(sc.ehPriv, chipStaticPub)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	sc.dh2, err = h.provider.X25519(pairingPriv, etPub)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	sc.dh3, err = h.provider.X25519(sc.ehPriv, etPub)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}

	ck0 := h.provider.SHA256([]byte(protocolLabel))
	h0 := h.provider.SHA256(ck0[:], chipStaticPub[:])
	sc.ck1, err = h.provider.HKDF(sc.dh1[:], ck0[:], []byte("dh1"), 32)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	sc.ck2, err = h.provider.HKDF(sc.dh2[:], sc.ck1, []byte("dh2"), 32)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	sc.ck3, err = h.provider.HKDF(sc.dh3[:], sc.ck2, []byte("dh3"), 32)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	h1 := h.provider.SHA256(h0[:], ehPub[:], etPub[:])

	sc.kCmdSlice, err = h.provider.HKDF(sc.ck3, h1[:], []byte("kcmd"), 32)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	sc.kResSlice, err = h.provider.HKDF(sc.ck3, h1[:], []byte("kres"), 32)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}

	var kRes [32]byte
	copy(kRes[:], sc.kResSlice)
	sc.confirmed, err = h.provider.AESGCMDecrypt(kRes, [12]byte{}, confirmCiphertext, confirmTag)
	if err != nil {
		return nil, &SessionError{Kind: HandshakeFailed, Err: err}
	}
	if string(sc.confirmed) != string(h1[:]) {
		return nil, &SessionError{Kind: HandshakeFailed}
	}

	var kCmd [32]byte
	copy(kCmd[:], sc.kCmdSlice)
	s := &Session{
		proto:    h.proto,
		provider: h.provider,
		state:    StateEstablished,
		kCmd:     kCmd,
		kRes:     kRes,
	}
	return s, nil
}

func zero32(b *[32]byte) {
	for i := range b {
		b[i] = 0
	}
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
