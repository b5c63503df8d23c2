package l3

import (
	"crypto/rand"
	"testing"

	"github.com/tropicsquare/tropic-go/cryptoimpl"
	"github.com/tropicsquare/tropic-go/l1"
	"github.com/tropicsquare/tropic-go/l2"
	"github.com/tropicsquare/tropic-go/sim"
)

// assertScratchWiped fails the test if any field of sc is non-zero.
func assertScratchWiped(t *testing.T, sc *handshakeScratch) {
	t.Helper()
	var zero32 [32]byte
	if sc.ehPriv != zero32 {
		t.Error("ehPriv not wiped")
	}
	if sc.dh1 != zero32 {
		t.Error("dh1 not wiped")
	}
	if sc.dh2 != zero32 {
		t.Error("dh2 not wiped")
	}
	if sc.dh3 != zero32 {
		t.Error("dh3 not wiped")
	}
	for name, b := range map[string][]byte{
		"ck1": sc.ck1, "ck2": sc.ck2, "ck3": sc.ck3,
		"kCmdSlice": sc.kCmdSlice, "kResSlice": sc.kResSlice,
		"confirmed": sc.confirmed,
	} {
		for _, v := range b {
			if v != 0 {
				t.Errorf("%s not wiped: %x", name, b)
				break
			}
		}
	}
}

func TestHandshakeScratchWipedOnSuccess(t *testing.T) {
	var provider cryptoimpl.Default
	pairingPriv, pairingPub := genKeyPair(t, provider)
	stPriv, stPub := genKeyPair(t, provider)

	chip := sim.New()
	defer chip.Close()
	var chipKeys [2][32]byte
	chip.Handle(l2.OpHandshake, newChipHandshakeHandler(t, provider, pairingPub, stPriv, &chipKeys))

	proto := l2.New(l1.New(chip.Port()))
	hs := NewHandshake(proto, provider)

	sc := &handshakeScratch{}
	session, err := hs.run(sc, fakeRNG{}, pairingPriv, stPub, 0)
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	if session.State() != StateEstablished {
		t.Fatalf("expected Established, got %v", session.State())
	}
	assertScratchWiped(t, sc)
}

func TestHandshakeScratchWipedOnFailure(t *testing.T) {
	var provider cryptoimpl.Default
	pairingPriv, _ := genKeyPair(t, provider)
	_, stPub := genKeyPair(t, provider)

	chip := sim.New()
	defer chip.Close()
	// The chip replies with a confirmation tag that won't decrypt
	// under the derived k_res, forcing the handshake down its
	// confirmation-failure path.
	chip.Handle(l2.OpHandshake, func(payload []byte) (l2.Status, []byte) {
		var ehPub [32]byte
		copy(ehPub[:], payload[:32])
		etPriv := [32]byte{}
		if _, err := rand.Read(etPriv[:]); err != nil {
			t.Fatal(err)
		}
		etPub, err := provider.X25519(etPriv, basepoint)
		if err != nil {
			t.Fatal(err)
		}
		resp := make([]byte, 0, 80)
		resp = append(resp, etPub[:]...)
		resp = append(resp, make([]byte, 32)...) // garbage ciphertext
		resp = append(resp, make([]byte, 16)...) // garbage tag
		return l2.StatusResultOK, resp
	})

	proto := l2.New(l1.New(chip.Port()))
	hs := NewHandshake(proto, provider)

	sc := &handshakeScratch{}
	_, err := hs.run(sc, fakeRNG{}, pairingPriv, stPub, 0)
	if err == nil {
		t.Fatal("expected the handshake to fail on confirmation decrypt")
	}
	assertScratchWiped(t, sc)
}
