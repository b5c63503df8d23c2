package tropic

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/tropicsquare/tropic-go/cryptoimpl"
	"github.com/tropicsquare/tropic-go/l2"
	"github.com/tropicsquare/tropic-go/port"
	"github.com/tropicsquare/tropic-go/sim"
)

// testPort wraps a sim.Port to also supply Random from crypto/rand, as
// a real platform port.Port would.
type testPort struct {
	*sim.Port
}

func (testPort) Random(buf []byte) error { _, err := rand.Read(buf); return err }

func newTestChip(t *testing.T) (*sim.Chip, port.Port) {
	t.Helper()
	chip := sim.New()
	return chip, testPort{chip.Port()}
}

func TestInitStartupToApplication(t *testing.T) {
	chip, p := newTestChip(t)
	defer chip.Close()

	mode := byte(0x00) // startup
	chip.Handle(l2.OpGetInfo, func(payload []byte) (l2.Status, []byte) {
		return l2.StatusResultOK, []byte{mode}
	})
	chip.Handle(l2.OpStartup, func(payload []byte) (l2.Status, []byte) {
		mode = 0x02 // application
		return l2.StatusResultOK, nil
	})

	ctx := New(p)
	gotMode, err := ctx.Init()
	if err != nil {
		t.Fatal(err)
	}
	if gotMode != l2.ModeApplication {
		t.Fatalf("expected application mode, got %v", gotMode)
	}
}

func TestPingRoundTripThroughContext(t *testing.T) {
	var provider cryptoimpl.Default
	chip, p := newTestChip(t)
	defer chip.Close()

	var pairingPriv, pairingPub [32]byte
	rand.Read(pairingPriv[:])
	pub, err := provider.X25519(pairingPriv, [32]byte{9})
	if err != nil {
		t.Fatal(err)
	}
	pairingPub = pub

	var stPriv, stPub [32]byte
	rand.Read(stPriv[:])
	stPub, err = provider.X25519(stPriv, [32]byte{9})
	if err != nil {
		t.Fatal(err)
	}

	var kCmd, kRes [32]byte
	chip.Handle(l2.OpHandshake, chipHandshakeHandler(t, provider, pairingPub, stPriv, &kCmd, &kRes))

	var nCmd, nRes uint64
	chip.Handle(l2.OpEncryptedCmd, func(payload []byte) (l2.Status, []byte) {
		ciphertext, tag := payload[2:len(payload)-16], payload[len(payload)-16:]
		nonce := nonceFromCounterForTest(nCmd)
		plaintext, err := provider.AESGCMDecrypt(kCmd, nonce, ciphertext, tag)
		if err != nil {
			t.Fatal(err)
		}
		nCmd++
		// plaintext is cmd_id || buf; echo buf back prefixed with a
		// ResultOK byte, matching the dispatcher's response
		// convention.
		reply := append([]byte{byte(ResultOK)}, plaintext[1:]...)
		rCiphertext, rTag, err := provider.AESGCMEncrypt(kRes, nonceFromCounterForTest(nRes), reply)
		if err != nil {
			t.Fatal(err)
		}
		nRes++
		out := make([]byte, 0, 2+len(rCiphertext)+len(rTag))
		total := len(rCiphertext) + len(rTag)
		out = append(out, byte(total), byte(total>>8))
		out = append(out, rCiphertext...)
		out = append(out, rTag...)
		return l2.StatusResultOK, out
	})
	// Deinit aborts the established session on the chip side too.
	chip.Handle(l2.OpEncryptedSessionAbt, func(payload []byte) (l2.Status, []byte) {
		return l2.StatusResultOK, nil
	})

	ctx := New(p, WithCryptoProvider(provider))
	if err := ctx.StartSession(0, pairingPriv, stPub); err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	got, err := ctx.Ping([]byte("hello"))
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q", got)
	}

	if err := ctx.Deinit(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Deinit(); err != nil {
		t.Fatalf("second deinit must be harmless, got %v", err)
	}
}

func TestArgumentValidationNeverTouchesBus(t *testing.T) {
	chip, p := newTestChip(t)
	defer chip.Close()
	touched := false
	chip.Handle(l2.OpEncryptedCmd, func(payload []byte) (l2.Status, []byte) {
		touched = true
		return l2.StatusResultOK, nil
	})

	ctx := New(p)
	if _, err := ctx.Ping(make([]byte, maxPingLen+1)); err == nil {
		t.Fatal("expected ArgumentError for oversized ping")
	} else if _, ok := err.(*ArgumentError); !ok {
		t.Fatalf("expected ArgumentError, got %T: %v", err, err)
	}
	if _, err := ctx.RMemDataRead(maxRMemSlot + 1); err == nil {
		t.Fatal("expected ArgumentError for out-of-range slot")
	}
	if _, err := ctx.EccKeyGenerate(0, Curve(99)); err == nil {
		t.Fatal("expected ArgumentError for unsupported curve")
	}
	if touched {
		t.Fatal("argument validation must not reach the bus")
	}
}

func nonceFromCounterForTest(counter uint64) [12]byte {
	var n [12]byte
	for i := 0; i < 8; i++ {
		n[i] = byte(counter >> (8 * i))
	}
	return n
}

func chipHandshakeHandler(t *testing.T, provider cryptoimpl.Default, pairingPub, stPriv [32]byte, kCmdOut, kResOut *[32]byte) sim.Handler {
	t.Helper()
	return func(payload []byte) (l2.Status, []byte) {
		var ehPub [32]byte
		copy(ehPub[:], payload[:32])

		var etPriv [32]byte
		rand.Read(etPriv[:])
		etPub, err := provider.X25519(etPriv, [32]byte{9})
		if err != nil {
			t.Fatal(err)
		}

		dh1, err := provider.X25519(stPriv, ehPub)
		if err != nil {
			t.Fatal(err)
		}
		dh2, err := provider.X25519(etPriv, pairingPub)
		if err != nil {
			t.Fatal(err)
		}
		dh3, err := provider.X25519(etPriv, ehPub)
		if err != nil {
			t.Fatal(err)
		}

		stPub, err := provider.X25519(stPriv, [32]byte{9})
		if err != nil {
			t.Fatal(err)
		}
		ck0 := provider.SHA256([]byte("tropic-go L3 handshake v1"))
		h0 := provider.SHA256(ck0[:], stPub[:])
		ck1, err := provider.HKDF(dh1[:], ck0[:], []byte("dh1"), 32)
		if err != nil {
			t.Fatal(err)
		}
		ck2, err := provider.HKDF(dh2[:], ck1, []byte("dh2"), 32)
		if err != nil {
			t.Fatal(err)
		}
		ck3, err := provider.HKDF(dh3[:], ck2, []byte("dh3"), 32)
		if err != nil {
			t.Fatal(err)
		}
		h1 := provider.SHA256(h0[:], ehPub[:], etPub[:])

		kCmdSlice, err := provider.HKDF(ck3, h1[:], []byte("kcmd"), 32)
		if err != nil {
			t.Fatal(err)
		}
		kResSlice, err := provider.HKDF(ck3, h1[:], []byte("kres"), 32)
		if err != nil {
			t.Fatal(err)
		}
		copy(kCmdOut[:], kCmdSlice)
		copy(kResOut[:], kResSlice)

		confirmCiphertext, confirmTag, err := provider.AESGCMEncrypt(*kResOut, [12]byte{}, h1[:])
		if err != nil {
			t.Fatal(err)
		}

		resp := make([]byte, 0, 80)
		resp = append(resp, etPub[:]...)
		resp = append(resp, confirmCiphertext...)
		resp = append(resp, confirmTag...)
		return l2.StatusResultOK, resp
	}
}
