package firmware

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/tropicsquare/tropic-go/l1"
	"github.com/tropicsquare/tropic-go/l2"
	"github.com/tropicsquare/tropic-go/sim"
)

func TestUpdateWritesAllChunksInOrder(t *testing.T) {
	chip := sim.New()
	defer chip.Close()

	var erased bool
	var written []byte
	var offsets []uint32
	chip.Handle(l2.OpMutableFwErase, func(payload []byte) (l2.Status, []byte) {
		erased = true
		return l2.StatusResultOK, nil
	})
	chip.Handle(l2.OpMutableFwUpdate, func(payload []byte) (l2.Status, []byte) {
		offset := uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24
		offsets = append(offsets, offset)
		written = append(written, payload[4:]...)
		return l2.StatusResultOK, nil
	})

	proto := l2.New(l1.New(chip.Port()))
	image := bytes.Repeat([]byte{0xab}, ChunkSize*3+17)
	if err := Update(proto, BankA, bytes.NewReader(image)); err != nil {
		t.Fatal(err)
	}
	if !erased {
		t.Fatal("expected erase before writes")
	}
	if !bytes.Equal(written, image) {
		t.Fatalf("written image differs: got %d bytes, want %d", len(written), len(image))
	}
	for i, off := range offsets {
		if off != uint32(i*ChunkSize) {
			t.Fatalf("chunk %d at unexpected offset %d", i, off)
		}
	}
}

func TestUpdateStopsOnEraseFailure(t *testing.T) {
	chip := sim.New()
	defer chip.Close()
	chip.Handle(l2.OpMutableFwErase, func(payload []byte) (l2.Status, []byte) {
		return l2.StatusGenErr, nil
	})
	wrote := false
	chip.Handle(l2.OpMutableFwUpdate, func(payload []byte) (l2.Status, []byte) {
		wrote = true
		return l2.StatusResultOK, nil
	})

	proto := l2.New(l1.New(chip.Port()))
	err := Update(proto, BankA, bytes.NewReader([]byte{1, 2, 3}))
	if err == nil {
		t.Fatal("expected erase failure to propagate")
	}
	if wrote {
		t.Fatal("must not write after a failed erase")
	}
}

func TestDecodeLogRoundTrip(t *testing.T) {
	rec := LogRecord{UptimeSeconds: 42, LastResetCode: 1, Counters: map[string]uint32{"handshakes": 3}}
	raw, err := cbor.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeLog(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.UptimeSeconds != 42 || got.LastResetCode != 1 || got.Counters["handshakes"] != 3 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}
