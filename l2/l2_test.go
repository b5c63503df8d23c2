package l2

import (
	"testing"
	"time"

	"github.com/tropicsquare/tropic-go/crc16"
	"github.com/tropicsquare/tropic-go/l1"
)

// scriptedPort is the same fake used by l1's own tests, duplicated
// here (unexported, package-local) since l1's is unexported too.
type scriptedPort struct {
	replies [][]byte
}

func (p *scriptedPort) Transfer(tx, rx []byte, timeout time.Duration) error {
	reply := p.replies[0]
	p.replies = p.replies[1:]
	copy(rx, reply)
	return nil
}
func (p *scriptedPort) Random(buf []byte) error { return nil }
func (p *scriptedPort) Delay(d time.Duration)   {}

func chunkFrame(chipStatus byte, l2Status Status, data []byte) []byte {
	body := append([]byte{chipStatus, byte(l2Status), byte(len(data))}, data...)
	sum := crc16.Checksum(body)
	return append(body, byte(sum), byte(sum>>8))
}

func TestExchangeSingleChunk(t *testing.T) {
	data := []byte{1, 2, 3}
	frame := chunkFrame(0x01, StatusResultOK, data)
	p := &scriptedPort{replies: [][]byte{
		{}, // request send
		{frame[0]}, frame[1:3], frame[3:],
	}}
	proto := New(l1.New(p))
	resp, err := proto.Exchange(GetLogRequest())
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Data) != string(data) {
		t.Fatalf("got %x want %x", resp.Data, data)
	}
	if resp.Status != StatusResultOK {
		t.Fatalf("unexpected status %v", resp.Status)
	}
}

func TestExchangeMultiChunk(t *testing.T) {
	first := chunkFrame(0x01, StatusResultCont, []byte{0xaa})
	second := chunkFrame(0x01, StatusResultOK, []byte{0xbb})
	p := &scriptedPort{replies: [][]byte{
		{}, // request send
		{first[0]}, first[1:3], first[3:],
		{}, // Resend_Req send
		{second[0]}, second[1:3], second[3:],
	}}
	proto := New(l1.New(p))
	resp, err := proto.Exchange(GetLogRequest())
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Data) != "\xaa\xbb" {
		t.Fatalf("got %x", resp.Data)
	}
}

func TestExchangeRecoversFromOneCrcError(t *testing.T) {
	bad := chunkFrame(0x01, StatusResultOK, []byte{0x1})
	bad[len(bad)-1] ^= 0xff
	good := chunkFrame(0x01, StatusResultOK, []byte{0x1})
	p := &scriptedPort{replies: [][]byte{
		{}, // request send
		{bad[0]}, bad[1:3], bad[3:],
		{}, // Resend_Req send
		{good[0]}, good[1:3], good[3:],
	}}
	proto := New(l1.New(p))
	resp, err := proto.Exchange(GetLogRequest())
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Data) != "\x01" {
		t.Fatalf("got %x", resp.Data)
	}
}

func TestExchangeUnknownRequestReturnsProtocolError(t *testing.T) {
	frame := chunkFrame(0x01, StatusUnknownReq, nil)
	p := &scriptedPort{replies: [][]byte{
		{}, // request send
		{frame[0]}, frame[1:3], frame[3:],
	}}
	proto := New(l1.New(p))
	_, err := proto.Exchange(GetLogRequest())
	perr, ok := err.(*ProtocolError)
	if !ok || perr.Kind != UnknownRequest {
		t.Fatalf("expected UnknownRequest ProtocolError, got %v", err)
	}
}

func TestModeOfAndInit(t *testing.T) {
	startupResp := chunkFrame(0x01, StatusResultOK, []byte{0x00})
	startupAck := chunkFrame(0x01, StatusResultOK, nil)
	appResp := chunkFrame(0x01, StatusResultOK, []byte{0x02})
	p := &scriptedPort{replies: [][]byte{
		{},                                                  // Get_Info_Req send
		{startupResp[0]}, startupResp[1:3], startupResp[3:], // ModeOf -> startup
		{},                                               // Startup_Req send
		{startupAck[0]}, startupAck[1:3], startupAck[3:], // Startup_Req ack
		{},                                      // Get_Info_Req send
		{appResp[0]}, appResp[1:3], appResp[3:], // ModeOf -> application
	}}
	proto := New(l1.New(p))
	mode, err := Init(proto)
	if err != nil {
		t.Fatal(err)
	}
	if mode != ModeApplication {
		t.Fatalf("expected application mode, got %v", mode)
	}
}

func TestChunkAssembler(t *testing.T) {
	asm := NewChunkAssembler(4)
	asm.Add([]byte{1, 2})
	asm.Add([]byte{3})
	if asm.Len() != 3 {
		t.Fatalf("expected len 3, got %d", asm.Len())
	}
	if string(asm.Bytes()) != "\x01\x02\x03" {
		t.Fatalf("unexpected bytes %x", asm.Bytes())
	}
}
