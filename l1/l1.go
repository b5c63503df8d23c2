// Package l1 implements the chip's serial transport framing: request
// encoding, CRC16 validation, chip-select cycling through a port.Port,
// and the response-polling loop driven by the chip's readiness
// indicator.
package l1

import (
	"time"

	"github.com/tropicsquare/tropic-go/crc16"
	"github.com/tropicsquare/tropic-go/port"
)

const (
	// MaxPayload is the largest payload a single L1 frame can carry.
	MaxPayload = 252
	// MaxFrame is the largest frame L1 will ever emit or accept.
	MaxFrame = 256

	frameHeaderSize = 2 // opcode + payload_len
	frameCRCSize    = 2
	chunkHeaderSize = 3 // chip_status + l2_status + rsp_len

	// statusNoResp is the sentinel chip_status value meaning "chip
	// has not produced a response yet"; any other value means the
	// transport should read the rest of the response chunk.
	statusNoResp byte = 0x00

	// These mirror l2.StatusRequestCont/StatusResultCont: L1 needs
	// them to report whether more chunks follow without importing
	// the L2 package (which itself imports l1).
	l2StatusRequestCont byte = 0x03
	l2StatusResultCont  byte = 0x04
)

// Timeouts bounds an L1 request/response cycle.
type Timeouts struct {
	// PollInterval is the delay between single-byte status reads.
	PollInterval time.Duration
	// PollDeadline bounds the total time spent waiting for a
	// non-NO_RESP status.
	PollDeadline time.Duration
	// TransferTimeout bounds each individual SPI transfer.
	TransferTimeout time.Duration
}

// DefaultTimeouts matches the chip's documented defaults: 1ms between
// polls, a 70ms poll deadline.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PollInterval:    time.Millisecond,
		PollDeadline:    70 * time.Millisecond,
		TransferTimeout: 70 * time.Millisecond,
	}
}

// Chunk is one response frame read off the bus.
type Chunk struct {
	ChipStatus byte
	L2Status   byte
	Data       []byte
	// More reports whether the l2_status indicates additional
	// chunks remain (RESULT_CONT/REQUEST_CONT).
	More bool
}

// Transport clocks requests and responses across a port.Port. At most
// one request/response cycle is in flight at a time; Transport holds
// no internal lock and must not be shared across goroutines without
// external synchronization.
type Transport struct {
	port port.Port
}

// New wraps p in a Transport.
func New(p port.Port) *Transport {
	return &Transport{port: p}
}

// EncodeRequest builds a request frame: opcode:1 | payload_len:1 |
// payload | crc16:2 (little-endian), CRC over opcode..payload.
func EncodeRequest(opcode byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, &TransportError{Kind: FrameOverlong}
	}
	frame := make([]byte, 0, frameHeaderSize+len(payload)+frameCRCSize)
	frame = append(frame, opcode, byte(len(payload)))
	frame = append(frame, payload...)
	sum := crc16.Checksum(frame)
	frame = append(frame, byte(sum), byte(sum>>8))
	if len(frame) > MaxFrame {
		return nil, &TransportError{Kind: FrameOverlong}
	}
	return frame, nil
}

// SendRequest clocks opcode/payload out as a single chip-select cycle,
// discarding the bytes clocked back in.
func (t *Transport) SendRequest(opcode byte, payload []byte, timeout time.Duration) error {
	frame, err := EncodeRequest(opcode, payload)
	if err != nil {
		return err
	}
	discard := make([]byte, len(frame))
	if err := t.port.Transfer(frame, discard, timeout); err != nil {
		return &TransportError{Kind: SpiBusError, Err: err}
	}
	return nil
}

// GetResponseChunk polls for a response and, once ready, reads and
// validates one full response chunk. L2 drives repeated calls (issuing
// Resend_Req between them) to assemble multi-chunk responses; L1 owns
// only the polling policy, not the assembly.
func (t *Transport) GetResponseChunk(tm Timeouts) (Chunk, error) {
	status, err := t.pollStatus(tm)
	if err != nil {
		return Chunk{}, err
	}

	header := make([]byte, chunkHeaderSize-1)
	if err := t.port.Transfer(make([]byte, len(header)), header, tm.TransferTimeout); err != nil {
		return Chunk{}, &TransportError{Kind: SpiBusError, Err: err}
	}
	l2Status, rspLen := header[0], int(header[1])
	if rspLen > MaxPayload {
		return Chunk{}, &TransportError{Kind: FrameOverlong}
	}

	rest := make([]byte, rspLen+frameCRCSize)
	if err := t.port.Transfer(make([]byte, len(rest)), rest, tm.TransferTimeout); err != nil {
		return Chunk{}, &TransportError{Kind: SpiBusError, Err: err}
	}
	data := rest[:rspLen]
	wantCRC := uint16(rest[rspLen]) | uint16(rest[rspLen+1])<<8

	crcInput := make([]byte, 0, chunkHeaderSize+rspLen)
	crcInput = append(crcInput, status, l2Status, byte(rspLen))
	crcInput = append(crcInput, data...)
	if crc16.Checksum(crcInput) != wantCRC {
		return Chunk{}, &TransportError{Kind: CrcMismatch}
	}

	more := l2Status == l2StatusRequestCont || l2Status == l2StatusResultCont
	return Chunk{
		ChipStatus: status,
		L2Status:   l2Status,
		Data:       append([]byte(nil), data...),
		More:       more,
	}, nil
}

// pollStatus issues single-byte status reads, spaced by PollInterval,
// until the chip reports anything but NO_RESP or PollDeadline elapses.
func (t *Transport) pollStatus(tm Timeouts) (byte, error) {
	deadline := time.Now().Add(tm.PollDeadline)
	status := make([]byte, 1)
	for {
		if rw, ok := t.port.(port.ReadyWaiter); ok {
			if err := rw.WaitReady(time.Until(deadline)); err != nil {
				return 0, &TransportError{Kind: ReadyPinTimeout, Err: err}
			}
		}
		if err := t.port.Transfer([]byte{0x00}, status, tm.TransferTimeout); err != nil {
			return 0, &TransportError{Kind: SpiBusError, Err: err}
		}
		if status[0] != statusNoResp {
			return status[0], nil
		}
		if time.Now().After(deadline) {
			return 0, &TransportError{Kind: NoResponseWithinTimeout}
		}
		t.port.Delay(tm.PollInterval)
	}
}
