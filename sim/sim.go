// Package sim provides a goroutine-driven software chip, implementing
// port.Port, for exercising the l1/l2/l3 stack without real hardware.
// Its request/response channel loop mirrors the teacher engraver
// simulator's structure (driver/mjolnir/sim.go): a single run goroutine
// owns the transfer state, and callers talk to it over channels. The
// configuration methods (Handle, BusyFor, Continuation) write the
// Chip's fields directly without a lock, so they must not be called
// while a Transfer is in flight.
package sim

import (
	"time"

	"github.com/tropicsquare/tropic-go/crc16"
	"github.com/tropicsquare/tropic-go/l2"
)

// Handler answers one L2 opcode given its payload, returning the
// status byte and response data to send back. A handler that wants to
// simulate a multi-chunk response returns StatusResultCont/
// StatusRequestCont and leaves the rest queued via Chip.Continuation;
// Resend_Req then drains that queue one chunk at a time.
type Handler func(payload []byte) (l2.Status, []byte)

// Chunk is one pre-scripted piece of a multi-chunk response.
type Chunk struct {
	Status l2.Status
	Data   []byte
}

// Chip is a software stand-in for the secure element, reachable
// through its Port method as a port.Port.
type Chip struct {
	handlers map[l2.Opcode]Handler
	busy     int // number of NO_RESP polls to answer before the real status
	pending  []Chunk

	close chan struct{}
	in    chan transferReq
	out   chan transferResult
}

type transferReq struct {
	tx []byte
}

type transferResult struct {
	rx  []byte
	err error
}

type phase int

const (
	phaseAwaitingRequest phase = iota
	phasePolling
	phaseHeader
	phaseData
)

// New creates a Chip with no registered handlers; use Handle to wire
// up opcodes before use.
func New() *Chip {
	c := &Chip{
		handlers: make(map[l2.Opcode]Handler),
		close:    make(chan struct{}),
		in:       make(chan transferReq),
		out:      make(chan transferResult),
	}
	go c.run()
	return c
}

// Handle registers the response the chip gives for opcode.
func (c *Chip) Handle(opcode l2.Opcode, h Handler) {
	c.handlers[opcode] = h
}

// BusyFor makes the chip answer the next n status polls with NO_RESP
// before producing its real response, simulating processing latency.
func (c *Chip) BusyFor(n int) {
	c.busy = n
}

// Continuation pre-scripts the chunks a handler's opcode should
// produce across repeated Resend_Req calls, after the handler's own
// return value has been sent as the first chunk.
func (c *Chip) Continuation(chunks ...Chunk) {
	c.pending = append([]Chunk(nil), chunks...)
}

// Close stops the chip's goroutine.
func (c *Chip) Close() {
	c.close <- struct{}{}
	<-c.close
}

func (c *Chip) run() {
	ph := phaseAwaitingRequest
	var pendingStatus l2.Status
	var pendingData []byte
	busyLeft := 0

	for {
		select {
		case <-c.close:
			c.close <- struct{}{}
			return
		case req := <-c.in:
			tx := req.tx
			switch ph {
			case phaseAwaitingRequest:
				opcode, payload, ok := decodeRequest(tx)
				if !ok {
					c.out <- transferResult{rx: make([]byte, len(tx)), err: nil}
					continue
				}
				switch {
				case opcode == l2.OpResend && len(c.pending) > 0:
					next := c.pending[0]
					c.pending = c.pending[1:]
					pendingStatus, pendingData = next.Status, next.Data
				default:
					h, known := c.handlers[opcode]
					if !known {
						pendingStatus, pendingData = l2StatusFor(unknownRequestStatus), nil
					} else {
						pendingStatus, pendingData = h(payload)
					}
				}
				busyLeft = c.busy
				ph = phasePolling
				c.out <- transferResult{rx: make([]byte, len(tx)), err: nil}
			case phasePolling:
				rx := make([]byte, len(tx))
				if busyLeft > 0 {
					busyLeft--
					rx[0] = 0x00 // NO_RESP
				} else {
					rx[0] = 0x01 // any non-zero chip_status
					ph = phaseHeader
				}
				c.out <- transferResult{rx: rx, err: nil}
			case phaseHeader:
				rx := make([]byte, len(tx))
				if len(rx) >= 2 {
					rx[0] = byte(pendingStatus)
					rx[1] = byte(len(pendingData))
				}
				ph = phaseData
				c.out <- transferResult{rx: rx, err: nil}
			case phaseData:
				rx := make([]byte, len(tx))
				body := append([]byte{0x01, byte(pendingStatus), byte(len(pendingData))}, pendingData...)
				sum := crc16.Checksum(body)
				payload := append(append([]byte(nil), pendingData...), byte(sum), byte(sum>>8))
				copy(rx, payload)
				ph = phaseAwaitingRequest
				c.out <- transferResult{rx: rx, err: nil}
			}
		}
	}
}

const unknownRequestStatus = 0x09 // mirrors l2.StatusUnknownReq

func l2StatusFor(raw byte) l2.Status { return l2.Status(raw) }

// decodeRequest recognizes a full L1 request frame (as opposed to a
// dummy all-zero status poll or response read) by length and a valid
// trailing CRC.
func decodeRequest(tx []byte) (l2.Opcode, []byte, bool) {
	if len(tx) < 4 {
		return 0, nil, false
	}
	payloadLen := int(tx[1])
	if len(tx) != 2+payloadLen+2 {
		return 0, nil, false
	}
	body := tx[:2+payloadLen]
	wantCRC := uint16(tx[2+payloadLen]) | uint16(tx[2+payloadLen+1])<<8
	if crc16.Checksum(body) != wantCRC {
		return 0, nil, false
	}
	return l2.Opcode(tx[0]), tx[2 : 2+payloadLen], true
}

// Port returns a port.Port view of the chip.
func (c *Chip) Port() *Port {
	return &Port{chip: c}
}

// Port adapts Chip to the port.Port interface used by l1.Transport.
type Port struct {
	chip *Chip
}

func (p *Port) Transfer(tx, rx []byte, timeout time.Duration) error {
	p.chip.in <- transferReq{tx: append([]byte(nil), tx...)}
	res := <-p.chip.out
	copy(rx, res.rx)
	return res.err
}

func (p *Port) Random(buf []byte) error {
	for i := range buf {
		buf[i] = byte(i)
	}
	return nil
}

func (p *Port) Delay(d time.Duration) {}
