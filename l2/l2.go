// Package l2 implements the chip's unencrypted request/response
// protocol: request framing via l1, chip mode inspection, and
// reassembly of multi-chunk responses.
package l2

import (
	"github.com/tropicsquare/tropic-go/l1"
)

// Mode reports which of the chip's three boot modes is currently
// active.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeStartup
	ModeMaintenance
	ModeApplication
)

func (m Mode) String() string {
	switch m {
	case ModeStartup:
		return "startup"
	case ModeMaintenance:
		return "maintenance"
	case ModeApplication:
		return "application"
	default:
		return "unknown"
	}
}

// ChunkAssembler accumulates the chunks of a multi-chunk response into
// dst. It is owned by the caller, not hidden inside Protocol, per the
// stateful-parsing design: a caller juggling several outstanding
// requests (unlikely here, but testable in isolation) gets one
// assembler per request rather than shared mutable state.
type ChunkAssembler struct {
	dst     []byte
	written int
}

// NewChunkAssembler prepares an assembler backed by a buffer with the
// given capacity. The buffer grows past capacity if the chip sends
// more data than expected.
func NewChunkAssembler(capacity int) *ChunkAssembler {
	return &ChunkAssembler{dst: make([]byte, 0, capacity)}
}

// Add appends one chunk's data to the assembled buffer.
func (a *ChunkAssembler) Add(data []byte) {
	a.dst = append(a.dst, data...)
	a.written += len(data)
}

// Bytes returns everything assembled so far.
func (a *ChunkAssembler) Bytes() []byte {
	return a.dst
}

// Len reports how many bytes have been written.
func (a *ChunkAssembler) Len() int {
	return a.written
}

// Protocol drives a sequence of L1 exchanges to perform one logical
// L2 request/response cycle, including chunk reassembly and
// Resend_Req-based recovery from a single CRC error.
type Protocol struct {
	transport *l1.Transport
	timeouts  l1.Timeouts
}

// New wraps transport with the default L1 timeouts.
func New(transport *l1.Transport) *Protocol {
	return &Protocol{transport: transport, timeouts: l1.DefaultTimeouts()}
}

// WithTimeouts overrides the default L1 timeouts.
func (p *Protocol) WithTimeouts(tm l1.Timeouts) *Protocol {
	p.timeouts = tm
	return p
}

// Response is one fully reassembled L2 response: the terminal status
// byte and the concatenated payload of every chunk.
type Response struct {
	Status Status
	Data   []byte
}

// Exchange sends req and reassembles its response, issuing
// Resend_Req to recover from at most one CRC error per chunk and to
// fetch continuation chunks.
func (p *Protocol) Exchange(req Request) (Response, error) {
	if err := p.transport.SendRequest(byte(req.Opcode), req.Payload, p.timeouts.TransferTimeout); err != nil {
		return Response{}, err
	}
	return p.readResponse()
}

func (p *Protocol) readResponse() (Response, error) {
	asm := NewChunkAssembler(l1.MaxPayload)
	var last Status
	const maxCrcRetries = 1

	crcRetries := 0
	for {
		chunk, err := p.transport.GetResponseChunk(p.timeouts)
		if err != nil {
			if terr, ok := err.(*l1.TransportError); ok && terr.Kind == l1.CrcMismatch && crcRetries < maxCrcRetries {
				crcRetries++
				if err := p.transport.SendRequest(byte(OpResend), nil, p.timeouts.TransferTimeout); err != nil {
					return Response{}, err
				}
				continue
			}
			return Response{}, err
		}
		crcRetries = 0
		last = Status(chunk.L2Status)
		asm.Add(chunk.Data)
		if !last.Continues() {
			break
		}
		if err := p.transport.SendRequest(byte(OpResend), nil, p.timeouts.TransferTimeout); err != nil {
			return Response{}, err
		}
	}

	if err := last.AsError(); err != nil {
		return Response{Status: last, Data: asm.Bytes()}, err
	}
	return Response{Status: last, Data: asm.Bytes()}, nil
}

// ModeOf issues a Get_Info_Req(InfoChipID) probe and infers the
// chip's boot mode from the first byte of the chip-id payload's
// reserved mode field; if the exchange fails, its error is returned
// with ModeUnknown.
// A chip in startup mode answers Get_Info_Req but reports mode 0; one
// in maintenance or application mode reports 1 or 2 respectively.
func ModeOf(p *Protocol) (Mode, error) {
	resp, err := p.Exchange(GetInfoRequest(InfoChipID, 0))
	if err != nil {
		return ModeUnknown, err
	}
	if len(resp.Data) == 0 {
		return ModeUnknown, &ProtocolError{Kind: GenericChipError}
	}
	switch resp.Data[0] {
	case 0:
		return ModeStartup, nil
	case 1:
		return ModeMaintenance, nil
	case 2:
		return ModeApplication, nil
	default:
		return ModeUnknown, &ProtocolError{Kind: BadChipMode}
	}
}

// Init transitions the chip from startup mode to application mode by
// issuing Startup_Req and re-reading the mode. It returns BadChipMode
// if the chip reports anything other than application mode afterward,
// which the caller should treat as "application firmware failed to
// boot" rather than retrying blindly.
func Init(p *Protocol) (Mode, error) {
	mode, err := ModeOf(p)
	if err != nil {
		return ModeUnknown, err
	}
	if mode == ModeApplication {
		return mode, nil
	}
	if _, err := p.Exchange(StartupRequest()); err != nil {
		return ModeUnknown, err
	}
	mode, err = ModeOf(p)
	if err != nil {
		return ModeUnknown, err
	}
	if mode != ModeApplication {
		return mode, &ProtocolError{Kind: BadChipMode}
	}
	return mode, nil
}
