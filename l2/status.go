package l2

// Status mirrors the chip's L2 response status byte (spec section 4.2).
// Numeric values are this implementation's own assignment — the chip's
// published datasheet table is out of scope for this repository, so the
// values are fixed here and used consistently by both directions of the
// stack (see DESIGN.md, the `l2` section).
type Status byte

const (
	StatusNoResp      Status = 0x00
	StatusRequestOK   Status = 0x01
	StatusResultOK    Status = 0x02
	StatusRequestCont Status = 0x03
	StatusResultCont  Status = 0x04
	StatusHskErr      Status = 0x05
	StatusNoSession   Status = 0x06
	StatusTagErr      Status = 0x07
	StatusCrcErr      Status = 0x08
	StatusUnknownReq  Status = 0x09
	StatusGenErr      Status = 0x0a
	StatusChipBusy    Status = 0x0b
)

func (s Status) String() string {
	switch s {
	case StatusNoResp:
		return "NO_RESP"
	case StatusRequestOK:
		return "REQUEST_OK"
	case StatusResultOK:
		return "RESULT_OK"
	case StatusRequestCont:
		return "REQUEST_CONT"
	case StatusResultCont:
		return "RESULT_CONT"
	case StatusHskErr:
		return "HSK_ERR"
	case StatusNoSession:
		return "NO_SESSION"
	case StatusTagErr:
		return "TAG_ERR"
	case StatusCrcErr:
		return "CRC_ERR"
	case StatusUnknownReq:
		return "UNKNOWN_REQ"
	case StatusGenErr:
		return "GEN_ERR"
	case StatusChipBusy:
		return "CHIP_BUSY"
	default:
		return "UNKNOWN_STATUS"
	}
}

// OK reports whether s is a terminal success status for a single-chunk
// exchange (not a continuation).
func (s Status) OK() bool {
	return s == StatusRequestOK || s == StatusResultOK
}

// Continues reports whether more chunks should be fetched.
func (s Status) Continues() bool {
	return s == StatusRequestCont || s == StatusResultCont
}

// AsError maps a non-OK, non-continuing status to a typed error. It
// returns nil for StatusRequestOK/StatusResultOK and for the two
// continuation statuses (the caller is expected to keep reading).
func (s Status) AsError() error {
	switch s {
	case StatusRequestOK, StatusResultOK, StatusRequestCont, StatusResultCont:
		return nil
	case StatusUnknownReq:
		return &ProtocolError{Kind: UnknownRequest}
	case StatusGenErr, StatusChipBusy:
		return &ProtocolError{Kind: GenericChipError}
	case StatusHskErr:
		return &ProtocolError{Kind: ChipHandshakeError}
	case StatusNoSession:
		return &ProtocolError{Kind: ChipNoSession}
	case StatusTagErr:
		return &ProtocolError{Kind: ChipTagError}
	default:
		// CRC_ERR, NO_RESP never reach here as a terminal Status:
		// l1 turns a CRC mismatch into a TransportError before l2
		// sees it, and NO_RESP only ever appears mid-poll.
		return &ProtocolError{Kind: GenericChipError}
	}
}
