package l2

// Opcode identifies an L2 request.
type Opcode byte

const (
	OpGetInfo              Opcode = 0x01
	OpHandshake            Opcode = 0x02
	OpEncryptedCmd         Opcode = 0x03
	OpEncryptedSessionAbt  Opcode = 0x04
	OpResend               Opcode = 0x05
	OpSleep                Opcode = 0x06
	OpStartup              Opcode = 0x07
	OpMutableFwUpdate      Opcode = 0x08
	OpMutableFwErase       Opcode = 0x09
	OpGetLog               Opcode = 0x0a
)

// InfoSelector picks the subfield Get_Info_Req returns.
type InfoSelector byte

const (
	InfoChipID        InfoSelector = 0x01
	InfoRiscvFwVer    InfoSelector = 0x02
	InfoSpectFwVer    InfoSelector = 0x03
	InfoFwBank        InfoSelector = 0x04
	InfoCertStore     InfoSelector = 0x05
)

// SleepKind selects the sleep mode the chip should enter.
type SleepKind byte

const (
	SleepDeep  SleepKind = 0x01
	SleepShort SleepKind = 0x02
)

// Request is a fully-built, unencrypted L2 request ready for L1.
type Request struct {
	Opcode  Opcode
	Payload []byte
}

// GetInfoRequest builds a Get_Info_Req for the given selector, with an
// optional block index for fields split across chunks (the certificate
// store is addressed by 128-byte blocks on the chip).
func GetInfoRequest(sel InfoSelector, block byte) Request {
	return Request{Opcode: OpGetInfo, Payload: []byte{byte(sel), block}}
}

// HandshakeRequest builds a Handshake_Req carrying the host's ephemeral
// public key and the chosen pairing key slot.
func HandshakeRequest(ephemeralPub [32]byte, slot byte) Request {
	payload := make([]byte, 0, 33)
	payload = append(payload, ephemeralPub[:]...)
	payload = append(payload, slot)
	return Request{Opcode: OpHandshake, Payload: payload}
}

// EncryptedCmdRequest wraps an already L3-framed ciphertext.
func EncryptedCmdRequest(framed []byte) Request {
	return Request{Opcode: OpEncryptedCmd, Payload: framed}
}

// EncryptedSessionAbortRequest asks the chip to tear down its session
// state, mirroring a local abort_session call.
func EncryptedSessionAbortRequest() Request {
	return Request{Opcode: OpEncryptedSessionAbt}
}

// ResendRequest asks the chip to resend the last (or next chunk of
// the) response, used both for CRC-error recovery and multi-chunk
// continuation.
func ResendRequest() Request {
	return Request{Opcode: OpResend}
}

// SleepRequest asks the chip to enter a low-power mode.
func SleepRequest(kind SleepKind) Request {
	return Request{Opcode: OpSleep, Payload: []byte{byte(kind)}}
}

// StartupRequest transitions the chip from startup to application
// mode.
func StartupRequest() Request {
	return Request{Opcode: OpStartup}
}

// MutableFwUpdateRequest writes up to 128 bytes of firmware image at
// offset into the mutable firmware bank.
func MutableFwUpdateRequest(offset uint32, data []byte) Request {
	payload := make([]byte, 4, 4+len(data))
	payload[0] = byte(offset)
	payload[1] = byte(offset >> 8)
	payload[2] = byte(offset >> 16)
	payload[3] = byte(offset >> 24)
	payload = append(payload, data...)
	return Request{Opcode: OpMutableFwUpdate, Payload: payload}
}

// MutableFwEraseRequest erases the target mutable firmware bank.
func MutableFwEraseRequest(bank byte) Request {
	return Request{Opcode: OpMutableFwErase, Payload: []byte{bank}}
}

// GetLogRequest retrieves the chip's diagnostic log as a CBOR-encoded
// record (see firmware/log.go for decoding).
func GetLogRequest() Request {
	return Request{Opcode: OpGetLog}
}
