// Package l3 implements the chip's encrypted command session: the
// X25519 key-agreement handshake, the directional k_cmd/k_res keys and
// n_cmd/n_res counters it produces, and the AES-256-GCM framing used
// for every command issued once the session is Established.
package l3

import (
	"math"

	"github.com/tropicsquare/tropic-go/l2"
	"github.com/tropicsquare/tropic-go/tcrypto"
)

// State is the secure-session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateEstablished
)

const tagSize = 16

// Session owns one established secure channel with the chip. A
// Session is not safe for concurrent use.
type Session struct {
	proto    *l2.Protocol
	provider tcrypto.Provider

	state State
	kCmd  [32]byte
	kRes  [32]byte
	nCmd  uint64
	nRes  uint64
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Command encrypts payload under k_cmd, sends it as an
// Encrypted_Cmd_Req, and decrypts the chip's reply under k_res.
//
// Only a decrypt/tag failure, counter exhaustion, or an L2 status
// telling us the chip itself tore down the session (TAG_ERR,
// NO_SESSION, HSK_ERR) zeroizes the session's keys and counters and
// forces it back to Idle. A plain transport failure or a transient L2
// status (CRC_ERR, CHIP_BUSY, UNKNOWN_REQ, GEN_ERR) is propagated
// as-is, leaving the session Established with its counters unchanged,
// so the caller can simply retry.
func (s *Session) Command(payload []byte) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, &SessionError{Kind: NoSession}
	}
	if s.nCmd == math.MaxUint64 {
		s.abort()
		return nil, &SessionError{Kind: CounterExhausted}
	}

	nonce := nonceFromCounter(s.nCmd)
	ciphertext, tag, err := s.provider.AESGCMEncrypt(s.kCmd, nonce, payload)
	if err != nil {
		s.abort()
		return nil, &SessionError{Kind: DecryptFailed, Err: err}
	}
	frame := encodeFrame(ciphertext, tag)

	resp, err := s.proto.Exchange(l2.EncryptedCmdRequest(frame))
	if err != nil {
		if kind, terminates := sessionTerminatingKind(err); terminates {
			s.abort()
			return nil, &SessionError{Kind: kind, Err: err}
		}
		return nil, err
	}
	s.nCmd++

	respCiphertext, respTag, err := decodeFrame(resp.Data)
	if err != nil {
		s.abort()
		return nil, &SessionError{Kind: DecryptFailed, Err: err}
	}
	if s.nRes == math.MaxUint64 {
		s.abort()
		return nil, &SessionError{Kind: CounterExhausted}
	}
	respNonce := nonceFromCounter(s.nRes)
	plaintext, err := s.provider.AESGCMDecrypt(s.kRes, respNonce, respCiphertext, respTag)
	if err != nil {
		s.abort()
		return nil, &SessionError{Kind: TagMismatch, Err: err}
	}
	s.nRes++
	return plaintext, nil
}

// sessionTerminatingKind reports which SessionErrorKind an error from
// l2.Protocol.Exchange corresponds to if it signals the chip tore down
// the session, or ok=false if the session must be left Established
// (a transport-layer failure, or a transient L2 status the chip can
// recover from on its own).
func sessionTerminatingKind(err error) (kind SessionErrorKind, ok bool) {
	perr, isProtoErr := err.(*l2.ProtocolError)
	if !isProtoErr {
		return 0, false
	}
	switch perr.Kind {
	case l2.ChipHandshakeError:
		return HandshakeFailed, true
	case l2.ChipNoSession:
		return NoSession, true
	case l2.ChipTagError:
		return TagMismatch, true
	default:
		return 0, false
	}
}

// Abort tears down the session locally and asks the chip to do the
// same via Encrypted_Session_Abt. The session returns to Idle either
// way.
func (s *Session) Abort() error {
	_, err := s.proto.Exchange(l2.EncryptedSessionAbortRequest())
	s.abort()
	return err
}

func (s *Session) abort() {
	s.kCmd = [32]byte{}
	s.kRes = [32]byte{}
	s.nCmd = 0
	s.nRes = 0
	s.state = StateIdle
}

// nonceFromCounter encodes counter as a 96-bit little-endian nonce,
// the low 64 bits carrying the counter and the high 32 bits zero.
func nonceFromCounter(counter uint64) [12]byte {
	var n [12]byte
	for i := 0; i < 8; i++ {
		n[i] = byte(counter >> (8 * i))
	}
	return n
}

// encodeFrame builds len:2 LE | ciphertext | tag:16.
func encodeFrame(ciphertext, tag []byte) []byte {
	total := len(ciphertext) + len(tag)
	frame := make([]byte, 2, 2+total)
	frame[0] = byte(total)
	frame[1] = byte(total >> 8)
	frame = append(frame, ciphertext...)
	frame = append(frame, tag...)
	return frame
}

// decodeFrame splits len:2 LE | ciphertext | tag:16 back apart.
func decodeFrame(frame []byte) (ciphertext, tag []byte, err error) {
	if len(frame) < 2 {
		return nil, nil, &SessionError{Kind: DecryptFailed}
	}
	total := int(frame[0]) | int(frame[1])<<8
	if len(frame) != 2+total || total < tagSize {
		return nil, nil, &SessionError{Kind: DecryptFailed}
	}
	body := frame[2:]
	return body[:total-tagSize], body[total-tagSize:], nil
}
