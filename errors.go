package tropic

import (
	"fmt"

	"github.com/tropicsquare/tropic-go/l1"
	"github.com/tropicsquare/tropic-go/l2"
	"github.com/tropicsquare/tropic-go/l3"
)

// TransportError, ProtocolError and SessionError are re-exported from
// their owning layers so callers of the root package get a single
// errors surface without reaching into l1/l2/l3 themselves.
type (
	TransportError     = l1.TransportError
	TransportErrorKind = l1.TransportErrorKind
	ProtocolError       = l2.ProtocolError
	ProtocolErrorKind   = l2.ProtocolErrorKind
	SessionError        = l3.SessionError
	SessionErrorKind    = l3.SessionErrorKind
)

const (
	SpiBusError             = l1.SpiBusError
	NoResponseWithinTimeout = l1.NoResponseWithinTimeout
	CrcMismatch             = l1.CrcMismatch
	FrameOverlong           = l1.FrameOverlong
	ReadyPinTimeout         = l1.ReadyPinTimeout
)

const (
	UnknownRequest   = l2.UnknownRequest
	GenericChipError = l2.GenericChipError
	BadChipMode      = l2.BadChipMode
)

const (
	HandshakeFailed  = l3.HandshakeFailed
	NoSession        = l3.NoSession
	TagMismatch      = l3.TagMismatch
	CounterExhausted = l3.CounterExhausted
	DecryptFailed    = l3.DecryptFailed
)

// ArgumentError reports an out-of-range command argument, returned
// before any bus I/O takes place. It has no sub-package equivalent:
// argument validation happens in the root package, above l1/l2/l3.
type ArgumentError struct {
	Kind ArgumentErrorKind
	Arg  string
}

type ArgumentErrorKind int

const (
	SlotOutOfRange ArgumentErrorKind = iota
	LengthOutOfRange
	UnsupportedCurve
)

func (k ArgumentErrorKind) String() string {
	switch k {
	case SlotOutOfRange:
		return "slot out of range"
	case LengthOutOfRange:
		return "length out of range"
	case UnsupportedCurve:
		return "unsupported curve"
	default:
		return "unknown argument error"
	}
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tropic: argument: %s: %s", e.Kind, e.Arg)
}

// ChipResult reports a per-command result code surfaced as a typed
// value rather than an error, so idempotent operations (e.g. erasing
// an already-empty slot) can be expressed without a thrown condition.
type ChipResult int

const (
	ResultOK ChipResult = iota
	ResultSlotEmpty
	ResultSlotWriteFailed
	ResultInvalidSignature
	ResultMCounterExhausted
)

func (r ChipResult) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultSlotEmpty:
		return "slot empty"
	case ResultSlotWriteFailed:
		return "slot write failed"
	case ResultInvalidSignature:
		return "invalid signature"
	case ResultMCounterExhausted:
		return "mcounter exhausted"
	default:
		return "unknown result"
	}
}
