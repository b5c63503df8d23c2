// Package firmware drives a mutable-firmware-bank update while the
// chip is in maintenance mode: erase the target bank, stream the
// image in bounded-size chunks, then let the caller reboot into it.
package firmware

import (
	"fmt"
	"io"

	"github.com/tropicsquare/tropic-go/l2"
)

// ChunkSize is the largest image slice a single
// Mutable_Fw_Update_Req can carry.
const ChunkSize = 128

// Bank identifies one of the chip's mutable firmware banks.
type Bank byte

const (
	BankA Bank = iota
	BankB
)

// Error reports a failed step of the update sequence. Retrying after
// any Error must start over from Erase: the chip stays in maintenance
// mode until a full sequence succeeds.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("firmware: %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Update erases bank and writes all of image to it in ChunkSize
// pieces, each addressed by its offset from the start of the bank.
// The caller is responsible for issuing Startup_Req afterward to
// reboot into the new image.
func Update(proto *l2.Protocol, bank Bank, image io.Reader) error {
	if _, err := proto.Exchange(l2.MutableFwEraseRequest(byte(bank))); err != nil {
		return &Error{Step: "erase", Err: err}
	}

	buf := make([]byte, ChunkSize)
	var offset uint32
	for {
		n, err := io.ReadFull(image, buf)
		if n > 0 {
			if _, werr := proto.Exchange(l2.MutableFwUpdateRequest(offset, buf[:n])); werr != nil {
				return &Error{Step: "write", Err: werr}
			}
			offset += uint32(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return &Error{Step: "read image", Err: err}
		}
	}
	return nil
}
