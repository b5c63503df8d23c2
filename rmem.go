package tropic

import "fmt"

const (
	maxRMemSlot     = 511
	maxRMemDataSize = 444
)

func checkRMemSlot(slot int) error {
	if slot < 0 || slot > maxRMemSlot {
		return &ArgumentError{Kind: SlotOutOfRange, Arg: "slot"}
	}
	return nil
}

// RMemDataRead reads the data stored in a user memory slot (0..511).
func (c *Context) RMemDataRead(slot int) ([]byte, error) {
	if err := checkRMemSlot(slot); err != nil {
		return nil, err
	}
	resp, err := c.command(cmdRMemRead, encodeU16(uint16(slot)))
	if err != nil {
		return nil, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return nil, err
	}
	switch result {
	case ResultOK:
		return data, nil
	case ResultSlotEmpty:
		return nil, nil
	default:
		return nil, fmt.Errorf("tropic: r_mem_data_read: unexpected chip result %s", result)
	}
}

// RMemDataWrite stores data in a user memory slot. Data over 444 bytes
// is rejected with an ArgumentError; the encrypted request travels in
// a single L1 frame, so data over 231 bytes fails with a FrameOverlong
// TransportError.
func (c *Context) RMemDataWrite(slot int, data []byte) error {
	if err := checkRMemSlot(slot); err != nil {
		return err
	}
	if len(data) > maxRMemDataSize {
		return &ArgumentError{Kind: LengthOutOfRange, Arg: "data"}
	}
	payload := append(encodeU16(uint16(slot)), data...)
	resp, err := c.command(cmdRMemWrite, payload)
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK {
		return fmt.Errorf("tropic: r_mem_data_write: unexpected chip result %s", result)
	}
	return nil
}

// RMemDataErase clears a user memory slot. Erasing an already-empty
// slot is not an error: the chip reports ResultSlotEmpty and this
// method treats it the same as ResultOK, so callers can erase
// idempotently.
func (c *Context) RMemDataErase(slot int) error {
	if err := checkRMemSlot(slot); err != nil {
		return err
	}
	resp, err := c.command(cmdRMemErase, encodeU16(uint16(slot)))
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK && result != ResultSlotEmpty {
		return fmt.Errorf("tropic: r_mem_data_erase: unexpected chip result %s", result)
	}
	return nil
}

func encodeU16(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}
