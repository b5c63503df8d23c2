package tropic

import "fmt"

func checkPairingSlot(slot int) error {
	if slot < 0 || slot > 3 {
		return &ArgumentError{Kind: SlotOutOfRange, Arg: "slot"}
	}
	return nil
}

// PairingKeyWrite stores a host pairing public key in one of the four
// pairing key slots.
func (c *Context) PairingKeyWrite(slot int, pub [32]byte) error {
	if err := checkPairingSlot(slot); err != nil {
		return err
	}
	payload := append([]byte{byte(slot)}, pub[:]...)
	resp, err := c.command(cmdPairingKeyWrite, payload)
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK {
		return fmt.Errorf("tropic: pairing_key_write: unexpected chip result %s", result)
	}
	return nil
}

// PairingKeyRead returns the public key stored in a pairing key slot.
func (c *Context) PairingKeyRead(slot int) ([32]byte, error) {
	var pub [32]byte
	if err := checkPairingSlot(slot); err != nil {
		return pub, err
	}
	resp, err := c.command(cmdPairingKeyRead, []byte{byte(slot)})
	if err != nil {
		return pub, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return pub, err
	}
	switch result {
	case ResultOK:
		if err := requireLen(data, 32, "pairing_key_read"); err != nil {
			return pub, err
		}
		copy(pub[:], data)
		return pub, nil
	case ResultSlotEmpty:
		return pub, nil
	default:
		return pub, fmt.Errorf("tropic: pairing_key_read: unexpected chip result %s", result)
	}
}

// PairingKeyInvalidate permanently disables a pairing key slot.
// Invalidating an already-invalid slot is not an error.
func (c *Context) PairingKeyInvalidate(slot int) error {
	if err := checkPairingSlot(slot); err != nil {
		return err
	}
	resp, err := c.command(cmdPairingKeyInvalidate, []byte{byte(slot)})
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK && result != ResultSlotEmpty {
		return fmt.Errorf("tropic: pairing_key_invalidate: unexpected chip result %s", result)
	}
	return nil
}
