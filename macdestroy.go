package tropic

import "fmt"

// maxMacDestroySlot bounds the MAC-and-Destroy slot index (see
// DESIGN.md).
const maxMacDestroySlot = 127

// MacAndDestroy computes a MAC over nonce using the key in slot, then
// irreversibly destroys that key (a standard secure-element primitive
// for "prove possession, then burn the credential"). It returns the
// 32-byte tag.
func (c *Context) MacAndDestroy(slot int, nonce [32]byte) ([32]byte, error) {
	var tag [32]byte
	if slot < 0 || slot > maxMacDestroySlot {
		return tag, &ArgumentError{Kind: SlotOutOfRange, Arg: "slot"}
	}
	payload := append(encodeU16(uint16(slot)), nonce[:]...)
	resp, err := c.command(cmdMacAndDestroy, payload)
	if err != nil {
		return tag, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return tag, err
	}
	if result != ResultOK {
		return tag, fmt.Errorf("tropic: mac_and_destroy: unexpected chip result %s", result)
	}
	if err := requireLen(data, 32, "mac_and_destroy"); err != nil {
		return tag, err
	}
	copy(tag[:], data)
	return tag, nil
}
