package tropic

import "fmt"

// maxMCounterIndex bounds the monotonic counter index (see
// DESIGN.md).
const maxMCounterIndex = 15

func checkMCounterIndex(index int) error {
	if index < 0 || index > maxMCounterIndex {
		return &ArgumentError{Kind: SlotOutOfRange, Arg: "index"}
	}
	return nil
}

// MCounterInit (re)initializes monotonic counter index to value.
func (c *Context) MCounterInit(index int, value uint32) error {
	if err := checkMCounterIndex(index); err != nil {
		return err
	}
	payload := append([]byte{byte(index)}, encodeU32(value)...)
	resp, err := c.command(cmdMCounterInit, payload)
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK {
		return fmt.Errorf("tropic: mcounter_init: unexpected chip result %s", result)
	}
	return nil
}

// MCounterUpdate decrements counter index by one, returning
// ResultMCounterExhausted instead of an error when it has already
// reached zero.
func (c *Context) MCounterUpdate(index int) (ChipResult, error) {
	if err := checkMCounterIndex(index); err != nil {
		return 0, err
	}
	resp, err := c.command(cmdMCounterUpdate, []byte{byte(index)})
	if err != nil {
		return 0, err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return 0, err
	}
	if result != ResultOK && result != ResultMCounterExhausted {
		return 0, fmt.Errorf("tropic: mcounter_update: unexpected chip result %s", result)
	}
	return result, nil
}

// MCounterGet returns the current value of counter index.
func (c *Context) MCounterGet(index int) (uint32, error) {
	if err := checkMCounterIndex(index); err != nil {
		return 0, err
	}
	resp, err := c.command(cmdMCounterGet, []byte{byte(index)})
	if err != nil {
		return 0, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return 0, err
	}
	if result != ResultOK {
		return 0, fmt.Errorf("tropic: mcounter_get: unexpected chip result %s", result)
	}
	if err := requireLen(data, 4, "mcounter_get"); err != nil {
		return 0, err
	}
	return decodeU32(data), nil
}
