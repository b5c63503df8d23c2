package tropic

import "fmt"

// R-config and I-config are addressed by a single byte register
// index; this package accepts 0..31 (see DESIGN.md).
const maxConfigIndex = 31

func checkConfigIndex(index int) error {
	if index < 0 || index > maxConfigIndex {
		return &ArgumentError{Kind: SlotOutOfRange, Arg: "index"}
	}
	return nil
}

// RConfigRead reads one reprogrammable configuration register.
func (c *Context) RConfigRead(index int) (uint32, error) {
	if err := checkConfigIndex(index); err != nil {
		return 0, err
	}
	resp, err := c.command(cmdRConfigRead, []byte{byte(index)})
	if err != nil {
		return 0, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return 0, err
	}
	if result != ResultOK {
		return 0, fmt.Errorf("tropic: r_config_read: unexpected chip result %s", result)
	}
	if err := requireLen(data, 4, "r_config_read"); err != nil {
		return 0, err
	}
	return decodeU32(data), nil
}

// RConfigWrite writes one reprogrammable configuration register.
func (c *Context) RConfigWrite(index int, value uint32) error {
	if err := checkConfigIndex(index); err != nil {
		return err
	}
	payload := append([]byte{byte(index)}, encodeU32(value)...)
	resp, err := c.command(cmdRConfigWrite, payload)
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK {
		return fmt.Errorf("tropic: r_config_write: unexpected chip result %s", result)
	}
	return nil
}

// RConfigErase resets a reprogrammable configuration register to its
// factory value.
func (c *Context) RConfigErase(index int) error {
	if err := checkConfigIndex(index); err != nil {
		return err
	}
	resp, err := c.command(cmdRConfigErase, []byte{byte(index)})
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK && result != ResultSlotEmpty {
		return fmt.Errorf("tropic: r_config_erase: unexpected chip result %s", result)
	}
	return nil
}

// IConfigRead reads one immutable configuration register.
func (c *Context) IConfigRead(index int) (uint32, error) {
	if err := checkConfigIndex(index); err != nil {
		return 0, err
	}
	resp, err := c.command(cmdIConfigRead, []byte{byte(index)})
	if err != nil {
		return 0, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return 0, err
	}
	if result != ResultOK {
		return 0, fmt.Errorf("tropic: i_config_read: unexpected chip result %s", result)
	}
	if err := requireLen(data, 4, "i_config_read"); err != nil {
		return 0, err
	}
	return decodeU32(data), nil
}

// IConfigWrite writes one immutable configuration register. Immutable
// registers can only clear bits from 1 to 0, a chip-side constraint
// this layer does not attempt to pre-validate.
func (c *Context) IConfigWrite(index int, value uint32) error {
	if err := checkConfigIndex(index); err != nil {
		return err
	}
	payload := append([]byte{byte(index)}, encodeU32(value)...)
	resp, err := c.command(cmdIConfigWrite, payload)
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK {
		return fmt.Errorf("tropic: i_config_write: unexpected chip result %s", result)
	}
	return nil
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func decodeU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
