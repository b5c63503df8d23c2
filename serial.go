package tropic

import "fmt"

// SerialCodeGet returns the chip's factory-assigned 16-byte serial
// code.
func (c *Context) SerialCodeGet() ([16]byte, error) {
	var serial [16]byte
	resp, err := c.command(cmdSerialCodeGet, nil)
	if err != nil {
		return serial, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return serial, err
	}
	if result != ResultOK {
		return serial, fmt.Errorf("tropic: serial_code_get: unexpected chip result %s", result)
	}
	if err := requireLen(data, 16, "serial_code_get"); err != nil {
		return serial, err
	}
	copy(serial[:], data)
	return serial, nil
}
