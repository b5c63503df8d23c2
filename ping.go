package tropic

import "fmt"

const maxPingLen = 4096

// Ping sends buf and returns the chip's echoed reply. buf may be
// empty; a buf over 4096 bytes is rejected with an ArgumentError. The
// encrypted request travels in a single L1 frame (cmd_id, buf and the
// 2-byte length and 16-byte tag must fit l1.MaxPayload), so a buf over
// 233 bytes fails with a FrameOverlong TransportError; requests are
// not split across frames.
func (c *Context) Ping(buf []byte) ([]byte, error) {
	if len(buf) > maxPingLen {
		return nil, &ArgumentError{Kind: LengthOutOfRange, Arg: "buf"}
	}
	resp, err := c.command(cmdPing, buf)
	if err != nil {
		return nil, err
	}
	result, echoed, err := decodeResult(resp)
	if err != nil {
		return nil, err
	}
	if result != ResultOK {
		return nil, fmt.Errorf("tropic: ping: unexpected chip result %s", result)
	}
	if err := requireLen(echoed, len(buf), "ping"); err != nil {
		return nil, err
	}
	return echoed, nil
}

const maxRandomLen = 255

// RandomBytes asks the chip's TRNG for n bytes (n <= 255).
func (c *Context) RandomBytes(n int) ([]byte, error) {
	if n < 0 || n > maxRandomLen {
		return nil, &ArgumentError{Kind: LengthOutOfRange, Arg: "n"}
	}
	resp, err := c.command(cmdRandomBytes, []byte{byte(n)})
	if err != nil {
		return nil, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return nil, err
	}
	if result != ResultOK {
		return nil, fmt.Errorf("tropic: random_bytes: unexpected chip result %s", result)
	}
	if err := requireLen(data, n, "random_bytes"); err != nil {
		return nil, err
	}
	return data, nil
}
