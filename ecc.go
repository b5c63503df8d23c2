package tropic

import "fmt"

// Curve identifies the elliptic curve an ECC key slot holds.
type Curve byte

const (
	CurveP256 Curve = iota + 1
	CurveEd25519
)

func (c Curve) valid() bool {
	return c == CurveP256 || c == CurveEd25519
}

// maxEccSlot bounds the chip's ECC key slot index (see DESIGN.md).
const maxEccSlot = 31

func checkEccSlot(slot int) error {
	if slot < 0 || slot > maxEccSlot {
		return &ArgumentError{Kind: SlotOutOfRange, Arg: "slot"}
	}
	return nil
}

// EccKeyGenerate generates a new keypair for curve in slot, discarding
// whatever key previously occupied it, and returns the public key.
func (c *Context) EccKeyGenerate(slot int, curve Curve) ([]byte, error) {
	if err := checkEccSlot(slot); err != nil {
		return nil, err
	}
	if !curve.valid() {
		return nil, &ArgumentError{Kind: UnsupportedCurve, Arg: "curve"}
	}
	payload := append(encodeU16(uint16(slot)), byte(curve))
	resp, err := c.command(cmdEccKeyGenerate, payload)
	if err != nil {
		return nil, err
	}
	result, pub, err := decodeResult(resp)
	if err != nil {
		return nil, err
	}
	if result != ResultOK {
		return nil, fmt.Errorf("tropic: ecc_key_generate: unexpected chip result %s", result)
	}
	return pub, nil
}

// EccKeyStore imports an externally-generated private key into slot.
func (c *Context) EccKeyStore(slot int, curve Curve, priv []byte) error {
	if err := checkEccSlot(slot); err != nil {
		return err
	}
	if !curve.valid() {
		return &ArgumentError{Kind: UnsupportedCurve, Arg: "curve"}
	}
	payload := append(append(encodeU16(uint16(slot)), byte(curve)), priv...)
	resp, err := c.command(cmdEccKeyStore, payload)
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK {
		return fmt.Errorf("tropic: ecc_key_store: unexpected chip result %s", result)
	}
	return nil
}

// EccKeyRead returns the public key held in slot.
func (c *Context) EccKeyRead(slot int) ([]byte, error) {
	if err := checkEccSlot(slot); err != nil {
		return nil, err
	}
	resp, err := c.command(cmdEccKeyRead, encodeU16(uint16(slot)))
	if err != nil {
		return nil, err
	}
	result, pub, err := decodeResult(resp)
	if err != nil {
		return nil, err
	}
	switch result {
	case ResultOK:
		return pub, nil
	case ResultSlotEmpty:
		return nil, nil
	default:
		return nil, fmt.Errorf("tropic: ecc_key_read: unexpected chip result %s", result)
	}
}

// EccKeyErase destroys the key in slot. Erasing an empty slot is not
// an error.
func (c *Context) EccKeyErase(slot int) error {
	if err := checkEccSlot(slot); err != nil {
		return err
	}
	resp, err := c.command(cmdEccKeyErase, encodeU16(uint16(slot)))
	if err != nil {
		return err
	}
	result, _, err := decodeResult(resp)
	if err != nil {
		return err
	}
	if result != ResultOK && result != ResultSlotEmpty {
		return fmt.Errorf("tropic: ecc_key_erase: unexpected chip result %s", result)
	}
	return nil
}

// EcdsaSign signs a 32-byte digest with the P-256 key in slot,
// returning a 64-byte raw (r||s) signature.
func (c *Context) EcdsaSign(slot int, hash [32]byte) ([64]byte, error) {
	var sig [64]byte
	if err := checkEccSlot(slot); err != nil {
		return sig, err
	}
	payload := append(encodeU16(uint16(slot)), hash[:]...)
	resp, err := c.command(cmdEcdsaSign, payload)
	if err != nil {
		return sig, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return sig, err
	}
	if result != ResultOK {
		return sig, fmt.Errorf("tropic: ecc_ecdsa_sign: unexpected chip result %s", result)
	}
	if err := requireLen(data, 64, "ecc_ecdsa_sign"); err != nil {
		return sig, err
	}
	copy(sig[:], data)
	return sig, nil
}

const maxEddsaMsgLen = 4096

// EddsaSign signs msg with the Ed25519 key in slot, returning a
// 64-byte signature. A msg over 4096 bytes is rejected with an
// ArgumentError; the encrypted request travels in a single L1 frame,
// so a msg over 231 bytes fails with a FrameOverlong TransportError.
func (c *Context) EddsaSign(slot int, msg []byte) ([64]byte, error) {
	var sig [64]byte
	if err := checkEccSlot(slot); err != nil {
		return sig, err
	}
	if len(msg) > maxEddsaMsgLen {
		return sig, &ArgumentError{Kind: LengthOutOfRange, Arg: "msg"}
	}
	payload := append(encodeU16(uint16(slot)), msg...)
	resp, err := c.command(cmdEddsaSign, payload)
	if err != nil {
		return sig, err
	}
	result, data, err := decodeResult(resp)
	if err != nil {
		return sig, err
	}
	if result != ResultOK {
		return sig, fmt.Errorf("tropic: ecc_eddsa_sign: unexpected chip result %s", result)
	}
	if err := requireLen(data, 64, "ecc_eddsa_sign"); err != nil {
		return sig, err
	}
	copy(sig[:], data)
	return sig, nil
}
