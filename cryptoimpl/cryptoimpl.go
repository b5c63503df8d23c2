// Package cryptoimpl is the default tcrypto.Provider, built from the
// standard library's crypto/aes, crypto/cipher and crypto/sha256, and
// golang.org/x/crypto's curve25519 and hkdf subpackages.
package cryptoimpl

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Default is the stdlib/x-crypto backed tcrypto.Provider.
type Default struct{}

func (Default) X25519(priv, pub [32]byte) (shared [32]byte, err error) {
	out, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return shared, fmt.Errorf("cryptoimpl: x25519: %w", err)
	}
	copy(shared[:], out)
	return shared, nil
}

func (Default) SHA256(data ...[]byte) [32]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (Default) HKDF(ikm, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	okm := make([]byte, length)
	if _, err := io.ReadFull(r, okm); err != nil {
		return nil, fmt.Errorf("cryptoimpl: hkdf: %w", err)
	}
	return okm, nil
}

func (Default) AESGCMEncrypt(key [32]byte, nonce [12]byte, plaintext []byte) ([]byte, []byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	sealed := gcm.Seal(nil, nonce[:], plaintext, nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext := append([]byte(nil), sealed[:tagStart]...)
	tag := append([]byte(nil), sealed[tagStart:]...)
	return ciphertext, tag, nil
}

func (Default) AESGCMDecrypt(key [32]byte, nonce [12]byte, ciphertext, tag []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed := append(append([]byte(nil), ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptoimpl: gcm open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptoimpl: aes: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, 12)
	if err != nil {
		return nil, fmt.Errorf("cryptoimpl: gcm: %w", err)
	}
	return gcm, nil
}
