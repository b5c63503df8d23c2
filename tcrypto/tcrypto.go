// Package tcrypto defines the cryptographic primitives the L3 session
// layer consumes: X25519 scalar multiplication, a one-shot SHA-256
// over one or more byte slices, HKDF, and AES-256-GCM. Implementations are provided externally; see
// cryptoimpl for a stdlib/golang.org/x/crypto backed default.
package tcrypto

// Provider is the capability set L3 needs to run the handshake and
// frame encrypted commands. Every method must run in constant time
// with respect to secret inputs.
type Provider interface {
	// X25519 performs scalar multiplication of priv with pub,
	// returning the 32-byte shared secret.
	X25519(priv, pub [32]byte) ([32]byte, error)

	// SHA256 hashes data in one shot.
	SHA256(data ...[]byte) [32]byte

	// HKDF derives length bytes of output keying material from ikm
	// and salt, with the given info label.
	HKDF(ikm, salt, info []byte, length int) ([]byte, error)

	// AESGCMEncrypt seals plaintext under key and nonce with empty
	// AAD, returning the ciphertext and the 16-byte tag separately.
	AESGCMEncrypt(key [32]byte, nonce [12]byte, plaintext []byte) (ciphertext, tag []byte, err error)

	// AESGCMDecrypt opens ciphertext||tag under key and nonce with
	// empty AAD.
	AESGCMDecrypt(key [32]byte, nonce [12]byte, ciphertext, tag []byte) (plaintext []byte, err error)
}

// KeyPair is a generic 32-byte X25519 keypair.
type KeyPair struct {
	Private [32]byte
	Public  [32]byte
}
