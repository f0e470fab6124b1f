package types

import "crypto/rsa"

const (
	// RSAKeyBits is the modulus size of every channel key pair.
	RSAKeyBits = 2048

	// SymmetricKeyBits128 and SymmetricKeyBits256 are the accepted AES key sizes.
	SymmetricKeyBits128 = 128
	SymmetricKeyBits256 = 256

	// IVBytes is the AES-GCM nonce length prefixed to every envelope.
	IVBytes = 12
)

// SymmetricKey is a raw AES key.
type SymmetricKey []byte

// Bits returns the key length in bits.
func (k SymmetricKey) Bits() int { return len(k) * 8 }

// Clone returns an independent copy of k.
func (k SymmetricKey) Clone() SymmetricKey {
	if k == nil {
		return nil
	}
	out := make(SymmetricKey, len(k))
	copy(out, k)
	return out
}

// KeyPair is a channel-scoped RSA-OAEP key pair. The private half never
// leaves the device.
type KeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}
