package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"secretline/internal/domain"
)

// GenerateSymmetricKey returns a random AES key of 128 or 256 bits.
func GenerateSymmetricKey(bits int) (domain.SymmetricKey, error) {
	if bits != domain.SymmetricKeyBits128 && bits != domain.SymmetricKeyBits256 {
		return nil, fmt.Errorf("symmetric key: unsupported size %d bits", bits)
	}
	key := make(domain.SymmetricKey, bits/8)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("symmetric key: %w", err)
	}
	return key, nil
}

func newGCM(key domain.SymmetricKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key with a fresh random IV and returns
// base64(IV || ciphertext || tag).
func Encrypt(plaintext string, key domain.SymmetricKey) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	out := make([]byte, domain.IVBytes, domain.IVBytes+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return "", fmt.Errorf("encrypt: iv: %w", err)
	}
	out = aead.Seal(out, out[:domain.IVBytes], []byte(plaintext), nil)
	return B64(out), nil
}

// Decrypt opens an envelope produced by Encrypt. Every failure past key setup
// (bad base64, short envelope, authentication) is reported as
// domain.ErrDecryption.
func Decrypt(envelope string, key domain.SymmetricKey) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	raw, err := UnB64(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: envelope encoding: %v", domain.ErrDecryption, err)
	}
	if len(raw) < domain.IVBytes+aead.Overhead() {
		return "", fmt.Errorf("%w: envelope too short (%d bytes)", domain.ErrDecryption, len(raw))
	}
	iv, ct := raw[:domain.IVBytes], raw[domain.IVBytes:]
	pt, err := aead.Open(nil, iv, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return string(pt), nil
}
