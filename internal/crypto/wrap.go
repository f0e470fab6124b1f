package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"secretline/internal/domain"
)

// Wrap encrypts a symmetric key for the holder of pub with RSA-OAEP(SHA-256).
func Wrap(key domain.SymmetricKey, pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", errors.New("wrap: nil public key")
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return "", fmt.Errorf("wrap: %w", err)
	}
	return B64(ct), nil
}

// Unwrap recovers a key produced by Wrap. Any failure, including a private
// key that does not match, is reported as domain.ErrUnwrap.
func Unwrap(wrapped string, priv *rsa.PrivateKey) (domain.SymmetricKey, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", domain.ErrUnwrap)
	}
	ct, err := UnB64(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding: %v", domain.ErrUnwrap, err)
	}
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnwrap, err)
	}
	return domain.SymmetricKey(key), nil
}
