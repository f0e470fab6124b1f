package store

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the sealed store format.
	sealFormatVersion = 1

	saltSize = 16
)

var (
	// Returned when the passphrase is incorrect or a sealed value has been modified / corrupted.
	errWrongPassphrase = errors.New("wrong passphrase or corrupted store")
)

// sealMeta is persisted once per store and holds the KDF parameters plus a
// sealed check value used to reject a wrong passphrase up front.
type sealMeta struct {
	V     int    `json:"v"`
	Salt  []byte `json:"salt"`
	N     int    `json:"scrypt_N"`
	R     int    `json:"scrypt_r"`
	P     int    `json:"scrypt_p"`
	Check []byte `json:"check"`
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// deriveAEAD stretches passphrase with scrypt and returns an XChaCha20-Poly1305
// instance keyed with the result.
func deriveAEAD(passphrase string, m sealMeta) (cipher.AEAD, error) {
	if m.V > sealFormatVersion {
		return nil, fmt.Errorf("unsupported sealed store version %d", m.V)
	}
	key, err := scrypt.Key([]byte(passphrase), m.Salt, m.N, m.R, m.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer clear(key)
	return chacha20poly1305.NewX(key)
}

// seal returns nonce || ciphertext. ad binds the value to the key it is stored under.
func seal(aead cipher.AEAD, plaintext, ad []byte) ([]byte, error) {
	out := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return aead.Seal(out, out[:aead.NonceSize()], plaintext, ad), nil
}

func open(aead cipher.AEAD, sealed, ad []byte) ([]byte, error) {
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, errWrongPassphrase
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, ad)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}
