package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"secretline/internal/domain"
)

// GenerateKeyPair returns a fresh RSA-2048 key pair for OAEP wrapping.
func GenerateKeyPair() (domain.KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, domain.RSAKeyBits)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}
	return domain.KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}

// jwk is the subset of RFC 7517 needed for an RSA-OAEP-256 public key.
type jwk struct {
	Kty    string   `json:"kty"`
	Alg    string   `json:"alg"`
	Ext    bool     `json:"ext"`
	KeyOps []string `json:"key_ops"`
	N      string   `json:"n"`
	E      string   `json:"e"`
}

// EncodePublicKey serialises pub as a JWK and returns it base64 encoded. This
// is the form uploaded to the relay and persisted locally.
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", errors.New("encode public key: nil key")
	}
	k := jwk{
		Kty:    "RSA",
		Alg:    "RSA-OAEP-256",
		Ext:    true,
		KeyOps: []string{"encrypt"},
		N:      b64url(pub.N.Bytes()),
		E:      b64url(big.NewInt(int64(pub.E)).Bytes()),
	}
	raw, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("encode public key: %w", err)
	}
	return B64(raw), nil
}

// DecodePublicKey parses the output of EncodePublicKey.
func DecodePublicKey(s string) (*rsa.PublicKey, error) {
	raw, err := UnB64(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	var k jwk
	if err := json.Unmarshal(raw, &k); err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("decode public key: unexpected kty %q", k.Kty)
	}
	n, err := unB64url(k.N)
	if err != nil || len(n) == 0 {
		return nil, errors.New("decode public key: bad modulus")
	}
	e, err := unB64url(k.E)
	if err != nil || len(e) == 0 || len(e) > 4 {
		return nil, errors.New("decode public key: bad exponent")
	}
	exp := new(big.Int).SetBytes(e)
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// EncodePrivateKey returns the PKCS#8 DER encoding of priv, base64 encoded.
func EncodePrivateKey(priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", errors.New("encode private key: nil key")
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("encode private key: %w", err)
	}
	defer Wipe(der)
	return B64(der), nil
}

// DecodePrivateKey parses the output of EncodePrivateKey.
func DecodePrivateKey(s string) (*rsa.PrivateKey, error) {
	der, err := UnB64(s)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	defer Wipe(der)
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("decode private key: not an RSA key (%T)", key)
	}
	return priv, nil
}
