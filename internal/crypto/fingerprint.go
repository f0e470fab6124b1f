package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"

	"secretline/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes the PKIX DER encoding with SHA-256 and truncates to 10 bytes
// (20 hex chars). A nil or unencodable key yields an empty fingerprint.
func Fingerprint(pub *rsa.PublicKey) domain.Fingerprint {
	if pub == nil {
		return ""
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}
