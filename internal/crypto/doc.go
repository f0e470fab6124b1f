// Package crypto exposes the primitives used by secretline channels.
//
// Contents
//
//   - AES-GCM envelope encryption with a random 12-byte IV prefix
//     (GenerateSymmetricKey, Encrypt, Decrypt)
//   - RSA-OAEP(SHA-256) wrapping of symmetric keys (Wrap, Unwrap)
//   - RSA-2048 key pair generation and the codecs used to persist and
//     publish keys (GenerateKeyPair, EncodePublicKey, DecodePublicKey,
//     EncodePrivateKey, DecodePrivateKey)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Envelopes and wrapped keys are standard base64 strings so they can travel
// inside JSON unchanged. Decrypt and Unwrap report failures as
// domain.ErrDecryption and domain.ErrUnwrap respectively; the two are never
// conflated.
package crypto
