package crypto

import (
	"encoding/base64"
	"strings"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// UnB64 decodes standard base64, ignoring surrounding whitespace.
func UnB64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func b64url(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func unB64url(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
