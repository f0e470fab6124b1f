package store

import (
	"bytes"
	"context"
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"sync"

	"secretline/internal/domain"
)

// sealMetaKey is reserved for the KDF parameters; it is hidden from Keys.
const sealMetaKey = "secretline.sealed.meta"

var sealCheck = []byte("secretline sealed store")

// SealedKV encrypts every value of an inner store with a key derived from a
// passphrase. Keys stay in the clear so prefix listing keeps working.
type SealedKV struct {
	inner      domain.KeyValueStore
	passphrase string
	scryptN    int

	mu   sync.Mutex
	aead cipher.AEAD
}

var _ domain.KeyValueStore = (*SealedKV)(nil)

// NewSealedKV wraps inner. scryptN of zero selects the default cost. The key
// is derived on first use and reused for the life of the value; a failed
// derivation is retried on the next call.
func NewSealedKV(inner domain.KeyValueStore, passphrase string, scryptN int) *SealedKV {
	return &SealedKV{inner: inner, passphrase: passphrase, scryptN: scryptN}
}

func (s *SealedKV) unlock(ctx context.Context) (cipher.AEAD, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aead != nil {
		return s.aead, nil
	}
	aead, err := s.derive(ctx)
	if err != nil {
		return nil, err
	}
	s.aead = aead
	return aead, nil
}

func (s *SealedKV) derive(ctx context.Context) (cipher.AEAD, error) {
	raw, ok, err := s.inner.Get(ctx, sealMetaKey)
	if err != nil {
		return nil, err
	}
	if ok {
		var m sealMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, domain.NewStorageError("unlock", sealMetaKey, err)
		}
		aead, err := deriveAEAD(s.passphrase, m)
		if err != nil {
			return nil, domain.NewStorageError("unlock", sealMetaKey, err)
		}
		check, err := open(aead, m.Check, []byte(sealMetaKey))
		if err != nil || !bytes.Equal(check, sealCheck) {
			return nil, domain.NewStorageError("unlock", sealMetaKey, errWrongPassphrase)
		}
		return aead, nil
	}

	salt, err := newSalt()
	if err != nil {
		return nil, domain.NewStorageError("unlock", sealMetaKey, err)
	}
	n, r, p := scryptParamsDefault()
	if s.scryptN > 0 {
		n = s.scryptN
	}
	m := sealMeta{V: sealFormatVersion, Salt: salt, N: n, R: r, P: p}
	aead, err := deriveAEAD(s.passphrase, m)
	if err != nil {
		return nil, domain.NewStorageError("unlock", sealMetaKey, err)
	}
	if m.Check, err = seal(aead, sealCheck, []byte(sealMetaKey)); err != nil {
		return nil, domain.NewStorageError("unlock", sealMetaKey, err)
	}
	raw, err = json.Marshal(m)
	if err != nil {
		return nil, domain.NewStorageError("unlock", sealMetaKey, err)
	}
	if err := s.inner.Set(ctx, sealMetaKey, raw); err != nil {
		return nil, err
	}
	return aead, nil
}

func (s *SealedKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	aead, err := s.unlock(ctx)
	if err != nil {
		return nil, false, err
	}
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	pt, err := open(aead, sealed, []byte(key))
	if err != nil {
		return nil, false, domain.NewStorageError("get", key, err)
	}
	return pt, true, nil
}

func (s *SealedKV) Set(ctx context.Context, key string, value []byte) error {
	if key == sealMetaKey {
		return domain.NewStorageError("set", key, fmt.Errorf("key %q is reserved", key))
	}
	aead, err := s.unlock(ctx)
	if err != nil {
		return err
	}
	sealed, err := seal(aead, value, []byte(key))
	if err != nil {
		return domain.NewStorageError("set", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *SealedKV) Delete(ctx context.Context, key string) error {
	if key == sealMetaKey {
		return domain.NewStorageError("delete", key, fmt.Errorf("key %q is reserved", key))
	}
	return s.inner.Delete(ctx, key)
}

func (s *SealedKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if k != sealMetaKey {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *SealedKV) Close() error { return s.inner.Close() }
