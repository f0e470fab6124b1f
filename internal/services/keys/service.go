package keys

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/sirupsen/logrus"

	"secretline/internal/crypto"
	"secretline/internal/domain"
	"secretline/internal/logging"
)

const (
	privateKeySlot   = "privateKey"
	publicKeySlot    = "publicKey"
	symmetricKeySlot = "symmetricKey"
)

// Service owns channel key material on top of a key-value store.
type Service struct {
	kv  domain.KeyValueStore
	log *logrus.Entry
}

// New returns a key service backed by the given store.
func New(kv domain.KeyValueStore) *Service {
	return &Service{kv: kv, log: logging.For("keys")}
}

// storageKey builds "<scope>.<slot>.<id>".
func storageKey(scope domain.Scope, slot, id string) string {
	return string(scope) + "." + slot + "." + id
}

func checkScope(scope domain.Scope, id string) error {
	if !scope.Valid() {
		return fmt.Errorf("unknown key scope %q", scope)
	}
	if id == "" {
		return fmt.Errorf("empty %s id", scope)
	}
	return nil
}

// GenerateKeyPair creates and persists a fresh key pair for (scope, id),
// replacing any previous one, and returns the public half. Both halves are
// written before returning.
func (s *Service) GenerateKeyPair(
	ctx context.Context,
	scope domain.Scope,
	id string,
) (*rsa.PublicKey, error) {
	if err := checkScope(scope, id); err != nil {
		return nil, err
	}

	pair, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	privEnc, err := crypto.EncodePrivateKey(pair.Private)
	if err != nil {
		return nil, err
	}
	pubEnc, err := crypto.EncodePublicKey(pair.Public)
	if err != nil {
		return nil, err
	}

	if err := s.kv.Set(ctx, storageKey(scope, privateKeySlot, id), []byte(privEnc)); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, storageKey(scope, publicKeySlot, id), []byte(pubEnc)); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"scope":       scope,
		"id":          id,
		"fingerprint": crypto.Fingerprint(pair.Public),
	}).Debug("generated key pair")
	return pair.Public, nil
}

// PrivateKey returns the persisted private key for (scope, id).
func (s *Service) PrivateKey(
	ctx context.Context,
	scope domain.Scope,
	id string,
) (*rsa.PrivateKey, bool, error) {
	if err := checkScope(scope, id); err != nil {
		return nil, false, err
	}
	key := storageKey(scope, privateKeySlot, id)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	priv, err := crypto.DecodePrivateKey(string(raw))
	if err != nil {
		return nil, false, domain.NewStorageError("decode", key, err)
	}
	return priv, true, nil
}

// PublicKey returns the persisted public key for (scope, id). It is read
// from its own slot, not re-derived from the private key.
func (s *Service) PublicKey(
	ctx context.Context,
	scope domain.Scope,
	id string,
) (*rsa.PublicKey, bool, error) {
	if err := checkScope(scope, id); err != nil {
		return nil, false, err
	}
	key := storageKey(scope, publicKeySlot, id)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	pub, err := crypto.DecodePublicKey(string(raw))
	if err != nil {
		return nil, false, domain.NewStorageError("decode", key, err)
	}
	return pub, true, nil
}

// Fingerprint returns the fingerprint of the public key for (scope, id).
func (s *Service) Fingerprint(
	ctx context.Context,
	scope domain.Scope,
	id string,
) (domain.Fingerprint, error) {
	pub, ok, err := s.PublicKey(ctx, scope, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no %s key pair for %s", domain.ErrKeyNotFound, scope, id)
	}
	return crypto.Fingerprint(pub), nil
}

// HasKeys reports whether both halves of the pair are persisted.
func (s *Service) HasKeys(ctx context.Context, scope domain.Scope, id string) (bool, error) {
	if err := checkScope(scope, id); err != nil {
		return false, err
	}
	for _, slot := range []string{privateKeySlot, publicKeySlot} {
		_, ok, err := s.kv.Get(ctx, storageKey(scope, slot, id))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Clear removes the key pair for (scope, id). For direct chats the persisted
// symmetric key goes with it.
func (s *Service) Clear(ctx context.Context, scope domain.Scope, id string) error {
	if err := checkScope(scope, id); err != nil {
		return err
	}
	slots := []string{privateKeySlot, publicKeySlot}
	if scope == domain.ScopeDirect {
		slots = append(slots, symmetricKeySlot)
	}
	for _, slot := range slots {
		if err := s.kv.Delete(ctx, storageKey(scope, slot, id)); err != nil {
			return err
		}
	}
	s.log.WithFields(logrus.Fields{"scope": scope, "id": id}).Debug("cleared keys")
	return nil
}

// ClearAll removes every key in every scope.
func (s *Service) ClearAll(ctx context.Context) error {
	n := 0
	for _, scope := range []domain.Scope{domain.ScopeDirect, domain.ScopeGroup} {
		keys, err := s.kv.Keys(ctx, string(scope)+".")
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := s.kv.Delete(ctx, k); err != nil {
				return err
			}
			n++
		}
	}
	s.log.WithField("removed", n).Info("cleared all keys")
	return nil
}

// SaveSymmetricKey persists the unwrapped key of a direct chat.
func (s *Service) SaveSymmetricKey(
	ctx context.Context,
	id domain.ChannelID,
	key domain.SymmetricKey,
) error {
	if id == "" {
		return fmt.Errorf("empty %s id", domain.ScopeDirect)
	}
	return s.kv.Set(ctx, storageKey(domain.ScopeDirect, symmetricKeySlot, id.String()), []byte(crypto.B64(key)))
}

// SymmetricKey returns the persisted key of a direct chat.
func (s *Service) SymmetricKey(
	ctx context.Context,
	id domain.ChannelID,
) (domain.SymmetricKey, bool, error) {
	key := storageKey(domain.ScopeDirect, symmetricKeySlot, id.String())
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	b, err := crypto.UnB64(string(raw))
	if err != nil {
		return nil, false, domain.NewStorageError("decode", key, err)
	}
	return domain.SymmetricKey(b), true, nil
}

// DeleteSymmetricKey removes the persisted key of a direct chat.
func (s *Service) DeleteSymmetricKey(ctx context.Context, id domain.ChannelID) error {
	return s.kv.Delete(ctx, storageKey(domain.ScopeDirect, symmetricKeySlot, id.String()))
}

// Compile-time assertions that Service implements the key store contracts.
var (
	_ domain.KeyStore          = (*Service)(nil)
	_ domain.SymmetricKeyStore = (*Service)(nil)
)
