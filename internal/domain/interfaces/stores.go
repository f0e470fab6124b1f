package interfaces

import (
	"context"
	"crypto/rsa"

	domaintypes "secretline/internal/domain/types"
)

// KeyValueStore is the local persistence boundary: string keys to opaque
// serialised values. Get reports ok=false for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// KeyStore owns channel key pairs, keyed by (scope, id).
type KeyStore interface {
	GenerateKeyPair(ctx context.Context, scope domaintypes.Scope, id string) (*rsa.PublicKey, error)
	PrivateKey(ctx context.Context, scope domaintypes.Scope, id string) (*rsa.PrivateKey, bool, error)
	PublicKey(ctx context.Context, scope domaintypes.Scope, id string) (*rsa.PublicKey, bool, error)
	HasKeys(ctx context.Context, scope domaintypes.Scope, id string) (bool, error)
	Clear(ctx context.Context, scope domaintypes.Scope, id string) error
	ClearAll(ctx context.Context) error
}

// SymmetricKeyStore persists unwrapped direct-chat keys across sessions.
type SymmetricKeyStore interface {
	SaveSymmetricKey(ctx context.Context, id domaintypes.ChannelID, key domaintypes.SymmetricKey) error
	SymmetricKey(ctx context.Context, id domaintypes.ChannelID) (domaintypes.SymmetricKey, bool, error)
	DeleteSymmetricKey(ctx context.Context, id domaintypes.ChannelID) error
}

// KeyCache holds unwrapped symmetric keys for the lifetime of a process.
type KeyCache interface {
	Store(id domaintypes.ChannelID, key domaintypes.SymmetricKey)
	Get(id domaintypes.ChannelID) (domaintypes.SymmetricKey, bool)
	Delete(id domaintypes.ChannelID)
	Clear()
}
