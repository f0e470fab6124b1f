package app

import (
	"fmt"
	"os"
	"path/filepath"

	"secretline/internal/domain"
	"secretline/internal/relay"
	directsvc "secretline/internal/services/direct"
	groupsvc "secretline/internal/services/group"
	keysvc "secretline/internal/services/keys"
	messagesvc "secretline/internal/services/message"
	sessionsvc "secretline/internal/services/session"
	"secretline/internal/store"
)

// Wire bundles the store, services, and clients for the CLI.
type Wire struct {
	Config   Config
	Store    domain.KeyValueStore
	Keys     *keysvc.Service
	Cache    *sessionsvc.Cache
	Relay    *relay.HTTP
	Dialer   *relay.Dialer
	Direct   *directsvc.Service
	Group    *groupsvc.Service
	Messages *messagesvc.Service
}

// NewWire constructs the dependency graph from cfg. Close releases the store.
func NewWire(cfg Config) (*Wire, error) {
	kv, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	self := domain.MemberID(cfg.Member)
	keys := keysvc.New(kv)
	cache := sessionsvc.New()
	rc := relay.NewHTTP(cfg.RelayURL, cfg.HTTPTimeout)
	dialer := relay.NewDialer(cfg.RelayURL, cfg.HTTPTimeout)

	direct := directsvc.New(self, keys, rc, cache)
	group := groupsvc.New(self, keys, rc, cfg.GroupKeyBits)
	messages := messagesvc.New(self, rc, dialer, direct, group)

	return &Wire{
		Config:   cfg,
		Store:    kv,
		Keys:     keys,
		Cache:    cache,
		Relay:    rc,
		Dialer:   dialer,
		Direct:   direct,
		Group:    group,
		Messages: messages,
	}, nil
}

// OpenStore opens the configured key-value backend, sealed with the
// passphrase when one is set.
func OpenStore(cfg Config) (domain.KeyValueStore, error) {
	var (
		kv  domain.KeyValueStore
		err error
	)
	switch cfg.Store {
	case StoreMemory:
		kv = store.NewMemoryKV()
	case StoreFile, StoreBadger:
		if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
			return nil, fmt.Errorf("create home: %w", err)
		}
		if cfg.Store == StoreFile {
			kv = store.NewFileKV(cfg.Home)
		} else if kv, err = store.OpenBadgerKV(filepath.Join(cfg.Home, "badger")); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.Passphrase != "" {
		kv = store.NewSealedKV(kv, cfg.Passphrase, cfg.ScryptN)
	}
	return kv, nil
}

// Close releases resources held by the wire.
func (w *Wire) Close() error {
	w.Cache.Clear()
	return w.Store.Close()
}
