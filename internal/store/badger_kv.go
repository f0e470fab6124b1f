package store

import (
	"context"
	"errors"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"secretline/internal/domain"
)

// BadgerKV stores entries in an embedded Badger database.
type BadgerKV struct {
	db *badger.DB
}

var _ domain.KeyValueStore = (*BadgerKV)(nil)

// OpenBadgerKV opens (or creates) a Badger database in dir. An empty dir
// opens an in-memory database.
func OpenBadgerKV(dir string) (*BadgerKV, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil).WithSyncWrites(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.NewStorageError("open", dir, err)
	}
	return &BadgerKV{db: db}, nil
}

func (b *BadgerKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, domain.NewStorageError("get", key, err)
	}
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStorageError("get", key, err)
	}
	return out, true, nil
}

func (b *BadgerKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("set", key, err)
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), append([]byte(nil), value...))
	})
	return domain.NewStorageError("set", key, err)
}

func (b *BadgerKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("delete", key, err)
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return domain.NewStorageError("delete", key, err)
}

func (b *BadgerKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("keys", prefix, err)
	}
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("keys", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *BadgerKV) Close() error {
	return domain.NewStorageError("close", "", b.db.Close())
}
