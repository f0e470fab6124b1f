package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretline/internal/domain"
	"secretline/internal/store"
)

// testScryptN keeps key derivation fast in tests.
const testScryptN = 1 << 10

func backends(t *testing.T) map[string]func(t *testing.T) domain.KeyValueStore {
	t.Helper()
	return map[string]func(t *testing.T) domain.KeyValueStore{
		"memory": func(t *testing.T) domain.KeyValueStore { return store.NewMemoryKV() },
		"file":   func(t *testing.T) domain.KeyValueStore { return store.NewFileKV(t.TempDir()) },
		"badger": func(t *testing.T) domain.KeyValueStore {
			kv, err := store.OpenBadgerKV("")
			require.NoError(t, err)
			return kv
		},
		"sealed": func(t *testing.T) domain.KeyValueStore {
			return store.NewSealedKV(store.NewMemoryKV(), "correct horse", testScryptN)
		},
	}
}

func TestKeyValueStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			kv := open(t)
			defer kv.Close()

			_, ok, err := kv.Get(ctx, "directChat.privateKey.c1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set(ctx, "directChat.privateKey.c1", []byte("priv")))
			require.NoError(t, kv.Set(ctx, "directChat.publicKey.c1", []byte("pub")))
			require.NoError(t, kv.Set(ctx, "group.privateKey.g1", []byte("gpriv")))

			v, ok, err := kv.Get(ctx, "directChat.privateKey.c1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("priv"), v)

			require.NoError(t, kv.Set(ctx, "directChat.privateKey.c1", []byte("rotated")))
			v, _, err = kv.Get(ctx, "directChat.privateKey.c1")
			require.NoError(t, err)
			assert.Equal(t, []byte("rotated"), v)

			keys, err := kv.Keys(ctx, "directChat.")
			require.NoError(t, err)
			assert.Equal(t, []string{"directChat.privateKey.c1", "directChat.publicKey.c1"}, keys)

			all, err := kv.Keys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, kv.Delete(ctx, "directChat.privateKey.c1"))
			require.NoError(t, kv.Delete(ctx, "missing"))
			_, ok, err = kv.Get(ctx, "directChat.privateKey.c1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestKeyValueStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	in := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", in))
	in[0] = 'x'

	out, _, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)
}

func TestFileKVPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := store.NewFileKV(dir)
	require.NoError(t, first.Set(ctx, "group.publicKey.g1", []byte("pub")))
	require.NoError(t, first.Close())

	assert.FileExists(t, filepath.Join(dir, "keys.json"))

	second := store.NewFileKV(dir)
	v, ok, err := second.Get(ctx, "group.publicKey.g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("pub"), v)
}

func TestFileKVRejectsUnknownDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keys.json"), []byte(`{"v":9,"entries":{}}`), 0o600))

	_, _, err := store.NewFileKV(dir).Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStorage)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "keys.json"), []byte("not json"), 0o600))
	_, _, err = store.NewFileKV(dir).Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestClosedStoreReportsStorageError(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Close())

	err := kv.Set(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, domain.ErrStorage)

	var se *domain.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "set", se.Op)
	assert.Equal(t, "k", se.Key)
}

func TestSealedKVEncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryKV()
	kv := store.NewSealedKV(inner, "pass", testScryptN)

	require.NoError(t, kv.Set(ctx, "directChat.symmetricKey.c1", []byte("plain key bytes")))

	raw, ok, err := inner.Get(ctx, "directChat.symmetricKey.c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "plain key bytes")

	keys, err := kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"directChat.symmetricKey.c1"}, keys)

	assert.Error(t, kv.Set(ctx, "secretline.sealed.meta", []byte("x")))
}

func TestSealedKVWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryKV()

	good := store.NewSealedKV(inner, "correct", testScryptN)
	require.NoError(t, good.Set(ctx, "k", []byte("v")))

	bad := store.NewSealedKV(inner, "wrong", testScryptN)
	_, _, err := bad.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStorage)

	reopened := store.NewSealedKV(inner, "correct", testScryptN)
	v, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestSealedKVRejectsMovedValue(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryKV()
	kv := store.NewSealedKV(inner, "pass", testScryptN)
	require.NoError(t, kv.Set(ctx, "a", []byte("for a")))

	raw, _, err := inner.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, inner.Set(ctx, "b", raw))

	_, _, err = kv.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrStorage)
}
