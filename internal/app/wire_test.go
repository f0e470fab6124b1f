package app_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretline/internal/app"
	"secretline/internal/domain"
	"secretline/internal/relay/server"
)

func newWire(t *testing.T, relayURL, member, store string) *app.Wire {
	t.Helper()
	w, err := app.NewWire(app.Config{
		Home:         t.TempDir(),
		RelayURL:     relayURL,
		Member:       member,
		Passphrase:   "correct horse",
		Store:        store,
		HTTPTimeout:  5 * time.Second,
		GroupKeyBits: 256,
		ScryptN:      1 << 10,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWireDirectConversation(t *testing.T) {
	srv := httptest.NewServer(server.New())
	t.Cleanup(srv.Close)
	ctx := context.Background()

	alice := newWire(t, srv.URL, "alice", app.StoreFile)
	bob := newWire(t, srv.URL, "bob", app.StoreBadger)

	meta, err := alice.Relay.CreateChannel(ctx, domain.KindDirect, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)

	require.NoError(t, alice.Direct.InitializeEncryption(ctx, meta.ID))
	require.NoError(t, bob.Direct.HandleResponderApproval(ctx, meta.ID))

	require.NoError(t, alice.Messages.Send(ctx, domain.KindDirect, meta.ID, "hi bob"))

	got, err := bob.Messages.Receive(ctx, domain.KindDirect, meta.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hi bob", got[0].Plaintext)
	assert.Equal(t, domain.MemberID("alice"), got[0].From)
}

func TestOpenStoreMemoryUnsealed(t *testing.T) {
	kv, err := app.OpenStore(app.Config{Store: app.StoreMemory})
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestOpenStoreUnknown(t *testing.T) {
	_, err := app.OpenStore(app.Config{Store: "nope"})
	assert.Error(t, err)
}
