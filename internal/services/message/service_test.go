package message_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretline/internal/domain"
	"secretline/internal/relay"
	"secretline/internal/relay/server"
	"secretline/internal/services/direct"
	"secretline/internal/services/group"
	"secretline/internal/services/keys"
	"secretline/internal/services/message"
	"secretline/internal/services/session"
	"secretline/internal/store"
)

type user struct {
	direct *direct.Service
	group  *group.Service
	msgs   *message.Service
}

func newUser(id domain.MemberID, rc *relay.HTTP, d *relay.Dialer) *user {
	ks := keys.New(store.NewMemoryKV())
	dir := direct.New(id, ks, rc, session.New())
	grp := group.New(id, ks, rc, 0)
	return &user{direct: dir, group: grp, msgs: message.New(id, rc, d, dir, grp)}
}

func newRelay(t *testing.T) (*relay.HTTP, *relay.Dialer) {
	t.Helper()
	srv := httptest.NewServer(server.New())
	t.Cleanup(srv.Close)
	return relay.NewHTTP(srv.URL, 5*time.Second), relay.NewDialer(srv.URL, 5*time.Second)
}

func directChat(t *testing.T, rc *relay.HTTP, alice, bob *user) domain.ChannelID {
	t.Helper()
	ctx := context.Background()
	meta, err := rc.CreateChannel(ctx, domain.KindDirect, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)
	require.NoError(t, alice.direct.InitializeEncryption(ctx, meta.ID))
	require.NoError(t, bob.direct.InitializeEncryption(ctx, meta.ID))
	require.NoError(t, bob.direct.HandleResponderApproval(ctx, meta.ID))
	return meta.ID
}

func TestDirectSendReceive(t *testing.T) {
	ctx := context.Background()
	rc, d := newRelay(t)
	alice, bob := newUser("alice", rc, d), newUser("bob", rc, d)
	id := directChat(t, rc, alice, bob)

	require.NoError(t, alice.msgs.Send(ctx, domain.KindDirect, id, "one"))
	require.NoError(t, rc.PostMessage(ctx, id, []byte(`"shape sniffing is gone"`)))
	require.NoError(t, bob.msgs.Send(ctx, domain.KindDirect, id, "two"))

	// The relay only ever stored ciphertext.
	raw, err := rc.FetchMessages(ctx, id)
	require.NoError(t, err)
	for _, p := range raw {
		assert.NotContains(t, string(p), `"one"`)
		assert.NotContains(t, string(p), `"two"`)
	}

	got, err := bob.msgs.Receive(ctx, domain.KindDirect, id)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "one", got[0].Plaintext)
	assert.Equal(t, domain.MemberID("alice"), got[0].From)
	assert.NoError(t, got[0].Err)

	assert.True(t, got[1].Undecryptable)
	assert.ErrorIs(t, got[1].Err, domain.ErrProtocol)

	assert.Equal(t, "two", got[2].Plaintext)
	assert.Equal(t, domain.MemberID("bob"), got[2].From)
}

func TestDirectSendBeforeApproval(t *testing.T) {
	ctx := context.Background()
	rc, d := newRelay(t)
	alice := newUser("alice", rc, d)
	meta, err := rc.CreateChannel(ctx, domain.KindDirect, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)
	require.NoError(t, alice.direct.InitializeEncryption(ctx, meta.ID))

	err = alice.msgs.Send(ctx, domain.KindDirect, meta.ID, "early")
	assert.ErrorIs(t, err, domain.ErrChannelNotReady)

	history, err := rc.FetchMessages(ctx, meta.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGroupSendReceive(t *testing.T) {
	ctx := context.Background()
	rc, d := newRelay(t)
	alice, bob := newUser("alice", rc, d), newUser("bob", rc, d)

	meta, err := rc.CreateChannel(ctx, domain.KindGroup, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)
	require.NoError(t, alice.group.InitializeEncryption(ctx, meta.ID))
	require.NoError(t, bob.group.InitializeEncryption(ctx, meta.ID))

	require.NoError(t, alice.msgs.Send(ctx, domain.KindGroup, meta.ID, "hello group"))

	carol := newUser("carol", rc, d)
	require.NoError(t, rc.JoinChannel(ctx, meta.ID, "carol"))
	require.NoError(t, carol.group.InitializeEncryption(ctx, meta.ID))

	got, err := bob.msgs.Receive(ctx, domain.KindGroup, meta.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello group", got[0].Plaintext)

	got, err = carol.msgs.Receive(ctx, domain.KindGroup, meta.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Undecryptable)
	assert.NoError(t, got[0].Err)
}

func TestWatchDeliversLiveMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rc, d := newRelay(t)
	alice, bob := newUser("alice", rc, d), newUser("bob", rc, d)
	id := directChat(t, rc, alice, bob)

	received := make(chan domain.DecryptedMessage, 16)
	watchCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- bob.msgs.Watch(watchCtx, domain.KindDirect, id, func(m domain.DecryptedMessage) {
			received <- m
		})
	}()

	// Resend until the watcher's socket is registered.
	var got domain.DecryptedMessage
	require.Eventually(t, func() bool {
		if err := alice.msgs.Send(ctx, domain.KindDirect, id, "live"); err != nil {
			return false
		}
		select {
		case got = <-received:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "live", got.Plaintext)
	assert.Equal(t, domain.MemberID("alice"), got.From)

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
