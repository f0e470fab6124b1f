package relay_test

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
)

func newRelay(t *testing.T) (*relay.HTTP, *relay.Dialer) {
	t.Helper()
	srv := httptest.NewServer(server.New())
	t.Cleanup(srv.Close)
	return relay.NewHTTP(srv.URL, 5*time.Second), relay.NewDialer(srv.URL, 5*time.Second)
}

func TestDirectChannelMetadata(t *testing.T) {
	ctx := context.Background()
	c, _ := newRelay(t)

	meta, err := c.CreateChannel(ctx, domain.KindDirect, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)
	require.NotEmpty(t, meta.ID)
	assert.Equal(t, domain.MemberID("alice"), meta.Initiator)
	assert.Equal(t, domain.MemberID("bob"), meta.Responder)
	assert.False(t, meta.KeyFinalized)

	require.NoError(t, c.UploadPublicKey(ctx, meta.ID, "alice", "pubA"))
	err = c.UploadPublicKey(ctx, meta.ID, "alice", "pubA2")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = c.UploadPublicKey(ctx, meta.ID, "mallory", "pubM")
	assert.Error(t, err)

	require.NoError(t, c.UploadSymmetricKeys(ctx, meta.ID, map[domain.MemberID]string{
		"alice": "wrapA",
		"bob":   "wrapB",
	}))
	got, err := c.FetchChannel(ctx, meta.ID)
	require.NoError(t, err)
	assert.True(t, got.KeyFinalized)
	assert.Equal(t, "pubA", got.PublicKeys["alice"])
	assert.Equal(t, "wrapA", got.WrappedKeys["alice"])
	assert.Equal(t, "wrapB", got.WrappedKeys["bob"])

	err = c.UploadSymmetricKeys(ctx, meta.ID, map[domain.MemberID]string{"alice": "x", "bob": "y"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDirectChannelNeedsTwoMembers(t *testing.T) {
	c, _ := newRelay(t)
	_, err := c.CreateChannel(context.Background(), domain.KindDirect, []domain.MemberID{"alice"})
	assert.Error(t, err)
}

func TestUnknownChannel(t *testing.T) {
	c, _ := newRelay(t)
	_, err := c.FetchChannel(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGroupJoinAndMessages(t *testing.T) {
	ctx := context.Background()
	c, _ := newRelay(t)

	meta, err := c.CreateChannel(ctx, domain.KindGroup, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)
	require.NoError(t, c.JoinChannel(ctx, meta.ID, "carol"))
	require.NoError(t, c.JoinChannel(ctx, meta.ID, "carol"))

	got, err := c.FetchChannel(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.MemberID{"alice", "bob", "carol"}, got.Members)
	assert.Contains(t, got.JoinedAt, domain.MemberID("carol"))

	msgs, err := c.FetchMessages(ctx, meta.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, c.PostMessage(ctx, meta.ID, []byte(`{"v":1}`)))
	msgs, err = c.FetchMessages(ctx, meta.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"v":1}`, string(msgs[0]))
}

func TestGroupLeaveDropsMemberAndKey(t *testing.T) {
	ctx := context.Background()
	c, _ := newRelay(t)

	meta, err := c.CreateChannel(ctx, domain.KindGroup, []domain.MemberID{"alice", "bob", "carol"})
	require.NoError(t, err)
	require.NoError(t, c.UploadPublicKey(ctx, meta.ID, "carol", "pubC"))

	require.NoError(t, c.LeaveChannel(ctx, meta.ID, "carol"))
	require.NoError(t, c.LeaveChannel(ctx, meta.ID, "carol"))

	got, err := c.FetchChannel(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.MemberID{"alice", "bob"}, got.Members)
	assert.NotContains(t, got.PublicKeys, domain.MemberID("carol"))
	assert.NotContains(t, got.JoinedAt, domain.MemberID("carol"))

	// A former member must join again before publishing a key.
	assert.Error(t, c.UploadPublicKey(ctx, meta.ID, "carol", "pubC2"))
	require.NoError(t, c.JoinChannel(ctx, meta.ID, "carol"))
	require.NoError(t, c.UploadPublicKey(ctx, meta.ID, "carol", "pubC2"))

	assert.ErrorIs(t, c.LeaveChannel(ctx, "nope", "carol"), domain.ErrNotFound)

	direct, err := c.CreateChannel(ctx, domain.KindDirect, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)
	assert.Error(t, c.LeaveChannel(ctx, direct.ID, "bob"))
}

func TestSocketBroadcast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, d := newRelay(t)

	meta, err := c.CreateChannel(ctx, domain.KindDirect, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)

	a, err := d.Dial(ctx, meta.ID, "alice")
	require.NoError(t, err)
	defer a.Close()
	b, err := d.Dial(ctx, meta.ID, "bob")
	require.NoError(t, err)
	defer b.Close()

	// Keep posting until bob's socket is registered and sees a broadcast.
	stop, done := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(done)
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				_ = c.PostMessage(ctx, meta.ID, []byte("ping"))
			}
		}
	}()
	got, err := b.Receive(ctx)
	close(stop)
	<-done
	require.NoError(t, err)
	require.Equal(t, "ping", string(got))

	require.NoError(t, a.Send(ctx, []byte("hello bob")))
	for string(got) != "hello bob" {
		got, err = b.Receive(ctx)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		history, err := c.FetchMessages(ctx, meta.ID)
		return err == nil && len(history) > 0 && string(history[len(history)-1]) == "hello bob"
	}, 2*time.Second, 10*time.Millisecond)

	_, err = d.Dial(ctx, meta.ID, "mallory")
	assert.Error(t, err)
}
